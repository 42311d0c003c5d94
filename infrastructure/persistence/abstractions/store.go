// Package abstractions defines the key/value store every driver implements.
//
// Records are addressed by a partition key and a sort key, the layout the
// DynamoDB driver uses natively; the embedded drivers emulate it.
package abstractions

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no item is stored under the key
var ErrNotFound = errors.New("item not found")

// ErrConflict is returned by PutIfVersion when the stored version moved
var ErrConflict = errors.New("item version conflict")

// Key addresses one item
type Key struct {
	PK string
	SK string
}

// Item is an opaque record; Data is owned by the store once written.
// Version is zero for items written with Put and counts guarded writes
// made through PutIfVersion.
type Item struct {
	Key        Key
	EntityType string
	Version    int64
	Data       []byte
}

// QueryOptions controls a partition query
type QueryOptions struct {
	// Limit caps the number of items returned; zero means no limit
	Limit int

	// Descending returns items in reverse sort key order
	Descending bool
}

// Reader is the read half of a store. Inside Store.View all reads observe
// the same state.
type Reader interface {
	// Get returns the item at key or ErrNotFound
	Get(ctx context.Context, key Key) (Item, error)

	// BatchGet returns the stored items among keys; missing keys are omitted
	BatchGet(ctx context.Context, keys []Key) (map[Key]Item, error)

	// Query returns the items of partition pk whose sort key starts with
	// skPrefix, in sort key order
	Query(ctx context.Context, pk, skPrefix string, opts QueryOptions) ([]Item, error)
}

// Store is a key/value store with atomic batches and snapshot reads
type Store interface {
	Reader

	// Put inserts or replaces one item
	Put(ctx context.Context, item Item) error

	// PutBatch writes all items or none
	PutBatch(ctx context.Context, items []Item) error

	// PutIfVersion writes item at Version expected+1 when the stored version
	// equals expected. A missing item has version zero. On mismatch it
	// returns ErrConflict and writes nothing.
	PutIfVersion(ctx context.Context, item Item, expected int64) error

	// Delete removes one item; deleting a missing item is not an error
	Delete(ctx context.Context, key Key) error

	// View runs fn against a consistent snapshot
	View(ctx context.Context, fn func(Reader) error) error

	// Close releases the store
	Close() error
}
