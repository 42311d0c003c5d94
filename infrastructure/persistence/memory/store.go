// Package memory is an in-process store. It is the default driver for
// development and the one the HTTP tests run against.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"treeservice/infrastructure/persistence/abstractions"
)

// Store keeps items in nested maps guarded by one RWMutex. Writers hold the
// lock only for the map update, so unrelated writes never wait on each other
// for longer than that.
type Store struct {
	mu         sync.RWMutex
	partitions map[string]map[string]abstractions.Item
}

// New creates an empty store
func New() *Store {
	return &Store{partitions: make(map[string]map[string]abstractions.Item)}
}

var _ abstractions.Store = (*Store)(nil)

// Get implements abstractions.Reader
func (s *Store) Get(ctx context.Context, key abstractions.Key) (abstractions.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return reader{s}.Get(ctx, key)
}

// BatchGet implements abstractions.Reader
func (s *Store) BatchGet(ctx context.Context, keys []abstractions.Key) (map[abstractions.Key]abstractions.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return reader{s}.BatchGet(ctx, keys)
}

// Query implements abstractions.Reader
func (s *Store) Query(ctx context.Context, pk, skPrefix string, opts abstractions.QueryOptions) ([]abstractions.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return reader{s}.Query(ctx, pk, skPrefix, opts)
}

// Put implements abstractions.Store
func (s *Store) Put(ctx context.Context, item abstractions.Item) error {
	return s.PutBatch(ctx, []abstractions.Item{item})
}

// PutBatch implements abstractions.Store
func (s *Store) PutBatch(ctx context.Context, items []abstractions.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	copies := make([]abstractions.Item, len(items))
	for i, item := range items {
		copies[i] = cloneItem(item)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range copies {
		part, ok := s.partitions[item.Key.PK]
		if !ok {
			part = make(map[string]abstractions.Item)
			s.partitions[item.Key.PK] = part
		}
		part[item.Key.SK] = item
	}
	return nil
}

// PutIfVersion implements abstractions.Store
func (s *Store) PutIfVersion(ctx context.Context, item abstractions.Item, expected int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	item = cloneItem(item)
	item.Version = expected + 1

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.partitions[item.Key.PK][item.Key.SK].Version != expected {
		return abstractions.ErrConflict
	}
	part, ok := s.partitions[item.Key.PK]
	if !ok {
		part = make(map[string]abstractions.Item)
		s.partitions[item.Key.PK] = part
	}
	part[item.Key.SK] = item
	return nil
}

// Delete implements abstractions.Store
func (s *Store) Delete(ctx context.Context, key abstractions.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if part, ok := s.partitions[key.PK]; ok {
		delete(part, key.SK)
		if len(part) == 0 {
			delete(s.partitions, key.PK)
		}
	}
	return nil
}

// View holds the read lock for the whole of fn
func (s *Store) View(ctx context.Context, fn func(abstractions.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(reader{s})
}

// Close implements abstractions.Store
func (s *Store) Close() error { return nil }

// reader reads without locking; callers hold s.mu.
type reader struct {
	s *Store
}

func (r reader) Get(ctx context.Context, key abstractions.Key) (abstractions.Item, error) {
	if err := ctx.Err(); err != nil {
		return abstractions.Item{}, err
	}
	item, ok := r.s.partitions[key.PK][key.SK]
	if !ok {
		return abstractions.Item{}, abstractions.ErrNotFound
	}
	return item, nil
}

func (r reader) BatchGet(ctx context.Context, keys []abstractions.Key) (map[abstractions.Key]abstractions.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[abstractions.Key]abstractions.Item, len(keys))
	for _, key := range keys {
		if item, ok := r.s.partitions[key.PK][key.SK]; ok {
			out[key] = item
		}
	}
	return out, nil
}

func (r reader) Query(ctx context.Context, pk, skPrefix string, opts abstractions.QueryOptions) ([]abstractions.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	part := r.s.partitions[pk]
	sks := make([]string, 0, len(part))
	for sk := range part {
		if strings.HasPrefix(sk, skPrefix) {
			sks = append(sks, sk)
		}
	}
	if opts.Descending {
		sort.Sort(sort.Reverse(sort.StringSlice(sks)))
	} else {
		sort.Strings(sks)
	}
	if opts.Limit > 0 && len(sks) > opts.Limit {
		sks = sks[:opts.Limit]
	}

	out := make([]abstractions.Item, 0, len(sks))
	for _, sk := range sks {
		out = append(out, part[sk])
	}
	return out, nil
}

// Stored data is never mutated in place, so handing the stored slice to
// readers is safe once the write copied it in.
func cloneItem(item abstractions.Item) abstractions.Item {
	data := make([]byte, len(item.Data))
	copy(data, item.Data)
	item.Data = data
	return item
}
