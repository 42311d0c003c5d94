// Package badger stores items in an embedded BadgerDB.
package badger

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"treeservice/infrastructure/persistence/abstractions"
)

// Config controls how the database is opened
type Config struct {
	// Path is the data directory; ignored when InMemory is set
	Path string

	// InMemory keeps everything in RAM, for tests and ephemeral runs
	InMemory bool

	// SyncWrites fsyncs each commit
	SyncWrites bool

	// GCInterval runs value log GC periodically; zero disables it
	GCInterval time.Duration

	Logger *zap.Logger
}

// zapLogger adapts zap to badger's logger interface
type zapLogger struct {
	logger *zap.SugaredLogger
}

func (l *zapLogger) Errorf(format string, args ...interface{})   { l.logger.Errorf(format, args...) }
func (l *zapLogger) Warningf(format string, args ...interface{}) { l.logger.Warnf(format, args...) }
func (l *zapLogger) Infof(format string, args ...interface{})    { l.logger.Debugf(format, args...) }
func (l *zapLogger) Debugf(format string, args ...interface{})   { l.logger.Debugf(format, args...) }

// Store implements abstractions.Store on BadgerDB. Reads inside View share
// one read transaction and therefore one snapshot.
type Store struct {
	db     *badger.DB
	logger *zap.Logger
	stopGC chan struct{}
	doneGC chan struct{}
}

var _ abstractions.Store = (*Store)(nil)

// Open opens or creates the database
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(&zapLogger{logger: logger.Named("badger").Sugar()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.stopGC = make(chan struct{})
		s.doneGC = make(chan struct{})
		go s.runGC(cfg.GCInterval)
	}
	return s, nil
}

func (s *Store) runGC(interval time.Duration) {
	defer close(s.doneGC)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			if err := s.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				s.logger.Warn("badger value log GC error", zap.Error(err))
			}
		}
	}
}

// Close stops GC and closes the database
func (s *Store) Close() error {
	if s.stopGC != nil {
		close(s.stopGC)
		<-s.doneGC
	}
	return s.db.Close()
}

// Keys are length-prefixed so any partition key, including one holding
// separator bytes, maps to a distinct prefix.
func encodeKey(pk, sk string) []byte {
	buf := make([]byte, 0, binary.MaxVarintLen64+len(pk)+len(sk))
	buf = binary.AppendUvarint(buf, uint64(len(pk)))
	buf = append(buf, pk...)
	return append(buf, sk...)
}

func decodeKey(raw []byte) (abstractions.Key, error) {
	n, size := binary.Uvarint(raw)
	if size <= 0 || uint64(len(raw)-size) < n {
		return abstractions.Key{}, errors.New("corrupt key")
	}
	pk := raw[size : size+int(n)]
	return abstractions.Key{PK: string(pk), SK: string(raw[size+int(n):])}, nil
}

// Values carry the version, then the length-prefixed entity type, then data.
func encodeValue(item abstractions.Item) []byte {
	buf := make([]byte, 0, 2*binary.MaxVarintLen64+len(item.EntityType)+len(item.Data))
	buf = binary.AppendUvarint(buf, uint64(item.Version))
	buf = binary.AppendUvarint(buf, uint64(len(item.EntityType)))
	buf = append(buf, item.EntityType...)
	return append(buf, item.Data...)
}

func decodeValue(key abstractions.Key, raw []byte) (abstractions.Item, error) {
	version, vsize := binary.Uvarint(raw)
	if vsize <= 0 {
		return abstractions.Item{}, errors.New("corrupt value")
	}
	raw = raw[vsize:]
	n, size := binary.Uvarint(raw)
	if size <= 0 || uint64(len(raw)-size) < n {
		return abstractions.Item{}, errors.New("corrupt value")
	}
	return abstractions.Item{
		Key:        key,
		EntityType: string(raw[size : size+int(n)]),
		Version:    int64(version),
		Data:       raw[size+int(n):],
	}, nil
}

// Get implements abstractions.Reader
func (s *Store) Get(ctx context.Context, key abstractions.Key) (abstractions.Item, error) {
	var out abstractions.Item
	err := s.View(ctx, func(r abstractions.Reader) error {
		var err error
		out, err = r.Get(ctx, key)
		return err
	})
	return out, err
}

// BatchGet implements abstractions.Reader
func (s *Store) BatchGet(ctx context.Context, keys []abstractions.Key) (map[abstractions.Key]abstractions.Item, error) {
	var out map[abstractions.Key]abstractions.Item
	err := s.View(ctx, func(r abstractions.Reader) error {
		var err error
		out, err = r.BatchGet(ctx, keys)
		return err
	})
	return out, err
}

// Query implements abstractions.Reader
func (s *Store) Query(ctx context.Context, pk, skPrefix string, opts abstractions.QueryOptions) ([]abstractions.Item, error) {
	var out []abstractions.Item
	err := s.View(ctx, func(r abstractions.Reader) error {
		var err error
		out, err = r.Query(ctx, pk, skPrefix, opts)
		return err
	})
	return out, err
}

// Put implements abstractions.Store
func (s *Store) Put(ctx context.Context, item abstractions.Item) error {
	return s.PutBatch(ctx, []abstractions.Item{item})
}

// PutBatch writes all items in one transaction
func (s *Store) PutBatch(ctx context.Context, items []abstractions.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, item := range items {
			if err := txn.Set(encodeKey(item.Key.PK, item.Key.SK), encodeValue(item)); err != nil {
				return fmt.Errorf("set %s/%s: %w", item.Key.PK, item.Key.SK, err)
			}
		}
		return nil
	})
}

// PutIfVersion checks and writes in one transaction. Badger aborts a
// transaction whose read key was committed by another in the meantime,
// which surfaces as ErrConflict too.
func (s *Store) PutIfVersion(ctx context.Context, item abstractions.Item, expected int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := encodeKey(item.Key.PK, item.Key.SK)
	err := s.db.Update(func(txn *badger.Txn) error {
		current, err := txnReader{txn: txn}.Get(ctx, item.Key)
		if err != nil && !errors.Is(err, abstractions.ErrNotFound) {
			return err
		}
		if current.Version != expected {
			return abstractions.ErrConflict
		}
		item.Version = expected + 1
		return txn.Set(key, encodeValue(item))
	})
	if errors.Is(err, badger.ErrConflict) {
		return abstractions.ErrConflict
	}
	return err
}

// Delete implements abstractions.Store
func (s *Store) Delete(ctx context.Context, key abstractions.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(encodeKey(key.PK, key.SK))
	})
}

// View runs fn inside one read transaction
func (s *Store) View(ctx context.Context, fn func(abstractions.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		return fn(txnReader{txn: txn})
	})
}

type txnReader struct {
	txn *badger.Txn
}

func (r txnReader) Get(ctx context.Context, key abstractions.Key) (abstractions.Item, error) {
	if err := ctx.Err(); err != nil {
		return abstractions.Item{}, err
	}
	entry, err := r.txn.Get(encodeKey(key.PK, key.SK))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return abstractions.Item{}, abstractions.ErrNotFound
	}
	if err != nil {
		return abstractions.Item{}, err
	}
	raw, err := entry.ValueCopy(nil)
	if err != nil {
		return abstractions.Item{}, err
	}
	return decodeValue(key, raw)
}

func (r txnReader) BatchGet(ctx context.Context, keys []abstractions.Key) (map[abstractions.Key]abstractions.Item, error) {
	out := make(map[abstractions.Key]abstractions.Item, len(keys))
	for _, key := range keys {
		item, err := r.Get(ctx, key)
		if errors.Is(err, abstractions.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[key] = item
	}
	return out, nil
}

func (r txnReader) Query(ctx context.Context, pk, skPrefix string, opts abstractions.QueryOptions) ([]abstractions.Item, error) {
	prefix := encodeKey(pk, skPrefix)

	iterOpts := badger.DefaultIteratorOptions
	iterOpts.Prefix = prefix
	iterOpts.Reverse = opts.Descending
	it := r.txn.NewIterator(iterOpts)
	defer it.Close()

	seek := prefix
	if opts.Descending {
		// Reverse iteration seeks to the last key with the prefix.
		seek = append(bytes.Clone(prefix), 0xFF)
	}

	var out []abstractions.Item
	for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry := it.Item()
		key, err := decodeKey(entry.KeyCopy(nil))
		if err != nil {
			return nil, err
		}
		raw, err := entry.ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		item, err := decodeValue(key, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
	}
	return out, nil
}
