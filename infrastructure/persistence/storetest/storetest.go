// Package storetest holds the behaviour every abstractions.Store driver
// must share. Driver packages call Run from their own tests.
package storetest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treeservice/infrastructure/persistence/abstractions"
)

// Factory returns an empty store; Run closes it when the subtest ends
type Factory func(t *testing.T) abstractions.Store

func item(pk, sk, data string) abstractions.Item {
	return abstractions.Item{Key: abstractions.Key{PK: pk, SK: sk}, EntityType: "TEST", Data: []byte(data)}
}

// Run exercises a store driver
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()

	open := func(t *testing.T) abstractions.Store {
		s := newStore(t)
		t.Cleanup(func() { _ = s.Close() })
		return s
	}

	t.Run("get missing key", func(t *testing.T) {
		s := open(t)
		_, err := s.Get(ctx, abstractions.Key{PK: "P", SK: "S"})
		assert.ErrorIs(t, err, abstractions.ErrNotFound)
	})

	t.Run("put then get", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Put(ctx, item("P", "S", "one")))

		got, err := s.Get(ctx, abstractions.Key{PK: "P", SK: "S"})
		require.NoError(t, err)
		assert.Equal(t, "TEST", got.EntityType)
		assert.Equal(t, []byte("one"), got.Data)

		require.NoError(t, s.Put(ctx, item("P", "S", "two")))
		got, err = s.Get(ctx, abstractions.Key{PK: "P", SK: "S"})
		require.NoError(t, err)
		assert.Equal(t, []byte("two"), got.Data)
	})

	t.Run("partition keys do not bleed into each other", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.PutBatch(ctx, []abstractions.Item{
			item("A", "BX", "1"),
			item("AB", "X", "2"),
		}))

		items, err := s.Query(ctx, "A", "", abstractions.QueryOptions{})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "BX", items[0].Key.SK)
	})

	t.Run("batch get omits missing keys", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.PutBatch(ctx, []abstractions.Item{item("N#1", "M", "a"), item("N#2", "M", "b")}))

		keys := []abstractions.Key{{PK: "N#1", SK: "M"}, {PK: "N#3", SK: "M"}, {PK: "N#2", SK: "M"}, {PK: "N#1", SK: "M"}}
		got, err := s.BatchGet(ctx, keys)
		require.NoError(t, err)
		assert.Len(t, got, 2)
		assert.Equal(t, []byte("a"), got[abstractions.Key{PK: "N#1", SK: "M"}].Data)
		assert.Equal(t, []byte("b"), got[abstractions.Key{PK: "N#2", SK: "M"}].Data)
	})

	t.Run("query prefix order and limit", func(t *testing.T) {
		s := open(t)
		var items []abstractions.Item
		for i := 1; i <= 5; i++ {
			items = append(items, item("T#1", fmt.Sprintf("H#%03d", i), fmt.Sprint(i)))
		}
		items = append(items, item("T#1", "OTHER", "x"))
		require.NoError(t, s.PutBatch(ctx, items))

		asc, err := s.Query(ctx, "T#1", "H#", abstractions.QueryOptions{})
		require.NoError(t, err)
		require.Len(t, asc, 5)
		assert.Equal(t, "H#001", asc[0].Key.SK)
		assert.Equal(t, "H#005", asc[4].Key.SK)

		desc, err := s.Query(ctx, "T#1", "H#", abstractions.QueryOptions{Limit: 2, Descending: true})
		require.NoError(t, err)
		require.Len(t, desc, 2)
		assert.Equal(t, "H#005", desc[0].Key.SK)
		assert.Equal(t, "H#004", desc[1].Key.SK)

		none, err := s.Query(ctx, "T#2", "", abstractions.QueryOptions{})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("delete", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Put(ctx, item("P", "S", "x")))
		require.NoError(t, s.Delete(ctx, abstractions.Key{PK: "P", SK: "S"}))
		require.NoError(t, s.Delete(ctx, abstractions.Key{PK: "P", SK: "S"}))

		_, err := s.Get(ctx, abstractions.Key{PK: "P", SK: "S"})
		assert.ErrorIs(t, err, abstractions.ErrNotFound)
	})

	t.Run("view reads", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Put(ctx, item("P", "S", "x")))

		err := s.View(ctx, func(r abstractions.Reader) error {
			got, err := r.Get(ctx, abstractions.Key{PK: "P", SK: "S"})
			if err != nil {
				return err
			}
			assert.Equal(t, []byte("x"), got.Data)
			items, err := r.Query(ctx, "P", "", abstractions.QueryOptions{})
			assert.Len(t, items, 1)
			return err
		})
		require.NoError(t, err)
	})

	t.Run("view propagates callback error", func(t *testing.T) {
		s := open(t)
		boom := fmt.Errorf("boom")
		err := s.View(ctx, func(abstractions.Reader) error { return boom })
		assert.ErrorIs(t, err, boom)
	})

	t.Run("versioned put", func(t *testing.T) {
		s := open(t)
		key := abstractions.Key{PK: "PROJECT", SK: "P#1"}

		require.NoError(t, s.PutIfVersion(ctx, item("PROJECT", "P#1", "v1"), 0))
		got, err := s.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.Version)

		assert.ErrorIs(t, s.PutIfVersion(ctx, item("PROJECT", "P#1", "stale"), 0), abstractions.ErrConflict)
		require.NoError(t, s.PutIfVersion(ctx, item("PROJECT", "P#1", "v2"), got.Version))
		assert.ErrorIs(t, s.PutIfVersion(ctx, item("PROJECT", "P#1", "late"), got.Version), abstractions.ErrConflict)

		got, err = s.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.Version)
		assert.Equal(t, []byte("v2"), got.Data)

		// A conflict on a missing key must not create it
		assert.ErrorIs(t, s.PutIfVersion(ctx, item("PROJECT", "P#2", "x"), 3), abstractions.ErrConflict)
		_, err = s.Get(ctx, abstractions.Key{PK: "PROJECT", SK: "P#2"})
		assert.ErrorIs(t, err, abstractions.ErrNotFound)
	})

	t.Run("stored data is not aliased", func(t *testing.T) {
		s := open(t)
		data := []byte("abc")
		require.NoError(t, s.Put(ctx, abstractions.Item{Key: abstractions.Key{PK: "P", SK: "S"}, Data: data}))
		data[0] = 'z'

		got, err := s.Get(ctx, abstractions.Key{PK: "P", SK: "S"})
		require.NoError(t, err)
		assert.Equal(t, []byte("abc"), got.Data)
	})
}
