package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/actormesh/core"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sq.Close() })

	return map[string]Store{
		"in_memory": NewInMemoryStore(),
		"sqlite":    sq,
	}
}

func TestStoreLifecycle(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrSessionNotFound)

			s, err := store.Create(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, "s1", s.ID)
			assert.Empty(t, s.Entries)

			entry := NewEntry(core.NewTask("count files"), core.NewResponse("file_ops", "3"))
			require.NoError(t, store.Append(ctx, "s1", entry))

			got, err := store.Get(ctx, "s1")
			require.NoError(t, err)
			require.Len(t, got.Entries, 1)
			assert.Equal(t, entry.ID, got.Entries[0].ID)
			assert.Equal(t, "count files", got.Entries[0].Task.Description)
			assert.Equal(t, "3", got.Entries[0].Response.Result)

			ids, err := store.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"s1"}, ids)

			require.NoError(t, store.Delete(ctx, "s1"))
			_, err = store.Get(ctx, "s1")
			assert.ErrorIs(t, err, ErrSessionNotFound)

			require.NoError(t, store.Delete(ctx, "s1"), "deleting an unknown id is a no-op")
		})
	}
}

func TestStoreAppendCreatesSession(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			entry := NewEntry(core.NewTask("t"), core.NewResponse("a", "r"))
			require.NoError(t, store.Append(ctx, "fresh", entry))

			got, err := store.Get(ctx, "fresh")
			require.NoError(t, err)
			assert.Len(t, got.Entries, 1)
		})
	}
}

func TestStoreRecordsFailures(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			resp := core.NewFailureResponse("worker", core.FailureIterationLimit, "budget spent")
			require.NoError(t, store.Append(ctx, "s", NewEntry(core.NewTask("t"), resp)))

			got, err := store.Get(ctx, "s")
			require.NoError(t, err)
			require.Len(t, got.Entries, 1)
			require.NotNil(t, got.Entries[0].Response.Failure)
			assert.Equal(t, core.FailureIterationLimit, got.Entries[0].Response.Failure.Kind)
		})
	}
}

func TestStorePreservesEntryOrder(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for i, desc := range []string{"first", "second", "third"} {
				entry := NewEntry(core.NewTask(desc), core.NewResponse("a", desc))
				require.NoError(t, store.Append(ctx, "ordered", entry), "entry %d", i)
			}

			got, err := store.Get(ctx, "ordered")
			require.NoError(t, err)
			require.Len(t, got.Entries, 3)
			assert.Equal(t, "first", got.Entries[0].Task.Description)
			assert.Equal(t, "third", got.Entries[2].Task.Description)
		})
	}
}

func TestInMemoryStoreIsolation(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "s", NewEntry(core.NewTask("t"), core.NewResponse("a", "r"))))

	got, err := store.Get(ctx, "s")
	require.NoError(t, err)
	got.Entries[0].Response.Result = "tampered"

	again, err := store.Get(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, "r", again.Entries[0].Response.Result, "callers must not mutate store state")
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, "durable", NewEntry(core.NewTask("t"), core.NewResponse("a", "r"))))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "durable")
	require.NoError(t, err)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, "r", got.Entries[0].Response.Result)
}
