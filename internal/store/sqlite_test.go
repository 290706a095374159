package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestSQLiteStore_SetAndGet(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetDocument(ctx, CollectionPlugins, "p1", Document{"name": "Clock", "downloads": float64(3)}, false))

	doc, err := s.GetDocument(ctx, CollectionPlugins, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Clock", doc.String("name"))
	assert.Equal(t, int64(3), doc.Int64("downloads"))
}

func TestSQLiteStore_GetDocument_NotFound(t *testing.T) {
	s := newTestSQLiteStore(t)
	_, err := s.GetDocument(context.Background(), CollectionPlugins, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_Merge(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetDocument(ctx, CollectionPlugins, "p1", Document{"name": "Clock", "isPublic": true}, false))
	require.NoError(t, s.SetDocument(ctx, CollectionPlugins, "p1", Document{"deleted": true}, true))

	doc, err := s.GetDocument(ctx, CollectionPlugins, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Clock", doc.String("name"))
	assert.True(t, doc.Bool("isPublic"))
	assert.True(t, doc.Bool("deleted"))
}

func TestSQLiteStore_UpdateDocument_NotFound(t *testing.T) {
	s := newTestSQLiteStore(t)
	err := s.UpdateDocument(context.Background(), CollectionPlugins, "missing", Document{"deleted": true})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_Query_FilterOrderLimit(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	docs := []struct {
		id        string
		downloads float64
		public    bool
	}{
		{"a", 5, true},
		{"b", 9, true},
		{"c", 1, true},
		{"d", 99, false},
	}
	for _, d := range docs {
		require.NoError(t, s.SetDocument(ctx, CollectionPlugins, d.id,
			Document{"id": d.id, "downloads": d.downloads, "isPublic": d.public}, false))
	}

	results, err := s.Query(ctx, CollectionPlugins,
		[]Filter{Eq("isPublic", true)},
		WithOrderBy("downloads", true), WithLimit(2),
	)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "b", results[0].String("id"))
	assert.Equal(t, "a", results[1].String("id"))
}

func TestSQLiteStore_Query_RowOrderWithoutOrderBy(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, id := range []string{"z", "m", "a"} {
		require.NoError(t, s.SetDocument(ctx, CollectionPlugins, id, Document{"id": id}, false))
	}

	results, err := s.Query(ctx, CollectionPlugins, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "z", results[0].String("id"))
	assert.Equal(t, "m", results[1].String("id"))
	assert.Equal(t, "a", results[2].String("id"))
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	ctx := context.Background()

	s1, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s1.SetDocument(ctx, CollectionUsers, "u1", Document{"email": "a@b.c"}, false))
	require.NoError(t, s1.Close(ctx))

	s2, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer s2.Close(ctx)

	doc, err := s2.GetDocument(ctx, CollectionUsers, "u1")
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", doc.String("email"))
}
