package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fedorten/resursGraf/internal/models"
	"github.com/fedorten/resursGraf/internal/store"
	"github.com/fedorten/resursGraf/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type historyStore interface {
	Load(ctx context.Context, resource string) (*models.History, error)
	Save(ctx context.Context, h *models.History) error
	Ping(ctx context.Context) error
	Close() error
}

func sampleHistory(fetched time.Time) *models.History {
	return &models.History{
		Resource:  "gold",
		Source:    models.ProviderYahoo,
		FetchedAt: fetched,
		Points: []models.PricePoint{
			{Date: "2024-01-01", Price: 2063.1},
			{Date: "2024-01-08", Price: 2051.6},
		},
	}
}

// exerciseStore runs the contract every backend must satisfy.
func exerciseStore(t *testing.T, s historyStore) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.Ping(ctx))

	got, err := s.Load(ctx, "gold")
	require.NoError(t, err)
	assert.Nil(t, got, "missing resource should load as nil")

	fetched := time.Date(2024, 1, 9, 8, 30, 0, 0, time.UTC)
	require.NoError(t, s.Save(ctx, sampleHistory(fetched)))

	got, err = s.Load(ctx, "gold")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "gold", got.Resource)
	assert.Equal(t, models.ProviderYahoo, got.Source)
	assert.True(t, got.FetchedAt.Equal(fetched), "fetchedAt %s", got.FetchedAt)
	assert.Equal(t, sampleHistory(fetched).Points, got.Points)

	replaced := &models.History{
		Resource:  "gold",
		Source:    models.ProviderYahoo,
		FetchedAt: fetched.Add(time.Hour),
		Points:    []models.PricePoint{{Date: "2024-01-15", Price: 2029.3}},
	}
	require.NoError(t, s.Save(ctx, replaced))

	got, err = s.Load(ctx, "gold")
	require.NoError(t, err)
	assert.Equal(t, replaced.Points, got.Points)

	other, err := s.Load(ctx, "silver")
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestMemory(t *testing.T) {
	exerciseStore(t, store.NewMemory())
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	h := sampleHistory(time.Now())
	require.NoError(t, m.Save(ctx, h))

	h.Points[0].Price = 0
	got, err := m.Load(ctx, "gold")
	require.NoError(t, err)
	assert.Equal(t, 2063.1, got.Points[0].Price)

	got.Points[1].Price = 0
	again, err := m.Load(ctx, "gold")
	require.NoError(t, err)
	assert.Equal(t, 2051.6, again.Points[1].Price)
}

func TestFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "history")
	f, err := store.NewFile(dir)
	require.NoError(t, err)
	exerciseStore(t, f)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files should be renamed away")
	assert.Equal(t, "gold.json", entries[0].Name())
}

func TestFile_CorruptDocument(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "oil.json"), []byte("{not json"), 0o644))

	f, err := store.NewFile(dir)
	require.NoError(t, err)
	_, err = f.Load(context.Background(), "oil")
	assert.Error(t, err)
}

func TestSQLite(t *testing.T) {
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "resursgraf.db"))
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLite_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resursgraf.db")
	fetched := time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC)

	s, err := store.NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), sampleHistory(fetched)))
	require.NoError(t, s.Close())

	s, err = store.NewSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Load(context.Background(), "gold")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Len(t, got.Points, 2)
}

func TestRedis(t *testing.T) {
	addr := testutil.SetupRedis(t)

	r, err := store.NewRedis(context.Background(), store.RedisConfig{Addr: addr})
	require.NoError(t, err)
	defer r.Close()
	exerciseStore(t, r)
}
