package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routeledger/backend/domain"
	"github.com/routeledger/backend/internal/infrastructure/blob"
	"github.com/routeledger/backend/repository"
)

type stubRoutes struct {
	referenced map[string]struct{}
}

func (s *stubRoutes) GetByID(context.Context, int64) (*domain.InventoryRoute, error) {
	return nil, domain.ErrRouteNotFound
}

func (s *stubRoutes) List(context.Context, repository.RouteFilter) ([]domain.InventoryRoute, error) {
	return nil, nil
}

func (s *stubRoutes) Create(context.Context, *domain.InventoryRoute) error { return nil }
func (s *stubRoutes) Update(context.Context, *domain.InventoryRoute) error { return nil }
func (s *stubRoutes) Delete(context.Context, int64) error                  { return nil }

func (s *stubRoutes) FindPredecessor(context.Context, int64, time.Time, int64) (*domain.InventoryRoute, error) {
	return nil, domain.ErrRouteNotFound
}

func (s *stubRoutes) ImageURLs(context.Context) (map[string]struct{}, error) {
	return s.referenced, nil
}

func TestSweep(t *testing.T) {
	store, err := blob.Open(filepath.Join(t.TempDir(), "images.db"), "/images")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	referencedURL, err := store.Save("1001", []byte("kept"))
	require.NoError(t, err)
	orphanURL, err := store.Save("2002", []byte("orphan"))
	require.NoError(t, err)

	routes := &stubRoutes{referenced: map[string]struct{}{referencedURL: {}}}
	j := NewJanitor(store, routes, nil, JanitorConfig{Interval: time.Hour, MinAge: time.Nanosecond})

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, j.Sweep(context.Background()))

	_, err = store.Get(store.KeyFromURL(referencedURL))
	assert.NoError(t, err, "referenced blob must survive the sweep")

	_, err = store.Get(store.KeyFromURL(orphanURL))
	assert.ErrorIs(t, err, blob.ErrNotFound, "orphaned blob must be swept")
}

func TestSweep_MinAgeProtectsFreshUploads(t *testing.T) {
	store, err := blob.Open(filepath.Join(t.TempDir(), "images.db"), "/images")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	freshURL, err := store.Save("1001", []byte("in-flight"))
	require.NoError(t, err)

	j := NewJanitor(store, &stubRoutes{}, nil, JanitorConfig{Interval: time.Hour, MinAge: time.Hour})
	require.NoError(t, j.Sweep(context.Background()))

	// The blob is unreferenced but younger than MinAge: a saga may still be
	// in flight, so the sweep leaves it alone.
	_, err = store.Get(store.KeyFromURL(freshURL))
	assert.NoError(t, err)
}
