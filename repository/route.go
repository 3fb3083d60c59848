package repository

import (
	"context"
	"time"

	"github.com/routeledger/backend/domain"
)

type RouteFilter struct {
	ProductID int64
	Limit     int
	Offset    int
}

// RouteRepository persists InventoryRoute aggregates.
type RouteRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.InventoryRoute, error)
	List(ctx context.Context, filter RouteFilter) ([]domain.InventoryRoute, error)
	Create(ctx context.Context, route *domain.InventoryRoute) error
	Update(ctx context.Context, route *domain.InventoryRoute) error
	Delete(ctx context.Context, id int64) error
	// FindPredecessor returns the most recent route for the product created
	// strictly before the given route position, or domain.ErrRouteNotFound.
	FindPredecessor(ctx context.Context, productID int64, before time.Time, beforeID int64) (*domain.InventoryRoute, error)
	// ImageURLs returns the set of image URLs referenced by any route.
	ImageURLs(ctx context.Context) (map[string]struct{}, error)
}

// Transactor scopes a function to a single storage transaction. Repository
// calls made with the context passed to fn join that transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
