package usecase

import (
	"context"

	"github.com/routeledger/backend/domain"
)

// CatalogClient talks to the external product catalog service.
type CatalogClient interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	GetDepartment(ctx context.Context, id int64) (*domain.Department, error)
	UpdateLocation(ctx context.Context, productID, departmentID int64, worker string) error
	UpdateImage(ctx context.Context, productID int64, imageData []byte, fileName string) error
	Deactivate(ctx context.Context, productID int64) error
}

// ImageStore persists binary images and hands out stable URLs.
type ImageStore interface {
	Save(ownerCode string, data []byte) (string, error)
	Delete(url string) error
}

// EventPublisher emits typed events to the broker. Delivery is at-least-once;
// callers treat publication as fire-and-forget.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, key string, payload interface{}) error
}
