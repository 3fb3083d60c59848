package events

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/routeledger/backend/domain"
	"github.com/routeledger/backend/repository"
	"github.com/routeledger/backend/usecase"
)

// Deduper answers whether a source event id is seen for the first time.
type Deduper interface {
	FirstSeen(ctx context.Context, eventID string) (bool, error)
}

// Processor projects catalog lifecycle events into ledger rows: one row per
// event. When a Deduper is configured, each produced row is keyed by the
// source event id and a replayed event is dropped; without one the projector
// keeps the historical always-insert behavior.
type Processor struct {
	routes  repository.RouteRepository
	images  usecase.ImageStore
	catalog usecase.CatalogClient
	dedupe  Deduper
	logger  *zap.Logger
}

func NewProcessor(
	routes repository.RouteRepository,
	images usecase.ImageStore,
	catalog usecase.CatalogClient,
	dedupe Deduper,
	logger *zap.Logger,
) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		routes:  routes,
		images:  images,
		catalog: catalog,
		dedupe:  dedupe,
		logger:  logger,
	}
}

// Handle dispatches one broker message by event type.
func (p *Processor) Handle(ctx context.Context, eventType string, payload []byte) error {
	switch eventType {
	case domain.EventProductCreated:
		return p.handleCreated(ctx, payload)
	case domain.EventProductUpdated:
		return p.handleUpdated(ctx, payload)
	case domain.EventProductDeleted:
		return p.handleDeleted(ctx, payload)
	default:
		p.logger.Warn("unknown event type, ignoring", zap.String("event_type", eventType))
		return nil
	}
}

func (p *Processor) handleCreated(ctx context.Context, payload []byte) error {
	var event domain.ProductCreatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return domain.WrapError(domain.ErrCodeInvalid, "malformed product-created event", err)
	}
	if event.ProductID <= 0 || event.DepartmentID <= 0 {
		return domain.NewError(domain.ErrCodeInvalid, "product-created event missing product or department id")
	}

	if done, err := p.alreadyProcessed(ctx, event.EventID); err != nil {
		return err
	} else if done {
		return nil
	}

	snapshot := domain.ProductSnapshot{
		ProductID:     event.ProductID,
		InventoryCode: event.InventoryCode,
		Model:         event.Model,
		Vendor:        event.Vendor,
		CategoryName:  event.CategoryName,
		IsWorking:     event.IsWorking,
	}

	var imageURL string
	if len(event.ImageData) > 0 {
		url, err := p.images.Save(event.InventoryCode, event.ImageData)
		if err != nil {
			return domain.WrapError(domain.ErrCodeInternal, "image upload failed", err)
		}
		imageURL = url
	}

	route, err := domain.CreateNewInventory(snapshot, event.DepartmentID, event.DepartmentName, event.Worker, event.IsNewItem)
	if err != nil {
		return domain.WrapError(domain.ErrCodeInvalid, "product-created event rejected by ledger", err)
	}
	route.UpdateImage(imageURL)
	// Catalog-originated creations have nothing left to reconcile, so the
	// route skips the two-phase completion a user-initiated transfer needs.
	route.Complete()

	if err := p.routes.Create(ctx, route); err != nil {
		p.cleanupImage(imageURL)
		return err
	}

	p.logger.Info("ledger entry recorded for catalog creation",
		zap.Int64("product_id", event.ProductID),
		zap.Int64("route_id", route.ID),
	)
	return nil
}

func (p *Processor) handleUpdated(ctx context.Context, payload []byte) error {
	var event domain.ProductUpdatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return domain.WrapError(domain.ErrCodeInvalid, "malformed product-updated event", err)
	}
	if event.ProductID <= 0 {
		return domain.NewError(domain.ErrCodeInvalid, "product-updated event missing product id")
	}

	if done, err := p.alreadyProcessed(ctx, event.EventID); err != nil {
		return err
	} else if done {
		return nil
	}

	// The payload is not trusted as the source of truth for current state;
	// re-fetch the product before recording it.
	product, err := p.catalog.GetProduct(ctx, event.ProductID)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			p.logger.Warn("updated product no longer in catalog, dropping event", zap.Int64("product_id", event.ProductID))
			return nil
		}
		return err
	}

	department, err := p.catalog.GetDepartment(ctx, product.DepartmentID)
	if err != nil {
		if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return err
		}
		department = &domain.Department{ID: product.DepartmentID, Name: domain.FallbackCategory}
	}

	route, err := domain.CreateUpdate(product.Snapshot(), department.ID, department.Name, product.Worker, event.Changes)
	if err != nil {
		return domain.WrapError(domain.ErrCodeInvalid, "product-updated event rejected by ledger", err)
	}
	route.Complete()

	if err := p.routes.Create(ctx, route); err != nil {
		return err
	}

	p.logger.Info("ledger entry recorded for catalog update",
		zap.Int64("product_id", event.ProductID),
		zap.Int64("route_id", route.ID),
	)
	return nil
}

func (p *Processor) handleDeleted(ctx context.Context, payload []byte) error {
	var event domain.ProductDeletedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return domain.WrapError(domain.ErrCodeInvalid, "malformed product-deleted event", err)
	}
	if event.ProductID <= 0 || event.DepartmentID <= 0 {
		return domain.NewError(domain.ErrCodeInvalid, "product-deleted event missing product or department id")
	}

	if done, err := p.alreadyProcessed(ctx, event.EventID); err != nil {
		return err
	} else if done {
		return nil
	}

	// The product row may already be gone, so missing fields degrade to
	// fallbacks instead of failing the projection.
	snapshot := domain.ProductSnapshot{
		ProductID:     event.ProductID,
		InventoryCode: event.InventoryCode,
		Model:         event.Model,
		Vendor:        event.Vendor,
		CategoryName:  event.CategoryName,
		IsWorking:     event.IsWorking,
	}.Normalized()

	departmentName := domain.FallbackCategory
	if department, err := p.catalog.GetDepartment(ctx, event.DepartmentID); err == nil {
		departmentName = department.Name
	}

	route, err := domain.CreateRemoval(snapshot, event.DepartmentID, departmentName, event.Worker, "Product deleted in catalog")
	if err != nil {
		return domain.WrapError(domain.ErrCodeInvalid, "product-deleted event rejected by ledger", err)
	}

	if err := p.routes.Create(ctx, route); err != nil {
		return err
	}

	p.logger.Info("ledger entry recorded for catalog deletion",
		zap.Int64("product_id", event.ProductID),
		zap.Int64("route_id", route.ID),
	)
	return nil
}

func (p *Processor) alreadyProcessed(ctx context.Context, eventID string) (bool, error) {
	if p.dedupe == nil || eventID == "" {
		return false, nil
	}
	first, err := p.dedupe.FirstSeen(ctx, eventID)
	if err != nil {
		return false, domain.WrapError(domain.ErrCodeInternal, "dedupe check failed", err)
	}
	if !first {
		p.logger.Info("duplicate event dropped", zap.String("event_id", eventID))
		return true, nil
	}
	return false, nil
}

func (p *Processor) cleanupImage(url string) {
	if url == "" {
		return
	}
	if err := p.images.Delete(url); err != nil {
		p.logger.Warn("orphaned image cleanup failed", zap.String("url", url), zap.Error(err))
	}
}
