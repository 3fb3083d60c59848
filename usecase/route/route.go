package route

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/routeledger/backend/domain"
	"github.com/routeledger/backend/repository"
	"github.com/routeledger/backend/usecase"
)

// UseCase orchestrates inventory movements across the local ledger, the
// remote catalog service, the image store and the broker. Every command owns
// a single local transaction; remote effects are compensated explicitly.
type UseCase struct {
	routes  repository.RouteRepository
	tx      repository.Transactor
	catalog usecase.CatalogClient
	images  usecase.ImageStore
	events  usecase.EventPublisher
	logger  *zap.Logger
}

func New(
	routes repository.RouteRepository,
	tx repository.Transactor,
	catalog usecase.CatalogClient,
	images usecase.ImageStore,
	events usecase.EventPublisher,
	logger *zap.Logger,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		routes:  routes,
		tx:      tx,
		catalog: catalog,
		images:  images,
		events:  events,
		logger:  logger,
	}
}

type TransferInput struct {
	ProductID      int64
	ToDepartmentID int64
	ToWorker       string
	Notes          string
	Image          []byte
	ImageFileName  string
}

type RemoveInput struct {
	ProductID     int64
	FromWorker    string
	Reason        string
	Image         []byte
	ImageFileName string
}

type UpdateInput struct {
	RouteID       int64
	Notes         *string
	Image         []byte
	ImageFileName string
}

type BatchFailure struct {
	RouteID int64  `json:"routeId"`
	Reason  string `json:"reason"`
}

type BatchResult struct {
	TotalSuccessful int            `json:"totalSuccessful"`
	TotalFailed     int            `json:"totalFailed"`
	Failed          []BatchFailure `json:"failed"`
}

// Transfer moves a product into another department. The uploaded image, the
// ledger insert and the remote location mutation are coordinated as a saga:
// any failure rolls back the transaction and deletes the uploaded image, so a
// failed transfer leaves no trace.
func (uc *UseCase) Transfer(ctx context.Context, in TransferInput) (*domain.InventoryRoute, error) {
	if in.ProductID <= 0 {
		return nil, domain.NewError(domain.ErrCodeInvalid, "product id must be positive")
	}
	if in.ToDepartmentID <= 0 {
		return nil, domain.NewError(domain.ErrCodeInvalid, "destination department id must be positive")
	}

	product, err := uc.catalog.GetProduct(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	fromDept, err := uc.catalog.GetDepartment(ctx, product.DepartmentID)
	if err != nil {
		return nil, err
	}
	toDept, err := uc.catalog.GetDepartment(ctx, in.ToDepartmentID)
	if err != nil {
		return nil, err
	}

	var (
		route    *domain.InventoryRoute
		imageURL string
	)
	err = uc.tx.WithinTx(ctx, func(txCtx context.Context) error {
		if len(in.Image) > 0 {
			url, err := uc.images.Save(product.InventoryCode, in.Image)
			if err != nil {
				return domain.WrapError(domain.ErrCodeInternal, "image upload failed", err)
			}
			imageURL = url
		}

		r, err := domain.CreateTransfer(
			product.Snapshot(),
			fromDept.ID, fromDept.Name, product.Worker,
			toDept.ID, toDept.Name, in.ToWorker,
		)
		if err != nil {
			return err
		}
		r.UpdateImage(imageURL)
		r.UpdateNotes(in.Notes)

		if err := uc.routes.Create(txCtx, r); err != nil {
			return err
		}

		// Past this point the remote mutation must not be aborted by caller
		// cancellation; a half-applied cancel would leave the catalog and the
		// ledger disagreeing with no record of it.
		if err := uc.catalog.UpdateLocation(context.WithoutCancel(ctx), product.ID, toDept.ID, in.ToWorker); err != nil {
			return err
		}

		r.Complete()
		if err := uc.routes.Update(txCtx, r); err != nil {
			uc.logger.Error("ledger completion failed after catalog mutation succeeded",
				zap.Int64("product_id", product.ID),
				zap.Int64("to_department_id", toDept.ID),
				zap.Error(err),
			)
			return err
		}

		route = r
		return nil
	})
	if err != nil {
		uc.cleanupImage(imageURL)
		return nil, err
	}

	if imageURL != "" {
		uc.publishImageUpdated(ctx, product.ID, in.Image, in.ImageFileName)
	}
	return route, nil
}

// Remove takes a product out of circulation. Removal is terminal, so the
// route is completed at creation and the image (if any) is pushed to the
// catalog synchronously rather than through an event.
func (uc *UseCase) Remove(ctx context.Context, in RemoveInput) (*domain.InventoryRoute, error) {
	if in.ProductID <= 0 {
		return nil, domain.NewError(domain.ErrCodeInvalid, "product id must be positive")
	}

	product, err := uc.catalog.GetProduct(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	dept, err := uc.catalog.GetDepartment(ctx, product.DepartmentID)
	if err != nil {
		return nil, err
	}

	var (
		route    *domain.InventoryRoute
		imageURL string
	)
	err = uc.tx.WithinTx(ctx, func(txCtx context.Context) error {
		if len(in.Image) > 0 {
			url, err := uc.images.Save(product.InventoryCode, in.Image)
			if err != nil {
				return domain.WrapError(domain.ErrCodeInternal, "image upload failed", err)
			}
			imageURL = url
		}

		r, err := domain.CreateRemoval(product.Snapshot(), dept.ID, dept.Name, in.FromWorker, in.Reason)
		if err != nil {
			return err
		}
		r.UpdateImage(imageURL)

		if err := uc.routes.Create(txCtx, r); err != nil {
			return err
		}

		remoteCtx := context.WithoutCancel(ctx)
		if err := uc.catalog.Deactivate(remoteCtx, product.ID); err != nil {
			return err
		}
		if len(in.Image) > 0 {
			if err := uc.catalog.UpdateImage(remoteCtx, product.ID, in.Image, in.ImageFileName); err != nil {
				return err
			}
		}

		route = r
		return nil
	})
	if err != nil {
		uc.cleanupImage(imageURL)
		return nil, err
	}
	return route, nil
}

// Update attaches a new image and/or replaces the notes on an existing route.
func (uc *UseCase) Update(ctx context.Context, in UpdateInput) error {
	route, err := uc.routes.GetByID(ctx, in.RouteID)
	if err != nil {
		return err
	}

	var (
		newURL string
		oldURL = route.ImageURL
	)
	err = uc.tx.WithinTx(ctx, func(txCtx context.Context) error {
		if len(in.Image) > 0 {
			url, err := uc.images.Save(route.Product.InventoryCode, in.Image)
			if err != nil {
				return domain.WrapError(domain.ErrCodeInternal, "image upload failed", err)
			}
			newURL = url
			route.UpdateImage(url)
		}
		if in.Notes != nil {
			route.UpdateNotes(*in.Notes)
		}
		return uc.routes.Update(txCtx, route)
	})
	if err != nil {
		uc.cleanupImage(newURL)
		return err
	}

	if newURL != "" {
		if oldURL != "" {
			uc.cleanupImage(oldURL)
		}
		uc.publishImageUpdated(ctx, route.Product.ProductID, in.Image, in.ImageFileName)
	}
	return nil
}

// Complete marks a route finished.
func (uc *UseCase) Complete(ctx context.Context, id int64) error {
	route, err := uc.routes.GetByID(ctx, id)
	if err != nil {
		return err
	}
	route.Complete()
	return uc.routes.Update(ctx, route)
}

// Delete hard-deletes a route and its image without compensation. Reserved
// for callers with elevated rights.
func (uc *UseCase) Delete(ctx context.Context, id int64) error {
	route, err := uc.routes.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := uc.routes.Delete(ctx, id); err != nil {
		return err
	}
	uc.cleanupImage(route.ImageURL)
	return nil
}

// DeleteWithRollback removes the route and asks the catalog service to
// restore the product to the state its predecessor recorded. Compensation is
// replayed from the ledger itself; a route with no predecessor has no prior
// state and is rejected.
func (uc *UseCase) DeleteWithRollback(ctx context.Context, id int64) (string, error) {
	route, err := uc.routes.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	prev, err := uc.routes.FindPredecessor(ctx, route.Product.ProductID, route.CreatedAt, route.ID)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return "", domain.ErrNoPredecessor
		}
		return "", err
	}

	uc.cleanupImage(route.ImageURL)

	if err := uc.tx.WithinTx(ctx, func(txCtx context.Context) error {
		return uc.routes.Delete(txCtx, id)
	}); err != nil {
		return "", err
	}

	reason := fmt.Sprintf("Route %d was deleted", id)
	event := domain.ProductRollbackEvent{
		ProductID:      route.Product.ProductID,
		ToDepartmentID: prev.ToDepartmentID,
		ToWorker:       prev.ToWorker,
		ImageURL:       prev.ImageURL,
		RolledBackAt:   time.Now().UTC(),
		Reason:         reason,
	}
	if err := uc.events.Publish(ctx, domain.EventProductRollback, fmt.Sprintf("%d", event.ProductID), event); err != nil {
		uc.logger.Error("rollback event publication failed; catalog state not restored",
			zap.Int64("route_id", id),
			zap.Int64("product_id", event.ProductID),
			zap.Error(err),
		)
	}
	return reason, nil
}

// BatchDelete hard-deletes routes one by one, collecting per-route failures.
func (uc *UseCase) BatchDelete(ctx context.Context, ids []int64) BatchResult {
	result := BatchResult{Failed: []BatchFailure{}}
	for _, id := range ids {
		if err := uc.Delete(ctx, id); err != nil {
			result.TotalFailed++
			result.Failed = append(result.Failed, BatchFailure{RouteID: id, Reason: err.Error()})
			continue
		}
		result.TotalSuccessful++
	}
	return result
}

// GetRoute returns a single ledger entry.
func (uc *UseCase) GetRoute(ctx context.Context, id int64) (*domain.InventoryRoute, error) {
	return uc.routes.GetByID(ctx, id)
}

// ListRoutes returns ledger entries, optionally scoped to one product.
func (uc *UseCase) ListRoutes(ctx context.Context, filter repository.RouteFilter) ([]domain.InventoryRoute, error) {
	return uc.routes.List(ctx, filter)
}

func (uc *UseCase) cleanupImage(url string) {
	if url == "" {
		return
	}
	if err := uc.images.Delete(url); err != nil {
		uc.logger.Warn("orphaned image cleanup failed", zap.String("url", url), zap.Error(err))
	}
}

func (uc *UseCase) publishImageUpdated(ctx context.Context, productID int64, data []byte, fileName string) {
	event := domain.ProductImageUpdatedEvent{
		ProductID:     productID,
		ImageData:     data,
		ImageFileName: fileName,
		UpdatedAt:     time.Now().UTC(),
	}
	if err := uc.events.Publish(ctx, domain.EventProductImageUpdated, fmt.Sprintf("%d", productID), event); err != nil {
		uc.logger.Error("image event publication failed", zap.Int64("product_id", productID), zap.Error(err))
	}
}
