package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/routeledger/backend/domain"
	"github.com/routeledger/backend/repository"
)

type routeRepository struct {
	pool *pgxpool.Pool
}

// NewRouteRepository returns a Postgres-backed implementation of RouteRepository.
// The same value implements repository.Transactor.
func NewRouteRepository(pool *pgxpool.Pool) *RouteRepo {
	return &RouteRepo{routeRepository{pool: pool}}
}

// RouteRepo bundles the repository with its transaction support.
type RouteRepo struct {
	routeRepository
}

var (
	_ repository.RouteRepository = (*RouteRepo)(nil)
	_ repository.Transactor      = (*RouteRepo)(nil)
)

const routeColumns = `
	id, route_type,
	product_id, inventory_code, model, vendor, category_name, is_working,
	from_department_id, from_department, to_department_id, to_department,
	from_worker, to_worker, image_url, notes,
	is_completed, completed_at, created_at
`

func (r *routeRepository) GetByID(ctx context.Context, id int64) (*domain.InventoryRoute, error) {
	query := `SELECT ` + routeColumns + ` FROM inventory_routes WHERE id = $1`
	row := r.conn(ctx).QueryRow(ctx, query, id)
	return scanRoute(row)
}

func (r *routeRepository) List(ctx context.Context, filter repository.RouteFilter) ([]domain.InventoryRoute, error) {
	query := `
	SELECT ` + routeColumns + `
	FROM inventory_routes
	WHERE ($1 = 0 OR product_id = $1)
	ORDER BY created_at DESC, id DESC
	LIMIT $2 OFFSET $3
	`
	rows, err := r.conn(ctx).Query(ctx, query, filter.ProductID, clampLimit(filter.Limit), filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routes []domain.InventoryRoute
	for rows.Next() {
		route, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		routes = append(routes, *route)
	}
	return routes, rows.Err()
}

func (r *routeRepository) Create(ctx context.Context, route *domain.InventoryRoute) error {
	if route == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO inventory_routes (
		route_type,
		product_id, inventory_code, model, vendor, category_name, is_working,
		from_department_id, from_department, to_department_id, to_department,
		from_worker, to_worker, image_url, notes,
		is_completed, completed_at, created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	RETURNING id
	`

	return r.conn(ctx).QueryRow(ctx, query,
		string(route.RouteType),
		route.Product.ProductID,
		route.Product.InventoryCode,
		route.Product.Model,
		route.Product.Vendor,
		route.Product.CategoryName,
		route.Product.IsWorking,
		route.FromDepartmentID,
		nullString(route.FromDepartment),
		route.ToDepartmentID,
		route.ToDepartment,
		nullString(route.FromWorker),
		nullString(route.ToWorker),
		nullString(route.ImageURL),
		nullString(route.Notes),
		route.IsCompleted,
		route.CompletedAt,
		route.CreatedAt,
	).Scan(&route.ID)
}

func (r *routeRepository) Update(ctx context.Context, route *domain.InventoryRoute) error {
	if route == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE inventory_routes
	SET image_url = $2,
		notes = $3,
		is_completed = $4,
		completed_at = $5
	WHERE id = $1
	`
	tag, err := r.conn(ctx).Exec(ctx, query,
		route.ID,
		nullString(route.ImageURL),
		nullString(route.Notes),
		route.IsCompleted,
		route.CompletedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRouteNotFound
	}
	return nil
}

func (r *routeRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM inventory_routes WHERE id = $1`
	tag, err := r.conn(ctx).Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRouteNotFound
	}
	return nil
}

func (r *routeRepository) FindPredecessor(ctx context.Context, productID int64, before time.Time, beforeID int64) (*domain.InventoryRoute, error) {
	query := `
	SELECT ` + routeColumns + `
	FROM inventory_routes
	WHERE product_id = $1
	  AND (created_at < $2 OR (created_at = $2 AND id < $3))
	ORDER BY created_at DESC, id DESC
	LIMIT 1
	`
	row := r.conn(ctx).QueryRow(ctx, query, productID, before, beforeID)
	return scanRoute(row)
}

func (r *routeRepository) ImageURLs(ctx context.Context) (map[string]struct{}, error) {
	const query = `SELECT DISTINCT image_url FROM inventory_routes WHERE image_url IS NOT NULL`
	rows, err := r.conn(ctx).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	urls := make(map[string]struct{})
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, err
		}
		urls[url] = struct{}{}
	}
	return urls, rows.Err()
}

func scanRoute(row interface {
	Scan(dest ...interface{}) error
}) (*domain.InventoryRoute, error) {
	var route domain.InventoryRoute
	var (
		routeType      string
		fromDepartment *string
		fromWorker     *string
		toWorker       *string
		imageURL       *string
		notes          *string
	)

	if err := row.Scan(
		&route.ID,
		&routeType,
		&route.Product.ProductID,
		&route.Product.InventoryCode,
		&route.Product.Model,
		&route.Product.Vendor,
		&route.Product.CategoryName,
		&route.Product.IsWorking,
		&route.FromDepartmentID,
		&fromDepartment,
		&route.ToDepartmentID,
		&route.ToDepartment,
		&fromWorker,
		&toWorker,
		&imageURL,
		&notes,
		&route.IsCompleted,
		&route.CompletedAt,
		&route.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRouteNotFound
		}
		return nil, err
	}

	route.RouteType = domain.RouteType(routeType)
	route.FromDepartment = deref(fromDepartment)
	route.FromWorker = deref(fromWorker)
	route.ToWorker = deref(toWorker)
	route.ImageURL = deref(imageURL)
	route.Notes = deref(notes)

	return &route, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 100
	}
	return limit
}
