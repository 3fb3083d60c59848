package events

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routeledger/backend/domain"
	"github.com/routeledger/backend/repository"
)

type memoryRoutes struct {
	created []domain.InventoryRoute
	nextID  int64
}

func (m *memoryRoutes) GetByID(context.Context, int64) (*domain.InventoryRoute, error) {
	return nil, domain.ErrRouteNotFound
}

func (m *memoryRoutes) List(context.Context, repository.RouteFilter) ([]domain.InventoryRoute, error) {
	return m.created, nil
}

func (m *memoryRoutes) Create(_ context.Context, route *domain.InventoryRoute) error {
	m.nextID++
	route.ID = m.nextID
	m.created = append(m.created, *route)
	return nil
}

func (m *memoryRoutes) Update(context.Context, *domain.InventoryRoute) error { return nil }
func (m *memoryRoutes) Delete(context.Context, int64) error                  { return nil }

func (m *memoryRoutes) FindPredecessor(context.Context, int64, time.Time, int64) (*domain.InventoryRoute, error) {
	return nil, domain.ErrRouteNotFound
}

func (m *memoryRoutes) ImageURLs(context.Context) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}

type memoryImages struct {
	seq   int
	saved map[string][]byte
}

func (m *memoryImages) Save(ownerCode string, data []byte) (string, error) {
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	m.seq++
	url := fmt.Sprintf("/images/%s_%d", ownerCode, m.seq)
	m.saved[url] = data
	return url, nil
}

func (m *memoryImages) Delete(url string) error {
	delete(m.saved, url)
	return nil
}

type stubCatalog struct {
	product    *domain.Product
	department *domain.Department
}

func (s *stubCatalog) GetProduct(context.Context, int64) (*domain.Product, error) {
	if s.product == nil {
		return nil, domain.ErrProductNotFound
	}
	clone := *s.product
	return &clone, nil
}

func (s *stubCatalog) GetDepartment(context.Context, int64) (*domain.Department, error) {
	if s.department == nil {
		return nil, domain.ErrDepartmentNotFound
	}
	clone := *s.department
	return &clone, nil
}

func (s *stubCatalog) UpdateLocation(context.Context, int64, int64, string) error { return nil }
func (s *stubCatalog) UpdateImage(context.Context, int64, []byte, string) error   { return nil }
func (s *stubCatalog) Deactivate(context.Context, int64) error                    { return nil }

type memoryDeduper struct {
	seen map[string]bool
}

func (m *memoryDeduper) FirstSeen(_ context.Context, eventID string) (bool, error) {
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	if m.seen[eventID] {
		return false, nil
	}
	m.seen[eventID] = true
	return true, nil
}

func marshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestHandleCreated(t *testing.T) {
	routes := &memoryRoutes{}
	images := &memoryImages{}
	p := NewProcessor(routes, images, &stubCatalog{}, nil, nil)

	payload := marshal(t, domain.ProductCreatedEvent{
		EventID:        "evt-1",
		ProductID:      42,
		InventoryCode:  "1001",
		Model:          "ThinkPad T14",
		Vendor:         "Lenovo",
		CategoryName:   "Laptops",
		IsWorking:      true,
		DepartmentID:   1,
		DepartmentName: "Warehouse",
		Worker:         "mlopez",
		IsNewItem:      true,
		ImageData:      []byte("jpeg-bytes"),
		ImageFileName:  "laptop.jpg",
	})

	require.NoError(t, p.Handle(context.Background(), domain.EventProductCreated, payload))
	require.Len(t, routes.created, 1)

	route := routes.created[0]
	assert.Equal(t, domain.RouteTypeNew, route.RouteType)
	assert.Equal(t, int64(42), route.Product.ProductID)
	assert.Equal(t, "Warehouse", route.ToDepartment)
	assert.True(t, route.IsCompleted, "catalog creations are completed immediately")
	assert.NotEmpty(t, route.ImageURL)
	assert.Len(t, images.saved, 1)
}

func TestHandleCreated_DuplicateWithoutDeduper(t *testing.T) {
	routes := &memoryRoutes{}
	p := NewProcessor(routes, &memoryImages{}, &stubCatalog{}, nil, nil)

	payload := marshal(t, domain.ProductCreatedEvent{
		EventID:        "evt-1",
		ProductID:      42,
		InventoryCode:  "1001",
		DepartmentID:   1,
		DepartmentName: "Warehouse",
	})

	require.NoError(t, p.Handle(context.Background(), domain.EventProductCreated, payload))
	require.NoError(t, p.Handle(context.Background(), domain.EventProductCreated, payload))

	// Without a dedupe key the projector always inserts: a replayed message
	// produces a second ledger row.
	assert.Len(t, routes.created, 2)
}

func TestHandleCreated_DuplicateWithDeduper(t *testing.T) {
	routes := &memoryRoutes{}
	p := NewProcessor(routes, &memoryImages{}, &stubCatalog{}, &memoryDeduper{}, nil)

	payload := marshal(t, domain.ProductCreatedEvent{
		EventID:        "evt-1",
		ProductID:      42,
		InventoryCode:  "1001",
		DepartmentID:   1,
		DepartmentName: "Warehouse",
	})

	require.NoError(t, p.Handle(context.Background(), domain.EventProductCreated, payload))
	require.NoError(t, p.Handle(context.Background(), domain.EventProductCreated, payload))

	assert.Len(t, routes.created, 1, "deduper keyed by event id must drop the replay")
}

func TestHandleDeleted_MissingFieldsDegrade(t *testing.T) {
	routes := &memoryRoutes{}
	p := NewProcessor(routes, &memoryImages{}, &stubCatalog{}, nil, nil)

	payload := marshal(t, domain.ProductDeletedEvent{
		EventID:       "evt-7",
		ProductID:     7,
		InventoryCode: "2002",
		DepartmentID:  3,
	})

	require.NoError(t, p.Handle(context.Background(), domain.EventProductDeleted, payload))
	require.Len(t, routes.created, 1)

	route := routes.created[0]
	assert.Equal(t, domain.RouteTypeRemoval, route.RouteType)
	assert.Equal(t, "No Name", route.Product.Model)
	assert.Equal(t, "No Name", route.Product.Vendor)
	assert.Equal(t, "Unknown", route.Product.CategoryName)
	assert.True(t, route.IsCompleted)
}

func TestHandleUpdated_RefetchesProduct(t *testing.T) {
	routes := &memoryRoutes{}
	catalog := &stubCatalog{
		product: &domain.Product{
			ID:            42,
			InventoryCode: "1001",
			Model:         "ThinkPad T14 Gen 2",
			Vendor:        "Lenovo",
			CategoryName:  "Laptops",
			IsWorking:     true,
			DepartmentID:  2,
			Worker:        "jsmith",
		},
		department: &domain.Department{ID: 2, Name: "Retail"},
	}
	p := NewProcessor(routes, &memoryImages{}, catalog, nil, nil)

	payload := marshal(t, domain.ProductUpdatedEvent{
		EventID:   "evt-9",
		ProductID: 42,
		Changes:   "model renamed",
	})

	require.NoError(t, p.Handle(context.Background(), domain.EventProductUpdated, payload))
	require.Len(t, routes.created, 1)

	route := routes.created[0]
	assert.Equal(t, domain.RouteTypeUpdate, route.RouteType)
	// The event payload is not trusted; the snapshot comes from the catalog.
	assert.Equal(t, "ThinkPad T14 Gen 2", route.Product.Model)
	assert.Equal(t, "Retail", route.ToDepartment)
	assert.Equal(t, "model renamed", route.Notes)
}

func TestHandleUpdated_ProductGoneIsDropped(t *testing.T) {
	routes := &memoryRoutes{}
	p := NewProcessor(routes, &memoryImages{}, &stubCatalog{}, nil, nil)

	payload := marshal(t, domain.ProductUpdatedEvent{EventID: "evt-10", ProductID: 42})

	require.NoError(t, p.Handle(context.Background(), domain.EventProductUpdated, payload))
	assert.Empty(t, routes.created)
}

func TestHandle_MalformedPayload(t *testing.T) {
	p := NewProcessor(&memoryRoutes{}, &memoryImages{}, &stubCatalog{}, nil, nil)

	err := p.Handle(context.Background(), domain.EventProductCreated, []byte("{not json"))
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))

	err = p.Handle(context.Background(), domain.EventProductDeleted, marshal(t, domain.ProductDeletedEvent{ProductID: 0}))
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
}

func TestHandle_UnknownEventTypeIgnored(t *testing.T) {
	routes := &memoryRoutes{}
	p := NewProcessor(routes, &memoryImages{}, &stubCatalog{}, nil, nil)

	require.NoError(t, p.Handle(context.Background(), "something.else", []byte("{}")))
	assert.Empty(t, routes.created)
}
