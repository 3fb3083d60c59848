package domain

import (
	"strings"
	"time"
)

// RouteType classifies the business event a ledger entry records. Fixed at
// creation, never changes afterwards.
type RouteType string

const (
	RouteTypeNew      RouteType = "New"
	RouteTypeExisting RouteType = "Existing"
	RouteTypeTransfer RouteType = "Transfer"
	RouteTypeRemoval  RouteType = "Removal"
	RouteTypeUpdate   RouteType = "Update"
)

// Fallbacks applied when a lifecycle event arrives with fields already gone
// from the catalog.
const (
	FallbackName     = "No Name"
	FallbackCategory = "Unknown"
)

// ProductSnapshot is a point-in-time copy of the catalog product embedded in a
// route. The ledger must stay truthful to what was known when the movement
// happened, independent of later catalog mutations.
type ProductSnapshot struct {
	ProductID     int64  `json:"product_id"`
	InventoryCode string `json:"inventory_code"`
	Model         string `json:"model"`
	Vendor        string `json:"vendor"`
	CategoryName  string `json:"category_name"`
	IsWorking     bool   `json:"is_working"`
}

// Normalized returns a copy with degrade-gracefully fallbacks in place of
// missing fields.
func (s ProductSnapshot) Normalized() ProductSnapshot {
	out := s
	if strings.TrimSpace(out.Model) == "" {
		out.Model = FallbackName
	}
	if strings.TrimSpace(out.Vendor) == "" {
		out.Vendor = FallbackName
	}
	if strings.TrimSpace(out.CategoryName) == "" {
		out.CategoryName = FallbackCategory
	}
	return out
}

// InventoryRoute is one immutable ledger entry describing a single inventory
// movement or lifecycle event for one product. Instances are only created
// through the named factories below; after creation the aggregate mutates only
// through Complete, UpdateImage and UpdateNotes.
type InventoryRoute struct {
	ID               int64           `json:"id"`
	RouteType        RouteType       `json:"route_type"`
	Product          ProductSnapshot `json:"product"`
	FromDepartmentID *int64          `json:"from_department_id,omitempty"`
	FromDepartment   string          `json:"from_department,omitempty"`
	ToDepartmentID   int64           `json:"to_department_id"`
	ToDepartment     string          `json:"to_department"`
	FromWorker       string          `json:"from_worker,omitempty"`
	ToWorker         string          `json:"to_worker,omitempty"`
	ImageURL         string          `json:"image_url,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	IsCompleted      bool            `json:"is_completed"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// CreateNewInventory records a catalog-originated creation. isNewItem selects
// between brand-new stock and pre-existing stock registered after the fact.
func CreateNewInventory(snapshot ProductSnapshot, toDepartmentID int64, toDepartment, toWorker string, isNewItem bool) (*InventoryRoute, error) {
	if err := validateSnapshot(snapshot); err != nil {
		return nil, err
	}
	if toDepartmentID <= 0 {
		return nil, NewError(ErrCodeInvalid, "destination department is required")
	}
	routeType := RouteTypeExisting
	if isNewItem {
		routeType = RouteTypeNew
	}
	return &InventoryRoute{
		RouteType:      routeType,
		Product:        snapshot,
		ToDepartmentID: toDepartmentID,
		ToDepartment:   toDepartment,
		ToWorker:       toWorker,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// CreateTransfer records a movement between two departments.
func CreateTransfer(snapshot ProductSnapshot, fromDepartmentID int64, fromDepartment, fromWorker string, toDepartmentID int64, toDepartment, toWorker string) (*InventoryRoute, error) {
	if err := validateSnapshot(snapshot); err != nil {
		return nil, err
	}
	if toDepartmentID <= 0 {
		return nil, NewError(ErrCodeInvalid, "destination department is required")
	}
	from := fromDepartmentID
	return &InventoryRoute{
		RouteType:        RouteTypeTransfer,
		Product:          snapshot,
		FromDepartmentID: &from,
		FromDepartment:   fromDepartment,
		FromWorker:       fromWorker,
		ToDepartmentID:   toDepartmentID,
		ToDepartment:     toDepartment,
		ToWorker:         toWorker,
		CreatedAt:        time.Now().UTC(),
	}, nil
}

// CreateRemoval records taking a product out of circulation. Removal is
// terminal, so the route is completed at creation and the source department
// doubles as the destination.
func CreateRemoval(snapshot ProductSnapshot, fromDepartmentID int64, fromDepartment, fromWorker, reason string) (*InventoryRoute, error) {
	if err := validateSnapshot(snapshot); err != nil {
		return nil, err
	}
	if fromDepartmentID <= 0 {
		return nil, NewError(ErrCodeInvalid, "source department is required")
	}
	from := fromDepartmentID
	now := time.Now().UTC()
	completed := now
	return &InventoryRoute{
		RouteType:        RouteTypeRemoval,
		Product:          snapshot,
		FromDepartmentID: &from,
		FromDepartment:   fromDepartment,
		FromWorker:       fromWorker,
		ToDepartmentID:   fromDepartmentID,
		ToDepartment:     fromDepartment,
		Notes:            reason,
		IsCompleted:      true,
		CompletedAt:      &completed,
		CreatedAt:        now,
	}, nil
}

// CreateUpdate records a catalog-side mutation summarized in changes.
func CreateUpdate(snapshot ProductSnapshot, departmentID int64, department, worker, changes string) (*InventoryRoute, error) {
	if err := validateSnapshot(snapshot); err != nil {
		return nil, err
	}
	if departmentID <= 0 {
		return nil, NewError(ErrCodeInvalid, "department is required")
	}
	return &InventoryRoute{
		RouteType:      RouteTypeUpdate,
		Product:        snapshot,
		ToDepartmentID: departmentID,
		ToDepartment:   department,
		ToWorker:       worker,
		Notes:          changes,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// Complete marks the route finished. The transition is one-way; completing an
// already completed route is a no-op.
func (r *InventoryRoute) Complete() {
	if r == nil || r.IsCompleted {
		return
	}
	now := time.Now().UTC()
	r.IsCompleted = true
	r.CompletedAt = &now
}

// UpdateImage attaches or replaces the image URL.
func (r *InventoryRoute) UpdateImage(url string) {
	if r == nil {
		return
	}
	r.ImageURL = url
}

// UpdateNotes replaces the free-text notes.
func (r *InventoryRoute) UpdateNotes(notes string) {
	if r == nil {
		return
	}
	r.Notes = notes
}

func validateSnapshot(s ProductSnapshot) error {
	if s.ProductID <= 0 {
		return NewError(ErrCodeInvalid, "product id must be positive")
	}
	return nil
}
