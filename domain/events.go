package domain

import "time"

// Event types carried in broker message headers. The first three originate in
// the catalog service and are projected into the ledger; the last two are
// emitted by the saga for the catalog service to apply.
const (
	EventProductCreated      = "product.created"
	EventProductUpdated      = "product.updated"
	EventProductDeleted      = "product.deleted"
	EventProductImageUpdated = "product.image-updated"
	EventProductRollback     = "product.rollback"
)

// ProductCreatedEvent announces a new catalog product. ImageData may carry
// inline image bytes to be stored on the ledger side.
type ProductCreatedEvent struct {
	EventID        string `json:"event_id"`
	ProductID      int64  `json:"product_id"`
	InventoryCode  string `json:"inventory_code"`
	Model          string `json:"model"`
	Vendor         string `json:"vendor"`
	CategoryName   string `json:"category_name"`
	IsWorking      bool   `json:"is_working"`
	DepartmentID   int64  `json:"department_id"`
	DepartmentName string `json:"department_name"`
	Worker         string `json:"worker,omitempty"`
	IsNewItem      bool   `json:"is_new_item"`
	ImageData      []byte `json:"image_data,omitempty"`
	ImageFileName  string `json:"image_file_name,omitempty"`
}

// ProductUpdatedEvent announces a catalog-side mutation. The payload is a
// hint only; the projector re-fetches the product before recording it.
type ProductUpdatedEvent struct {
	EventID   string `json:"event_id"`
	ProductID int64  `json:"product_id"`
	Changes   string `json:"changes"`
}

// ProductDeletedEvent announces a removal. Fields may already be gone from
// the catalog by the time this is processed, so most are optional.
type ProductDeletedEvent struct {
	EventID       string `json:"event_id"`
	ProductID     int64  `json:"product_id"`
	InventoryCode string `json:"inventory_code"`
	Model         string `json:"model,omitempty"`
	Vendor        string `json:"vendor,omitempty"`
	CategoryName  string `json:"category_name,omitempty"`
	IsWorking     bool   `json:"is_working"`
	DepartmentID  int64  `json:"department_id"`
	Worker        string `json:"worker,omitempty"`
}

// ProductImageUpdatedEvent asks the catalog service to attach an image to its
// own record without blocking the saga that uploaded it.
type ProductImageUpdatedEvent struct {
	ProductID     int64     `json:"product_id"`
	ImageData     []byte    `json:"image_data"`
	ImageFileName string    `json:"image_file_name"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ProductRollbackEvent asks the catalog service to restore a product to the
// state recorded by the predecessor of a deleted route.
type ProductRollbackEvent struct {
	ProductID      int64     `json:"product_id"`
	ToDepartmentID int64     `json:"to_department_id"`
	ToWorker       string    `json:"to_worker,omitempty"`
	ImageURL       string    `json:"image_url,omitempty"`
	RolledBackAt   time.Time `json:"rolled_back_at"`
	Reason         string    `json:"reason"`
}
