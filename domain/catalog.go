package domain

// Product mirrors the live catalog record as returned by the catalog service.
// Routes never embed it directly; they embed a ProductSnapshot taken from it.
type Product struct {
	ID            int64  `json:"id"`
	InventoryCode string `json:"inventory_code"`
	Model         string `json:"model"`
	Vendor        string `json:"vendor"`
	CategoryName  string `json:"category_name"`
	IsWorking     bool   `json:"is_working"`
	IsActive      bool   `json:"is_active"`
	DepartmentID  int64  `json:"department_id"`
	Worker        string `json:"worker,omitempty"`
}

// Snapshot captures the immutable subset of the product embedded in routes.
func (p *Product) Snapshot() ProductSnapshot {
	if p == nil {
		return ProductSnapshot{}
	}
	return ProductSnapshot{
		ProductID:     p.ID,
		InventoryCode: p.InventoryCode,
		Model:         p.Model,
		Vendor:        p.Vendor,
		CategoryName:  p.CategoryName,
		IsWorking:     p.IsWorking,
	}
}

// Department is a catalog organizational unit.
type Department struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
