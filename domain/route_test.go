package domain

import (
	"testing"
	"time"
)

func snapshot() ProductSnapshot {
	return ProductSnapshot{
		ProductID:     42,
		InventoryCode: "1001",
		Model:         "ThinkPad T14",
		Vendor:        "Lenovo",
		CategoryName:  "Laptops",
		IsWorking:     true,
	}
}

func TestCreateTransfer(t *testing.T) {
	route, err := CreateTransfer(snapshot(), 1, "Warehouse", "mlopez", 2, "Retail", "jsmith")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if route.RouteType != RouteTypeTransfer {
		t.Errorf("expected Transfer route, got %s", route.RouteType)
	}
	if route.FromDepartmentID == nil || *route.FromDepartmentID != 1 {
		t.Errorf("expected source department 1, got %v", route.FromDepartmentID)
	}
	if route.ToDepartment != "Retail" || route.ToWorker != "jsmith" {
		t.Errorf("unexpected destination: %s / %s", route.ToDepartment, route.ToWorker)
	}
	if route.IsCompleted {
		t.Error("transfer must not be completed at creation")
	}
	if route.CreatedAt.IsZero() {
		t.Error("created_at must be set at construction")
	}
}

func TestCreateTransfer_RequiresDestination(t *testing.T) {
	if _, err := CreateTransfer(snapshot(), 1, "Warehouse", "", 0, "", ""); err == nil {
		t.Fatal("expected error for missing destination")
	}
}

func TestCreateTransfer_RequiresProduct(t *testing.T) {
	if _, err := CreateTransfer(ProductSnapshot{}, 1, "Warehouse", "", 2, "Retail", ""); err == nil {
		t.Fatal("expected error for missing product id")
	}
}

func TestCreateRemoval_CompletedAtCreation(t *testing.T) {
	route, err := CreateRemoval(snapshot(), 1, "Warehouse", "jsmith", "water damage")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if route.RouteType != RouteTypeRemoval {
		t.Errorf("expected Removal route, got %s", route.RouteType)
	}
	if !route.IsCompleted || route.CompletedAt == nil {
		t.Error("removal must be completed at creation")
	}
	if route.Notes != "water damage" {
		t.Errorf("expected reason in notes, got %q", route.Notes)
	}
	if route.ToDepartmentID != 1 {
		t.Errorf("removal destination should mirror source, got %d", route.ToDepartmentID)
	}
}

func TestCreateNewInventory_RouteTypeSelection(t *testing.T) {
	fresh, err := CreateNewInventory(snapshot(), 1, "Warehouse", "", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fresh.RouteType != RouteTypeNew {
		t.Errorf("expected New for new item, got %s", fresh.RouteType)
	}

	existing, err := CreateNewInventory(snapshot(), 1, "Warehouse", "", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if existing.RouteType != RouteTypeExisting {
		t.Errorf("expected Existing for pre-existing item, got %s", existing.RouteType)
	}
}

func TestComplete_OneWay(t *testing.T) {
	route, err := CreateUpdate(snapshot(), 1, "Warehouse", "jsmith", "renamed model")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	route.Complete()
	if !route.IsCompleted || route.CompletedAt == nil {
		t.Fatal("expected route to be completed")
	}

	first := *route.CompletedAt
	time.Sleep(5 * time.Millisecond)
	route.Complete()
	if !route.CompletedAt.Equal(first) {
		t.Error("completing twice must not move the completion timestamp")
	}
}

func TestSnapshotNormalized(t *testing.T) {
	s := ProductSnapshot{ProductID: 7, InventoryCode: "2002"}.Normalized()

	if s.Model != FallbackName {
		t.Errorf("expected model fallback %q, got %q", FallbackName, s.Model)
	}
	if s.Vendor != FallbackName {
		t.Errorf("expected vendor fallback %q, got %q", FallbackName, s.Vendor)
	}
	if s.CategoryName != FallbackCategory {
		t.Errorf("expected category fallback %q, got %q", FallbackCategory, s.CategoryName)
	}

	full := snapshot().Normalized()
	if full != snapshot() {
		t.Error("normalization must not touch populated fields")
	}
}
