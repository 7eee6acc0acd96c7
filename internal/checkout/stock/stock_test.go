package stock

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lucasortega/cartwheel-backend/pkg/db/models"
	pkgerrors "github.com/lucasortega/cartwheel-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Category{}, &models.Product{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, name string, qty int, active bool) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:          name,
		Price:         decimal.RequireFromString("10.00"),
		StockQuantity: qty,
		IsActive:      active,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func TestReserve(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	plenty := seedProduct(t, db, "Mug", 5, true)
	scarce := seedProduct(t, db, "Bowl", 1, true)

	requests := []ReservationRequest{
		{CartItemID: 1, ProductID: plenty.ID, Qty: 3},
		{CartItemID: 2, ProductID: plenty.ID, Qty: 4},
		{CartItemID: 3, ProductID: scarce.ID, Qty: 1},
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		results, terr := Reserve(ctx, tx, requests)
		if terr != nil {
			return terr
		}
		if len(results) != 3 {
			t.Fatalf("expected 3 results, got %d", len(results))
		}
		if !results[0].Reserved || results[0].Reason != "" {
			t.Fatalf("expected first reservation to succeed: %+v", results[0])
		}
		if results[1].Reserved || results[1].Reason == "" || results[1].Available != 2 {
			t.Fatalf("expected second reservation to fail with availability: %+v", results[1])
		}
		if !results[2].Reserved {
			t.Fatalf("expected third reservation to succeed: %+v", results[2])
		}
		return nil
	})
	if err != nil {
		t.Fatalf("reserve transaction: %v", err)
	}

	var a, b models.Product
	if err := db.First(&a, "id = ?", plenty.ID).Error; err != nil {
		t.Fatalf("load product a: %v", err)
	}
	if err := db.First(&b, "id = ?", scarce.ID).Error; err != nil {
		t.Fatalf("load product b: %v", err)
	}
	if a.StockQuantity != 2 {
		t.Fatalf("unexpected stock for a: %d", a.StockQuantity)
	}
	if b.StockQuantity != 0 {
		t.Fatalf("unexpected stock for b: %d", b.StockQuantity)
	}
}

func TestReserveInactiveAndMissingProducts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	retired := seedProduct(t, db, "Retired Mug", 5, false)

	err := db.Transaction(func(tx *gorm.DB) error {
		results, terr := Reserve(ctx, tx, []ReservationRequest{
			{CartItemID: 1, ProductID: retired.ID, Qty: 1},
			{CartItemID: 2, ProductID: 404, Qty: 1},
		})
		if terr != nil {
			return terr
		}
		if results[0].Reserved || results[0].Reason != "product is not available" {
			t.Fatalf("expected inactive product failure: %+v", results[0])
		}
		if results[1].Reserved || results[1].Reason != "product no longer exists" {
			t.Fatalf("expected missing product failure: %+v", results[1])
		}
		return nil
	})
	if err != nil {
		t.Fatalf("reserve transaction: %v", err)
	}
}

func TestReserveInvalidQty(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	product := seedProduct(t, db, "Mug", 5, true)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, terr := Reserve(ctx, tx, []ReservationRequest{{CartItemID: 1, ProductID: product.ID, Qty: 0}})
		return terr
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReserveLastUnitOnlyOnce(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	product := seedProduct(t, db, "Mug", 1, true)

	wins := 0
	for attempt := 0; attempt < 2; attempt++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			results, terr := Reserve(ctx, tx, []ReservationRequest{{CartItemID: uint(attempt + 1), ProductID: product.ID, Qty: 1}})
			if terr != nil {
				return terr
			}
			if results[0].Reserved {
				wins++
			}
			return nil
		})
		if err != nil {
			t.Fatalf("attempt %d: %v", attempt, err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner for the last unit, got %d", wins)
	}
}
