package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/mavazi-pos/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openRepositoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return db
}

func seedLedger(t *testing.T, db *gorm.DB, productID uint, size, color string, stock, reserved int) *models.StockLedger {
	t.Helper()
	row := &models.StockLedger{
		ProductID:        productID,
		Size:             size,
		Color:            color,
		StockQuantity:    stock,
		ReservedQuantity: reserved,
	}
	if err := db.Create(row).Error; err != nil {
		t.Fatalf("seed ledger failed: %v", err)
	}
	return row
}

func mustGetLedger(t *testing.T, repo *GormStockLedgerRepository, key StockKey) *models.StockLedger {
	t.Helper()
	row, err := repo.GetByKey(key)
	if err != nil {
		t.Fatalf("get ledger failed: %v", err)
	}
	if row == nil {
		t.Fatalf("ledger %+v not found", key)
	}
	return row
}

func TestStockLedgerGranularityQueries(t *testing.T) {
	db := openRepositoryTestDB(t)
	repo := NewStockLedgerRepository(db)
	seedLedger(t, db, 1, "", "", 10, 0)
	seedLedger(t, db, 1, "M", "", 5, 0)
	seedLedger(t, db, 1, "L", "", 8, 0)
	seedLedger(t, db, 1, "M", "red", 2, 0)
	seedLedger(t, db, 1, "", "blue", 3, 0)

	general, err := repo.GetGeneral(1)
	if err != nil || general == nil || general.StockQuantity != 10 {
		t.Fatalf("unexpected general row: %+v err=%v", general, err)
	}
	sizes, err := repo.GetSizes(1)
	if err != nil || len(sizes) != 2 {
		t.Fatalf("want 2 size rows got %d err=%v", len(sizes), err)
	}
	colors, err := repo.GetSizeColors(1)
	if err != nil || len(colors) != 2 {
		t.Fatalf("want 2 color rows got %d err=%v", len(colors), err)
	}
	missing, err := repo.GetGeneral(2)
	if err != nil || missing != nil {
		t.Fatalf("want nil for untracked product got %+v err=%v", missing, err)
	}
	count, err := repo.CountByProduct(1)
	if err != nil || count != 5 {
		t.Fatalf("want 5 rows got %d err=%v", count, err)
	}
}

func TestTryDecrementGuards(t *testing.T) {
	db := openRepositoryTestDB(t)
	repo := NewStockLedgerRepository(db)
	seedLedger(t, db, 1, "", "", 10, 4)
	key := GeneralKey(1)

	ok, err := repo.TryDecrement(key, 7, DecrementFromAvailable)
	if err != nil || ok {
		t.Fatalf("available 6 must reject 7: ok=%v err=%v", ok, err)
	}
	row := mustGetLedger(t, repo, key)
	if row.StockQuantity != 10 || row.ReservedQuantity != 4 {
		t.Fatalf("rejected decrement changed row: %+v", row)
	}

	ok, err = repo.TryDecrement(key, 6, DecrementFromAvailable)
	if err != nil || !ok {
		t.Fatalf("available 6 must accept 6: ok=%v err=%v", ok, err)
	}
	row = mustGetLedger(t, repo, key)
	if row.StockQuantity != 4 || row.ReservedQuantity != 4 {
		t.Fatalf("want 4/4 got %d/%d", row.StockQuantity, row.ReservedQuantity)
	}

	ok, err = repo.TryDecrement(key, 4, DecrementConsumeReservation)
	if err != nil || !ok {
		t.Fatalf("reserved units must be consumable: ok=%v err=%v", ok, err)
	}
	row = mustGetLedger(t, repo, key)
	if row.StockQuantity != 0 || row.ReservedQuantity != 0 {
		t.Fatalf("want 0/0 got %d/%d", row.StockQuantity, row.ReservedQuantity)
	}

	ok, err = repo.TryDecrement(StockKey{ProductID: 1, Size: "XL"}, 1, DecrementTrimReserved)
	if err != nil || ok {
		t.Fatalf("missing row must not match: ok=%v err=%v", ok, err)
	}
}

func TestTryDecrementTrimReservedFloorsAtZero(t *testing.T) {
	db := openRepositoryTestDB(t)
	repo := NewStockLedgerRepository(db)
	seedLedger(t, db, 3, "M", "red", 10, 2)
	key := StockKey{ProductID: 3, Size: "M", Color: "red"}

	ok, err := repo.TryDecrement(key, 5, DecrementTrimReserved)
	if err != nil || !ok {
		t.Fatalf("decrement failed: ok=%v err=%v", ok, err)
	}
	row := mustGetLedger(t, repo, key)
	if row.StockQuantity != 5 || row.ReservedQuantity != 0 {
		t.Fatalf("want 5/0 got %d/%d", row.StockQuantity, row.ReservedQuantity)
	}
}

func TestReserveReleaseGeneralRow(t *testing.T) {
	db := openRepositoryTestDB(t)
	repo := NewStockLedgerRepository(db)
	seedLedger(t, db, 1, "", "", 10, 0)

	if ok, err := repo.TryReserve(1, 6); err != nil || !ok {
		t.Fatalf("reserve 6 failed: ok=%v err=%v", ok, err)
	}
	if ok, err := repo.TryReserve(1, 6); err != nil || ok {
		t.Fatalf("second reserve 6 must fail: ok=%v err=%v", ok, err)
	}
	if ok, err := repo.TryRelease(1, 10); err != nil || !ok {
		t.Fatalf("release failed: ok=%v err=%v", ok, err)
	}
	row := mustGetLedger(t, repo, GeneralKey(1))
	if row.ReservedQuantity != 0 {
		t.Fatalf("release must floor at zero, got %d", row.ReservedQuantity)
	}
	if ok, err := repo.TryRelease(99, 1); err != nil || ok {
		t.Fatalf("release without row must report no match: ok=%v err=%v", ok, err)
	}
}

func TestListSizesForSweepOrdersByAvailable(t *testing.T) {
	db := openRepositoryTestDB(t)
	repo := NewStockLedgerRepository(db)
	seedLedger(t, db, 1, "M", "", 5, 0)
	seedLedger(t, db, 1, "L", "", 8, 0)
	seedLedger(t, db, 1, "S", "", 4, 2)
	seedLedger(t, db, 1, "S", "red", 50, 0)

	rows, err := repo.ListSizesForSweep(1)
	if err != nil {
		t.Fatalf("list sweep rows failed: %v", err)
	}
	got := ""
	for _, row := range rows {
		got += row.Size + ","
	}
	if got != "L,M,S," {
		t.Fatalf("want L,M,S, got %s", got)
	}
}

func TestSetLevelRespectsReserved(t *testing.T) {
	db := openRepositoryTestDB(t)
	repo := NewStockLedgerRepository(db)

	row := &models.StockLedger{ProductID: 5, StockQuantity: 10}
	if ok, err := repo.SetLevel(row); err != nil || !ok {
		t.Fatalf("create level failed: ok=%v err=%v", ok, err)
	}
	if ok, err := repo.TryReserve(5, 4); err != nil || !ok {
		t.Fatalf("reserve failed: ok=%v err=%v", ok, err)
	}
	if ok, err := repo.SetLevel(&models.StockLedger{ProductID: 5, StockQuantity: 3}); err != nil || ok {
		t.Fatalf("level below reserved must be rejected: ok=%v err=%v", ok, err)
	}
	if ok, err := repo.SetLevel(&models.StockLedger{ProductID: 5, StockQuantity: 20, LowStockThreshold: 2}); err != nil || !ok {
		t.Fatalf("raise level failed: ok=%v err=%v", ok, err)
	}
	got := mustGetLedger(t, repo, GeneralKey(5))
	if got.StockQuantity != 20 || got.ReservedQuantity != 4 || got.LowStockThreshold != 2 {
		t.Fatalf("unexpected row after set level: %+v", got)
	}
}

func TestClampReserved(t *testing.T) {
	db := openRepositoryTestDB(t)
	repo := NewStockLedgerRepository(db)
	bad := seedLedger(t, db, 1, "", "", 3, 0)
	if err := db.Model(&models.StockLedger{}).Where("id = ?", bad.ID).Update("reserved_quantity", 7).Error; err != nil {
		t.Fatalf("corrupt row failed: %v", err)
	}

	rows, err := repo.ListOverReserved()
	if err != nil || len(rows) != 1 {
		t.Fatalf("want 1 over-reserved row got %d err=%v", len(rows), err)
	}
	if ok, err := repo.ClampReserved(bad.ID); err != nil || !ok {
		t.Fatalf("clamp failed: ok=%v err=%v", ok, err)
	}
	got := mustGetLedger(t, repo, GeneralKey(1))
	if got.ReservedQuantity != 3 {
		t.Fatalf("want reserved clamped to 3 got %d", got.ReservedQuantity)
	}
}
