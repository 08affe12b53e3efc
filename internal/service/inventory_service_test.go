package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mavazi-pos/internal/events"
	"github.com/mavazi-pos/internal/models"
	"github.com/mavazi-pos/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

type inventoryFixture struct {
	db        *gorm.DB
	ledger    *repository.GormStockLedgerRepository
	movements *repository.GormStockMovementRepository
	publisher *events.MemoryPublisher
	svc       *InventoryService
}

func newInventoryFixture(t *testing.T) *inventoryFixture {
	t.Helper()
	db := openServiceTestDB(t)
	ledger := repository.NewStockLedgerRepository(db)
	movements := repository.NewStockMovementRepository(db)
	publisher := &events.MemoryPublisher{}
	return &inventoryFixture{
		db:        db,
		ledger:    ledger,
		movements: movements,
		publisher: publisher,
		svc:       NewInventoryService(ledger, movements, publisher, 0),
	}
}

func (f *inventoryFixture) seed(t *testing.T, productID uint, size, color string, stock, reserved int) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.StockLedger{
		ProductID:        productID,
		Size:             size,
		Color:            color,
		StockQuantity:    stock,
		ReservedQuantity: reserved,
	}).Error)
}

func (f *inventoryFixture) row(t *testing.T, productID uint, size, color string) *models.StockLedger {
	t.Helper()
	row, err := f.ledger.GetByKey(repository.StockKey{ProductID: productID, Size: size, Color: color})
	require.NoError(t, err)
	require.NotNil(t, row, "ledger %d/%s/%s missing", productID, size, color)
	return row
}

func (f *inventoryFixture) snapshot(t *testing.T, productID uint) map[string][2]int {
	t.Helper()
	rows, err := f.ledger.ListByProduct(productID)
	require.NoError(t, err)
	out := make(map[string][2]int, len(rows))
	for _, row := range rows {
		out[row.Size+"/"+row.Color] = [2]int{row.StockQuantity, row.ReservedQuantity}
	}
	return out
}

func TestDeductSizeColorMatchDoesNotFallBack(t *testing.T) {
	f := newInventoryFixture(t)
	ctx := context.Background()
	f.seed(t, 1, "", "", 100, 0)
	f.seed(t, 1, "M", "", 50, 0)
	f.seed(t, 1, "M", "red", 0, 0)
	before := f.snapshot(t, 1)

	ok, err := f.svc.DeductStock(ctx, 1, 1, nil, "m", "Red")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, before, f.snapshot(t, 1))
	require.Equal(t, 1, f.publisher.CountByType(events.EventStockRejected))
}

func TestDeductTouchesOnlyMatchedGranularity(t *testing.T) {
	f := newInventoryFixture(t)
	ctx := context.Background()
	f.seed(t, 1, "", "", 100, 0)
	f.seed(t, 1, "M", "", 50, 0)
	f.seed(t, 1, "M", "red", 5, 0)
	f.seed(t, 1, "", "blue", 7, 0)

	ok, err := f.svc.DeductStock(ctx, 1, 2, nil, "M", "red")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 3, f.row(t, 1, "M", "red").StockQuantity)

	ok, err = f.svc.DeductStock(ctx, 1, 3, nil, "", "BLUE")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 4, f.row(t, 1, "", "blue").StockQuantity)

	ok, err = f.svc.DeductStock(ctx, 1, 10, nil, "M", "")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 40, f.row(t, 1, "M", "").StockQuantity)

	require.Equal(t, 100, f.row(t, 1, "", "").StockQuantity)
}

func TestDeductMissingDimensionFallsToGeneral(t *testing.T) {
	f := newInventoryFixture(t)
	f.seed(t, 2, "", "", 10, 0)
	f.seed(t, 2, "M", "", 4, 0)

	result, err := f.svc.Deduct(context.Background(), DeductRequest{ProductID: 2, Quantity: 3, Size: "XL", Color: "green"})
	require.NoError(t, err)
	require.Equal(t, "general", result.Granularity)
	require.Equal(t, 7, f.row(t, 2, "", "").StockQuantity)
	require.Equal(t, 4, f.row(t, 2, "M", "").StockQuantity)
}

func TestReserveThenDeductConsumesReservation(t *testing.T) {
	f := newInventoryFixture(t)
	ctx := context.Background()
	f.seed(t, 3, "", "", 20, 0)

	ok, err := f.svc.ReserveStock(ctx, 3, 3)
	require.NoError(t, err)
	require.True(t, ok)
	row := f.row(t, 3, "", "")
	require.Equal(t, 20, row.StockQuantity)
	require.Equal(t, 3, row.ReservedQuantity)

	ok, err = f.svc.DeductStock(ctx, 3, 3, nil, "", "")
	require.NoError(t, err)
	require.True(t, ok)
	row = f.row(t, 3, "", "")
	require.Equal(t, 17, row.StockQuantity)
	require.Equal(t, 0, row.ReservedQuantity)
}

func TestUnreservedDeductCannotTakeReservedUnits(t *testing.T) {
	f := newInventoryFixture(t)
	ctx := context.Background()
	f.seed(t, 3, "", "", 5, 4)

	_, err := f.svc.Deduct(ctx, DeductRequest{ProductID: 3, Quantity: 2, Reservation: ReservationNone})
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.Equal(t, 5, f.row(t, 3, "", "").StockQuantity)

	_, err = f.svc.Deduct(ctx, DeductRequest{ProductID: 3, Quantity: 1, Reservation: ReservationNone})
	require.NoError(t, err)
	row := f.row(t, 3, "", "")
	require.Equal(t, 4, row.StockQuantity)
	require.Equal(t, 4, row.ReservedQuantity)
}

func TestDirectDeductHonorsOtherReservations(t *testing.T) {
	cases := []struct {
		name         string
		quantity     int
		wantOK       bool
		wantStock    int
		wantReserved int
	}{
		{name: "exceeds available", quantity: 3, wantOK: false, wantStock: 5, wantReserved: 4},
		{name: "within available", quantity: 1, wantOK: true, wantStock: 4, wantReserved: 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newInventoryFixture(t)
			f.seed(t, 30, "", "", 5, 4)

			ok, err := f.svc.DeductStock(context.Background(), 30, tc.quantity, nil, "", "")
			require.NoError(t, err)
			require.Equal(t, tc.wantOK, ok)
			row := f.row(t, 30, "", "")
			require.Equal(t, tc.wantStock, row.StockQuantity)
			require.Equal(t, tc.wantReserved, row.ReservedQuantity)
			require.GreaterOrEqual(t, row.StockQuantity, row.ReservedQuantity)
		})
	}
}

func TestDirectDeductAfterForeignReserveKeepsReservationCovered(t *testing.T) {
	f := newInventoryFixture(t)
	ctx := context.Background()
	f.seed(t, 31, "", "", 10, 0)

	ok, err := f.svc.ReserveStock(ctx, 31, 7)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = f.svc.DeductStock(ctx, 31, 5, nil, "", "")
	require.NoError(t, err)
	require.False(t, ok)
	row := f.row(t, 31, "", "")
	require.Equal(t, 10, row.StockQuantity)
	require.Equal(t, 7, row.ReservedQuantity)

	available, err := f.svc.GetAvailableStock(ctx, 31)
	require.NoError(t, err)
	require.NotNil(t, available)
	require.Equal(t, 3, *available)
}

func TestConsumedReservationMayDrawReservedUnits(t *testing.T) {
	f := newInventoryFixture(t)
	f.seed(t, 32, "", "", 5, 4)

	_, err := f.svc.Deduct(context.Background(), DeductRequest{ProductID: 32, Quantity: 4, Reservation: ReservationConsumed})
	require.NoError(t, err)
	row := f.row(t, 32, "", "")
	require.Equal(t, 1, row.StockQuantity)
	require.Equal(t, 0, row.ReservedQuantity)
}

func TestAvailableForFollowsDeductionOrder(t *testing.T) {
	f := newInventoryFixture(t)
	f.seed(t, 33, "", "", 1, 0)
	f.seed(t, 33, "M", "", 5, 1)
	f.seed(t, 33, "S", "", 2, 0)
	f.seed(t, 33, "", "navy", 3, 0)

	cases := []struct {
		size, color string
		want        int
	}{
		{size: "m", want: 4},
		{size: "M", color: "Navy", want: 3},
		{size: "XL", want: 6},
		{want: 6},
	}
	for _, tc := range cases {
		got, err := f.svc.AvailableFor(33, tc.size, tc.color)
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Equal(t, tc.want, *got, "size=%q color=%q", tc.size, tc.color)
	}

	untracked, err := f.svc.AvailableFor(34, "M", "")
	require.NoError(t, err)
	require.Nil(t, untracked)
}

func TestSizeSweepLargestFirst(t *testing.T) {
	f := newInventoryFixture(t)
	f.seed(t, 4, "M", "", 5, 0)
	f.seed(t, 4, "L", "", 8, 0)
	f.seed(t, 4, "S", "", 2, 0)

	ok, err := f.svc.DeductStock(context.Background(), 4, 10, nil, "", "")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 3, f.row(t, 4, "M", "").StockQuantity)
	require.Equal(t, 0, f.row(t, 4, "L", "").StockQuantity)
	require.Equal(t, 2, f.row(t, 4, "S", "").StockQuantity)
	require.Equal(t, 2, f.publisher.CountByType(events.EventStockDeducted))
}

func TestSizeSweepInsufficientLeavesRowsUntouched(t *testing.T) {
	f := newInventoryFixture(t)
	f.seed(t, 4, "M", "", 5, 0)
	f.seed(t, 4, "L", "", 8, 0)
	f.seed(t, 4, "S", "", 2, 0)
	before := f.snapshot(t, 4)

	ok, err := f.svc.DeductStock(context.Background(), 4, 20, nil, "", "")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, before, f.snapshot(t, 4))

	items, total, err := f.movements.List(repository.StockMovementListFilter{ProductID: 4})
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, items)
}

func TestSizeSweepAfterInsufficientGeneral(t *testing.T) {
	f := newInventoryFixture(t)
	f.seed(t, 5, "", "", 1, 0)
	f.seed(t, 5, "M", "", 3, 0)
	f.seed(t, 5, "L", "", 3, 0)

	ok, err := f.svc.DeductStock(context.Background(), 5, 4, nil, "", "")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, f.row(t, 5, "", "").StockQuantity)
	remaining := f.row(t, 5, "M", "").StockQuantity + f.row(t, 5, "L", "").StockQuantity
	require.Equal(t, 2, remaining)
}

func TestUntrackedProductAlwaysSucceeds(t *testing.T) {
	f := newInventoryFixture(t)
	ctx := context.Background()

	available, err := f.svc.GetAvailableStock(ctx, 9)
	require.NoError(t, err)
	require.Nil(t, available)

	ok, err := f.svc.ReserveStock(ctx, 9, 5)
	require.NoError(t, err)
	require.True(t, ok)

	result, err := f.svc.Deduct(ctx, DeductRequest{ProductID: 9, Quantity: 5, Size: "L"})
	require.NoError(t, err)
	require.True(t, result.Untracked)

	count, err := f.ledger.CountByProduct(9)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestConfiguredZeroIsNotUntracked(t *testing.T) {
	f := newInventoryFixture(t)
	f.seed(t, 10, "", "", 0, 0)

	available, err := f.svc.GetAvailableStock(context.Background(), 10)
	require.NoError(t, err)
	require.NotNil(t, available)
	require.Equal(t, 0, *available)

	ok, err := f.svc.DeductStock(context.Background(), 10, 1, nil, "", "")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDeductWithoutMatchingRowFails(t *testing.T) {
	f := newInventoryFixture(t)
	f.seed(t, 11, "", "red", 5, 0)

	_, err := f.svc.Deduct(context.Background(), DeductRequest{ProductID: 11, Quantity: 1})
	require.ErrorIs(t, err, ErrNoMatchingLedgerRow)
	require.Equal(t, 5, f.row(t, 11, "", "red").StockQuantity)
}

func TestDeductRejectsInvalidInput(t *testing.T) {
	f := newInventoryFixture(t)
	ctx := context.Background()

	_, err := f.svc.Deduct(ctx, DeductRequest{ProductID: 1, Quantity: 0})
	require.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = f.svc.Deduct(ctx, DeductRequest{ProductID: 1, Quantity: 1, Size: "XXS"})
	require.ErrorIs(t, err, ErrInvalidSize)
}

func TestReserveReleaseSymmetry(t *testing.T) {
	f := newInventoryFixture(t)
	ctx := context.Background()
	f.seed(t, 12, "", "", 10, 0)

	ok, err := f.svc.ReserveStock(ctx, 12, 4)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = f.svc.ReleaseStock(ctx, 12, 4)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 0, f.row(t, 12, "", "").ReservedQuantity)

	ok, err = f.svc.ReserveStock(ctx, 12, 11)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = f.svc.ReleaseStock(ctx, 12, 3)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 0, f.row(t, 12, "", "").ReservedQuantity)
	require.Equal(t, 10, f.row(t, 12, "", "").StockQuantity)
}

func TestConcurrentReserveOnlyOneWins(t *testing.T) {
	f := newInventoryFixture(t)
	f.seed(t, 13, "", "", 10, 0)

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := f.svc.ReserveStock(context.Background(), 13, 6)
			if err == nil && ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), wins)
	require.Equal(t, 6, f.row(t, 13, "", "").ReservedQuantity)
}

func TestConcurrentDeductNeverOversells(t *testing.T) {
	f := newInventoryFixture(t)
	f.seed(t, 14, "", "", 10, 0)
	f.seed(t, 14, "M", "red", 4, 0)

	var generalWins, colorWins int32
	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ok, err := f.svc.DeductStock(context.Background(), 14, 1, nil, "", "")
			if err == nil && ok {
				atomic.AddInt32(&generalWins, 1)
			}
		}()
		go func() {
			defer wg.Done()
			ok, err := f.svc.DeductStock(context.Background(), 14, 1, nil, "M", "red")
			if err == nil && ok {
				atomic.AddInt32(&colorWins, 1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(10), generalWins)
	require.Equal(t, int32(4), colorWins)
	require.Equal(t, 0, f.row(t, 14, "", "").StockQuantity)
	require.Equal(t, 0, f.row(t, 14, "M", "red").StockQuantity)
}

func TestDeductJournalAndLowStockEvent(t *testing.T) {
	f := newInventoryFixture(t)
	require.NoError(t, f.db.Create(&models.StockLedger{ProductID: 15, StockQuantity: 6, LowStockThreshold: 3}).Error)
	orderID := uint(77)

	_, err := f.svc.Deduct(context.Background(), DeductRequest{ProductID: 15, Quantity: 4, OrderID: &orderID, Reservation: ReservationNone})
	require.NoError(t, err)

	items, _, err := f.movements.List(repository.StockMovementListFilter{ProductID: 15})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, -4, items[0].DeltaStock)
	require.Equal(t, "deduct", items[0].Reason)
	require.NotNil(t, items[0].OrderID)
	require.Equal(t, orderID, *items[0].OrderID)

	require.Equal(t, 1, f.publisher.CountByType(events.EventStockLow))
	var low *events.Envelope
	for _, env := range f.publisher.Events() {
		if env.EventType == events.EventStockLow {
			low = env
		}
	}
	payload, err := events.DecodePayload[events.StockLowPayload](low)
	require.NoError(t, err)
	require.Equal(t, 2, payload.Available)
	require.Equal(t, 3, payload.Threshold)
}

func TestDefaultLowStockThreshold(t *testing.T) {
	f := newInventoryFixture(t)
	f.svc = NewInventoryService(f.ledger, f.movements, f.publisher, 5)
	f.seed(t, 16, "L", "", 7, 0)

	_, err := f.svc.Deduct(context.Background(), DeductRequest{ProductID: 16, Quantity: 1, Size: "L"})
	require.NoError(t, err)
	require.Zero(t, f.publisher.CountByType(events.EventStockLow))

	_, err = f.svc.Deduct(context.Background(), DeductRequest{ProductID: 16, Quantity: 1, Size: "L"})
	require.NoError(t, err)
	require.Equal(t, 1, f.publisher.CountByType(events.EventStockLow))
}
