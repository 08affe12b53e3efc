package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/mavazi-pos/internal/constants"
	"github.com/mavazi-pos/internal/models"
)

func TestListExpiredPendingSkipsPaidOrders(t *testing.T) {
	db := openRepositoryTestDB(t)
	repo := NewOrderRepository(db)
	now := time.Now()
	past := now.Add(-time.Minute)

	// 大量已支付但卡在处理中的订单排在前面，不应挤占批次
	for i := 0; i < 3; i++ {
		stuck := &models.Order{
			OrderNo:     fmt.Sprintf("PAID-%d", i),
			SaleType:    constants.SaleTypeOnline,
			Status:      constants.OrderStatusProcessing,
			Currency:    "KES",
			TotalAmount: models.MustMoney("10"),
			ExpiresAt:   &past,
		}
		if err := db.Create(stuck).Error; err != nil {
			t.Fatalf("create paid order failed: %v", err)
		}
		if err := db.Create(&models.Transaction{
			OrderID:           stuck.ID,
			PaymentProvider:   "mpesa",
			ProviderReference: fmt.Sprintf("ref-%d", i),
			Amount:            models.MustMoney("10"),
			Status:            constants.TransactionStatusSuccess,
		}).Error; err != nil {
			t.Fatalf("create transaction failed: %v", err)
		}
	}
	unpaid := &models.Order{
		OrderNo:     "UNPAID-1",
		SaleType:    constants.SaleTypeOnline,
		Status:      constants.OrderStatusPending,
		Currency:    "KES",
		TotalAmount: models.MustMoney("10"),
		ExpiresAt:   &past,
	}
	if err := db.Create(unpaid).Error; err != nil {
		t.Fatalf("create unpaid order failed: %v", err)
	}
	if err := db.Create(&models.Transaction{
		OrderID:           unpaid.ID,
		PaymentProvider:   "card",
		ProviderReference: "ref-failed",
		Amount:            models.MustMoney("10"),
		Status:            constants.TransactionStatusFailed,
	}).Error; err != nil {
		t.Fatalf("create failed transaction failed: %v", err)
	}

	orders, err := repo.ListExpiredPending(now, 2)
	if err != nil {
		t.Fatalf("list expired failed: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != unpaid.ID {
		t.Fatalf("want only unpaid order %d, got %+v", unpaid.ID, orders)
	}
}
