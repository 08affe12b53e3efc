package service

import (
	"testing"
	"time"

	"github.com/mavazi-pos/internal/constants"
	"github.com/mavazi-pos/internal/models"
	"github.com/mavazi-pos/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func productCodes(items []models.Product) []string {
	codes := make([]string, 0, len(items))
	for _, item := range items {
		codes = append(codes, item.Code)
	}
	return codes
}

func TestProductListFilters(t *testing.T) {
	f := newInventoryFixture(t)
	svc := NewProductService(repository.NewProductRepository(f.db))

	sale := decimal.NewFromInt(900)
	past := time.Now().Add(-24 * time.Hour)
	future := time.Now().Add(24 * time.Hour)

	shirt, err := svc.Create(CreateProductInput{Code: "TS-01", Name: "Classic Tee", Price: decimal.NewFromInt(1200)})
	require.NoError(t, err)
	f.seed(t, shirt.ID, "M", "", 3, 3)
	f.seed(t, shirt.ID, "L", "", 2, 0)

	kanga, err := svc.Create(CreateProductInput{Code: "KG-01", Name: "Kanga Wrap", Price: decimal.NewFromInt(1500), SalePrice: &sale, FlashSaleEnd: &past})
	require.NoError(t, err)
	f.seed(t, kanga.ID, "", "", 4, 4)

	voucher, err := svc.Create(CreateProductInput{Code: "GC-01", Name: "Gift Voucher", Price: decimal.NewFromInt(1000), SalePrice: &sale, FlashSaleEnd: &future})
	require.NoError(t, err)

	inactive := false
	_, err = svc.Create(CreateProductInput{Code: "OLD-01", Name: "Retired Tee", Price: decimal.NewFromInt(500), IsActive: &inactive})
	require.NoError(t, err)

	items, total, err := svc.ListPublic(ProductQuery{Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Equal(t, []string{"GC-01", "KG-01", "TS-01"}, productCodes(items))

	items, _, err = svc.ListPublic(ProductQuery{InStock: true})
	require.NoError(t, err)
	require.Equal(t, []string{"GC-01", "TS-01"}, productCodes(items))

	items, _, err = svc.ListPublic(ProductQuery{OnSale: true})
	require.NoError(t, err)
	require.Equal(t, []string{voucher.Code}, productCodes(items))

	items, _, err = svc.ListPublic(ProductQuery{Search: "tee", InStock: true})
	require.NoError(t, err)
	require.Equal(t, []string{"TS-01"}, productCodes(items))

	items, total, err = svc.ListAdmin(ProductQuery{Search: "tee"})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Equal(t, constants.ProductStatusInactive, items[0].Status)
}
