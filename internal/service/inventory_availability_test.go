package service

import (
	"testing"

	"github.com/mavazi-pos/internal/models"

	"github.com/stretchr/testify/require"
)

func TestSummarizeAvailabilityUntracked(t *testing.T) {
	snapshot := summarizeAvailability(1, nil)
	require.False(t, snapshot.Tracked)
	require.Nil(t, snapshot.Available)
	require.Empty(t, snapshot.BySize)
	require.Empty(t, snapshot.ByColor)
}

func TestSummarizeAvailabilityPrefersGeneralRow(t *testing.T) {
	rows := []models.StockLedger{
		{ProductID: 1, StockQuantity: 10, ReservedQuantity: 3},
		{ProductID: 1, Size: "M", StockQuantity: 4},
		{ProductID: 1, Size: "S", StockQuantity: 2, ReservedQuantity: 5},
		{ProductID: 1, Size: "M", Color: "red", StockQuantity: 1},
		{ProductID: 1, Color: "red", StockQuantity: 2},
	}
	snapshot := summarizeAvailability(1, rows)
	require.True(t, snapshot.Tracked)
	require.NotNil(t, snapshot.Available)
	require.Equal(t, 7, *snapshot.Available)
	require.Equal(t, map[string]int{"M": 4, "S": 0}, snapshot.BySize)
	require.Equal(t, map[string]int{"red": 3}, snapshot.ByColor)
	require.Equal(t, []string{"S", "M"}, snapshot.Sizes)
}

func TestSummarizeAvailabilityFallsBackToSizes(t *testing.T) {
	rows := []models.StockLedger{
		{ProductID: 2, Size: "XL", StockQuantity: 3},
		{ProductID: 2, Size: "L", StockQuantity: 5, ReservedQuantity: 1},
	}
	snapshot := summarizeAvailability(2, rows)
	require.Equal(t, 7, *snapshot.Available)
	require.Equal(t, []string{"L", "XL"}, snapshot.Sizes)
}

func TestSummarizeAvailabilityColorRowsOnly(t *testing.T) {
	rows := []models.StockLedger{
		{ProductID: 3, Size: "M", Color: "red", StockQuantity: 2},
		{ProductID: 3, Size: "M", Color: "blue", StockQuantity: 1},
		{ProductID: 3, Size: "2XL", Color: "blue", StockQuantity: 4},
	}
	snapshot := summarizeAvailability(3, rows)
	require.Equal(t, 7, *snapshot.Available)
	require.Equal(t, map[string]int{"M": 3, "2XL": 4}, snapshot.BySize)
	require.Equal(t, map[string]int{"red": 2, "blue": 5}, snapshot.ByColor)
}

func TestSummarizeAvailabilityZeroIsTracked(t *testing.T) {
	snapshot := summarizeAvailability(4, []models.StockLedger{{ProductID: 4}})
	require.True(t, snapshot.Tracked)
	require.NotNil(t, snapshot.Available)
	require.Zero(t, *snapshot.Available)
}

func TestNormalizeDimensions(t *testing.T) {
	size, err := NormalizeSize(" xxl ")
	require.NoError(t, err)
	require.Equal(t, "2XL", size)
	size, err = NormalizeSize("")
	require.NoError(t, err)
	require.Empty(t, size)
	_, err = NormalizeSize("6XL")
	require.ErrorIs(t, err, ErrInvalidSize)
	require.Equal(t, "navy blue", NormalizeColor("  Navy   BLUE "))
	require.Less(t, SizeRank("S"), SizeRank("5XL"))
	require.Equal(t, 8, SizeRank("unknown"))
}

func TestAvailabilityReadsLedgerDirectly(t *testing.T) {
	f := newInventoryFixture(t)
	f.seed(t, 30, "M", "black", 3, 1)
	f.seed(t, 30, "L", "black", 2, 0)
	f.seed(t, 30, "L", "white", 1, 0)

	bySize, err := f.svc.AvailableBySize(30)
	require.NoError(t, err)
	require.Equal(t, map[string]int{"M": 2, "L": 3}, bySize)

	byColor, err := f.svc.AvailableByColor(30)
	require.NoError(t, err)
	require.Equal(t, map[string]int{"black": 4, "white": 1}, byColor)

	snapshot, err := f.svc.Availability(31)
	require.NoError(t, err)
	require.False(t, snapshot.Tracked)
}
