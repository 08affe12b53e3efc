package service

import (
	"sort"

	"github.com/mavazi-pos/internal/models"
	"github.com/mavazi-pos/internal/repository"
)

// AvailabilitySnapshot 商品可售量快照
// Available 为 nil 表示商品未配置任何库存台账（视为始终可售），与"已配置但为 0"区分。
type AvailabilitySnapshot struct {
	ProductID uint           `json:"product_id"`
	Tracked   bool           `json:"tracked"`
	Available *int           `json:"available"`
	BySize    map[string]int `json:"by_size"`
	ByColor   map[string]int `json:"by_color"`
	Sizes     []string       `json:"sizes"`
}

// Availability 读取商品可售量，直接查询台账，不经过缓存
func (s *InventoryService) Availability(productID uint) (*AvailabilitySnapshot, error) {
	rows, err := s.ledgerRepo.ListByProduct(productID)
	if err != nil {
		return nil, wrapStoreError("list ledgers", err)
	}
	return summarizeAvailability(productID, rows), nil
}

// AvailableFor 按扣减的粒度优先级计算指定规格可扣数量，nil 表示未启用库存跟踪。
// 命中细粒度行时只看该行；否则取总库存行与尺码扫描两条路径中较大的一方。
func (s *InventoryService) AvailableFor(productID uint, size, color string) (*int, error) {
	size, err := NormalizeSize(size)
	if err != nil {
		return nil, err
	}
	color = NormalizeColor(color)
	rows, err := s.ledgerRepo.ListByProduct(productID)
	if err != nil {
		return nil, wrapStoreError("list ledgers", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	byKey := make(map[repository.StockKey]*models.StockLedger, len(rows))
	for i := range rows {
		row := &rows[i]
		byKey[repository.StockKey{ProductID: productID, Size: row.Size, Color: row.Color}] = row
	}
	for _, key := range dimensionCandidates(DeductRequest{ProductID: productID, Size: size, Color: color}) {
		if row, ok := byKey[key]; ok {
			available := row.Available()
			return &available, nil
		}
	}

	best, sweep := 0, 0
	for i := range rows {
		row := &rows[i]
		switch {
		case row.Size == "" && row.Color == "":
			if row.Available() > best {
				best = row.Available()
			}
		case row.Color == "":
			sweep += row.Available()
		}
	}
	if sweep > best {
		best = sweep
	}
	return &best, nil
}

// AvailableBySize 按尺码汇总可售量
func (s *InventoryService) AvailableBySize(productID uint) (map[string]int, error) {
	snapshot, err := s.Availability(productID)
	if err != nil {
		return nil, err
	}
	return snapshot.BySize, nil
}

// AvailableByColor 按颜色汇总可售量
func (s *InventoryService) AvailableByColor(productID uint) (map[string]int, error) {
	snapshot, err := s.Availability(productID)
	if err != nil {
		return nil, err
	}
	return snapshot.ByColor, nil
}

// summarizeAvailability 汇总规则：
// 总可售量优先取商品总库存行；没有总库存行时取尺码行之和，再退到颜色行之和。
// 尺码分布优先取尺码行，没有尺码行时按尺码聚合尺码+颜色行。
func summarizeAvailability(productID uint, rows []models.StockLedger) *AvailabilitySnapshot {
	snapshot := &AvailabilitySnapshot{
		ProductID: productID,
		BySize:    map[string]int{},
		ByColor:   map[string]int{},
	}
	if len(rows) == 0 {
		return snapshot
	}
	snapshot.Tracked = true

	var general *models.StockLedger
	sizeTotal, colorTotal := 0, 0
	hasSizeRows, hasColorRows := false, false
	colorBySize := map[string]int{}
	for i := range rows {
		row := &rows[i]
		switch {
		case row.Size == "" && row.Color == "":
			general = row
		case row.Color == "":
			hasSizeRows = true
			snapshot.BySize[row.Size] += row.Available()
			sizeTotal += row.Available()
		default:
			hasColorRows = true
			snapshot.ByColor[row.Color] += row.Available()
			colorTotal += row.Available()
			if row.Size != "" {
				colorBySize[row.Size] += row.Available()
			}
		}
	}
	if !hasSizeRows {
		for size, qty := range colorBySize {
			snapshot.BySize[size] = qty
		}
	}

	var total int
	switch {
	case general != nil:
		total = general.Available()
	case hasSizeRows:
		total = sizeTotal
	case hasColorRows:
		total = colorTotal
	}
	snapshot.Available = &total

	snapshot.Sizes = make([]string, 0, len(snapshot.BySize))
	for size := range snapshot.BySize {
		snapshot.Sizes = append(snapshot.Sizes, size)
	}
	sort.Slice(snapshot.Sizes, func(i, j int) bool {
		return SizeRank(snapshot.Sizes[i]) < SizeRank(snapshot.Sizes[j])
	})
	return snapshot
}
