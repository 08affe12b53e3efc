package repository

import "time"

// ProductListFilter 查询商品列表的过滤条件
type ProductListFilter struct {
	Page       int
	PageSize   int
	Search     string
	OnlyActive bool
	// InStock 未建台账或任一台账行有可售量
	InStock bool
	// OnSale 设置了促销价且当前处于促销窗口
	OnSale bool
	Now    time.Time
}

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page        int
	PageSize    int
	Status      string
	SaleType    string
	SellerID    uint
	OrderNo     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// StockMovementListFilter 查询库存流水的过滤条件
type StockMovementListFilter struct {
	Page      int
	PageSize  int
	ProductID uint
	Reason    string
	OrderID   uint
}
