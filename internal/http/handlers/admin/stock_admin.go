package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/mavazi-pos/internal/http/handlers/shared"
	"github.com/mavazi-pos/internal/http/response"
	"github.com/mavazi-pos/internal/repository"
	"github.com/mavazi-pos/internal/service"

	"github.com/gin-gonic/gin"
)

// StockLevelRequest 设置库存请求
type StockLevelRequest struct {
	Size              string `json:"size"`
	Color             string `json:"color"`
	StockQuantity     int    `json:"stock_quantity"`
	LowStockThreshold int    `json:"low_stock_threshold"`
}

// StockRestockRequest 入库请求
type StockRestockRequest struct {
	Size     string `json:"size"`
	Color    string `json:"color"`
	Quantity int    `json:"quantity" binding:"required"`
}

// StockOperationRequest 直接库存操作请求
type StockOperationRequest struct {
	ProductID uint   `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

// StockOperationResponse 直接库存操作结果
type StockOperationResponse struct {
	Success     bool   `json:"success"`
	Granularity string `json:"granularity,omitempty"`
	Untracked   bool   `json:"untracked,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

func currentStaffID(c *gin.Context) *uint {
	id, ok := shared.GetStaffID(c)
	if !ok {
		return nil
	}
	return &id
}

// GetProductStock 商品台账与可售量
func (h *Handler) GetProductStock(c *gin.Context) {
	productID, ok := shared.ParamUint(c, "id")
	if !ok {
		return
	}
	rows, err := h.StockAdminService.ListStock(productID)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	snapshot, err := h.InventoryService.Availability(productID)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{
		"ledgers":      rows,
		"availability": snapshot,
	})
}

// SetProductStock 设置台账行的绝对库存
func (h *Handler) SetProductStock(c *gin.Context) {
	productID, ok := shared.ParamUint(c, "id")
	if !ok {
		return
	}
	var req StockLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误")
		return
	}
	row, err := h.StockAdminService.SetLevel(service.StockLevelInput{
		ProductID:         productID,
		Size:              req.Size,
		Color:             req.Color,
		StockQuantity:     req.StockQuantity,
		LowStockThreshold: req.LowStockThreshold,
		StaffID:           currentStaffID(c),
	})
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, row)
}

// RestockProduct 入库
func (h *Handler) RestockProduct(c *gin.Context) {
	productID, ok := shared.ParamUint(c, "id")
	if !ok {
		return
	}
	var req StockRestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误")
		return
	}
	row, err := h.StockAdminService.Restock(service.StockRestockInput{
		ProductID: productID,
		Size:      req.Size,
		Color:     req.Color,
		Quantity:  req.Quantity,
		StaffID:   currentStaffID(c),
	})
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, row)
}

// DeleteProductStock 删除台账行，维度通过 query 传入
func (h *Handler) DeleteProductStock(c *gin.Context) {
	productID, ok := shared.ParamUint(c, "id")
	if !ok {
		return
	}
	err := h.StockAdminService.DeleteLevel(productID, c.Query("size"), c.Query("color"), currentStaffID(c))
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, nil)
}

// ListStockMovements 库存流水
func (h *Handler) ListStockMovements(c *gin.Context) {
	page, pageSize := shared.PageQuery(c)
	productID, _ := strconv.ParseUint(strings.TrimSpace(c.Query("product_id")), 10, 64)
	orderID, _ := strconv.ParseUint(strings.TrimSpace(c.Query("order_id")), 10, 64)

	items, total, err := h.StockAdminService.ListMovements(repository.StockMovementListFilter{
		Page:      page,
		PageSize:  pageSize,
		ProductID: uint(productID),
		OrderID:   uint(orderID),
		Reason:    strings.TrimSpace(c.Query("reason")),
	})
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, items, shared.BuildPagination(page, pageSize, total))
}

// ReconcileStock 对账，fix=true 时修正预占超出在库的行
func (h *Handler) ReconcileStock(c *gin.Context) {
	fix := strings.EqualFold(strings.TrimSpace(c.Query("fix")), "true")
	issues, err := h.ReconcileService.Run(fix)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, issues)
}

// ReserveStock 直接预占商品总库存
func (h *Handler) ReserveStock(c *gin.Context) {
	var req StockOperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误")
		return
	}
	ok, err := h.InventoryService.ReserveStock(c.Request.Context(), req.ProductID, req.Quantity)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, StockOperationResponse{Success: ok})
}

// ReleaseStock 直接释放商品总库存的预占
func (h *Handler) ReleaseStock(c *gin.Context) {
	var req StockOperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误")
		return
	}
	ok, err := h.InventoryService.ReleaseStock(c.Request.Context(), req.ProductID, req.Quantity)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, StockOperationResponse{Success: ok})
}

// DeductStock 直接提交销售扣减，业务拒绝以 success=false 返回
func (h *Handler) DeductStock(c *gin.Context) {
	var req StockOperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误")
		return
	}
	result, err := h.InventoryService.Deduct(c.Request.Context(), service.DeductRequest{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Size:      req.Size,
		Color:     req.Color,
		SellerID:  currentStaffID(c),
	})
	if err != nil {
		if errors.Is(err, service.ErrStockStore) {
			shared.RespondServiceError(c, err)
			return
		}
		response.Success(c, StockOperationResponse{Success: false, Reason: err.Error()})
		return
	}
	response.Success(c, StockOperationResponse{
		Success:     true,
		Granularity: result.Granularity,
		Untracked:   result.Untracked,
	})
}
