package admin

import (
	"time"

	"github.com/mavazi-pos/internal/http/handlers/shared"
	"github.com/mavazi-pos/internal/http/response"
	"github.com/mavazi-pos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ProductRequest 创建/更新商品请求
type ProductRequest struct {
	Code           string           `json:"code" binding:"required"`
	Name           string           `json:"name" binding:"required"`
	Description    string           `json:"description"`
	Price          decimal.Decimal  `json:"price"`
	SalePrice      *decimal.Decimal `json:"sale_price"`
	FlashSaleStart *time.Time       `json:"flash_sale_start"`
	FlashSaleEnd   *time.Time       `json:"flash_sale_end"`
	IsActive       *bool            `json:"is_active"`
}

func (r ProductRequest) toInput() service.CreateProductInput {
	return service.CreateProductInput{
		Code:           r.Code,
		Name:           r.Name,
		Description:    r.Description,
		Price:          r.Price,
		SalePrice:      r.SalePrice,
		FlashSaleStart: r.FlashSaleStart,
		FlashSaleEnd:   r.FlashSaleEnd,
		IsActive:       r.IsActive,
	}
}

// ListProducts 商品列表
func (h *Handler) ListProducts(c *gin.Context) {
	page, pageSize := shared.PageQuery(c)
	items, total, err := h.ProductService.ListAdmin(service.ProductQuery{
		Search:   c.Query("search"),
		Page:     page,
		PageSize: pageSize,
		InStock:  shared.BoolQuery(c, "in_stock"),
		OnSale:   shared.BoolQuery(c, "on_sale"),
	})
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, items, shared.BuildPagination(page, pageSize, total))
}

// GetProduct 商品详情
func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := shared.ParamUint(c, "id")
	if !ok {
		return
	}
	product, err := h.ProductService.Get(id)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, product)
}

// CreateProduct 创建商品
func (h *Handler) CreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误")
		return
	}
	product, err := h.ProductService.Create(req.toInput())
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, product)
}

// UpdateProduct 更新商品
func (h *Handler) UpdateProduct(c *gin.Context) {
	id, ok := shared.ParamUint(c, "id")
	if !ok {
		return
	}
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误")
		return
	}
	product, err := h.ProductService.Update(id, req.toInput())
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, product)
}

// DeleteProduct 删除商品
func (h *Handler) DeleteProduct(c *gin.Context) {
	id, ok := shared.ParamUint(c, "id")
	if !ok {
		return
	}
	if err := h.ProductService.Delete(id); err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, nil)
}
