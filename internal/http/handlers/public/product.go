package public

import (
	"github.com/mavazi-pos/internal/http/handlers/shared"
	"github.com/mavazi-pos/internal/http/response"
	"github.com/mavazi-pos/internal/service"

	"github.com/gin-gonic/gin"
)

// AvailabilityResponse 可售量返回，available 为 null 表示不跟踪库存
type AvailabilityResponse struct {
	ProductID uint           `json:"product_id"`
	Available *int           `json:"available"`
	BySize    map[string]int `json:"by_size"`
	ByColor   map[string]int `json:"by_color"`
	Sizes     []string       `json:"sizes"`
}

// ListProducts 在售商品列表
func (h *Handler) ListProducts(c *gin.Context) {
	page, pageSize := shared.PageQuery(c)
	items, total, err := h.ProductService.ListPublic(service.ProductQuery{
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

// GetAvailability 商品可售量
func (h *Handler) GetAvailability(c *gin.Context) {
	productID, ok := shared.ParamUint(c, "id")
	if !ok {
		return
	}
	if _, err := h.ProductService.Get(productID); err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	snapshot, err := h.InventoryService.Availability(productID)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, AvailabilityResponse{
		ProductID: productID,
		Available: snapshot.Available,
		BySize:    snapshot.BySize,
		ByColor:   snapshot.ByColor,
		Sizes:     snapshot.Sizes,
	})
}
