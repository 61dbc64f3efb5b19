package handler

import (
	"strconv"

	"github.com/deliverymaster/service-quote/internal/application"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DeliveryHandler handles HTTP requests for the delivery history.
type DeliveryHandler struct {
	service *application.QuoteService
}

// NewDeliveryHandler creates a new DeliveryHandler.
func NewDeliveryHandler(service *application.QuoteService) *DeliveryHandler {
	return &DeliveryHandler{service: service}
}

// RegisterRoutes registers all delivery routes on the given router group.
func (h *DeliveryHandler) RegisterRoutes(r *gin.RouterGroup) {
	deliveries := r.Group("/api/v1/deliveries")
	{
		deliveries.GET("", h.ListDeliveries)
		deliveries.GET("/stats", h.GetStats)
		deliveries.GET("/:id", h.GetDelivery)
		deliveries.POST("/:id/cancel", h.CancelDelivery)
	}
}

// ListDeliveries handles GET /api/v1/deliveries. Newest first.
func (h *DeliveryHandler) ListDeliveries(c *gin.Context) {
	page, limit := parsePagination(c)
	items, total := h.service.History(page, limit)
	Paginated(c, items, total, page, limit)
}

// GetStats handles GET /api/v1/deliveries/stats.
func (h *DeliveryHandler) GetStats(c *gin.Context) {
	Success(c, h.service.Stats())
}

// GetDelivery handles GET /api/v1/deliveries/:id.
func (h *DeliveryHandler) GetDelivery(c *gin.Context) {
	deliveryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid delivery ID")
		return
	}

	result, err := h.service.GetDelivery(deliveryID)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, result)
}

// CancelDelivery handles POST /api/v1/deliveries/:id/cancel.
func (h *DeliveryHandler) CancelDelivery(c *gin.Context) {
	deliveryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid delivery ID")
		return
	}

	result, err := h.service.Cancel(c.Request.Context(), deliveryID)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, result)
}

// parsePagination extracts page and limit query parameters with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return page, limit
}
