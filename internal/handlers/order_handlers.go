package handlers

import (
	"errors"
	"net/http"

	"restaurant_order_backend/internal/middleware"
	"restaurant_order_backend/internal/services"
	"restaurant_order_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// OrderHandler holds the order service.
type OrderHandler struct {
	orderService services.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(os services.OrderService) *OrderHandler {
	return &OrderHandler{orderService: os}
}

// orderErrorResponses maps service errors to responses, checked in order.
var orderErrorResponses = []struct {
	err     error
	status  int
	code    string
	message string
}{
	{services.ErrEmptyOrderRequest, http.StatusBadRequest, utils.ErrCodeEmptyOrderRequest, "Order must contain at least one item."},
	{services.ErrInvalidOrderType, http.StatusBadRequest, utils.ErrCodeInvalidOrderType, "Order type must be at-table or take-out."},
	{services.ErrInvalidQuantity, http.StatusBadRequest, utils.ErrCodeValidationFailed, "Item quantity must be positive."},
	{services.ErrBranchNotFound, http.StatusNotFound, utils.ErrCodeBranchNotFound, "Branch not found."},
	{services.ErrTableNotFound, http.StatusNotFound, utils.ErrCodeTableNotFound, "Table not found in this branch."},
	{services.ErrOwnerNotFound, http.StatusNotFound, utils.ErrCodeOwnerNotFound, "Order owner not found."},
	{services.ErrApproverNotFound, http.StatusNotFound, utils.ErrCodeApproverNotFound, "Approver not found."},
	{services.ErrVariantNotFound, http.StatusNotFound, utils.ErrCodeVariantNotFound, "One or more variants not found."},
	{services.ErrInsufficientStock, http.StatusConflict, utils.ErrCodeInsufficientStock, "Insufficient stock for one or more items."},
	{services.ErrOrderNotFound, http.StatusNotFound, utils.ErrCodeOrderNotFound, "Order not found."},
}

// respondWithOrderError writes the response of a service error. Details are only exposed for
// client errors; storage failures are logged and reported without them.
func respondWithOrderError(c *gin.Context, err error) {
	for _, r := range orderErrorResponses {
		if errors.Is(err, r.err) {
			utils.RespondWithError(c, utils.NewAPIError(r.status, r.code, r.message, err.Error()))
			return
		}
	}
	if errors.Is(err, services.ErrTransactionAborted) {
		utils.LogError(err, "Order transaction aborted")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusServiceUnavailable, utils.ErrCodeTransactionAborted, "The order could not be saved, please retry.", ""))
		return
	}
	utils.LogError(err, "Unexpected order service error")
	utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Internal error.", ""))
}

// CreateOrder handles the creation of a new order with its items.
// The caller becomes the owner when the body names none.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req services.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogDebug("CreateOrder: Failed to bind JSON", map[string]interface{}{"error": err.Error()})
		utils.RespondValidationFailed(c, err.Error())
		return
	}

	if utils.IsEmpty(req.Owner) {
		slug, ok := middleware.CallerSlug(c)
		if !ok {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "User not authenticated", "Missing caller slug"))
			return
		}
		req.Owner = slug
	}

	createdOrder, err := h.orderService.CreateOrder(c.Request.Context(), req)
	if err != nil {
		respondWithOrderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, createdOrder)
}

// GetOrderBySlug returns one order with its items.
func (h *OrderHandler) GetOrderBySlug(c *gin.Context) {
	order, err := h.orderService.GetOrderBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondWithOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
