package http

import (
	"net/http"
	"template-foundry/internal/domain"

	"github.com/gin-gonic/gin"
)

type updateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req updateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, codeInvalidBody, "status is required")
		return
	}

	err := h.fulfillment.Transition(c.Request.Context(), actorID(c), orderID, domain.OrderStatus(req.Status))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": orderID, "status": req.Status})
}
