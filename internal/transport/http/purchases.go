package http

import (
	"net/http"
	"template-foundry/internal/domain"
	"time"

	"github.com/gin-gonic/gin"
)

type licenseKeyResponse struct {
	ID         string     `json:"id"`
	PurchaseID string     `json:"purchase_id"`
	Key        string     `json:"key"`
	Status     string     `json:"status"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func keyResponse(k *domain.LicenseKey) licenseKeyResponse {
	return licenseKeyResponse{
		ID:         k.ID.String(),
		PurchaseID: k.PurchaseID.String(),
		Key:        k.Key,
		Status:     string(k.Status),
		RevokedAt:  k.RevokedAt,
		CreatedAt:  k.Meta.CreatedAt,
	}
}

func (h *Handler) GetActiveKey(c *gin.Context) {
	purchaseID, ok := parseID(c, "id")
	if !ok {
		return
	}

	key, err := h.ledger.ActiveKey(c.Request.Context(), actorID(c), purchaseID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if key == nil {
		writeError(c, http.StatusNotFound, codeNotFound, "no active license key")
		return
	}
	c.JSON(http.StatusOK, keyResponse(key))
}

func (h *Handler) RevokeKeys(c *gin.Context) {
	purchaseID, ok := parseID(c, "id")
	if !ok {
		return
	}

	revoked, err := h.ledger.RevokeKeys(c.Request.Context(), actorID(c), purchaseID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"revoked": revoked})
}

func (h *Handler) RotateKey(c *gin.Context) {
	purchaseID, ok := parseID(c, "id")
	if !ok {
		return
	}

	key, err := h.ledger.RotateKey(c.Request.Context(), actorID(c), purchaseID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, keyResponse(key))
}
