package http

import (
	"net/http"
	"template-foundry/internal/domain"
	"time"

	"github.com/gin-gonic/gin"
)

type siteResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	TemplateID string    `json:"template_id"`
	PurchaseID string    `json:"purchase_id"`
	TargetID   string    `json:"target_id"`
	Subdomain  string    `json:"subdomain"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

func toSiteResponse(s domain.CustomerSite) siteResponse {
	return siteResponse{
		ID:         s.ID.String(),
		UserID:     s.UserID.String(),
		TemplateID: s.TemplateID.String(),
		PurchaseID: s.PurchaseID.String(),
		TargetID:   s.TargetID.String(),
		Subdomain:  s.Subdomain,
		Status:     string(s.Status),
		CreatedAt:  s.Meta.CreatedAt,
	}
}

func (h *Handler) GetSite(c *gin.Context) {
	siteID, ok := parseID(c, "id")
	if !ok {
		return
	}

	site, err := h.provisioner.GetSite(c.Request.Context(), siteID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSiteResponse(*site))
}

// siteLifecycle enqueues the given job type against an existing site.
func (h *Handler) siteLifecycle(jobType domain.JobType) gin.HandlerFunc {
	return func(c *gin.Context) {
		siteID, ok := parseID(c, "id")
		if !ok {
			return
		}

		job, err := h.provisioner.RequestLifecycle(c.Request.Context(), actorID(c), siteID, jobType)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, toJobResponse(*job))
	}
}
