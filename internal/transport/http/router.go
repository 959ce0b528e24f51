package http

import (
	"net/http"
	"template-foundry/internal/database"
	"template-foundry/internal/domain"
	"template-foundry/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	fulfillment service.Fulfillment
	ledger      service.Ledger
	provisioner service.Provisioner
	queue       service.Queue
	health      database.Service
}

func NewHandler(
	fulfillment service.Fulfillment,
	ledger service.Ledger,
	provisioner service.Provisioner,
	queue service.Queue,
	health database.Service,
) *Handler {
	return &Handler{
		fulfillment: fulfillment,
		ledger:      ledger,
		provisioner: provisioner,
		queue:       queue,
		health:      health,
	}
}

func (h *Handler) Router(corsOrigins []string) *gin.Engine {
	r := gin.Default()

	cfg := cors.DefaultConfig()
	if len(corsOrigins) > 0 {
		cfg.AllowOrigins = corsOrigins
	} else {
		cfg.AllowAllOrigins = true
	}
	cfg.AllowHeaders = append(cfg.AllowHeaders, actorHeader)
	r.Use(cors.New(cfg))

	r.GET("/health", h.Health)

	authed := r.Group("/", RequireActor())

	authed.PATCH("/orders/:id/status", h.UpdateOrderStatus)

	authed.GET("/purchases/:id/key", h.GetActiveKey)
	authed.POST("/purchases/:id/key/revoke", h.RevokeKeys)
	authed.POST("/purchases/:id/key/rotate", h.RotateKey)

	authed.GET("/sites/:id", h.GetSite)
	authed.POST("/sites/:id/redeploy", h.siteLifecycle(domain.JobRedeploy))
	authed.POST("/sites/:id/stop", h.siteLifecycle(domain.JobStop))
	authed.POST("/sites/:id/start", h.siteLifecycle(domain.JobStart))
	authed.POST("/sites/:id/remove", h.siteLifecycle(domain.JobRemove))

	authed.GET("/jobs", h.ListJobs)
	authed.GET("/jobs/:id", h.GetJob)

	authed.POST("/worker/jobs/claim", h.ClaimJob)
	authed.POST("/worker/jobs/:id/status", h.ReportJob)

	return r
}

func (h *Handler) Health(c *gin.Context) {
	stats := h.health.Health()
	status := http.StatusOK
	if stats["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, stats)
}
