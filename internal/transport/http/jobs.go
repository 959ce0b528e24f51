package http

import (
	"net/http"
	"strconv"
	"template-foundry/internal/domain"
	"time"

	"github.com/gin-gonic/gin"
)

type jobResponse struct {
	ID            string     `json:"id"`
	SiteID        string     `json:"site_id"`
	Type          string     `json:"type"`
	Status        string     `json:"status"`
	CorrelationID string     `json:"correlation_id"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	ErrorMessage  *string    `json:"error_message,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toJobResponse(j domain.DeploymentJob) jobResponse {
	return jobResponse{
		ID:            j.ID.String(),
		SiteID:        j.SiteID.String(),
		Type:          string(j.Type),
		Status:        string(j.Status),
		CorrelationID: j.CorrelationID.String(),
		StartedAt:     j.StartedAt,
		FinishedAt:    j.FinishedAt,
		ErrorMessage:  j.ErrorMessage,
		CreatedAt:     j.Meta.CreatedAt,
	}
}

func (h *Handler) ListJobs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	jobs, err := h.queue.List(c.Request.Context(), limit, offset)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	out := make([]jobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, toJobResponse(j))
	}
	c.JSON(http.StatusOK, gin.H{"jobs": out})
}

func (h *Handler) GetJob(c *gin.Context) {
	jobID, ok := parseID(c, "id")
	if !ok {
		return
	}

	job, err := h.queue.Get(c.Request.Context(), jobID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toJobResponse(*job))
}

type claimedJobResponse struct {
	Job    jobResponse    `json:"job"`
	Site   siteResponse   `json:"site"`
	Target targetResponse `json:"target"`
}

type targetResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Host     string `json:"host"`
	SSHUser  string `json:"ssh_user"`
	BasePath string `json:"base_path"`
}

// ClaimJob is the external worker's dequeue: the returned job is already
// RUNNING, so no two workers can receive the same one.
func (h *Handler) ClaimJob(c *gin.Context) {
	claimed, err := h.queue.ClaimNext(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if claimed == nil {
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusOK, claimedJobResponse{
		Job:  toJobResponse(claimed.Job),
		Site: toSiteResponse(claimed.Site),
		Target: targetResponse{
			ID:       claimed.Target.ID.String(),
			Name:     claimed.Target.Name,
			Host:     claimed.Target.Host,
			SSHUser:  claimed.Target.SSHUser,
			BasePath: claimed.Target.BasePath,
		},
	})
}

type reportJobRequest struct {
	Status       string  `json:"status" binding:"required"`
	ErrorMessage *string `json:"error_message"`
}

func (h *Handler) ReportJob(c *gin.Context) {
	jobID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req reportJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, codeInvalidBody, "status is required")
		return
	}

	err := h.queue.Report(c.Request.Context(), actorID(c), jobID, domain.JobStatus(req.Status), req.ErrorMessage)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": jobID, "status": req.Status})
}
