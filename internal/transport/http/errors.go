package http

import (
	"errors"
	"net/http"
	"template-foundry/internal/domain"

	"github.com/gin-gonic/gin"
)

const (
	codeNotFound          = "not_found"
	codeInvalidID         = "invalid_id"
	codeInvalidStatus     = "invalid_status"
	codeInvalidTransition = "invalid_transition"
	codeInvalidJobType    = "invalid_job_type"
	codeJobNotAllowed     = "job_not_allowed"
	codeNotKeyBearing     = "not_key_bearing"
	codeMissingActor      = "missing_actor"
	codeInvalidBody       = "invalid_request_body"
	codeInternalError     = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: msg, Code: code})
}

// writeServiceError maps domain errors onto HTTP statuses. Ownership
// failures surface as not-found so callers cannot probe foreign ids.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrPurchaseNotFound),
		errors.Is(err, domain.ErrSiteNotFound),
		errors.Is(err, domain.ErrJobNotFound):
		writeError(c, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidStatus):
		writeError(c, http.StatusBadRequest, codeInvalidStatus, err.Error())
	case errors.Is(err, domain.ErrInvalidJobType):
		writeError(c, http.StatusBadRequest, codeInvalidJobType, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(c, http.StatusConflict, codeInvalidTransition, err.Error())
	case errors.Is(err, domain.ErrJobNotAllowed):
		writeError(c, http.StatusConflict, codeJobNotAllowed, err.Error())
	case errors.Is(err, domain.ErrNotKeyBearing):
		writeError(c, http.StatusBadRequest, codeNotKeyBearing, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
