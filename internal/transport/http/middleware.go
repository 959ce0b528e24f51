package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// actorHeader carries the authenticated user's id, stamped by the auth
// gateway in front of this service.
const actorHeader = "X-User-ID"

const actorKey = "actorID"

// RequireActor rejects requests without a parseable actor id. Ownership
// checks downstream rely on it being present.
func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(actorHeader)
		if raw == "" {
			writeError(c, http.StatusUnauthorized, codeMissingActor, "missing "+actorHeader+" header")
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(c, http.StatusUnauthorized, codeMissingActor, "malformed "+actorHeader+" header")
			return
		}
		c.Set(actorKey, id)
		c.Next()
	}
}

func actorID(c *gin.Context) uuid.UUID {
	id, _ := c.MustGet(actorKey).(uuid.UUID)
	return id
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		writeError(c, http.StatusBadRequest, codeInvalidID, "malformed id")
		return uuid.Nil, false
	}
	return id, true
}
