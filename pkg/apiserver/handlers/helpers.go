package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/uspace/uatrack/pkg/store"
)

func parseID(c *gin.Context, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + what + " id"})
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps store errors onto status codes: a missing id is 404, any
// other validation failure 400, integrity violations 409.
func writeError(c *gin.Context, logger *zap.Logger, what string, err error) {
	var verr *store.ValidationError
	switch {
	case errors.As(err, &verr) && verr.Field == "id" && len(verr.MissingIDs) > 0:
		c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
	case store.IsIntegrity(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.Error("request failed", zap.String("resource", what), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get " + what})
	}
}

func formatTime(value *time.Time) *string {
	if value == nil {
		return nil
	}
	formatted := value.UTC().Format(time.RFC3339Nano)
	return &formatted
}
