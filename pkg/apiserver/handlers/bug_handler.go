package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/uspace/uatrack/pkg/model"
	"github.com/uspace/uatrack/pkg/store/gormstore"
)

type BugHandler struct {
	db     *gormstore.Store
	logger *zap.Logger
}

func NewBugHandler(db *gormstore.Store, logger *zap.Logger) *BugHandler {
	return &BugHandler{db: db, logger: logger}
}

type historyEntryResponse struct {
	Status      string  `json:"status"`
	Description string  `json:"description"`
	ModifiedBy  string  `json:"modified_by"`
	CreatedAt   *string `json:"created_at"`
}

func (h *BugHandler) History(c *gin.Context) {
	id, ok := parseID(c, "bug")
	if !ok {
		return
	}

	var bug *model.Bug
	err := h.db.Do(c.Request.Context(), func(uow *gormstore.UnitOfWork) error {
		var err error
		bug, err = uow.Bugs.GetWithHistory(c.Request.Context(), id)
		return err
	})
	if err != nil {
		writeError(c, h.logger, "bug", err)
		return
	}
	if bug == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "bug not found"})
		return
	}

	entries := make([]historyEntryResponse, 0, len(bug.History))
	for _, entry := range bug.History {
		createdAt := entry.CreatedAt
		entries = append(entries, historyEntryResponse{
			Status:      string(entry.Status),
			Description: entry.Description,
			ModifiedBy:  entry.ModifiedBy,
			CreatedAt:   formatTime(&createdAt),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"bug_id":  bug.ID.String(),
		"status":  string(bug.Status),
		"history": entries,
	})
}
