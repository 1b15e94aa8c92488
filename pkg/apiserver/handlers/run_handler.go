package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/uspace/uatrack/pkg/model"
	"github.com/uspace/uatrack/pkg/store/gormstore"
)

type RunHandler struct {
	db     *gormstore.Store
	logger *zap.Logger
}

func NewRunHandler(db *gormstore.Store, logger *zap.Logger) *RunHandler {
	return &RunHandler{db: db, logger: logger}
}

type summaryResponse struct {
	CampaignRunID string  `json:"campaign_run_id"`
	CampaignID    string  `json:"campaign_id"`
	Status        string  `json:"status"`
	CaseRuns      int     `json:"case_runs"`
	StepRuns      int     `json:"step_runs"`
	Passed        int     `json:"passed"`
	Failed        int     `json:"failed"`
	Pending       int     `json:"pending"`
	StartedAt     *string `json:"started_at"`
	EndedAt       *string `json:"ended_at,omitempty"`
}

type stepRunResponse struct {
	ID       string `json:"id"`
	StepID   string `json:"step_id"`
	Position int    `json:"position"`
	Action   string `json:"action"`
	Passed   *bool  `json:"passed"`
	Notes    string `json:"notes,omitempty"`
}

type caseRunResponse struct {
	ID       string            `json:"id"`
	CaseID   string            `json:"case_id"`
	CaseCode string            `json:"case_code"`
	StepRuns []stepRunResponse `json:"step_runs"`
}

type runResponse struct {
	ID         string            `json:"id"`
	CampaignID string            `json:"campaign_id"`
	StartedAt  *string           `json:"started_at"`
	EndedAt    *string           `json:"ended_at,omitempty"`
	Notes      string            `json:"notes,omitempty"`
	ModifiedBy string            `json:"modified_by"`
	CaseRuns   []caseRunResponse `json:"case_runs"`
}

func (h *RunHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "campaign run")
	if !ok {
		return
	}

	var run *model.CampaignRun
	err := h.db.Do(c.Request.Context(), func(uow *gormstore.UnitOfWork) error {
		var err error
		run, err = uow.CampaignRuns.GetWithTree(c.Request.Context(), id)
		return err
	})
	if err != nil {
		writeError(c, h.logger, "campaign run", err)
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "campaign run not found"})
		return
	}

	c.JSON(http.StatusOK, mapRun(run))
}

func (h *RunHandler) Summary(c *gin.Context) {
	id, ok := parseID(c, "campaign run")
	if !ok {
		return
	}

	var summary *model.RunSummary
	err := h.db.Do(c.Request.Context(), func(uow *gormstore.UnitOfWork) error {
		var err error
		summary, err = uow.CampaignRuns.Summary(c.Request.Context(), id)
		return err
	})
	if err != nil {
		writeError(c, h.logger, "campaign run", err)
		return
	}

	c.JSON(http.StatusOK, summaryResponse{
		CampaignRunID: summary.CampaignRunID.String(),
		CampaignID:    summary.CampaignID.String(),
		Status:        string(summary.Status),
		CaseRuns:      summary.CaseRuns,
		StepRuns:      summary.StepRuns,
		Passed:        summary.Passed,
		Failed:        summary.Failed,
		Pending:       summary.Pending,
		StartedAt:     formatTime(&summary.StartedAt),
		EndedAt:       formatTime(summary.EndedAt),
	})
}

func mapRun(run *model.CampaignRun) runResponse {
	resp := runResponse{
		ID:         run.ID.String(),
		CampaignID: run.CampaignID.String(),
		StartedAt:  formatTime(&run.StartedAt),
		EndedAt:    formatTime(run.EndedAt),
		Notes:      run.Notes,
		ModifiedBy: run.ModifiedBy,
		CaseRuns:   make([]caseRunResponse, 0, len(run.CaseRuns)),
	}
	for _, caseRun := range run.CaseRuns {
		cr := caseRunResponse{
			ID:       caseRun.ID.String(),
			CaseID:   caseRun.CaseID.String(),
			StepRuns: make([]stepRunResponse, 0, len(caseRun.StepRuns)),
		}
		if caseRun.Case != nil {
			cr.CaseCode = caseRun.Case.Code
		}
		for _, stepRun := range caseRun.StepRuns {
			sr := stepRunResponse{
				ID:     stepRun.ID.String(),
				StepID: stepRun.StepID.String(),
				Passed: stepRun.Passed,
				Notes:  stepRun.Notes,
			}
			if stepRun.Step != nil {
				sr.Position = stepRun.Step.Position
				sr.Action = stepRun.Step.Action
			}
			cr.StepRuns = append(cr.StepRuns, sr)
		}
		resp.CaseRuns = append(resp.CaseRuns, cr)
	}
	return resp
}
