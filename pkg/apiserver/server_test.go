package apiserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm/logger"

	"github.com/uspace/uatrack/pkg/config"
	"github.com/uspace/uatrack/pkg/model"
	"github.com/uspace/uatrack/pkg/store/gormstore"
)

type healthResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func newTestDB(t *testing.T) *gormstore.Store {
	t.Helper()
	db, err := gormstore.Open(sqlite.Open("file::memory:?_foreign_keys=on"), gormstore.Options{
		Logger:   zap.NewNop(),
		Policy:   gormstore.DefaultExecutionPolicy(),
		LogLevel: logger.Silent,
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	sqlDB, err := db.DB().DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// startRun seeds one campaign with a single two-step case and starts it.
func startRun(t *testing.T, db *gormstore.Store) *model.CampaignRun {
	t.Helper()
	ctx := context.Background()
	run := &model.CampaignRun{}
	err := db.Do(ctx, func(uow *gormstore.UnitOfWork) error {
		env, err := uow.Environments.Ensure(ctx, "integration", "")
		if err != nil {
			return err
		}
		system, err := uow.Systems.Ensure(ctx, "USSP", "tester")
		if err != nil {
			return err
		}
		c := &model.Case{Code: "TC-01", Name: "Takeoff"}
		if err := uow.Cases.Create(ctx, c, nil, env.ID, "tester"); err != nil {
			return err
		}
		for i := 1; i <= 2; i++ {
			if err := uow.Steps.Create(ctx, &model.Step{CaseID: c.ID, Position: i, Action: "act"}, nil, env.ID, "tester"); err != nil {
				return err
			}
		}
		b := &model.Block{Code: "B1", Name: "Block", SystemID: system.ID}
		if err := uow.Blocks.Create(ctx, b, gormstore.Links{model.LinkCases: {c.ID}}, env.ID, "tester"); err != nil {
			return err
		}
		campaign := &model.Campaign{Code: "C1", Name: "Campaign", SystemID: system.ID}
		if err := uow.Campaigns.Create(ctx, campaign, gormstore.Links{model.LinkBlocks: {b.ID}}, env.ID, "tester"); err != nil {
			return err
		}
		run.CampaignID = campaign.ID
		return uow.CampaignRuns.Create(ctx, run, env.ID, "tester")
	})
	if err != nil {
		t.Fatalf("seed run: %v", err)
	}
	return run
}

func serve(server *Server, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	recorder := httptest.NewRecorder()
	server.Router().ServeHTTP(recorder, req)
	return recorder
}

func TestHealthEndpoint(t *testing.T) {
	server := NewServer(nil, nil, &config.Config{}, zap.NewNop())

	recorder := serve(server, "/health")
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}

	var response healthResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Status != "ok" {
		t.Fatalf("expected status ok, got %q", response.Status)
	}
	if recorder.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected a request id header")
	}
}

func TestReadyEndpoint(t *testing.T) {
	recorder := serve(NewServer(nil, nil, &config.Config{}, zap.NewNop()), "/ready")
	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d without database, got %d", http.StatusServiceUnavailable, recorder.Code)
	}

	recorder = serve(NewServer(newTestDB(t), nil, &config.Config{}, zap.NewNop()), "/ready")
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	recorder := serve(NewServer(nil, nil, &config.Config{}, zap.NewNop()), "/metrics")
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}
}

func TestRunSummaryEndpoint(t *testing.T) {
	db := newTestDB(t)
	run := startRun(t, db)
	server := NewServer(db, nil, &config.Config{}, zap.NewNop())

	recorder := serve(server, "/api/v1/campaign-runs/"+run.ID.String()+"/summary")
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, recorder.Code, recorder.Body.String())
	}

	var response summaryBody
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.CaseRuns != 1 || response.StepRuns != 2 || response.Pending != 2 {
		t.Fatalf("unexpected summary %+v", response)
	}
	if response.Status != string(model.CampaignRunning) {
		t.Fatalf("expected RUNNING, got %q", response.Status)
	}
}

func TestRunSummaryNotFound(t *testing.T) {
	server := NewServer(newTestDB(t), nil, &config.Config{}, zap.NewNop())

	recorder := serve(server, "/api/v1/campaign-runs/"+uuid.NewString()+"/summary")
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, recorder.Code)
	}

	recorder = serve(server, "/api/v1/campaign-runs/not-a-uuid/summary")
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, recorder.Code)
	}
	var response errorResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Error != "invalid campaign run id" {
		t.Fatalf("unexpected error %q", response.Error)
	}
}

func TestRunTreeEndpoint(t *testing.T) {
	db := newTestDB(t)
	run := startRun(t, db)
	server := NewServer(db, nil, &config.Config{}, zap.NewNop())

	recorder := serve(server, "/api/v1/campaign-runs/"+run.ID.String())
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}

	var response struct {
		CaseRuns []struct {
			CaseCode string `json:"case_code"`
			StepRuns []struct {
				Position int `json:"position"`
			} `json:"step_runs"`
		} `json:"case_runs"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.CaseRuns) != 1 || response.CaseRuns[0].CaseCode != "TC-01" {
		t.Fatalf("unexpected tree %+v", response)
	}
	if steps := response.CaseRuns[0].StepRuns; len(steps) != 2 || steps[0].Position != 1 {
		t.Fatalf("unexpected step runs %+v", steps)
	}
}

type summaryBody struct {
	Status   string `json:"status"`
	CaseRuns int    `json:"case_runs"`
	StepRuns int    `json:"step_runs"`
	Pending  int    `json:"pending"`
}
