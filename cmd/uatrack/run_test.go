package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/uspace/uatrack/pkg/model"
)

func TestPrintSummary(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer

	printSummary(&buf, &model.RunSummary{
		CampaignRunID: uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		Status:        model.CampaignRunning,
		CaseRuns:      3,
		StepRuns:      6,
		Passed:        1,
		Failed:        1,
		Pending:       4,
		StartedAt:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	})

	out := buf.String()
	assert.Contains(t, out, "Campaign run 11111111-1111-1111-1111-111111111111 [RUNNING]")
	assert.Contains(t, out, "steps:   6 (1 passed, 1 failed, 4 pending)")
	assert.NotContains(t, out, "ended:")
}

func TestPrintTree(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	passed := true

	printTree(&buf, &model.CampaignRun{CaseRuns: []model.CaseRun{{
		Case: &model.Case{Code: "TC-01"},
		StepRuns: []model.StepRun{
			{Step: &model.Step{Position: 1, Action: "arm"}, Passed: &passed},
			{Step: &model.Step{Position: 2, Action: "takeoff"}},
		},
	}}})

	out := buf.String()
	assert.Contains(t, out, "TC-01")
	assert.Contains(t, out, "PASS")
	assert.Contains(t, out, "PENDING")
}
