package metrics

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	snapshot Snapshot
	err      error
}

func (s staticSource) Snapshot(context.Context) (Snapshot, error) {
	return s.snapshot, s.err
}

func TestCollectorExportsSnapshot(t *testing.T) {
	collector := NewCollector(staticSource{snapshot: Snapshot{
		OpenRuns:          2,
		PendingEvents:     5,
		CampaignsByStatus: map[string]int64{"RUNNING": 2, "DRAFT": 1},
		BugsByStatus:      map[string]int64{"OPEN": 3},
	}}, nil)

	registry := prometheus.NewPedanticRegistry()
	require.NoError(t, registry.Register(collector))

	expected := `
# HELP uatrack_open_campaign_runs Campaign runs without an end time.
# TYPE uatrack_open_campaign_runs gauge
uatrack_open_campaign_runs 2
# HELP uatrack_bugs Bugs by status.
# TYPE uatrack_bugs gauge
uatrack_bugs{status="OPEN"} 3
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected),
		"uatrack_open_campaign_runs", "uatrack_bugs"))
	assert.Equal(t, 6, testutil.CollectAndCount(collector))
}

func TestCollectorSurvivesSourceErrors(t *testing.T) {
	collector := NewCollector(staticSource{err: errors.New("database is closed")}, nil)

	assert.Equal(t, 1, testutil.CollectAndCount(collector))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.scrapeErrors))
}
