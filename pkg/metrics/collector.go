package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Snapshot is the tracker state exported as gauges on every scrape.
type Snapshot struct {
	OpenRuns          int64
	PendingEvents     int64
	CampaignsByStatus map[string]int64
	BugsByStatus      map[string]int64
}

type Source interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// Collector reads a Snapshot from the database at scrape time. A failed
// read is logged and exports nothing for that scrape.
type Collector struct {
	source  Source
	logger  *zap.Logger
	timeout time.Duration

	openRuns      *prometheus.Desc
	pendingEvents *prometheus.Desc
	campaigns     *prometheus.Desc
	bugs          *prometheus.Desc
	scrapeErrors  prometheus.Counter
}

func NewCollector(source Source, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		source:  source,
		logger:  logger,
		timeout: 5 * time.Second,
		openRuns: prometheus.NewDesc(
			"uatrack_open_campaign_runs",
			"Campaign runs without an end time.",
			nil, nil,
		),
		pendingEvents: prometheus.NewDesc(
			"uatrack_outbox_pending_events",
			"Domain events waiting for the relay.",
			nil, nil,
		),
		campaigns: prometheus.NewDesc(
			"uatrack_campaigns",
			"Campaigns by status.",
			[]string{"status"}, nil,
		),
		bugs: prometheus.NewDesc(
			"uatrack_bugs",
			"Bugs by status.",
			[]string{"status"}, nil,
		),
		scrapeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uatrack_state_scrape_errors_total",
			Help: "Failed reads of the tracker state.",
		}),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.openRuns
	ch <- c.pendingEvents
	ch <- c.campaigns
	ch <- c.bugs
	c.scrapeErrors.Describe(ch)
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	snapshot, err := c.source.Snapshot(ctx)
	if err != nil {
		c.scrapeErrors.Inc()
		c.logger.Warn("failed to read tracker state", zap.Error(err))
		c.scrapeErrors.Collect(ch)
		return
	}

	ch <- prometheus.MustNewConstMetric(c.openRuns, prometheus.GaugeValue, float64(snapshot.OpenRuns))
	ch <- prometheus.MustNewConstMetric(c.pendingEvents, prometheus.GaugeValue, float64(snapshot.PendingEvents))
	for status, n := range snapshot.CampaignsByStatus {
		ch <- prometheus.MustNewConstMetric(c.campaigns, prometheus.GaugeValue, float64(n), status)
	}
	for status, n := range snapshot.BugsByStatus {
		ch <- prometheus.MustNewConstMetric(c.bugs, prometheus.GaugeValue, float64(n), status)
	}
	c.scrapeErrors.Collect(ch)
}
