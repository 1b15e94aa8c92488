package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/uspace/uatrack/pkg/eventbus"
)

func TestPrintEvent(t *testing.T) {
	color.NoColor = true
	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC).Unix()

	tests := []struct {
		name  string
		event eventbus.Event
		want  string
	}{
		{
			name: "campaign transition",
			event: eventbus.Event{Type: "campaign.status_changed", Timestamp: ts,
				Data: json.RawMessage(`{"campaign_id":"c-1","from":"DRAFT","to":"RUNNING"}`)},
			want: "2026-03-01T09:00:00Z campaign.status_changed campaign c-1 DRAFT -> RUNNING\n",
		},
		{
			name: "campaign without transition",
			event: eventbus.Event{Type: "campaign_run.created", Timestamp: ts,
				Data: json.RawMessage(`{"campaign_id":"c-1","campaign_run_id":"r-1"}`)},
			want: "2026-03-01T09:00:00Z campaign_run.created campaign c-1\n",
		},
		{
			name: "bug transition",
			event: eventbus.Event{Type: "bug.status_changed", Timestamp: ts,
				Data: json.RawMessage(`{"bug_id":"b-1","from":"OPEN","to":"FIXED"}`)},
			want: "2026-03-01T09:00:00Z bug.status_changed bug b-1 OPEN -> FIXED\n",
		},
		{
			name:  "undecodable data",
			event: eventbus.Event{Type: "bug.status_changed", Timestamp: ts, Data: json.RawMessage(`"raw"`)},
			want:  "2026-03-01T09:00:00Z bug.status_changed \"raw\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			event := tt.event
			printEvent(&buf, &event)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}
