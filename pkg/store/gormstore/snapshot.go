package gormstore

import (
	"context"

	"github.com/uspace/uatrack/pkg/metrics"
	"github.com/uspace/uatrack/pkg/model"
)

type statusCount struct {
	Status string
	Count  int64
}

// Snapshot reads the counts exported by metrics.Collector.
func (s *Store) Snapshot(ctx context.Context) (metrics.Snapshot, error) {
	db := s.db.WithContext(ctx)
	snapshot := metrics.Snapshot{
		CampaignsByStatus: map[string]int64{},
		BugsByStatus:      map[string]int64{},
	}

	if err := db.Model(&model.CampaignRun{}).Where("ended_at IS NULL").Count(&snapshot.OpenRuns).Error; err != nil {
		return snapshot, err
	}
	if err := db.Model(&model.DomainEvent{}).Where("status = ?", model.OutboxStatusPending).Count(&snapshot.PendingEvents).Error; err != nil {
		return snapshot, err
	}

	for _, group := range []struct {
		table interface{}
		into  map[string]int64
	}{
		{&model.Campaign{}, snapshot.CampaignsByStatus},
		{&model.Bug{}, snapshot.BugsByStatus},
	} {
		var rows []statusCount
		err := db.Model(group.table).
			Select("status, COUNT(*) AS count").
			Group("status").
			Scan(&rows).Error
		if err != nil {
			return snapshot, err
		}
		for _, row := range rows {
			group.into[row.Status] = row.Count
		}
	}
	return snapshot, nil
}
