package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/errsight/errsight/internal/store"
)

// DailyReport holds error activity metrics for a 24-hour period.
type DailyReport struct {
	PeriodStart   time.Time
	PeriodEnd     time.Time
	TotalErrors   int64
	TotalFailures int64
	Projects      []store.ProjectActivity
}

// BuildDailyDigest queries the last 24 hours of non-trial activity and
// returns a report. Returns nil when no activity, so a quiet deployment
// posts nothing.
func BuildDailyDigest(ctx context.Context, logs *store.Logs) (*DailyReport, error) {
	now := time.Now()
	since := now.Add(-24 * time.Hour)

	activity, err := logs.ActivitySince(ctx, since, now)
	if err != nil {
		return nil, fmt.Errorf("notify: daily digest: %w", err)
	}
	if len(activity) == 0 {
		return nil, nil
	}

	report := &DailyReport{
		PeriodStart: since,
		PeriodEnd:   now,
		Projects:    activity,
	}
	for _, p := range activity {
		report.TotalErrors += p.Total
		report.TotalFailures += p.Failures
	}
	return report, nil
}
