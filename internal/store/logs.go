package store

import (
	"context"
	"fmt"
	"time"

	"github.com/errsight/errsight/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Logs persists immutable error log entries.
type Logs struct {
	db *gorm.DB
}

// NewLogs creates a log store over the given connection.
func NewLogs(db *gorm.DB) *Logs {
	return &Logs{db: db}
}

// Create inserts a log entry, truncating oversized error text. Entries
// are never updated after this point.
func (s *Logs) Create(ctx context.Context, entry *models.ErrorLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.Error = Truncate(entry.Error, models.MaxErrorLength)
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("store: create log entry: %w", err)
	}
	return nil
}

// ListByProject returns a project's entries, newest first.
func (s *Logs) ListByProject(ctx context.Context, projectID string, limit, offset int) ([]models.ErrorLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var entries []models.ErrorLog
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("store: list log entries: %w", err)
	}
	return entries, nil
}

// ProjectActivity holds per-project counts for a digest period.
type ProjectActivity struct {
	ProjectID   string
	ProjectName string
	Total       int64
	Failures    int64
}

// ActivitySince aggregates non-trial entries created in [since, until),
// grouped by project. Projects with no activity are omitted.
func (s *Logs) ActivitySince(ctx context.Context, since, until time.Time) ([]ProjectActivity, error) {
	var rows []ProjectActivity
	err := s.db.WithContext(ctx).Model(&models.ErrorLog{}).
		Select("error_logs.project_id AS project_id, projects.name AS project_name, COUNT(*) AS total, SUM(CASE WHEN error_logs.resolution LIKE ? THEN 1 ELSE 0 END) AS failures", "%LLM_FAILURE%").
		Joins("JOIN projects ON projects.id = error_logs.project_id").
		Where("error_logs.is_trial = ? AND error_logs.created_at >= ? AND error_logs.created_at < ?", false, since, until).
		Group("error_logs.project_id, projects.name").
		Order("total DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: activity since %s: %w", since.Format(time.RFC3339), err)
	}
	return rows, nil
}

// Truncate clips s to at most max bytes.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
