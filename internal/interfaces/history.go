package interfaces

import (
	"context"
	"time"
)

// JobHistory is the persisted summary of a finished job
type JobHistory struct {
	ID          string `badgerhold:"key"`
	Mode        string
	Link        string
	Status      string // "completed", "failed", "cancelled"
	Title       string
	RecordCount int
	Error       string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// HistoryStorage persists terminal job outcomes
type HistoryStorage interface {
	SaveHistory(ctx context.Context, entry *JobHistory) error
	ListHistory(ctx context.Context, limit int) ([]*JobHistory, error)
}
