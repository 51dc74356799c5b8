package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/colligo/internal/interfaces"
)

// HistoryStorage persists terminal job outcomes in Badger
type HistoryStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewHistoryStorage creates a new HistoryStorage instance
func NewHistoryStorage(db *BadgerDB, logger arbor.ILogger) interfaces.HistoryStorage {
	return &HistoryStorage{
		db:     db,
		logger: logger,
	}
}

func (s *HistoryStorage) SaveHistory(ctx context.Context, entry *interfaces.JobHistory) error {
	if entry.ID == "" {
		return fmt.Errorf("history entry ID is required")
	}
	if err := s.db.Store().Upsert(entry.ID, entry); err != nil {
		return fmt.Errorf("failed to save job history: %w", err)
	}
	return nil
}

// ListHistory returns finished jobs, newest first
func (s *HistoryStorage) ListHistory(ctx context.Context, limit int) ([]*interfaces.JobHistory, error) {
	query := badgerhold.Where("ID").Ne("").SortBy("FinishedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var entries []*interfaces.JobHistory
	if err := s.db.Store().Find(&entries, query); err != nil {
		return nil, fmt.Errorf("failed to list job history: %w", err)
	}
	return entries, nil
}
