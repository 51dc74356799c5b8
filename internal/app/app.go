// Package app wires configuration, logging, storage and the job
// supervisor into a runnable application.
package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/jobs"
	"github.com/ternarybob/colligo/internal/services/collect"
	badgerstorage "github.com/ternarybob/colligo/internal/storage/badger"
	"github.com/ternarybob/colligo/internal/telegram"
)

// App holds the wired application services
type App struct {
	Config     *common.Config
	Logger     arbor.ILogger
	Sessions   *telegram.SessionStore
	History    interfaces.HistoryStorage
	Supervisor *jobs.Supervisor

	db *badgerstorage.BadgerDB
}

// New wires the application from configuration
func New(config *common.Config) (*App, error) {
	logger := common.InitLogger(config)

	sessions := telegram.NewSessionStore(".", logger)

	var db *badgerstorage.BadgerDB
	var history interfaces.HistoryStorage
	if config.Storage.Badger.HistoryEnabled {
		var err error
		db, err = badgerstorage.NewBadgerDB(logger, &config.Storage.Badger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize history storage: %w", err)
		}
		history = badgerstorage.NewHistoryStorage(db, logger)
	}

	supervisor := jobs.NewSupervisor(sessions, history, logger, jobs.Options{
		PreemptWait: config.Supervisor.PreemptWaitDuration(),
		StopWait:    config.Supervisor.StopWaitDuration(),
		Runner: collect.Options{
			MaxCodeRetries:    config.Auth.MaxCodeRetries,
			RequestsPerSecond: config.Collect.RequestsPerSecond,
		},
	})

	return &App{
		Config:     config,
		Logger:     logger,
		Sessions:   sessions,
		History:    history,
		Supervisor: supervisor,
		db:         db,
	}, nil
}

// Close releases application resources
func (a *App) Close() error {
	a.Supervisor.Stop()
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
