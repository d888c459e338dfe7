// Package wire provides dependency injection for the sprintq application.
// It creates singleton services with lazy initialization.
package wire

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/example/sprintq/internal/adapters/auditlog"
	"github.com/example/sprintq/internal/adapters/queuefile"
	"github.com/example/sprintq/internal/adapters/sqlite"
	"github.com/example/sprintq/internal/app"
	"github.com/example/sprintq/internal/config"
	"github.com/example/sprintq/internal/db"
	"github.com/example/sprintq/internal/ports/primary"
	"github.com/example/sprintq/internal/ports/secondary"
)

var (
	cfg            *config.Config
	queueService   primary.QueueService
	validationSvc  primary.ValidationService
	reconciliation primary.ReconciliationService
	journalRepo    secondary.JournalRepository
	once           sync.Once
)

// Config returns the loaded workspace configuration.
func Config() *config.Config {
	once.Do(initServices)
	return cfg
}

// QueueService returns the singleton QueueService instance.
func QueueService() primary.QueueService {
	once.Do(initServices)
	return queueService
}

// ValidationService returns the singleton ValidationService instance.
func ValidationService() primary.ValidationService {
	once.Do(initServices)
	return validationSvc
}

// ReconciliationService returns the singleton ReconciliationService instance.
func ReconciliationService() primary.ReconciliationService {
	once.Do(initServices)
	return reconciliation
}

// Journal returns the journal repository, or nil when journaling is off.
func Journal() secondary.JournalRepository {
	once.Do(initServices)
	return journalRepo
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	cwd, err := os.Getwd()
	if err != nil {
		log.Fatalf("failed to resolve working directory: %v", err)
	}
	cfg, err = config.LoadConfig(cwd)
	if err != nil {
		log.Fatalf("no sprintq workspace here: %v\nHint: run 'sprintq init' first", err)
	}

	// Journal is optional; a broken journal degrades to a warning because
	// the queue document stays authoritative without it.
	if cfg.JournalDB != "" {
		database, err := db.Open(cfg.JournalDB)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: journal disabled: %v\n", err)
		} else {
			journalRepo = sqlite.NewJournalRepository(database)
		}
	}

	store := queuefile.New(cfg.SprintFile, journalRepo)
	audit := auditlog.New(cfg.AuditLog)

	reconciliation = app.NewReconciliationService(store, audit)
	validationSvc = app.NewValidationService(store, audit)
	queueService = app.NewQueueService(store, reconciliation)
}
