package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/example/recall/internal/config"
	"github.com/example/recall/internal/database"
	"github.com/example/recall/internal/insights"
	"github.com/example/recall/internal/reminder"
	"github.com/example/recall/internal/seed"
	"github.com/example/recall/internal/sm2"
)

func main() {
	importPath := flag.String("import", "", "import (learner, item) exposures from an .xlsx or .csv file and exit")
	reportLearner := flag.String("report", "", "print a learner's insight report as JSON and exit")
	flag.Parse()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}

	if cfg.Database.Driver == "sqlite3" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.DSN), 0o755); err != nil {
			log.Fatal("failed to create data directory", zap.Error(err))
		}
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	records := database.NewReviewRecordRepository(db)
	events := database.NewReviewEventRepository(db)
	learners := database.NewLearnerRepository(db)
	engine := sm2.New(cfg.Scheduler)
	notifier := &logNotifier{log: log}
	ctx := context.Background()

	switch {
	case *importPath != "":
		importer := seed.NewImporter(records, log)
		result, err := importer.ImportExposures(ctx, seed.DefaultConfig(*importPath), time.Now().UTC())
		if err != nil {
			log.Fatal("import failed", zap.Error(err))
		}
		for _, msg := range result.Errors {
			log.Warn("import row skipped", zap.String("reason", msg))
		}
		return

	case *reportLearner != "":
		reporter := insights.NewReporter(records, events, engine.Config().PassThreshold)
		report, err := reporter.LearnerReport(ctx, *reportLearner, time.Now().UTC())
		if err != nil {
			log.Fatal("report failed", zap.Error(err))
		}
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			log.Fatal("failed to encode report", zap.Error(err))
		}
		fmt.Println(string(out))
		return
	}

	// Daemon mode: review.Service is the boundary an embedding presentation
	// layer calls into; this process keeps the reminder sweep running
	// against the same store.
	if cfg.RemindersEnabled {
		sweeper := reminder.New(learners, records, notifier, log, cfg.Reminder)
		sweeper.Start()
		defer sweeper.Stop()
	}

	log.Info("review scheduler started",
		zap.String("db_driver", cfg.Database.Driver),
		zap.Bool("reminders_enabled", cfg.RemindersEnabled),
	)

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	log.Info("shutting down")
}

// logNotifier is the default sink for mastery transitions and due reminders
// when no external progression or delivery system is attached.
type logNotifier struct {
	log *zap.Logger
}

func (n *logNotifier) ItemMastered(_ context.Context, learnerID, itemID string) error {
	n.log.Info("item mastered",
		zap.String("learner_id", learnerID),
		zap.String("item_id", itemID),
	)
	return nil
}

func (n *logNotifier) RemindDue(_ context.Context, learnerID string, dueCount int) error {
	n.log.Info("items due for review",
		zap.String("learner_id", learnerID),
		zap.Int("due_count", dueCount),
	)
	return nil
}
