package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/example/recall/internal/database"
	"github.com/example/recall/internal/reminder"
	"github.com/example/recall/internal/sm2"
)

// Config is the full runtime configuration, assembled from a .env file (if
// present) and environment variables.
type Config struct {
	Database  database.Config
	Scheduler sm2.Config
	Reminder  reminder.Config

	// Full-cycle retries on save conflicts before a submission fails
	SubmitRetries int
	// Batch size used when a learner has no stored preference
	DefaultBatchSize int
	// Whether the hourly reminder sweep runs
	RemindersEnabled bool
}

// Load reads configuration from .env and the environment. Every scheduler
// constant can be overridden, since products tune the SM-2 parameters.
func Load() (*Config, error) {
	// Missing .env is fine; the environment may carry everything.
	_ = godotenv.Load()

	cfg := &Config{
		Scheduler:        sm2.DefaultConfig(),
		Reminder:         reminder.DefaultConfig(),
		SubmitRetries:    3,
		DefaultBatchSize: 10,
		RemindersEnabled: true,
	}

	switch dbType := getEnv("DB_TYPE", "sqlite"); dbType {
	case "sqlite":
		cfg.Database = database.Config{
			Driver: "sqlite3",
			DSN:    getEnv("DB_PATH", "data/recall.db"),
		}
	case "postgres":
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when DB_TYPE=postgres")
		}
		cfg.Database = database.Config{Driver: "postgres", DSN: dsn}
	default:
		return nil, fmt.Errorf("unsupported DB_TYPE: %q", dbType)
	}

	var err error
	if cfg.SubmitRetries, err = getIntEnv("SUBMIT_RETRIES", cfg.SubmitRetries); err != nil {
		return nil, err
	}
	if cfg.DefaultBatchSize, err = getIntEnv("DEFAULT_BATCH_SIZE", cfg.DefaultBatchSize); err != nil {
		return nil, err
	}
	if cfg.RemindersEnabled, err = getBoolEnv("REMINDERS_ENABLED", cfg.RemindersEnabled); err != nil {
		return nil, err
	}
	if cfg.Reminder.StartHour, err = getIntEnv("REMINDER_START_HOUR", cfg.Reminder.StartHour); err != nil {
		return nil, err
	}
	if cfg.Reminder.EndHour, err = getIntEnv("REMINDER_END_HOUR", cfg.Reminder.EndHour); err != nil {
		return nil, err
	}

	if cfg.Scheduler.EasePenalty, err = getFloatEnv("SM2_EASE_PENALTY", cfg.Scheduler.EasePenalty); err != nil {
		return nil, err
	}
	if cfg.Scheduler.MinEase, err = getFloatEnv("SM2_MIN_EASE", cfg.Scheduler.MinEase); err != nil {
		return nil, err
	}
	if cfg.Scheduler.MaxInterval, err = getFloatEnv("SM2_MAX_INTERVAL_DAYS", cfg.Scheduler.MaxInterval); err != nil {
		return nil, err
	}
	if cfg.Scheduler.MasteryRepetitions, err = getIntEnv("SM2_MASTERY_REPETITIONS", cfg.Scheduler.MasteryRepetitions); err != nil {
		return nil, err
	}
	if cfg.Scheduler.MasteryInterval, err = getFloatEnv("SM2_MASTERY_INTERVAL_DAYS", cfg.Scheduler.MasteryInterval); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getFloatEnv(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getBoolEnv(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
