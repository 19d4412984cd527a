package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is loaded from DOCKET_* environment variables.
type Config struct {
	Port         string `env:"DOCKET_PORT" envDefault:"8080"`
	DatabasePath string `env:"DOCKET_DB_PATH" envDefault:"docket.db"`
	LogLevel     string `env:"DOCKET_LOG_LEVEL" envDefault:"info"`

	// Postmark email delivery. Empty token disables the email channel.
	PostmarkToken string `env:"DOCKET_POSTMARK_TOKEN"`
	EmailFrom     string `env:"DOCKET_EMAIL_FROM" envDefault:"noreply@docket.app"`

	// Web push (in-app channel). Empty keys disable push delivery.
	VAPIDPublicKey  string `env:"DOCKET_VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `env:"DOCKET_VAPID_PRIVATE_KEY"`
	PushSubscriber  string `env:"DOCKET_PUSH_SUBSCRIBER" envDefault:"mailto:ops@docket.app"`

	// Sweep and snapshot schedules, cron specs.
	ReminderSchedule string `env:"DOCKET_REMINDER_SCHEDULE" envDefault:"@every 1m"`
	SnapshotSchedule string `env:"DOCKET_SNAPSHOT_SCHEDULE" envDefault:"0 3 * * *"`

	// S3-compatible snapshot storage. Empty bucket disables snapshots.
	S3Endpoint        string `env:"DOCKET_S3_ENDPOINT"`
	S3Bucket          string `env:"DOCKET_S3_BUCKET"`
	S3Region          string `env:"DOCKET_S3_REGION" envDefault:"us-east-1"`
	S3AccessKey       string `env:"DOCKET_S3_ACCESS_KEY"`
	S3SecretKey       string `env:"DOCKET_S3_SECRET_KEY"`
	S3Prefix          string `env:"DOCKET_S3_PREFIX" envDefault:"snapshots"`
	SnapshotRetention int    `env:"DOCKET_SNAPSHOT_RETENTION_DAYS" envDefault:"30"`
}

// Load reads configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
