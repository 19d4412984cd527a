package backup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/robfig/cron/v3"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Config holds snapshot manager configuration.
type Config struct {
	S3            S3Config
	Prefix        string // key prefix inside the bucket
	RetentionDays int
}

// Manager uploads consistent database snapshots to S3-compatible storage
// and prunes uploads past the retention window.
type Manager struct {
	mu     sync.Mutex // serializes snapshot runs
	cfg    Config
	db     *sql.DB
	client s3Client
	logger *slog.Logger
	cron   *cron.Cron

	lastSnapshot time.Time
}

// NewManager creates a snapshot manager. Without complete S3 credentials the
// manager is disabled and every run is a no-op.
func NewManager(cfg Config, db *sql.DB, logger *slog.Logger) *Manager {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	m := &Manager{cfg: cfg, db: db, logger: logger}
	if cfg.S3.Bucket != "" && cfg.S3.AccessKey != "" && cfg.S3.SecretKey != "" {
		m.client = newS3Client(cfg.S3)
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether the manager has a configured S3 target.
func (m *Manager) Enabled() bool {
	return m.client != nil
}

// LastSnapshot returns the time of the most recent successful upload.
func (m *Manager) LastSnapshot() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSnapshot
}

// RunNow takes a snapshot immediately and prunes expired ones.
func (m *Manager) RunNow(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil {
		return fmt.Errorf("snapshot not configured: S3 credentials missing")
	}

	now := time.Now().UTC()
	key := m.objectKey(now)

	tmp := filepath.Join(os.TempDir(), fmt.Sprintf("docket-snapshot-%d.db", now.UnixNano()))
	defer os.Remove(tmp)

	// VACUUM INTO produces a consistent copy without blocking writers.
	if _, err := m.db.ExecContext(ctx, `VACUUM INTO ?`, tmp); err != nil {
		return fmt.Errorf("vacuum into snapshot: %w", err)
	}

	f, err := os.Open(tmp)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat snapshot: %w", err)
	}

	if _, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.cfg.S3.Bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(stat.Size()),
	}); err != nil {
		return fmt.Errorf("upload snapshot: %w", err)
	}

	m.lastSnapshot = now
	m.logger.Info("snapshot uploaded", "key", key, "bytes", stat.Size())

	if err := m.prune(ctx, now); err != nil {
		// Retention failure doesn't invalidate the snapshot itself.
		m.logger.Error("prune snapshots", "error", err)
	}
	return nil
}

func (m *Manager) objectKey(at time.Time) string {
	name := fmt.Sprintf("docket-%s.db", at.Format("2006-01-02T150405Z"))
	if m.cfg.Prefix == "" {
		return name
	}
	return strings.TrimSuffix(m.cfg.Prefix, "/") + "/" + name
}

// prune deletes uploaded snapshots older than the retention window.
func (m *Manager) prune(ctx context.Context, now time.Time) error {
	cutoff := now.AddDate(0, 0, -m.cfg.RetentionDays)

	out, err := m.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(m.cfg.S3.Bucket),
		Prefix: aws.String(m.cfg.Prefix),
	})
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}

	for _, obj := range out.Contents {
		if obj.Key == nil || obj.LastModified == nil || !obj.LastModified.Before(cutoff) {
			continue
		}
		if _, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(m.cfg.S3.Bucket),
			Key:    obj.Key,
		}); err != nil {
			m.logger.Error("delete expired snapshot", "key", *obj.Key, "error", err)
		}
	}
	return nil
}

// Start schedules snapshots on the given cron spec (e.g. "0 3 * * *").
func (m *Manager) Start(schedule string) error {
	if m.client == nil {
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := m.RunNow(ctx); err != nil {
			m.logger.Error("scheduled snapshot", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule snapshot: %w", err)
	}
	c.Start()
	m.cron = c
	return nil
}

// Stop halts the snapshot schedule and waits for an in-flight run.
func (m *Manager) Stop() {
	if m.cron != nil {
		<-m.cron.Stop().Done()
	}
}
