package backup

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/docket-app/docket/internal/database"
)

type fakeObject struct {
	key          string
	size         int64
	lastModified time.Time
}

type fakeS3 struct {
	objects []fakeObject
	deleted []string
}

func (f *fakeS3) PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	n, err := io.Copy(io.Discard, input.Body)
	if err != nil {
		return nil, err
	}
	f.objects = append(f.objects, fakeObject{
		key:          aws.ToString(input.Key),
		size:         n,
		lastModified: time.Now().UTC(),
	})
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	out := &s3.ListObjectsV2Output{}
	for _, obj := range f.objects {
		out.Contents = append(out.Contents, s3types.Object{
			Key:          aws.String(obj.key),
			Size:         aws.Int64(obj.size),
			LastModified: aws.Time(obj.lastModified),
		})
	}
	return out, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(input.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func newTestManager(t *testing.T) (*Manager, *fakeS3) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	m := NewManager(Config{
		S3:            S3Config{Bucket: "docket-backups"},
		Prefix:        "snapshots",
		RetentionDays: 30,
	}, db, slog.Default())

	fake := &fakeS3{}
	m.client = fake
	return m, fake
}

func TestRunNowUploadsSnapshot(t *testing.T) {
	m, fake := newTestManager(t)

	if err := m.RunNow(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(fake.objects) != 1 {
		t.Fatalf("uploaded objects = %d, want 1", len(fake.objects))
	}
	obj := fake.objects[0]
	if !strings.HasPrefix(obj.key, "snapshots/docket-") || !strings.HasSuffix(obj.key, ".db") {
		t.Errorf("key = %q, want snapshots/docket-<timestamp>.db", obj.key)
	}
	if obj.size == 0 {
		t.Error("uploaded snapshot is empty")
	}
	if m.LastSnapshot().IsZero() {
		t.Error("last snapshot time not recorded")
	}
}

func TestRunNowPrunesExpiredSnapshots(t *testing.T) {
	m, fake := newTestManager(t)

	fake.objects = append(fake.objects,
		fakeObject{key: "snapshots/docket-old.db", lastModified: time.Now().UTC().AddDate(0, 0, -45)},
		fakeObject{key: "snapshots/docket-recent.db", lastModified: time.Now().UTC().AddDate(0, 0, -2)},
	)

	if err := m.RunNow(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(fake.deleted) != 1 || fake.deleted[0] != "snapshots/docket-old.db" {
		t.Errorf("deleted = %v, want only the 45-day-old snapshot", fake.deleted)
	}
}

func TestRunNowUnconfigured(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	m := NewManager(Config{}, db, slog.Default())
	if m.Enabled() {
		t.Error("manager with no credentials should be disabled")
	}
	if err := m.RunNow(context.Background()); err == nil {
		t.Error("expected error from unconfigured manager")
	}
}
