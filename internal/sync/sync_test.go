package sync

import (
	"context"
	"errors"
	"strings"
	gosync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// memDestination keeps every payload written to it.
type memDestination struct {
	name string
	fail error

	mu     gosync.Mutex
	writes [][]byte
}

func (d *memDestination) Name() string { return d.name }

func (d *memDestination) Write(_ context.Context, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writes = append(d.writes, append([]byte(nil), data...))
	return d.fail
}

func (d *memDestination) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.writes)
}

func (d *memDestination) last() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.writes) == 0 {
		return ""
	}
	return string(d.writes[len(d.writes)-1])
}

func TestSyncNow_WritesNewVersionsOnce(t *testing.T) {
	src := &mockSource{data: dogExport("snap-0001")}
	a, b := &memDestination{name: "a"}, &memDestination{name: "b"}
	s := NewScheduler(src, []Destination{a, b}, time.Hour, nil)
	ctx := context.Background()

	wrote, err := s.SyncNow(ctx)
	if err != nil || !wrote {
		t.Fatalf("first sync = %v, %v; want true, nil", wrote, err)
	}
	if wrote, _ := s.SyncNow(ctx); wrote {
		t.Fatal("unchanged version was written again")
	}

	src.set(dogExport("snap-0002"))
	if wrote, err := s.SyncNow(ctx); err != nil || !wrote {
		t.Fatalf("sync after new version = %v, %v", wrote, err)
	}

	for _, d := range []*memDestination{a, b} {
		if d.count() != 2 {
			t.Errorf("%s got %d writes, want 2", d.name, d.count())
		}
	}
	lines := nonEmptyLines(a.last())
	if len(lines) != 4 {
		t.Fatalf("export has %d lines, want header, stats and 2 links", len(lines))
	}
	if !strings.Contains(lines[0], `"graph_version":"snap-0002"`) {
		t.Errorf("header = %s", lines[0])
	}
}

func TestSyncNow_EmptyGraph(t *testing.T) {
	d := &memDestination{name: "a"}
	wrote, err := NewScheduler(&mockSource{}, []Destination{d}, time.Hour, nil).SyncNow(context.Background())
	if err != nil || wrote {
		t.Fatalf("SyncNow = %v, %v; want false, nil", wrote, err)
	}
	if d.count() != 0 {
		t.Fatalf("empty graph written %d times", d.count())
	}
}

func TestSyncNow_FailureRetriesVersion(t *testing.T) {
	src := &mockSource{data: dogExport("snap-0001")}
	ok := &memDestination{name: "ok"}
	bad := &memDestination{name: "bucket", fail: errors.New("unavailable")}
	s := NewScheduler(src, []Destination{ok, bad}, time.Hour, nil)

	_, err := s.SyncNow(context.Background())
	if err == nil || !strings.Contains(err.Error(), "bucket: unavailable") {
		t.Fatalf("err = %v, want bucket failure", err)
	}
	if ok.count() != 1 {
		t.Fatalf("healthy destination got %d writes, want 1", ok.count())
	}

	bad.mu.Lock()
	bad.fail = nil
	bad.mu.Unlock()
	if wrote, err := s.SyncNow(context.Background()); err != nil || !wrote {
		t.Fatalf("retry = %v, %v; want true, nil", wrote, err)
	}
	if bad.count() != 2 {
		t.Fatalf("failing destination got %d writes, want 2", bad.count())
	}
}

func TestSyncNow_SourceError(t *testing.T) {
	s := NewScheduler(errSource{}, nil, time.Hour, nil)
	if _, err := s.SyncNow(context.Background()); err == nil {
		t.Fatal("expected source error")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	src := &mockSource{data: dogExport("snap-0001")}
	d := &memDestination{name: "a"}
	s := NewScheduler(src, []Destination{d}, 10*time.Millisecond, nil)

	s.Start()
	time.Sleep(50 * time.Millisecond)
	src.set(dogExport("snap-0002"))
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	if d.count() != 2 {
		t.Fatalf("got %d writes, want one per version", d.count())
	}
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	NewScheduler(&mockSource{}, nil, time.Minute, nil).Stop()
}

// fakeS3 records PutObject calls.
type fakeS3 struct {
	calls atomic.Int32
	in    *s3.PutObjectInput
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.calls.Add(1)
	f.in = in
	return &s3.PutObjectOutput{}, f.err
}

func TestS3Destination_Write(t *testing.T) {
	api := &fakeS3{}
	d := &S3Destination{api: api, bucket: "exports", key: "lexigraph/links.jsonl"}

	if d.Name() != "s3://exports/lexigraph/links.jsonl" {
		t.Errorf("Name = %q", d.Name())
	}
	if err := d.Write(context.Background(), []byte("{}\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if aws.ToString(api.in.Bucket) != "exports" || aws.ToString(api.in.Key) != "lexigraph/links.jsonl" {
		t.Errorf("put %s/%s", aws.ToString(api.in.Bucket), aws.ToString(api.in.Key))
	}
	if aws.ToString(api.in.ContentType) != "application/x-ndjson" || aws.ToInt64(api.in.ContentLength) != 3 {
		t.Errorf("content type %q length %d", aws.ToString(api.in.ContentType), aws.ToInt64(api.in.ContentLength))
	}

	api.err = errors.New("access denied")
	if err := d.Write(context.Background(), nil); err == nil || !strings.Contains(err.Error(), "access denied") {
		t.Fatalf("err = %v, want access denied", err)
	}
}

func TestNewS3Destination_RequiresBucketAndKey(t *testing.T) {
	if _, err := NewS3Destination(context.Background(), "", "links.jsonl", "us-east-1", ""); err == nil {
		t.Error("expected error without a bucket")
	}
	if _, err := NewS3Destination(context.Background(), "exports", "", "us-east-1", ""); err == nil {
		t.Error("expected error without a key")
	}
}
