package scheduler

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
)

type testSchedulerConfig struct {
	redisURL    string
	queue       string
	concurrency int
}

func (c testSchedulerConfig) GetRedisURL() string      { return c.redisURL }
func (c testSchedulerConfig) GetRedisTLSInsecure() bool { return false }
func (c testSchedulerConfig) GetAsynqQueueName() string { return c.queue }
func (c testSchedulerConfig) GetAsynqConcurrency() int  { return c.concurrency }

func newTestClient(t *testing.T) (*Client, testSchedulerConfig) {
	t.Helper()
	mr := miniredis.RunT(t)
	cfg := testSchedulerConfig{redisURL: "redis://" + mr.Addr(), queue: "maintenance"}
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, cfg
}

func pendingTaskTypes(t *testing.T, cfg testSchedulerConfig) []string {
	t.Helper()
	opt, err := redisClientOpt(cfg.redisURL, false)
	if err != nil {
		t.Fatalf("redisClientOpt: %v", err)
	}
	inspector := asynq.NewInspector(opt)
	defer inspector.Close()

	tasks, err := inspector.ListPendingTasks(cfg.queue)
	if err != nil {
		t.Fatalf("ListPendingTasks: %v", err)
	}
	types := make([]string, len(tasks))
	for i, task := range tasks {
		types[i] = task.Type
	}
	return types
}

func TestEnqueueMaintenanceTasks(t *testing.T) {
	client, cfg := newTestClient(t)
	ctx := context.Background()

	if err := client.EnqueueQuoteExpiry(ctx); err != nil {
		t.Fatalf("EnqueueQuoteExpiry: %v", err)
	}
	if err := client.EnqueuePhotoSweep(ctx); err != nil {
		t.Fatalf("EnqueuePhotoSweep: %v", err)
	}

	types := pendingTaskTypes(t, cfg)
	if len(types) != 2 {
		t.Fatalf("pending tasks = %v, want 2", types)
	}
	seen := map[string]bool{}
	for _, typ := range types {
		seen[typ] = true
	}
	if !seen[TaskQuoteExpireDue] || !seen[TaskPhotoSweepStale] {
		t.Fatalf("pending tasks = %v, want both maintenance types", types)
	}
}

func TestEnqueueIsDeduplicatedWhilePending(t *testing.T) {
	client, cfg := newTestClient(t)
	ctx := context.Background()

	if err := client.EnqueuePhotoSweep(ctx); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if err := client.EnqueuePhotoSweep(ctx); err != nil {
		t.Fatalf("duplicate enqueue should be a no-op, got: %v", err)
	}

	types := pendingTaskTypes(t, cfg)
	if len(types) != 1 {
		t.Fatalf("pending tasks = %v, want 1", types)
	}
}

func TestNewClientRequiresRedisURL(t *testing.T) {
	_, err := NewClient(testSchedulerConfig{})
	if err == nil {
		t.Fatal("expected error for missing redis url")
	}
}

func TestRedisClientOptParsesURL(t *testing.T) {
	opt, err := redisClientOpt("redis://:secret@localhost:6380/2", false)
	if err != nil {
		t.Fatalf("redisClientOpt: %v", err)
	}
	if opt.Addr != "localhost:6380" {
		t.Fatalf("addr = %q", opt.Addr)
	}
	if opt.Password != "secret" {
		t.Fatalf("password = %q", opt.Password)
	}
	if opt.DB != 2 {
		t.Fatalf("db = %d", opt.DB)
	}
	if opt.TLSConfig != nil {
		t.Fatal("unexpected tls config")
	}
}

func TestRedisClientOptInsecureTLS(t *testing.T) {
	opt, err := redisClientOpt("rediss://localhost:6379", true)
	if err != nil {
		t.Fatalf("redisClientOpt: %v", err)
	}
	if opt.TLSConfig == nil || !opt.TLSConfig.InsecureSkipVerify {
		t.Fatal("expected insecure tls config")
	}
}
