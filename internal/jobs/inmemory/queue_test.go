package inmemory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rmartins/expense-audit/internal/jobs"
)

func TestQueue_PublishAndProcess(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 2, store)
	defer q.Close()

	var mu sync.Mutex
	processed := make(map[string]bool)
	done := make(chan struct{}, 3)

	handler := func(ctx context.Context, job jobs.Job) error {
		mu.Lock()
		processed[job.GetID()] = true
		mu.Unlock()
		done <- struct{}{}
		return nil
	}

	ctx := context.Background()
	if err := q.Start(ctx, handler); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		job := &jobs.AuditJob{
			JobID:            fmt.Sprintf("job-%d", i),
			TransactionsPath: "data/transacoes_bancarias.csv",
			EmailsPath:       "data/emails.txt",
		}
		if err := q.PublishAudit(ctx, job); err != nil {
			t.Fatalf("PublishAudit() error = %v", err)
		}
	}

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(processed) != 3 {
		t.Errorf("processed %d jobs, want 3", len(processed))
	}
}

func TestQueue_RetryOnFailure(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 1, store)
	defer q.Close()

	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})

	handler := func(ctx context.Context, job jobs.Job) error {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n < 2 {
			return fmt.Errorf("transient failure")
		}
		close(done)
		return nil
	}

	ctx := context.Background()
	if err := q.Start(ctx, handler); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	job := &jobs.AuditJob{JobID: "retry-job", MaxRetries: 3}
	if err := q.PublishAudit(ctx, job); err != nil {
		t.Fatalf("PublishAudit() error = %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job was not retried")
	}

	// Wait for the final store write.
	deadline := time.Now().Add(2 * time.Second)
	for {
		saved, err := store.GetJob(ctx, "retry-job")
		if err == nil && saved.Status == jobs.JobStatusCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job never reached completed status")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestQueue_PublishAfterClose(t *testing.T) {
	q := NewQueue(1, 1, nil)
	if err := q.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	err := q.PublishAudit(context.Background(), &jobs.AuditJob{JobID: "late"})
	if err == nil {
		t.Error("expected publish on closed queue to fail")
	}
}

func TestStore_Filtering(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	for i, status := range []jobs.JobStatus{jobs.JobStatusPending, jobs.JobStatusCompleted, jobs.JobStatusPending} {
		if err := store.SaveJob(ctx, &jobs.AuditJob{JobID: fmt.Sprintf("j%d", i), Status: status}); err != nil {
			t.Fatalf("SaveJob() error = %v", err)
		}
	}

	pending, err := store.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusPending})
	if err != nil {
		t.Fatalf("ListJobs() error = %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("got %d pending jobs, want 2", len(pending))
	}

	if err := store.UpdateJobStatus(ctx, "j0", jobs.JobStatusFailed, "boom"); err != nil {
		t.Fatalf("UpdateJobStatus() error = %v", err)
	}
	j0, err := store.GetJob(ctx, "j0")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if j0.Status != jobs.JobStatusFailed || j0.Error != "boom" {
		t.Errorf("job = %+v", j0)
	}

	if _, err := store.GetJob(ctx, "missing"); err == nil {
		t.Error("expected error for missing job")
	}
}
