package job

import (
	"context"
	"errors"
	"testing"

	"github.com/akolanti/kbbot/internal/data/store"
	"github.com/akolanti/kbbot/internal/domain/jobModel"
)

func newTestService(buffer int) *Service {
	return InitJobService(ServiceConfig{
		JobChannel:        make(chan jobModel.Job, buffer),
		DispatcherChannel: make(chan bool, 1),
		JobStore:          store.InitInMemoryJobStore(),
		MessageStore:      store.InitMessageStore(),
	})
}

func TestSubmit_Queues(t *testing.T) {
	s := newTestService(1)
	ctx := context.Background()
	j := NewIngestJob("trace", "handbook.pdf", "/tmp/handbook.pdf")

	if err := s.Submit(ctx, j); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	saved, ok := s.GetJob(ctx, j.Id)
	if !ok || saved.Status != jobModel.JobStatusQueued {
		t.Errorf("stored job got %+v, %v", saved, ok)
	}
	if queued := <-s.JobChannel; queued.Id != j.Id {
		t.Errorf("queued job got %s", queued.Id)
	}
	select {
	case <-s.DispatcherChannel:
	default:
		t.Error("ingest job should wake the dispatcher")
	}
}

func TestSubmit_CancelledWhileQueueFull(t *testing.T) {
	s := newTestService(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	j := NewQueryJob("trace", "", "hello?")

	err := s.Submit(ctx, j)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if _, ok := s.GetJob(context.Background(), j.Id); ok {
		t.Error("a job that was never queued should not be reported")
	}
	if s.RequestCount != 0 {
		t.Errorf("RequestCount got %d", s.RequestCount)
	}
}
