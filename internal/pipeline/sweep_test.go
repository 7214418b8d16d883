package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/CosmoTheDev/repogate/internal/notify"
	"github.com/CosmoTheDev/repogate/models"
)

func TestSweepIntegratesDiscovered(t *testing.T) {
	notifier := &pipeNotifier{}
	o, st := newOrchestrator(t, &pipeProvider{repos: searchResults(), files: cleanFiles()}, Options{VCS: &pipeVCS{}, Notifier: notifier})
	o.cfg.Pipeline.AutoApprove = true
	ctx := context.Background()

	res, err := o.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Discovered != 2 {
		t.Errorf("discovered = %d, want 2 after the star floor", res.Discovered)
	}
	if res.Attempted != 2 || res.Registered != 1 || res.Rejected != 1 || res.Skipped != 0 {
		t.Errorf("result = %+v", res)
	}

	report, err := st.GetReport(ctx, "taskrunner")
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if report.Status != models.StatusRegistered {
		t.Errorf("taskrunner = %s", report.Status)
	}

	if got := notifier.byType(notify.EventSweepCompleted); len(got) != 1 {
		t.Errorf("sweep notifications = %d, want 1", len(got))
	}
}

func TestSweepSkipsRegisteredRepos(t *testing.T) {
	o, _ := newOrchestrator(t, &pipeProvider{repos: searchResults(), files: cleanFiles()}, Options{VCS: &pipeVCS{}})
	o.cfg.Pipeline.AutoApprove = true
	ctx := context.Background()

	if _, err := o.Sweep(ctx); err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	res, err := o.Sweep(ctx)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	// taskrunner is already registered; the incompatible repository is
	// re-evaluated in case the admission policy changed.
	if res.Skipped != 1 || res.Attempted != 1 || res.Registered != 0 || res.Rejected != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestSweepHonorsCancelledContext(t *testing.T) {
	o, _ := newOrchestrator(t, &pipeProvider{repos: searchResults(), files: cleanFiles()}, Options{VCS: &pipeVCS{}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := o.Sweep(ctx)
	if err == nil {
		t.Fatal("expected context error")
	}
	if res == nil {
		t.Fatal("partial result must still be returned")
	}
	if res.Attempted != 0 || res.Registered != 0 {
		t.Errorf("result = %+v, want nothing attempted", res)
	}
}

func TestRunTriggerRunsSweepUntilShutdown(t *testing.T) {
	notifier := &pipeNotifier{}
	o, st := newOrchestrator(t, &pipeProvider{repos: searchResults(), files: cleanFiles()}, Options{VCS: &pipeVCS{}, Notifier: notifier})
	o.cfg.Pipeline.AutoApprove = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx, RunOptions{}) }()

	o.Trigger()

	deadline := time.Now().Add(10 * time.Second)
	for len(notifier.byType(notify.EventSweepCompleted)) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("triggered sweep never completed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}

	report, err := st.GetReport(context.Background(), "taskrunner")
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if report.Status != models.StatusRegistered {
		t.Errorf("taskrunner = %s", report.Status)
	}
}
