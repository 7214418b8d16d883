package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/CosmoTheDev/repogate/internal/notify"
	"github.com/CosmoTheDev/repogate/internal/store"
	"github.com/CosmoTheDev/repogate/models"
)

// pollInterval controls how long Run waits between automatic sweeps.
var pollInterval = 30 * time.Minute

// SweepResult summarises one unattended discovery-to-admission pass.
type SweepResult struct {
	Discovered int `json:"discovered"`
	Attempted  int `json:"attempted"`
	Registered int `json:"registered"`
	Rejected   int `json:"rejected"`
	Skipped    int `json:"skipped"`
}

// Sweep discovers candidates with the configured queries and runs the
// full pipeline over each through a bounded worker pool. Repositories
// that already hold a registered integration are skipped.
func (o *Orchestrator) Sweep(ctx context.Context) (*SweepResult, error) {
	repos, err := o.discovery.Discover(ctx)
	if err != nil {
		return nil, err
	}

	workers := o.cfg.Pipeline.Workers
	if workers <= 0 {
		workers = 3
	}
	if workers > len(repos) {
		workers = len(repos)
	}

	res := &SweepResult{Discovered: len(repos)}
	jobs := make(chan models.Repository)

	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for repo := range jobs {
				outcome := o.sweepOne(ctx, &repo)
				mu.Lock()
				switch outcome {
				case models.StatusRegistered:
					res.Attempted++
					res.Registered++
				case "":
					res.Skipped++
				default:
					res.Attempted++
					res.Rejected++
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, r := range repos {
		select {
		case jobs <- r:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	slog.Info("pipeline: sweep complete",
		"discovered", res.Discovered,
		"attempted", res.Attempted,
		"registered", res.Registered,
		"rejected", res.Rejected,
		"skipped", res.Skipped,
	)
	o.notifySweep(ctx, res)
	return res, ctx.Err()
}

// sweepOne integrates a single discovered repository, returning its final
// status or "" when it was skipped as already registered.
func (o *Orchestrator) sweepOne(ctx context.Context, repo *models.Repository) models.RepoStatus {
	if ctx.Err() != nil {
		return ""
	}
	existing, err := o.st.GetReport(ctx, repo.Name)
	if err == nil && existing.Status == models.StatusRegistered {
		slog.Debug("pipeline: sweep skipping registered repository", "repo", repo.Name)
		return ""
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Warn("pipeline: sweep report lookup failed", "repo", repo.Name, "error", err)
	}
	report := o.Integrate(ctx, IntegrateRequest{Repo: repo})
	return report.Status
}

func (o *Orchestrator) notifySweep(ctx context.Context, res *SweepResult) {
	if o.notifier == nil {
		return
	}
	o.notifier.Notify(ctx, notify.Event{
		Type:  notify.EventSweepCompleted,
		Title: "Admission sweep complete",
		Body: fmt.Sprintf("%d discovered, %d attempted, %d registered, %d rejected, %d skipped",
			res.Discovered, res.Attempted, res.Registered, res.Rejected, res.Skipped),
		Metadata: map[string]any{
			"discovered": res.Discovered,
			"attempted":  res.Attempted,
			"registered": res.Registered,
			"rejected":   res.Rejected,
			"skipped":    res.Skipped,
		},
	})
}

// Trigger requests an immediate sweep, interrupting the current poll
// interval. If a sweep is already pending the signal is dropped.
func (o *Orchestrator) Trigger() {
	select {
	case o.triggerCh <- struct{}{}:
	default:
	}
}

// RunOptions controls the Run loop for different runtimes (CLI watch vs
// gateway).
type RunOptions struct {
	InitialSweep bool
	Poll         bool
}

// Run executes sweeps until ctx is cancelled: an initial sweep when
// requested, then on every Trigger call, and on the poll interval when
// polling is enabled.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) error {
	slog.Info("pipeline: orchestrator starting",
		"workers", o.cfg.Pipeline.Workers,
		"initial_sweep", opts.InitialSweep,
		"poll", opts.Poll,
	)

	first := true
	for {
		if !first || opts.InitialSweep {
			if _, err := o.Sweep(ctx); err != nil && ctx.Err() == nil {
				slog.Error("pipeline: sweep error", "error", err)
			}
		} else {
			slog.Info("pipeline: idle on startup; waiting for trigger or schedule")
		}
		first = false

		if !opts.Poll {
			select {
			case <-ctx.Done():
				slog.Info("pipeline: orchestrator received shutdown signal")
				return nil
			case <-o.triggerCh:
				slog.Info("pipeline: triggered, starting next sweep immediately")
			}
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("pipeline: orchestrator received shutdown signal")
			return nil
		case <-o.triggerCh:
			slog.Info("pipeline: triggered, starting next sweep immediately")
		case <-time.After(pollInterval):
			slog.Info("pipeline: poll interval elapsed, starting sweep")
		}
	}
}
