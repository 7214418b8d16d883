package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/CosmoTheDev/repogate/internal/config"
	"github.com/CosmoTheDev/repogate/internal/notify"
	"github.com/CosmoTheDev/repogate/internal/pipeline"
	"github.com/CosmoTheDev/repogate/internal/policy"
	"github.com/CosmoTheDev/repogate/internal/repository"
	"github.com/CosmoTheDev/repogate/internal/store"
	"github.com/CosmoTheDev/repogate/models"
)

// Gateway is the long-running daemon that combines:
//   - the admission Orchestrator (sweeping and integrating repositories)
//   - a cron Scheduler (discovery sweeps, update checks, saved searches)
//   - a REST + SSE HTTP server (control plane for users)
type Gateway struct {
	cfg         *config.Config
	configPath  string
	st          *store.Store
	provider    repository.Provider
	orch        *pipeline.Orchestrator
	scheduler   *Scheduler
	broadcaster *Broadcaster
	heartbeat   *HeartbeatMonitor

	mu             sync.RWMutex
	status         GatewayStatus
	startedAt      time.Time
	paused         bool
	lastTriggerAt  string
	lastActivityAt time.Time
	sweepRunning   bool
}

// New creates a Gateway. Call Start to begin serving. The pipeline
// notifier and transition hook in opts are wrapped so the gateway can
// mirror lifecycle events onto the SSE stream.
func New(cfg *config.Config, st *store.Store, pol *policy.Policy, provider repository.Provider, opts pipeline.Options) *Gateway {
	gw := &Gateway{
		cfg:         cfg,
		st:          st,
		provider:    provider,
		broadcaster: newBroadcaster(),
		startedAt:   time.Now(),
	}

	inner := opts.Notifier
	if inner == nil {
		if d := notify.NewDispatcher(cfg.Notify); d.IsAnyConfigured() {
			inner = d
		}
	}
	opts.Notifier = &gatewayNotifier{gw: gw, inner: inner}

	userTransition := opts.OnTransition
	opts.OnTransition = func(repo string, status models.RepoStatus, detail string) {
		gw.noteActivity()
		gw.broadcaster.send(SSEEvent{Type: "repo." + string(status), Payload: map[string]any{
			"repo":   repo,
			"status": status,
			"detail": detail,
			"at":     time.Now().UTC().Format(time.RFC3339),
		}})
		if userTransition != nil {
			userTransition(repo, status, detail)
		}
	}

	gw.orch = pipeline.New(cfg, st, pol, provider, opts)
	gw.scheduler = newScheduler(st, gw.runSchedule, gw.broadcaster.send)
	gw.heartbeat = newHeartbeatMonitor(gw)
	return gw
}

// gatewayNotifier observes admission notifications for the live dashboard
// before forwarding them to the configured channels.
type gatewayNotifier struct {
	gw    *Gateway
	inner pipeline.Notifier
}

func (n *gatewayNotifier) Notify(ctx context.Context, evt notify.Event) {
	switch evt.Type {
	case notify.EventSweepCompleted:
		n.gw.mu.Lock()
		n.gw.sweepRunning = false
		n.gw.lastActivityAt = time.Now()
		n.gw.mu.Unlock()
		n.gw.broadcaster.send(SSEEvent{Type: "sweep.completed", Payload: evt.Metadata})
	case notify.EventApprovalRequired:
		n.gw.broadcaster.send(SSEEvent{Type: "approval.required", Payload: map[string]any{
			"repo": evt.RepoKey, "detail": evt.Body,
		}})
	case notify.EventUpdateAvailable:
		n.gw.broadcaster.send(SSEEvent{Type: "update.available", Payload: map[string]any{
			"repo": evt.RepoKey, "detail": evt.Body,
		}})
	}
	if n.inner != nil {
		n.inner.Notify(ctx, evt)
	}
}

// SetConfigPath stores the CLI-resolved config path so PUT /api/config
// writes back to the same file.
func (gw *Gateway) SetConfigPath(path string) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.configPath = path
}

func (gw *Gateway) noteActivity() {
	gw.mu.Lock()
	gw.lastActivityAt = time.Now()
	gw.mu.Unlock()
}

// trigger wakes the sweep loop unless the gateway is paused. Reports
// whether the trigger was accepted.
func (gw *Gateway) trigger(source string) bool {
	gw.mu.Lock()
	if gw.paused {
		gw.mu.Unlock()
		slog.Info("gateway: trigger ignored while paused", "source", source)
		gw.broadcaster.send(SSEEvent{Type: "trigger.ignored", Payload: map[string]any{
			"reason": "paused", "source": source,
		}})
		return false
	}
	now := time.Now()
	gw.lastTriggerAt = now.UTC().Format(time.RFC3339)
	gw.lastActivityAt = now
	gw.sweepRunning = true
	at := gw.lastTriggerAt
	gw.mu.Unlock()

	gw.orch.Trigger()
	gw.broadcaster.send(SSEEvent{Type: "sweep.triggered", Payload: map[string]any{
		"at": at, "source": source,
	}})
	return true
}

// runSchedule dispatches a fired schedule on its kind. Scheduled runs use
// a background context, matching manual API triggers which also outlive
// the request.
func (gw *Gateway) runSchedule(sched store.Schedule) {
	ctx := context.Background()
	switch sched.Kind {
	case store.ScheduleDiscover:
		gw.trigger("schedule:" + sched.Name)
	case store.ScheduleUpdates:
		checks, err := gw.orch.CheckAllUpdates(ctx)
		if err != nil {
			slog.Warn("gateway: scheduled update check failed",
				"schedule", sched.Name, "error", err)
			return
		}
		updates := 0
		for _, c := range checks {
			if c.HasUpdate {
				updates++
			}
		}
		gw.broadcaster.send(SSEEvent{Type: "updates.checked", Payload: map[string]any{
			"schedule": sched.Name, "checked": len(checks), "updates": updates,
		}})
	case store.ScheduleIntegrate:
		gw.runSavedSearch(ctx, sched)
	}
}

// runSavedSearch integrates every repository matched by the schedule's
// saved query, sequentially to keep scheduled load predictable.
func (gw *Gateway) runSavedSearch(ctx context.Context, sched store.Schedule) {
	if gw.isPaused() {
		gw.broadcaster.send(SSEEvent{Type: "trigger.ignored", Payload: map[string]any{
			"reason": "paused", "source": "schedule:" + sched.Name,
		}})
		return
	}
	repos, err := gw.orch.DiscoverAndRank(ctx, sched.Query, "", 0, nil)
	if err != nil {
		slog.Warn("gateway: saved search failed",
			"schedule", sched.Name, "query", sched.Query, "error", err)
		return
	}
	registered := 0
	for i := range repos {
		rep := gw.orch.Integrate(ctx, pipeline.IntegrateRequest{Repo: &repos[i]})
		if rep.Status == models.StatusRegistered {
			registered++
		}
	}
	gw.broadcaster.send(SSEEvent{Type: "search.integrated", Payload: map[string]any{
		"schedule": sched.Name, "query": sched.Query,
		"matched": len(repos), "registered": registered,
	}})
}

// Start runs the gateway until ctx is cancelled. It:
//  1. Loads and starts the cron scheduler
//  2. Runs the sweep loop in a background goroutine
//  3. Starts the stats ticker and heartbeat monitor
//  4. Binds the HTTP server (blocks until shutdown)
func (gw *Gateway) Start(ctx context.Context) error {
	port := gw.cfg.Gateway.Port
	if port == 0 {
		port = 7080
	}
	addr := fmt.Sprintf("127.0.0.1:%d", port)

	if err := gw.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}

	go func() {
		gw.mu.Lock()
		gw.status.Running = true
		gw.mu.Unlock()

		// Sweeps are driven by API triggers and cron schedules, so the
		// loop starts without an initial sweep and without polling.
		if err := gw.orch.Run(ctx, pipeline.RunOptions{}); err != nil && ctx.Err() == nil {
			slog.Error("gateway: sweep loop error", "error", err)
		}

		gw.mu.Lock()
		gw.status.Running = false
		gw.mu.Unlock()
		gw.broadcaster.send(SSEEvent{Type: "pipeline.stopped"})
	}()

	go gw.runStatsTicker(ctx)
	go gw.heartbeat.run(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: buildHandler(gw),
	}

	go func() {
		<-ctx.Done()
		gw.scheduler.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("gateway: listening", "addr", "http://"+addr)
	gw.broadcaster.send(SSEEvent{
		Type:    "gateway.started",
		Payload: map[string]string{"addr": "http://" + addr},
	})

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// runStatsTicker refreshes GatewayStatus from the store every 5 seconds
// and broadcasts a status.update SSE event to all connected clients.
func (gw *Gateway) runStatsTicker(ctx context.Context) {
	t := time.NewTicker(5 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			gw.refreshStatus(ctx)
		}
	}
}

func (gw *Gateway) refreshStatus(ctx context.Context) {
	stats, err := gw.orch.GetStats(ctx)
	if err != nil {
		slog.Warn("gateway: refreshing stats failed", "error", err)
		return
	}

	gw.mu.Lock()
	gw.status.ActiveIntegrations = stats.ActiveIntegrations
	gw.status.TotalIntegrations = stats.TotalIntegrations
	gw.status.SuccessRate = stats.SuccessRate
	gw.status.CloneDiskMB = stats.TotalClonesMB
	snap := gw.snapshotLocked()
	gw.mu.Unlock()

	gw.broadcaster.send(SSEEvent{Type: "status.update", Payload: snap})
}

// snapshotLocked fills the derived status fields. Callers hold gw.mu.
func (gw *Gateway) snapshotLocked() GatewayStatus {
	s := gw.status
	s.Paused = gw.paused
	s.Workers = gw.cfg.Pipeline.Workers
	s.UptimeSeconds = int64(time.Since(gw.startedAt).Seconds())
	s.LastTriggerAt = gw.lastTriggerAt
	return s
}

func (gw *Gateway) currentStatus() GatewayStatus {
	gw.mu.RLock()
	defer gw.mu.RUnlock()
	return gw.snapshotLocked()
}

func (gw *Gateway) setPaused(paused bool) {
	gw.mu.Lock()
	gw.paused = paused
	gw.status.Paused = paused
	gw.mu.Unlock()
}

func (gw *Gateway) isPaused() bool {
	gw.mu.RLock()
	defer gw.mu.RUnlock()
	return gw.paused
}
