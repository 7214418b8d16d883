package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	heartbeatCheckInterval = 30 * time.Second
	// stuckThreshold is how long a sweep may run with no pipeline activity
	// before it is declared stuck. Clone and install steps on large
	// repositories can legitimately take minutes.
	stuckThreshold = 15 * time.Minute
	// deadThreshold is how long after gateway start to wait before calling
	// a loop that has never emitted any event dead.
	deadThreshold = 10 * time.Minute
)

// HeartbeatMonitor watches the activity timestamps maintained by the
// Gateway's pipeline hooks and periodically computes loop health. It
// broadcasts a pipeline.health SSE event whenever the state changes and
// backs GET /api/heartbeat.
type HeartbeatMonitor struct {
	gw        *Gateway
	lastState string
}

func newHeartbeatMonitor(gw *Gateway) *HeartbeatMonitor {
	return &HeartbeatMonitor{gw: gw}
}

func (h *HeartbeatMonitor) run(ctx context.Context) {
	ticker := time.NewTicker(heartbeatCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.evaluate()
		}
	}
}

// evaluate recomputes health and broadcasts on change.
func (h *HeartbeatMonitor) evaluate() {
	hs := h.computeStatus()
	if hs.State != h.lastState {
		h.lastState = hs.State
		h.gw.broadcaster.send(SSEEvent{Type: "pipeline.health", Payload: hs})
		slog.Info("gateway: pipeline health changed", "state", hs.State, "detail", hs.Detail)
	}
}

// computeStatus derives a HeartbeatStatus from the gateway's activity
// fields. Safe to call from any goroutine.
func (h *HeartbeatMonitor) computeStatus() HeartbeatStatus {
	h.gw.mu.RLock()
	lastAt := h.gw.lastActivityAt
	sweepRunning := h.gw.sweepRunning
	startedAt := h.gw.startedAt
	h.gw.mu.RUnlock()

	now := time.Now()
	hs := HeartbeatStatus{
		SweepRunning:  sweepRunning,
		CheckedAt:     now.UTC().Format(time.RFC3339),
		UptimeSeconds: int64(now.Sub(startedAt).Seconds()),
	}

	// Nothing has ever happened.
	if lastAt.IsZero() {
		if now.Sub(startedAt) > deadThreshold {
			hs.State = "dead"
			hs.Detail = "no pipeline activity since gateway start"
			return hs
		}
		hs.State = "idle"
		hs.Detail = "waiting for first trigger"
		return hs
	}

	hs.LastActivity = lastAt.UTC().Format(time.RFC3339)
	if !sweepRunning {
		hs.State = "idle"
		hs.Detail = "no sweep running"
		return hs
	}
	if since := now.Sub(lastAt); since > stuckThreshold {
		hs.State = "stuck"
		hs.Detail = fmt.Sprintf("sweep running but quiet for %s", since.Round(time.Second))
		return hs
	}
	hs.State = "alive"
	hs.Detail = "sweep in progress"
	return hs
}
