package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/CosmoTheDev/repogate/internal/clone"
	"github.com/CosmoTheDev/repogate/internal/config"
	"github.com/CosmoTheDev/repogate/internal/pipeline"
	"github.com/CosmoTheDev/repogate/internal/store"
	"github.com/CosmoTheDev/repogate/models"
)

// buildHandler wires all REST and SSE routes onto a new ServeMux.
// Uses Go 1.22+ method-prefixed patterns ("GET /path", "POST /path").
func buildHandler(gw *Gateway) http.Handler {
	mux := http.NewServeMux()

	// Root/help and dashboard
	mux.HandleFunc("GET /", gw.handleRoot)
	mux.HandleFunc("GET /ui", gw.handleUIIndex)
	mux.HandleFunc("GET /ui/", gw.handleUIIndex)

	// Health / status
	mux.HandleFunc("GET /health", gw.handleHealth)
	mux.HandleFunc("GET /api/status", gw.handleStatus)
	mux.HandleFunc("GET /api/heartbeat", gw.handleHeartbeat)
	mux.HandleFunc("GET /api/stats", gw.handleStats)

	// Admission pipeline
	mux.HandleFunc("GET /api/integrations", gw.handleListIntegrations)
	mux.HandleFunc("POST /api/integrations", gw.handleIntegrate)
	mux.HandleFunc("GET /api/integrations/{name}", gw.handleGetIntegration)
	mux.HandleFunc("DELETE /api/integrations/{name}", gw.handleRollback)
	mux.HandleFunc("GET /api/integrations/{name}/events", gw.handleIntegrationEvents)
	mux.HandleFunc("POST /api/integrations/{name}/approve", gw.handleApprove)
	mux.HandleFunc("DELETE /api/integrations/{name}/approve", gw.handleRevokeApproval)
	mux.HandleFunc("POST /api/integrations/{name}/rollback", gw.handleRollback)

	// Discovery and evaluation
	mux.HandleFunc("GET /api/discover", gw.handleDiscover)
	mux.HandleFunc("POST /api/evaluate", gw.handleEvaluate)

	// Sweep controls
	mux.HandleFunc("POST /api/sweep", gw.handleSweep)
	mux.HandleFunc("POST /api/pause", gw.handlePause)
	mux.HandleFunc("POST /api/resume", gw.handleResume)

	// Update tracking
	mux.HandleFunc("GET /api/updates", gw.handleListUpdates)
	mux.HandleFunc("GET /api/updates/{name}", gw.handleGetUpdate)

	// Schedule management
	mux.HandleFunc("GET /api/schedules", gw.handleListSchedules)
	mux.HandleFunc("POST /api/schedules", gw.handleCreateSchedule)
	mux.HandleFunc("PUT /api/schedules/{id}", gw.handleUpdateSchedule)
	mux.HandleFunc("DELETE /api/schedules/{id}", gw.handleDeleteSchedule)
	mux.HandleFunc("POST /api/schedules/{id}/trigger", gw.handleTriggerSchedule)

	// Config management
	mux.HandleFunc("GET /api/config", gw.handleGetConfig)
	mux.HandleFunc("PUT /api/config", gw.handlePutConfig)

	// Server-Sent Events stream
	mux.HandleFunc("GET /events", gw.handleEvents)

	return mux
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// --- handlers ---

func (gw *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (gw *Gateway) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "repogate gateway",
		"status":  "running",
		"message": "Gateway is up. REST/SSE API available here; browser dashboard is at /ui.",
		"endpoints": []string{
			"GET /health",
			"GET /api/status",
			"GET /api/stats",
			"GET /api/integrations",
			"POST /api/integrations",
			"GET /api/integrations/{name}",
			"DELETE /api/integrations/{name}",
			"GET /api/discover",
			"POST /api/evaluate",
			"POST /api/sweep",
			"GET /api/updates",
			"GET /api/schedules",
			"POST /api/schedules",
			"GET /api/config",
			"GET /events",
			"GET /ui",
		},
	})
}

func (gw *Gateway) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, gw.currentStatus())
}

func (gw *Gateway) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, gw.heartbeat.computeStatus())
}

func (gw *Gateway) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := gw.orch.GetStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (gw *Gateway) handleListIntegrations(w http.ResponseWriter, r *http.Request) {
	status := models.RepoStatus(r.URL.Query().Get("status"))
	reports, err := gw.orch.ListIntegrations(r.Context(), status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"integrations": reports,
		"count":        len(reports),
	})
}

// integrateRequest is the JSON body for POST /api/integrations and
// POST /api/evaluate. Either repo or full_name identifies the target;
// repo wins when both are present.
type integrateRequest struct {
	FullName    string             `json:"full_name"`
	Repo        *models.Repository `json:"repo"`
	Approved    bool               `json:"approved"`
	WrapAs      string             `json:"wrap_as"`
	EntryPoint  string             `json:"entry_point"`
	Method      string             `json:"method"`
	Branch      string             `json:"branch"`
	PinVersion  string             `json:"pin_version"`
	SparsePaths []string           `json:"sparse_paths"`
	Files       map[string]string  `json:"files"`
}

// resolveRepo fills req.Repo from full_name via the provider when the
// caller did not supply repository metadata inline.
func (gw *Gateway) resolveRepo(ctx context.Context, req *integrateRequest, w http.ResponseWriter) bool {
	if req.Repo != nil && req.Repo.Name != "" {
		return true
	}
	owner, name, ok := strings.Cut(req.FullName, "/")
	if !ok || owner == "" || name == "" {
		writeError(w, http.StatusBadRequest, "full_name must look like owner/name")
		return false
	}
	repo, err := gw.provider.GetRepo(ctx, owner, name)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("looking up %s: %v", req.FullName, err))
		return false
	}
	req.Repo = repo
	return true
}

func (gw *Gateway) handleIntegrate(w http.ResponseWriter, r *http.Request) {
	var req integrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if !gw.resolveRepo(r.Context(), &req, w) {
		return
	}

	preq := pipeline.IntegrateRequest{
		Repo:       req.Repo,
		Files:      req.Files,
		Approved:   req.Approved,
		WrapAs:     models.WrapperType(req.WrapAs),
		EntryPoint: req.EntryPoint,
		Method:     models.InstallMethod(req.Method),
		Clone: clone.Options{
			Branch:      req.Branch,
			PinVersion:  req.PinVersion,
			SparsePaths: req.SparsePaths,
		},
	}

	if r.URL.Query().Get("wait") == "1" {
		report := gw.orch.Integrate(r.Context(), preq)
		writeJSON(w, http.StatusOK, report)
		return
	}

	// Async runs outlive the request.
	go gw.orch.Integrate(context.Background(), preq)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"accepted": true,
		"repo":     req.Repo.Name,
	})
}

func (gw *Gateway) handleGetIntegration(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	report, err := gw.orch.GetReport(r.Context(), name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no integration found for "+name)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (gw *Gateway) handleIntegrationEvents(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	events, err := gw.st.Events(r.Context(), name, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"repo":   name,
		"events": events,
		"count":  len(events),
	})
}

func (gw *Gateway) handleApprove(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var body struct {
		ApprovedBy string `json:"approved_by"`
	}
	// An empty body is fine; approved_by defaults to the API caller.
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.ApprovedBy == "" {
		body.ApprovedBy = "api"
	}
	if err := gw.orch.Approve(r.Context(), name, body.ApprovedBy); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	gw.broadcaster.send(SSEEvent{Type: "approval.granted", Payload: map[string]string{
		"repo": name, "approved_by": body.ApprovedBy,
	}})
	writeJSON(w, http.StatusOK, map[string]any{"repo": name, "approved": true})
}

func (gw *Gateway) handleRevokeApproval(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	revoked, err := gw.st.RevokeApproval(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !revoked {
		writeError(w, http.StatusNotFound, "no standing approval for "+name)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"repo": name, "approved": false})
}

func (gw *Gateway) handleRollback(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	rb := gw.orch.Rollback(r.Context(), name)
	if !rb.Success && len(rb.Steps) == 0 {
		writeError(w, http.StatusNotFound, "nothing to roll back for "+name)
		return
	}
	gw.broadcaster.send(SSEEvent{Type: "repo.rolled_back", Payload: map[string]any{
		"repo": name, "steps": len(rb.Steps), "success": rb.Success,
	}})
	writeJSON(w, http.StatusOK, rb)
}

func (gw *Gateway) handleDiscover(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	var keywords []string
	for _, kw := range strings.Split(q.Get("keywords"), ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			keywords = append(keywords, kw)
		}
	}

	repos, err := gw.orch.DiscoverAndRank(r.Context(), q.Get("query"), q.Get("language"), limit, keywords)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"repos": repos,
		"count": len(repos),
	})
}

func (gw *Gateway) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req integrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if !gw.resolveRepo(r.Context(), &req, w) {
		return
	}
	ev, err := gw.orch.EvaluateAndCheck(r.Context(), req.Repo, req.Files)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (gw *Gateway) handleSweep(w http.ResponseWriter, r *http.Request) {
	if !gw.trigger("api") {
		writeError(w, http.StatusConflict, "gateway is paused")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"triggered": true})
}

func (gw *Gateway) handlePause(w http.ResponseWriter, r *http.Request) {
	gw.setPaused(true)
	gw.broadcaster.send(SSEEvent{Type: "gateway.paused"})
	writeJSON(w, http.StatusOK, map[string]any{"paused": true})
}

func (gw *Gateway) handleResume(w http.ResponseWriter, r *http.Request) {
	gw.setPaused(false)
	gw.broadcaster.send(SSEEvent{Type: "gateway.resumed"})
	writeJSON(w, http.StatusOK, map[string]any{"paused": false})
}

func (gw *Gateway) handleListUpdates(w http.ResponseWriter, r *http.Request) {
	checks, err := gw.orch.CheckAllUpdates(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	updates := 0
	for _, c := range checks {
		if c.HasUpdate {
			updates++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"checks":  checks,
		"checked": len(checks),
		"updates": updates,
	})
}

func (gw *Gateway) handleGetUpdate(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	check, err := gw.orch.CheckForUpdates(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, check)
}

// --- config management ---

const maskValue = "********"

func mask(s string) string {
	if s == "" {
		return ""
	}
	return maskValue
}

// redactConfig returns a display copy of cfg with credentials masked.
func redactConfig(cfg *config.Config) *config.Config {
	out := *cfg
	out.Git.GitHub = append([]config.GitHubConfig(nil), cfg.Git.GitHub...)
	for i := range out.Git.GitHub {
		out.Git.GitHub[i].Token = mask(out.Git.GitHub[i].Token)
	}
	out.Git.GitLab = append([]config.GitLabConfig(nil), cfg.Git.GitLab...)
	for i := range out.Git.GitLab {
		out.Git.GitLab[i].Token = mask(out.Git.GitLab[i].Token)
	}
	out.Platform.Token = mask(out.Platform.Token)
	out.Notify.Slack.WebhookURL = mask(out.Notify.Slack.WebhookURL)
	out.Notify.Webhook.Secret = mask(out.Notify.Webhook.Secret)
	out.Notify.Email.Password = mask(out.Notify.Email.Password)
	return &out
}

// restoreMasked puts current credentials back wherever the submitted
// config still carries the display mask, so a GET-edit-PUT roundtrip
// does not overwrite secrets with asterisks.
func restoreMasked(updated, current *config.Config) {
	for i := range updated.Git.GitHub {
		if updated.Git.GitHub[i].Token == maskValue && i < len(current.Git.GitHub) {
			updated.Git.GitHub[i].Token = current.Git.GitHub[i].Token
		}
	}
	for i := range updated.Git.GitLab {
		if updated.Git.GitLab[i].Token == maskValue && i < len(current.Git.GitLab) {
			updated.Git.GitLab[i].Token = current.Git.GitLab[i].Token
		}
	}
	if updated.Platform.Token == maskValue {
		updated.Platform.Token = current.Platform.Token
	}
	if updated.Notify.Slack.WebhookURL == maskValue {
		updated.Notify.Slack.WebhookURL = current.Notify.Slack.WebhookURL
	}
	if updated.Notify.Webhook.Secret == maskValue {
		updated.Notify.Webhook.Secret = current.Notify.Webhook.Secret
	}
	if updated.Notify.Email.Password == maskValue {
		updated.Notify.Email.Password = current.Notify.Email.Password
	}
}

func (gw *Gateway) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, redactConfig(gw.cfg))
}

func (gw *Gateway) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	updated := *gw.cfg
	// Decoding into shared slice backing arrays would mutate the live
	// config, so the credential slices get their own copies first.
	updated.Git.GitHub = append([]config.GitHubConfig(nil), gw.cfg.Git.GitHub...)
	updated.Git.GitLab = append([]config.GitLabConfig(nil), gw.cfg.Git.GitLab...)
	if err := json.NewDecoder(r.Body).Decode(&updated); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	restoreMasked(&updated, gw.cfg)

	gw.mu.RLock()
	path := gw.configPath
	gw.mu.RUnlock()
	if path == "" {
		p, err := config.ConfigPath("")
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		path = p
	}
	if err := config.Save(&updated, path); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	gw.mu.Lock()
	*gw.cfg = updated
	gw.mu.Unlock()

	gw.broadcaster.send(SSEEvent{Type: "config.updated"})
	writeJSON(w, http.StatusOK, redactConfig(gw.cfg))
}

// --- SSE ---

func (gw *Gateway) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering if behind a proxy

	ch := gw.broadcaster.subscribe()
	defer gw.broadcaster.unsubscribe(ch)

	// Send initial connected event with current status.
	connected, _ := json.Marshal(SSEEvent{Type: "connected", Payload: gw.currentStatus()})
	fmt.Fprintf(w, "data: %s\n\n", connected)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case frame, ok := <-ch:
			if !ok {
				return
			}
			w.Write(frame)
			flusher.Flush()
		}
	}
}
