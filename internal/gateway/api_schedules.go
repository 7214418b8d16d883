package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/CosmoTheDev/repogate/internal/store"
)

// scheduleRequest is the JSON body for creating and updating schedules.
// Updates are partial: zero-valued fields keep their stored values.
type scheduleRequest struct {
	Name    string `json:"name"`
	Expr    string `json:"expr"`
	Kind    string `json:"kind"`
	Query   string `json:"query"`
	Enabled *bool  `json:"enabled"`
}

func (gw *Gateway) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := gw.scheduler.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"schedules": schedules,
		"count":     len(schedules),
	})
}

func (gw *Gateway) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.Name == "" || req.Expr == "" {
		writeError(w, http.StatusBadRequest, "name and expr are required")
		return
	}
	if req.Kind == "" {
		req.Kind = store.ScheduleDiscover
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	sched := store.Schedule{
		Name:    req.Name,
		Expr:    req.Expr,
		Kind:    req.Kind,
		Query:   req.Query,
		Enabled: enabled,
	}
	id, err := gw.scheduler.Add(r.Context(), sched)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := gw.st.GetSchedule(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	gw.broadcaster.send(SSEEvent{Type: "schedule.created", Payload: created})
	writeJSON(w, http.StatusCreated, created)
}

func (gw *Gateway) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid schedule id")
		return
	}
	existing, err := gw.st.GetSchedule(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "schedule not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	sched := *existing
	if req.Name != "" {
		sched.Name = req.Name
	}
	if req.Expr != "" {
		sched.Expr = req.Expr
	}
	if req.Kind != "" {
		sched.Kind = req.Kind
	}
	if req.Query != "" {
		sched.Query = req.Query
	}
	if req.Enabled != nil {
		sched.Enabled = *req.Enabled
	}

	if err := gw.scheduler.Update(r.Context(), id, sched); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := gw.st.GetSchedule(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	gw.broadcaster.send(SSEEvent{Type: "schedule.updated", Payload: updated})
	writeJSON(w, http.StatusOK, updated)
}

func (gw *Gateway) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid schedule id")
		return
	}
	deleted, err := gw.scheduler.Delete(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "schedule not found")
		return
	}
	gw.broadcaster.send(SSEEvent{Type: "schedule.deleted", Payload: map[string]int64{"id": id}})
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (gw *Gateway) handleTriggerSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid schedule id")
		return
	}
	if err := gw.scheduler.TriggerNow(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "schedule not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"triggered": true, "id": id})
}
