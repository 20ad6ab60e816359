package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"routeplan/internal/buildinfo"
	"routeplan/internal/distmatrix"
	"routeplan/internal/events"
	"routeplan/internal/integrations"
	"routeplan/internal/model"
	"routeplan/internal/plan"
	"routeplan/internal/planner"
	"routeplan/internal/report"
	"routeplan/internal/solver"
	"routeplan/internal/store"
)

const maxBodyBytes = 8 << 20

// createPlan runs a plan inline, or in the background with ?async=true.
// An empty body plans from the configured location source.
func (s *Server) createPlan(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.PlanRequest
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeProblem(w, http.StatusRequestEntityTooLarge, "Request Too Large", err.Error(), r.URL.Path)
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
	}
	if err := s.validator.planRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Validation Failed", err.Error(), r.URL.Path)
		return
	}

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		rec, err := s.Planner.Start(r.Context(), req)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		w.Header().Set("Location", "/v1/plans/"+rec.ID)
		writeJSON(w, http.StatusAccepted, rec)
		return
	}

	rec, err := s.Planner.Run(r.Context(), req)
	if err != nil {
		if rec.ID != "" {
			w.Header().Set("Location", "/v1/plans/"+rec.ID)
		}
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/plans/"+rec.ID)
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) listPlans(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be a non-negative integer", r.URL.Path)
			return
		}
		limit = n
	}
	items, next, err := s.Store.ListPlans(r.Context(), q.Get("cursor"), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.PlanRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

func (s *Server) getPlan(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	rec, err := s.Store.GetPlan(r.Context(), ps.ByName("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// planReport renders a solved plan as the text report, or as JSON with ?style=json.
func (s *Server) planReport(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	rec, err := s.Store.GetPlan(r.Context(), ps.ByName("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if rec.Status != model.PlanSolved || rec.Plan == nil {
		writeProblem(w, http.StatusConflict, "Plan Not Solved", fmt.Sprintf("plan is %s", rec.Status), r.URL.Path)
		return
	}
	style := r.URL.Query().Get("style")
	if style == "" {
		style = s.Config.Report.Style
	}
	if style == "json" {
		w.Header().Set("Content-Type", "application/json")
		_ = report.JSON(w, *rec.Plan)
		return
	}
	if style != report.StyleNames && style != report.StyleLoads {
		writeProblem(w, http.StatusBadRequest, "Invalid style", "style must be names, loads or json", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_ = report.Text(w, *rec.Plan, style)
}

// planEvents streams plan progress as server-sent events until a terminal event.
func (s *Server) planEvents(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming Unsupported", "", r.URL.Path)
		return
	}

	// Subscribe before reading the record so a plan finishing in between
	// is seen either in the record or on the channel.
	ch := s.Broker.Subscribe(id)
	defer s.Broker.Unsubscribe(id, ch)
	rec, err := s.Store.GetPlan(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// A plan that already finished gets its outcome replayed.
	if evt, done := terminalEvent(rec); done {
		writeSSE(w, evt)
		flusher.Flush()
		return
	}
	fmt.Fprintf(w, "event: heartbeat\ndata: {}\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			writeSSE(w, evt)
			flusher.Flush()
			if evt.Terminal() {
				return
			}
		case <-heartbeat.C:
			fmt.Fprintf(w, "event: heartbeat\ndata: {}\n\n")
			flusher.Flush()
		}
	}
}

func writeSSE(w io.Writer, evt events.Event) {
	b, _ := json.Marshal(evt)
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, b)
}

func terminalEvent(rec model.PlanRecord) (events.Event, bool) {
	switch rec.Status {
	case model.PlanSolved:
		data := map[string]any{}
		if rec.Plan != nil {
			data["objective"] = rec.Plan.Objective
			data["routeCost"] = rec.Plan.RouteCost
			data["dropped"] = len(rec.Plan.Dropped)
		}
		return events.Event{Type: events.PlanSolved, PlanID: rec.ID, At: rec.UpdatedAt, Data: data}, true
	case model.PlanFailed:
		return events.Event{Type: events.PlanFailed, PlanID: rec.ID, At: rec.UpdatedAt, Data: map[string]any{"error": rec.Error}}, true
	}
	return events.Event{}, false
}

func (s *Server) webhookDeliveries(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	items, err := s.Store.ListWebhookDeliveries(r.Context(), q.Get("status"), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []store.WebhookDelivery{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// availability is implemented by solvers that depend on an installed engine.
type availability interface{ Available() error }

func (s *Server) ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.Store.Ping(ctx); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
		return
	}
	if c, ok := s.Planner.Solver.(availability); ok {
		if err := c.Available(); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// debugInfo reports build data and the non-secret parts of the configuration.
func (s *Server) debugInfo(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	cfg := s.Config
	writeJSON(w, http.StatusOK, map[string]any{
		"build": buildinfo.Info(),
		"planner": map[string]any{
			"capacity":     cfg.Capacity,
			"penalty":      cfg.Penalty,
			"maxRouteCost": cfg.MaxRouteCost,
		},
		"distance": map[string]any{
			"provider":   cfg.Distance.Provider,
			"metric":     cfg.Distance.Metric,
			"mode":       cfg.Distance.Mode,
			"strict":     cfg.Distance.Strict,
			"apiKeySet":  cfg.Distance.APIKey != "",
			"cache":      cfg.Cache.Enabled,
			"redisCache": cfg.Cache.RedisURL != "",
		},
		"authMode": cfg.Auth.Mode,
		"webhooks": len(cfg.Webhooks),
	})
}

// writeError maps planner and dependency errors onto problem responses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *distmatrix.APIError
	status, title := http.StatusInternalServerError, "Internal Server Error"
	switch {
	case errors.Is(err, store.ErrNotFound):
		status, title = http.StatusNotFound, "Not Found"
	case errors.Is(err, planner.ErrBadRequest), errors.Is(err, integrations.ErrNoLocations):
		status, title = http.StatusBadRequest, "Bad Request"
	case errors.Is(err, solver.ErrInvalidProblem), errors.Is(err, plan.ErrInfeasible),
		errors.Is(err, distmatrix.ErrNoCoordinates):
		status, title = http.StatusUnprocessableEntity, "Invalid Problem"
	case errors.Is(err, solver.ErrNoSolution):
		status, title = http.StatusUnprocessableEntity, "No Solution"
	case errors.Is(err, solver.ErrEngineUnavailable):
		status, title = http.StatusServiceUnavailable, "Solver Unavailable"
	case errors.Is(err, distmatrix.ErrMissingAPIKey):
		status, title = http.StatusServiceUnavailable, "Distance Provider Unavailable"
	case errors.As(err, &apiErr), errors.Is(err, distmatrix.ErrUnreachable),
		errors.Is(err, distmatrix.ErrMalformedReply):
		status, title = http.StatusBadGateway, "Distance Provider Error"
	case errors.Is(err, context.DeadlineExceeded):
		status, title = http.StatusGatewayTimeout, "Timeout"
	}
	if status >= 500 {
		s.Log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeProblem(w, status, title, err.Error(), r.URL.Path)
}
