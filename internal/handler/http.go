package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stopdesk/internal/analytics"
	"stopdesk/internal/domain"
	"stopdesk/internal/i18n"
	"stopdesk/internal/lookup"
	"stopdesk/internal/page"
)

const (
	loadingRefreshSeconds = 2
	recordTimeout         = 5 * time.Second
)

// Finder looks up a stop by url code.
type Finder interface {
	Find(ctx context.Context, code string) (domain.Stop, error)
}

type StopHandler struct {
	finder   Finder
	renderer *page.Renderer
	recorder analytics.Recorder
	wait     time.Duration
	baseURL  string
	logger   *slog.Logger
}

// NewStopHandler serves the pickup page and its JSON twin. wait bounds how
// long the page waits for the lookup before answering with the loading state.
func NewStopHandler(f Finder, r *page.Renderer, rec analytics.Recorder, wait time.Duration, baseURL string, logger *slog.Logger) *StopHandler {
	if rec == nil {
		rec = analytics.Nop{}
	}
	return &StopHandler{
		finder:   f,
		renderer: r,
		recorder: rec,
		wait:     wait,
		baseURL:  baseURL,
		logger:   logger.With("handler", "stop"),
	}
}

// ServePage renders GET /{urlcode}. The mux hands over the segment already
// unescaped.
func (h *StopHandler) ServePage(w http.ResponseWriter, r *http.Request) {
	ServerStats.IncRequests()
	start := time.Now()
	code := strings.TrimSpace(r.PathValue("urlcode"))

	state, stop := h.await(r.Context(), code)

	var m page.Model
	status := http.StatusOK
	switch state {
	case page.StateFound:
		m = page.Build(code, stop, i18n.Parse(stop.Language))
		h.recordVisit(r.Context(), stop, m.Lang)
	case page.StateNotFound:
		m = page.Placeholder(page.StateNotFound, code)
		status = http.StatusNotFound
	default:
		m = page.Placeholder(page.StateLoading, code)
		m.Refresh = loadingRefreshSeconds
		ServerStats.IncPagesLoading()
	}
	if h.baseURL != "" {
		m.Meta.URL = h.baseURL + "/" + url.PathEscape(code)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := h.renderer.Render(w, m); err != nil {
		h.logger.Error("page render failed", "request_id", RequestID(r.Context()), "url_code", code, "error", err)
		return
	}

	h.logger.Debug("page served",
		"url_code", code,
		"state", state,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// await runs the lookup behind a page.View and waits up to h.wait for it to
// settle. A result that arrives later is discarded by the disposed view.
func (h *StopHandler) await(ctx context.Context, code string) (page.State, domain.Stop) {
	view := page.NewView()
	tok := view.Begin()
	settled := view.Settled()

	go func() {
		stop, err := h.finder.Find(ctx, code)
		view.Deliver(tok, stop, err)
	}()

	timer := time.NewTimer(h.wait)
	defer timer.Stop()

	select {
	case <-settled:
	case <-timer.C:
		h.logger.Warn("lookup exceeded render wait", "url_code", code, "wait", h.wait)
	case <-ctx.Done():
	}
	view.Dispose()
	return view.Snapshot()
}

func (h *StopHandler) recordVisit(ctx context.Context, stop domain.Stop, lang i18n.Lang) {
	ServerStats.IncVisits()
	ev := analytics.NewVisit(stop.Company, stop.URLCode, string(lang))
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
		defer cancel()
		if err := h.recorder.RecordVisit(ctx, ev); err != nil {
			h.logger.Debug("visit not recorded", "url_code", ev.URLCode, "error", err)
		}
	}()
}

// GetStop serves GET /v1/stops/{urlcode}: the found-state view model as JSON.
func (h *StopHandler) GetStop(w http.ResponseWriter, r *http.Request) {
	ServerStats.IncRequests()
	code := strings.TrimSpace(r.PathValue("urlcode"))
	if code == "" {
		respondError(w, http.StatusBadRequest, "missing url code")
		return
	}

	stop, err := h.finder.Find(r.Context(), code)
	if errors.Is(err, lookup.ErrNotFound) {
		respondError(w, http.StatusNotFound, "stopdesk not found")
		return
	}
	if err != nil {
		h.logger.Error("lookup failed", "url_code", code, "error", err)
		respondError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	m := page.Build(code, stop, i18n.Parse(stop.Language))
	if h.baseURL != "" {
		m.Meta.URL = h.baseURL + "/" + url.PathEscape(code)
	}
	respondJSON(w, http.StatusOK, m)
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}
