package handler

import (
	"context"
	"net/http"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"stopdesk/internal/analytics"
	"stopdesk/internal/hub"
	"stopdesk/internal/maplink"
)

// Stats tracks server-wide metrics
type Stats struct {
	startTime        time.Time
	requestCount     atomic.Int64
	visits           atomic.Int64
	pagesLoading     atomic.Int64
	wsConnections    atomic.Int64
	wsMessagesIn     atomic.Int64
	rateLimitBlocked atomic.Int64
}

// Global stats instance
var ServerStats = &Stats{
	startTime: time.Now(),
}

func (s *Stats) IncRequests()         { s.requestCount.Add(1) }
func (s *Stats) IncVisits()           { s.visits.Add(1) }
func (s *Stats) IncPagesLoading()     { s.pagesLoading.Add(1) }
func (s *Stats) IncWSConnections()    { s.wsConnections.Add(1) }
func (s *Stats) DecWSConnections()    { s.wsConnections.Add(-1) }
func (s *Stats) IncWSMessagesIn()     { s.wsMessagesIn.Add(1) }
func (s *Stats) IncRateLimitBlocked() { s.rateLimitBlocked.Add(1) }

type ResolverStats interface {
	Stats() maplink.Stats
}

type RecorderStats interface {
	Stats() analytics.Stats
}

// VisitTotals is implemented by the redis cache when it is enabled.
type VisitTotals interface {
	TotalVisits(ctx context.Context) (int64, error)
	Visits(ctx context.Context, company string) (map[string]int64, error)
}

type StatsHandler struct {
	resolver ResolverStats
	recorder RecorderStats
	totals   VisitTotals
}

// NewStatsHandler builds the stats endpoint. totals may be nil.
func NewStatsHandler(res ResolverStats, rec RecorderStats, totals VisitTotals) *StatsHandler {
	return &StatsHandler{
		resolver: res,
		recorder: rec,
		totals:   totals,
	}
}

type StatsResponse struct {
	Server    ServerStatsResponse    `json:"server"`
	Visits    VisitStatsResponse     `json:"visits"`
	Resolver  maplink.Stats          `json:"resolver"`
	WebSocket WebSocketStatsResponse `json:"websocket"`
	Go        GoStatsResponse        `json:"go"`
}

type ServerStatsResponse struct {
	Uptime        string    `json:"uptime"`
	UptimeSeconds float64   `json:"uptime_seconds"`
	StartTime     time.Time `json:"start_time"`
	RequestCount  int64     `json:"request_count"`
	RateLimited   int64     `json:"rate_limited"`
	PagesLoading  int64     `json:"pages_loading"`
}

type VisitStatsResponse struct {
	Served   int64  `json:"served"`
	Recorded int64  `json:"recorded"`
	Failed   int64  `json:"failed"`
	AllTime  *int64 `json:"all_time,omitempty"`

	Company string           `json:"company,omitempty"`
	ByCode  map[string]int64 `json:"by_code,omitempty"`
}

type WebSocketStatsResponse struct {
	Connections int64 `json:"connections"`
	MessagesIn  int64 `json:"messages_in"`
}

type GoStatsResponse struct {
	Goroutines  int     `json:"goroutines"`
	HeapAlloc   uint64  `json:"heap_alloc_bytes"`
	HeapAllocMB float64 `json:"heap_alloc_mb"`
	NumGC       uint32  `json:"num_gc"`
	GoVersion   string  `json:"go_version"`
}

func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ServerStats.IncRequests()

	uptime := time.Since(ServerStats.startTime)

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	visits := VisitStatsResponse{Served: ServerStats.visits.Load()}
	if h.recorder != nil {
		rs := h.recorder.Stats()
		visits.Recorded = rs.Recorded
		visits.Failed = rs.Failed
	}
	if h.totals != nil {
		if n, err := h.totals.TotalVisits(r.Context()); err == nil {
			visits.AllTime = &n
		}
		if company := strings.TrimSpace(r.URL.Query().Get("company")); company != "" {
			key := hub.CompanyKey(company)
			if byCode, err := h.totals.Visits(r.Context(), key); err == nil {
				visits.Company = key
				visits.ByCode = byCode
			}
		}
	}

	response := StatsResponse{
		Server: ServerStatsResponse{
			Uptime:        uptime.Round(time.Second).String(),
			UptimeSeconds: uptime.Seconds(),
			StartTime:     ServerStats.startTime,
			RequestCount:  ServerStats.requestCount.Load(),
			RateLimited:   ServerStats.rateLimitBlocked.Load(),
			PagesLoading:  ServerStats.pagesLoading.Load(),
		},
		Visits: visits,
		WebSocket: WebSocketStatsResponse{
			Connections: ServerStats.wsConnections.Load(),
			MessagesIn:  ServerStats.wsMessagesIn.Load(),
		},
		Go: GoStatsResponse{
			Goroutines:  runtime.NumGoroutine(),
			HeapAlloc:   mem.HeapAlloc,
			HeapAllocMB: float64(mem.HeapAlloc) / 1024 / 1024,
			NumGC:       mem.NumGC,
			GoVersion:   runtime.Version(),
		},
	}
	if h.resolver != nil {
		response.Resolver = h.resolver.Stats()
	}

	w.Header().Set("Cache-Control", "no-cache")
	respondJSON(w, http.StatusOK, response)
}
