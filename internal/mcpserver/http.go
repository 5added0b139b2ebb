package mcpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

const maxRequestBodyBytes = 4 << 20 // 4 MiB

// Router builds the chi-routed HTTP surface: POST /mcp for JSON-RPC, plus
// the non-MCP health endpoints. GET /mcp is rejected with 405 Method Not
// Allowed.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Post("/mcp", s.handleMCPPost)
	r.Get("/mcp", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "GET /mcp is not supported; use POST", http.StatusMethodNotAllowed)
	})

	r.Get("/health", s.handleHealth)
	r.Get("/health/ready", s.handleHealthReady)
	if s.deps.Metrics != nil {
		r.Handle("/metrics", s.deps.Metrics.Handler())
	}

	return r
}

func (s *Server) handleMCPPost(w http.ResponseWriter, req *http.Request) {
	contentType := req.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
		return
	}
	accept := req.Header.Get("Accept")
	if accept != "" && !strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/event-stream") && !strings.Contains(accept, "*/*") {
		http.Error(w, "Accept must include application/json or text/event-stream", http.StatusNotAcceptable)
		return
	}

	body, err := io.ReadAll(io.LimitReader(req.Body, maxRequestBodyBytes))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	resp := s.Handle(req.Context(), req.Header, body)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(resp)
}

type healthResponse struct {
	Status        string `json:"status"`
	Server        string `json:"server"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Timestamp     int64  `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:        "ok",
		Server:        serverName,
		UptimeSeconds: int64(time.Since(s.deps.StartedAt).Seconds()),
		Timestamp:     time.Now().Unix(),
	}
	writeJSON(w, http.StatusOK, resp)
}

type readyResponse struct {
	Status  string          `json:"status"`
	Checks  map[string]bool `json:"checks"`
	Metrics *readyMetrics   `json:"metrics,omitempty"`
}

// readyMetrics is the metrics collector's summary view, consumed by
// /health/ready rather than scraped from /metrics: cache_hit_ratio is -1
// until the response cache has been queried at least once.
type readyMetrics struct {
	CacheHitRatio float64 `json:"cache_hit_ratio"`
}

func (s *Server) handleHealthReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]bool{
		"knowledge":    s.deps.KnowledgeDir != "",
		"vector_store": s.deps.SearchTable != nil,
		"skills":       s.deps.SkillsDir != "",
	}
	status := "ready"
	code := http.StatusOK
	for _, ok := range checks {
		if !ok {
			status = "degraded"
			code = http.StatusServiceUnavailable
			break
		}
	}

	resp := readyResponse{Status: status, Checks: checks}
	if s.deps.Metrics != nil {
		resp.Metrics = &readyMetrics{CacheHitRatio: s.deps.Metrics.CacheHitRatio()}
	}
	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
