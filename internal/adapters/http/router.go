// Package httpadapter exposes the analyze service over HTTP.
package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/feedbacklab/feedback-analyzer/internal/core/ports"
	"github.com/feedbacklab/feedback-analyzer/internal/observability/metrics"
)

type Router struct {
	analyzer  ports.FeedbackAnalyzer
	inspector ports.DatasetInspector
	metrics   *metrics.HTTPServerMetrics
	service   string
}

func NewRouter(analyzer ports.FeedbackAnalyzer, inspector ports.DatasetInspector, m *metrics.HTTPServerMetrics, service string) *Router {
	return &Router{
		analyzer:  analyzer,
		inspector: inspector,
		metrics:   m,
		service:   service,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/analyze", rt.analyze)
	mux.HandleFunc("/dataset-info", rt.datasetInfo)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) analyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	start := time.Now()
	answer, err := rt.analyzer.Analyze(r.Context(), req.Query)
	if err != nil {
		if rt.metrics != nil {
			rt.metrics.RecordAnalyze(rt.service, "error", 0, time.Since(start))
		}
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordAnalyze(rt.service, "ok", len(answer.Sources), time.Since(start))
		rt.metrics.RecordToolDispatch(rt.service, answer.Route)
		rt.metrics.RecordTokenUsage(rt.service, answer.Usage.PromptTokens, answer.Usage.CompletionTokens)
	}

	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) datasetInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	info, err := rt.inspector.DatasetInfo(r.Context())
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
