package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"litinsight/internal/insights"
	"litinsight/internal/metrics"
	"litinsight/internal/models"
	"litinsight/internal/ratelimit"
	"litinsight/internal/storage"
)

const maxRequestBytes = 4 << 20

// Insights is the part of the orchestrator the HTTP layer drives.
type Insights interface {
	Submit(ctx context.Context, req insights.SubmitRequest) (insights.SubmitResult, error)
	GetStatus(ctx context.Context, id string) (models.InsightJob, error)
}

type Server struct {
	insights   Insights
	limiter    *ratelimit.Limiter
	log        *zap.Logger
	trustProxy bool
}

type Option func(*Server)

func WithLogger(log *zap.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithTrustProxyHeaders makes the client address come from the headers set by
// a fronting proxy: CF-Connecting-IP, else the last X-Forwarded-For hop.
// Enable it only when every request passes through such a proxy.
func WithTrustProxyHeaders(trust bool) Option {
	return func(s *Server) { s.trustProxy = trust }
}

func NewServer(svc Insights, limiter *ratelimit.Limiter, opts ...Option) *Server {
	s := &Server{insights: svc, limiter: limiter, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /summarize", s.handleSummarize)
	mux.HandleFunc("POST /api/summarize", s.handleSummarize)
	mux.HandleFunc("GET /insights/{id}", s.handleInsight)
	mux.HandleFunc("GET /api/insights/{id}", s.handleInsight)
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type summarizeRequest struct {
	Articles      []models.Article `json:"articles"`
	Query         string           `json:"query"`
	FilterSummary string           `json:"filterSummary"`
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	var req summarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	if len(req.Articles) == 0 {
		writeErr(w, http.StatusBadRequest, insights.ErrNoArticles)
		return
	}

	if s.limiter != nil {
		clientID := clientAddress(r, s.trustProxy)
		res, err := s.limiter.Allow(r.Context(), clientID)
		if err != nil {
			s.log.Warn("rate limit counter error", zap.Bool("allowed", res.Allowed), zap.String("client", clientID), zap.Error(err))
		}
		setRateLimitHeaders(w, res)
		if !res.Allowed {
			metrics.RateLimitRejected.Inc()
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(res.RetryAfter)))
			writeErr(w, http.StatusTooManyRequests, errRateLimited)
			return
		}
	}

	res, err := s.insights.Submit(r.Context(), insights.SubmitRequest{
		Articles:      req.Articles,
		Query:         req.Query,
		FilterSummary: req.FilterSummary,
	})
	if err != nil {
		if errors.Is(err, insights.ErrNoArticles) {
			writeErr(w, http.StatusBadRequest, err)
			return
		}
		s.log.Error("submit insight", zap.Error(err))
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"success": true,
		"id":      res.ID,
		"status":  res.Status,
	})
}

func (s *Server) handleInsight(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeErr(w, http.StatusNotFound, storage.ErrInsightNotFound)
		return
	}
	job, err := s.insights.GetStatus(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrInsightNotFound) {
			writeErr(w, http.StatusNotFound, err)
			return
		}
		s.log.Error("get insight", zap.String("insight_id", id), zap.Error(err))
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "insight": job})
}

var errRateLimited = errors.New("rate limit exceeded")

func setRateLimitHeaders(w http.ResponseWriter, res ratelimit.Result) {
	if res.Limit <= 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
}

func retryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// clientAddress identifies the caller for rate limiting. Without a trusted
// proxy only RemoteAddr counts. Behind one, the proxy's own header wins and
// X-Forwarded-For contributes only its right-most hop, the one the proxy
// appended; earlier entries come from the client.
func clientAddress(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if cf := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); cf != "" {
			return cf
		}
		if hop := lastForwardedHop(r.Header.Values("X-Forwarded-For")); hop != "" {
			return hop
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func lastForwardedHop(values []string) string {
	for i := len(values) - 1; i >= 0; i-- {
		hops := strings.Split(values[i], ",")
		for j := len(hops) - 1; j >= 0; j-- {
			if hop := strings.TrimSpace(hops[j]); hop != "" {
				return hop
			}
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{"error": publicMessage(code, err)})
}

func publicMessage(status int, err error) string {
	switch {
	case status == http.StatusTooManyRequests:
		return "Rate limit exceeded. Try again later."
	case status == http.StatusNotFound:
		return "Insight not found"
	case status >= 500:
		raw := ""
		if err != nil {
			raw = strings.ToLower(err.Error())
		}
		if strings.Contains(raw, "connect") || strings.Contains(raw, "dial tcp") {
			return "Storage is unavailable. Retry shortly."
		}
		return "Internal server error"
	case errors.Is(err, insights.ErrNoArticles):
		return "No articles provided"
	case err != nil && strings.Contains(err.Error(), "http: request body too large"):
		return "Request body too large"
	default:
		return "Malformed JSON request body"
	}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
