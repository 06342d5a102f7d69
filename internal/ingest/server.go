// Package ingest implements the HTTP ingestion API: the multi-phase
// upload protocol (blob/chunk/mapping upsert, chunk-need negotiation, the
// base64-chunked manifest stream and its finalize step) plus the
// administrative pruning endpoints that front internal/retention.
package ingest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ferg-cod3s/pointerindex/internal/middleware"
	"github.com/ferg-cod3s/pointerindex/internal/observability"
	"github.com/ferg-cod3s/pointerindex/internal/observability/audit"
	"github.com/ferg-cod3s/pointerindex/internal/retention"
	"github.com/ferg-cod3s/pointerindex/internal/security/auth"
	"github.com/ferg-cod3s/pointerindex/internal/security/ratelimit"
	"github.com/ferg-cod3s/pointerindex/internal/store"
)

// maxBodyBytes bounds every request body accepted by this API (§6).
const maxBodyBytes = 64 << 20

// Server wires the ingestion HTTP API to a Store and a retention
// Collector, behind the shared middleware stack (rate limiting, CORS,
// security headers, bearer auth) and observability (logging, metrics,
// audit).
type Server struct {
	store     *store.Store
	retention *retention.Collector
	logger    *observability.Logger
	metrics   *observability.MetricsCollector
	errors    *observability.ErrorHandler
	audit     *audit.Logger

	verifier   *auth.Verifier
	rateLimit  *ratelimit.RateLimiter
	corsConfig middleware.CORSConfig
	secConfig  middleware.SecurityConfig
	tracer     *observability.TracerProvider
}

// Dependencies bundles everything NewServer needs to build the handler.
// Fields left zero take the teacher's restrictive defaults (CORS denies
// all origins, rate limiting off, auth disabled).
type Dependencies struct {
	Store     *store.Store
	Retention *retention.Collector
	Logger    *observability.Logger
	Metrics   *observability.MetricsCollector
	Audit     *audit.Logger
	Verifier  *auth.Verifier
	RateLimit *ratelimit.RateLimiter
	CORS      *middleware.CORSConfig
	Security  *middleware.SecurityConfig
	Tracer    *observability.TracerProvider
}

// NewServer constructs a Server from deps, filling in restrictive
// defaults for any unset middleware configuration.
func NewServer(deps Dependencies) *Server {
	cors := middleware.DefaultCORSConfig()
	if deps.CORS != nil {
		cors = *deps.CORS
	}
	sec := middleware.DefaultSecurityConfig()
	if deps.Security != nil {
		sec = *deps.Security
	}

	verifier := deps.Verifier
	if verifier == nil {
		verifier = auth.NewVerifier("", "")
	}

	return &Server{
		store:      deps.Store,
		retention:  deps.Retention,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		errors:     observability.NewErrorHandler(deps.Logger, deps.Metrics, false),
		audit:      deps.Audit,
		verifier:   verifier,
		rateLimit:  deps.RateLimit,
		corsConfig: cors,
		secConfig:  sec,
		tracer:     deps.Tracer,
	}
}

// Handler builds the routed, middleware-wrapped http.Handler for this
// server. A request passes the middleware outermost first as rate limit →
// auth → CORS → security headers, so rate limiting and auth both run, and
// auth can reject, before any CORS or security-header work is done.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/blobs/upload", s.handleBlobsUpload)
	mux.HandleFunc("POST /api/v1/chunks/need", s.handleChunksNeed)
	mux.HandleFunc("POST /api/v1/chunks/upload", s.handleChunksUpload)
	mux.HandleFunc("POST /api/v1/mappings/upload", s.handleMappingsUpload)
	mux.HandleFunc("POST /api/v1/symbols/upload", s.handleSymbolsUpload)
	mux.HandleFunc("POST /api/v1/references/upload", s.handleReferencesUpload)
	mux.HandleFunc("POST /api/v1/branches/upload", s.handleBranchesUpload)
	mux.HandleFunc("POST /api/v1/manifest/chunk", s.handleManifestChunk)
	mux.HandleFunc("POST /api/v1/manifest/finalize", s.handleManifestFinalize)
	mux.HandleFunc("POST /api/v1/prune/commit", s.handlePruneCommit)
	mux.HandleFunc("POST /api/v1/prune/branch", s.handlePruneBranch)
	mux.HandleFunc("POST /api/v1/prune/repo", s.handlePruneRepo)
	mux.HandleFunc("POST /api/v1/prune/policy", s.handlePrunePolicy)
	mux.HandleFunc("POST /api/v1/prune/snapshot", s.handlePruneSnapshot)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())

	var handler http.Handler = http.MaxBytesHandler(mux, maxBodyBytes)
	handler = s.metricsMiddleware(handler)

	authMW := middleware.NewAuthMiddleware(s.verifier)
	secMW := middleware.NewSecurityMiddleware(s.secConfig, s.logger)
	corsMW := middleware.NewCORSMiddleware(s.corsConfig, s.logger)

	handler = secMW.Middleware(handler)
	handler = corsMW.Middleware(handler)
	handler = authMW.Middleware(handler)

	if s.rateLimit != nil {
		rateLimitMW := middleware.NewRateLimitMiddleware(middleware.RateLimitConfig{
			RateLimiter:      s.rateLimit,
			MetricsCollector: s.metrics,
			SkipPaths:        []string{"/healthz"},
		}, s.logger)
		handler = rateLimitMW.Middleware(handler)
	}

	return handler
}

// metricsMiddleware records request count, duration, and in-flight gauge
// for every ingestion request, keyed by route pattern.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.tracer != nil {
			ctx, span := observability.InstrumentIngestRequest(r.Context(), s.tracer.Tracer(), r.Method, r.URL.Path)
			defer span.End()
			r = r.WithContext(ctx)
		}

		if s.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}

		label := r.URL.Path
		s.metrics.TrackIngestInFlight(label, 1)
		defer s.metrics.TrackIngestInFlight(label, -1)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		// r.Pattern is populated by ServeMux once the request has been
		// routed, so it's only meaningful after next.ServeHTTP returns.
		if r.Pattern != "" {
			label = r.Pattern
		}
		s.metrics.RecordIngestRequest(label, strconv.Itoa(rec.status), time.Since(start))
	})
}

// statusRecorder captures the status code written by downstream handlers
// so the metrics middleware can label requests after the fact.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
