// Command pointerd runs the ingestion HTTP API: the multi-phase
// blob/chunk/mapping upload protocol, the manifest finalize step, and
// the administrative pruning endpoints, behind the shared middleware
// stack (rate limiting, CORS, security headers, bearer auth).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ferg-cod3s/pointerindex/internal/config"
	"github.com/ferg-cod3s/pointerindex/internal/ingest"
	"github.com/ferg-cod3s/pointerindex/internal/middleware"
	"github.com/ferg-cod3s/pointerindex/internal/observability"
	"github.com/ferg-cod3s/pointerindex/internal/retention"
	"github.com/ferg-cod3s/pointerindex/internal/security/auth"
	"github.com/ferg-cod3s/pointerindex/internal/security/ratelimit"
	"github.com/ferg-cod3s/pointerindex/internal/store"
	"github.com/ferg-cod3s/pointerindex/internal/tls"
)

const Version = "0.1.3-alpha"

func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LoggerConfig{
		Level:         cfg.Logging.Level,
		Format:        cfg.Logging.Format,
		Output:        os.Stdout,
		AddSource:     true,
		SentryEnabled: cfg.Observability.Sentry.Enabled,
	})

	logger.Info("pointerd starting",
		"version", Version,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"database", cfg.Database.Path,
		"metrics_enabled", cfg.Observability.Metrics.Enabled,
		"tracing_enabled", cfg.Observability.Tracing.Enabled,
	)

	var metrics *observability.MetricsCollector
	if cfg.Observability.Metrics.Enabled {
		metrics = observability.NewMetricsCollector("pointerd")
		go startMetricsServer(cfg.Observability.Metrics, logger)
	} else {
		logger.Info("Metrics collection disabled")
	}

	var tracerProvider *observability.TracerProvider
	if cfg.Observability.Tracing.Enabled {
		tracerProvider, err = observability.NewTracerProvider(observability.TracerConfig{
			ServiceName:    "pointerd",
			ServiceVersion: Version,
			Environment:    cfg.Observability.Sentry.Environment,
			OTLPEndpoint:   cfg.Observability.Tracing.Endpoint,
			SamplingRate:   cfg.Observability.Tracing.SampleRate,
			Enabled:        true,
		})
		if err != nil {
			logger.Error("Failed to initialize tracing provider", "error", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.Error("Failed to shutdown tracer provider", "error", err)
			}
		}()
	} else {
		logger.Info("Tracing disabled")
	}

	if cfg.Observability.Sentry.Enabled {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Observability.Sentry.DSN,
			Environment:      cfg.Observability.Sentry.Environment,
			Release:          cfg.Observability.Sentry.Release,
			TracesSampleRate: cfg.Observability.Sentry.SampleRate,
			EnableTracing:    true,
			EnableLogs:       true,
		})
		if err != nil {
			logger.Error("Failed to initialize Sentry", "error", err)
			os.Exit(1)
		}
		defer sentry.Flush(2 * time.Second)
	} else {
		logger.Info("Sentry disabled")
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	collector := retention.New(st)

	var verifier *auth.Verifier
	if cfg.Auth.Enabled {
		verifier = auth.NewVerifier(cfg.Auth.SharedSecret, cfg.Auth.JWTSigningKey)
	}

	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter, err = ratelimit.NewRateLimiter(toRateLimitConfig(cfg.RateLimit))
		if err != nil {
			logger.Error("Failed to initialize rate limiter", "error", err)
			os.Exit(1)
		}
	}

	corsConfig := toCORSConfig(cfg.CORS)
	secConfig := toSecurityConfig(cfg.Security)

	srv := ingest.NewServer(ingest.Dependencies{
		Store:     st,
		Retention: collector,
		Logger:    logger,
		Metrics:   metrics,
		Verifier:  verifier,
		RateLimit: rateLimiter,
		CORS:      &corsConfig,
		Security:  &secConfig,
		Tracer:    tracerProvider,
	})

	runHTTPServer(ctx, cfg, srv.Handler(), logger)
}

// startMetricsServer starts the Prometheus metrics HTTP server on a separate port.
func startMetricsServer(cfg config.MetricsConfig, logger *observability.Logger) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","component":"metrics"}`)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	logger.Info("Starting metrics server", "addr", addr, "path", cfg.Path)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Metrics server failed", "error", err)
	}
}

func runHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler, logger *observability.Logger) {
	var tlsManager *tls.Manager
	if cfg.TLS.Enabled {
		var err error
		tlsManager, err = tls.NewManager(&cfg.TLS, logger)
		if err != nil {
			logger.Error("Failed to initialize TLS manager", "error", err)
			os.Exit(1)
		}
		if err := tlsManager.ValidateCertificates(); err != nil {
			logger.Error("Certificate validation failed", "error", err)
			os.Exit(1)
		}
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if tlsManager != nil {
		server.TLSConfig = tlsManager.GetTLSConfig()
		logger.Info("HTTPS server configured with TLS")

		httpsPort := cfg.Server.Port
		if httpsPort == 443 {
			httpsPort = 0
		}
		if err := tlsManager.StartHTTPRedirect(ctx, httpsPort); err != nil {
			logger.Error("Failed to start HTTP redirect server", "error", err)
			os.Exit(1)
		}
	}

	go func() {
		scheme := "http"
		if tlsManager != nil {
			scheme = "https"
		}
		logger.Info("Server starting",
			"scheme", scheme,
			"addr", addr,
			"health_endpoint", fmt.Sprintf("%s://%s/healthz", scheme, addr),
		)

		var err error
		if tlsManager != nil {
			if cfg.TLS.AutoCert {
				err = server.ListenAndServeTLS("", "")
			} else {
				err = server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
			}
		} else {
			err = server.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
}

func toCORSConfig(c config.CORSConfig) middleware.CORSConfig {
	return middleware.CORSConfig{
		Enabled:          c.Enabled,
		AllowedOrigins:   c.AllowedOrigins,
		AllowedMethods:   c.AllowedMethods,
		AllowedHeaders:   c.AllowedHeaders,
		ExposedHeaders:   c.ExposedHeaders,
		AllowCredentials: c.AllowCredentials,
		MaxAge:           c.MaxAge,
	}
}

func toSecurityConfig(c config.SecurityConfig) middleware.SecurityConfig {
	return middleware.SecurityConfig{
		CSP: middleware.CSPConfig{
			Enabled: c.CSP.Enabled,
			Default: c.CSP.Default,
			Script:  c.CSP.Script,
			Style:   c.CSP.Style,
			Image:   c.CSP.Image,
			Font:    c.CSP.Font,
			Connect: c.CSP.Connect,
			Media:   c.CSP.Media,
			Object:  c.CSP.Object,
			Frame:   c.CSP.Frame,
			Report:  c.CSP.Report,
		},
		HSTS: middleware.HSTSConfig{
			Enabled:           c.HSTS.Enabled,
			MaxAge:            c.HSTS.MaxAge,
			IncludeSubdomains: c.HSTS.IncludeSubdomains,
			Preload:           c.HSTS.Preload,
		},
		XFrameOptions:        c.XFrameOptions,
		XContentTypeOptions:  c.XContentTypeOptions,
		ReferrerPolicy:       c.ReferrerPolicy,
		PermissionsPolicy:    c.PermissionsPolicy,
	}
}

func toRateLimitConfig(c config.RateLimitConfig) ratelimit.Config {
	toLimit := func(r config.RateLimitRuleConfig) ratelimit.LimitConfig {
		return ratelimit.LimitConfig{Requests: r.Requests, Window: r.Window}
	}
	return ratelimit.Config{
		Enabled:   c.Enabled,
		Algorithm: ratelimit.Algorithm(c.Algorithm),
		Redis: ratelimit.RedisConfig{
			Enabled:   c.Redis.Enabled,
			Addr:      c.Redis.Addr,
			Password:  c.Redis.Password,
			DB:        c.Redis.DB,
			KeyPrefix: c.Redis.KeyPrefix,
		},
		Default:         toLimit(c.Default),
		Health:          toLimit(c.Health),
		Webhook:         toLimit(c.Webhook),
		Auth:            toLimit(c.Auth),
		BurstMultiplier: c.BurstMultiplier,
		CleanupInterval: c.CleanupInterval,
	}
}
