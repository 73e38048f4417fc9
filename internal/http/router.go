// Package httpapi wires the HTTP transport (Gin) to the matching engine's
// services, middleware, and route handlers. It centralizes cross-cutting
// concerns such as tracing, correlation IDs, logging/redaction, panic
// recovery, metrics, compression, CORS, security headers, idempotency, and
// rate limiting.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-bloodlink-backend/docs"
	"github.com/tbourn/go-bloodlink-backend/internal/config"
	"github.com/tbourn/go-bloodlink-backend/internal/geo"
	"github.com/tbourn/go-bloodlink-backend/internal/http/handlers"
	"github.com/tbourn/go-bloodlink-backend/internal/http/middleware"
	"github.com/tbourn/go-bloodlink-backend/internal/matching"
	"github.com/tbourn/go-bloodlink-backend/internal/push"
	"github.com/tbourn/go-bloodlink-backend/internal/realtime"
	"github.com/tbourn/go-bloodlink-backend/internal/repo"
	"github.com/tbourn/go-bloodlink-backend/internal/services"
)

// idempotencyStore adapts the repository free functions to the
// middleware.IdempotencyStore interface.
type idempotencyStore struct {
	db  *gorm.DB
	ttl time.Duration
}

// Lookup proxies repo.GetIdempotency; a miss is (nil, nil).
func (s idempotencyStore) Lookup(ctx context.Context, actor, scope, key string, now time.Time) (*middleware.StoredResponse, error) {
	rec, err := repo.GetIdempotency(ctx, s.db, actor, scope, key, now)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &middleware.StoredResponse{Status: rec.Status, Body: rec.Body}, nil
}

// Save proxies repo.CreateIdempotency. A concurrent retry that stored the
// same key first wins.
func (s idempotencyStore) Save(ctx context.Context, actor, scope, key string, status int, body []byte) error {
	_, err := repo.CreateIdempotency(ctx, s.db, actor, scope, key, status, body, s.ttl)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}

// Services builds the engine services from cfg. hub and surface may be nil.
func Services(db *gorm.DB, hub *realtime.Hub, surface push.Surface, cfg config.Config) handlers.Deps {
	var (
		pub services.Publisher
		eh  handlers.EventHub
	)
	if hub != nil {
		pub, eh = hub, hub
	}
	mode, ok := geo.ParseTravelMode(cfg.Match.TravelMode)
	if !ok {
		mode = geo.Driving
	}

	return handlers.Deps{
		Donors: &services.DonorService{DB: db, DefaultRadiusKm: cfg.Match.DefaultRadiusKm},
		Requests: &services.RequestService{
			DB:          db,
			Hub:         pub,
			MaxRadiusKm: cfg.Match.MaxRadiusKm,
		},
		Matcher: &services.MatchService{
			DB: db,
			Rules: matching.Rules{
				DonationCooldownDays:  cfg.Match.DonationCooldownDays,
				EmergencyCooldownDays: cfg.Match.EmergencyCooldownDays,
			},
			TravelMode:    mode,
			MaxRadiusKm:   cfg.Match.MaxRadiusKm,
			MaxCandidates: cfg.Match.MaxCandidates,
		},
		Dispatch: &services.Dispatcher{
			DB:          db,
			Push:        surface,
			Hub:         pub,
			Concurrency: cfg.Dispatch.Concurrency,
			TravelMode:  mode,
			Locale:      language.English,
			Log:         log.With().Str("component", "dispatcher").Logger(),
		},
		Responses: &services.ResponseTracker{
			DB:     db,
			Hub:    pub,
			UnitMl: cfg.Dispatch.DonationUnitMl,
		},
		Hub: eh,
		Stats: func(ctx context.Context, requestID string) (int64, *time.Time, error) {
			return repo.ResponsesStats(ctx, db, requestID)
		},
	}
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID + Actor: correlation id and caller identity
//  3. RedactingLogger: structured logs with location/PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Compression (event streams excluded)
//  8. Idempotency (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per actor/IP, bypass on replay)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, hub *realtime.Hub, surface push.Surface, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	eventsBase := joinPath(apiBase, "/events")

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID(), middleware.Actor())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
		SkipPaths:   []string{"/health", "/metrics"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics(middleware.MetricsOptions{StreamPrefixes: []string{eventsBase}}))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Compression; streams must flush frame by frame
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{eventsBase, "/metrics"})))

	// 8) Idempotency replay/record for POSTs carrying Idempotency-Key
	r.Use(middleware.Idempotency(
		middleware.IdempotencyOptions{MaxLen: 200},
		idempotencyStore{db: db, ttl: cfg.IdempotencyTTL},
	))

	// 9) Token-bucket rate limiter per actor/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByActorOrIP())
	r.Use(rl.Handler())

	// 10) CORS posture (safe defaults: allow all if none configured)
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match", middleware.ActorHeader, middleware.HeaderIdempotencyKey}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "ETag", "Retry-After", middleware.HeaderIdempotentReplay}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(Services(db, hub, surface, cfg))

	api := groupWithPrefix(r, apiBase)
	{
		// Donor profiles carry health data.
		donors := api.Group("/donors", middleware.NoStore())
		donors.POST("", h.RegisterDonor)
		donors.GET("/:id", h.GetDonor)

		// Requests
		api.POST("/requests", h.CreateRequest)
		api.GET("/requests/:id", h.GetRequest)
		api.POST("/requests/:id/cancel", h.CancelRequest)

		// Matching + dispatch
		api.GET("/requests/:id/matches", middleware.NoStore(), h.FindMatches)
		api.POST("/requests/:id/dispatch", h.DispatchNotifications)

		// Responses
		api.GET("/requests/:id/responses", h.ListResponses)
		api.POST("/requests/:id/responses", h.Respond)
		api.POST("/notifications/actions", h.NotificationAction)

		// Event streams
		api.GET("/events/donors/:id", h.DonorEvents)
		api.GET("/events/requesters/:id", h.RequesterEvents)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

func joinPath(base, p string) string {
	if base == "" || base == "/" {
		return p
	}
	return base + p
}
