package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/fidelia-cart/internal/cart"
	"github.com/noah-isme/fidelia-cart/internal/checkout"
	"github.com/noah-isme/fidelia-cart/internal/common"
	"github.com/noah-isme/fidelia-cart/internal/config"
	"github.com/noah-isme/fidelia-cart/internal/events"
	"github.com/noah-isme/fidelia-cart/internal/health"
	"github.com/noah-isme/fidelia-cart/internal/lock"
	"github.com/noah-isme/fidelia-cart/internal/obs"
	"github.com/noah-isme/fidelia-cart/internal/promo"
	"github.com/noah-isme/fidelia-cart/internal/ratelimit"
	"github.com/noah-isme/fidelia-cart/internal/resilience"
	"github.com/noah-isme/fidelia-cart/internal/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "fidelia")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", false)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "fidelia-cart",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0),
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	var redisClient *redis.Client
	var store cart.Store
	var cartLock lock.Locker
	switch cfg.CartStore {
	case config.StoreRedis:
		redisClient = newRedisClient(cfg.RedisURL, metricsEnabled, logger)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()
		store = cart.NewRedisStore(redisClient, cfg.CartTTL)
		cartLock = lock.Redis{R: redisClient, Logger: logger.With().Str("component", "cart_lock").Logger()}
	default:
		store = cart.NewMemoryStore(cfg.CartTTL)
	}
	logger.Info().Str("store", cfg.CartStore).Int("promos", cfg.Promos.Len()).Msg("cart store ready")

	cartSvc := &cart.Service{
		Store:  store,
		Promos: cfg.Promos,
		Fees:   cfg.Fees(),
		Logger: logger.With().Str("component", "cart").Logger(),
		Lock:   cartLock,
	}
	cartHandler := &cart.Handler{Svc: cartSvc, Currency: cfg.CurrencyCode}
	promoHandler := promo.Handler{Catalog: cfg.Promos}

	notifiers := []events.Notifier{events.LogNotifier{Logger: logger}}
	if redisClient != nil {
		notifiers = append(notifiers, events.Guarded{
			Notifier: events.RedisPublisher{Client: redisClient, Channel: cfg.EventsChannel},
			Breaker:  resilience.NewBreaker("events_redis", 5, 0.5, 30*time.Second).WithLogger(logger),
			Timeout:  envDurationMillis("EVENTS_PUBLISH_TIMEOUT_MS", 500),
		})
	}
	bus := &events.Bus{Notifiers: notifiers}

	checkoutSvc := &checkout.Service{
		Carts:    cartSvc,
		Currency: cfg.CurrencyCode,
		Events:   bus,
		Logger:   logger.With().Str("component", "checkout").Logger(),
	}
	checkoutHandler := &checkout.Handler{Svc: checkoutSvc}

	promoLimiter, err := ratelimit.New(cfg.PromoRateLimit, redisClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise promo rate limiter")
	}
	promoLimit := ratelimit.Handler{
		Limiter: promoLimiter,
		Key:     ratelimit.ClientKey,
		OnError: func(err error) { logger.Error().Err(err).Msg("promo rate limiter") },
	}
	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{
		Enable:     envBool("SECURITY_HEADERS_ENABLE", true),
		HSTSMaxAge: envInt("SECURITY_HSTS_MAX_AGE", 0),
		NoStore:    true,
	}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Idempotency-Key", "X-Device-ID"},
		ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:         300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", false) {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Probes:  map[string]health.Probe{"store": store.Ping},
		Timeout: envDurationMillis("HEALTH_READY_STORE_TIMEOUT_MS", 300),
		Logger:  logger,
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/promos", promoHandler.List)

		v.Route("/carts", func(c chi.Router) {
			c.Post("/", cartHandler.Create)
			c.Route("/{id}", func(one chi.Router) {
				one.Get("/", cartHandler.Get)
				one.Post("/items", cartHandler.AddItem)
				one.Patch("/items/{productId}", cartHandler.UpdateItem)
				one.Delete("/items/{productId}", cartHandler.RemoveItem)
				one.With(promoLimit.Middleware).Post("/promo", cartHandler.ApplyPromo)
				one.Delete("/promo", cartHandler.RemovePromo)
				one.Put("/tip", cartHandler.SetTip)
				one.Get("/quote", checkoutHandler.Quote)
				one.With(idem.Middleware).Post("/checkout", checkoutHandler.Checkout)
			})
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	<-ctx.Done()
	health.SetReady(false)
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), envDurationMillis("SHUTDOWN_TIMEOUT_MS", 10000))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
}

func newRedisClient(url string, metricsEnabled bool, logger zerolog.Logger) *redis.Client {
	opts, err := redis.ParseURL(url)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return client
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
