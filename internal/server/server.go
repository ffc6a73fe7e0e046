package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fleetsight/collector/internal/api"
	"github.com/fleetsight/collector/internal/api/middleware"
	"github.com/fleetsight/collector/internal/config"
	"github.com/fleetsight/collector/internal/forward"
	"github.com/fleetsight/collector/internal/logging"
	"github.com/fleetsight/collector/internal/monitoring"
	"github.com/fleetsight/collector/internal/resilience"
	"github.com/fleetsight/collector/internal/retry"
	"github.com/fleetsight/collector/internal/storage"
	"github.com/fleetsight/collector/internal/stream"
)

// Server wires storage, the forwarding pipeline, and the HTTP API together.
type Server struct {
	cfg        *config.Config
	log        *logging.Logger
	metrics    *monitoring.Metrics
	store      storage.Store
	breaker    *resilience.Breaker
	dispatcher *forward.Dispatcher
	probe      *forward.Probe
	hub        *stream.Hub
	router     *gin.Engine
	http       *http.Server

	stopBackground context.CancelFunc
}

// New builds a fully wired server from configuration.
func New(cfg *config.Config, log *logging.Logger) (*Server, error) {
	metrics := monitoring.NewMetrics()

	store, err := openStore(cfg, log)
	if err != nil {
		return nil, err
	}

	// The breaker reports every transition to the log and to Prometheus.
	breakerCfg := cfg.BreakerConfig()
	breakerCfg.OnStateChange = func(name string, from, to resilience.State) {
		log.Warn("circuit breaker state changed",
			zap.String("breaker", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()))
		metrics.SetBreakerState(name, int(to))
		metrics.IncBreakerTransition(name, to.String())
	}
	breaker := resilience.New("sink", breakerCfg)

	var sink *forward.Client
	var probe *forward.Probe
	if cfg.Sink.URL != "" {
		sink = forward.NewClient(cfg.Sink.URL, cfg.Sink.Timeout)
		probe = forward.NewProbe(cfg.Sink.URL, cfg.Sink.HealthInterval, log.Named("probe"))
		log.Info("sink forwarding enabled",
			zap.String("url", cfg.Sink.URL),
			zap.Int("max_attempts", cfg.Forward.MaxAttempts))
	} else {
		log.Info("no sink configured, forwarding disabled")
	}

	engine := retry.NewEngine(log.Named("retry"))
	forwarder := forward.NewForwarder(sink, breaker, engine, cfg.RetryPolicy(), metrics, log.Named("forward"))
	dispatcher := forward.NewDispatcher(forwarder, cfg.Forward.QueueSize, cfg.Forward.Workers, metrics, log.Named("forward"))

	hub := stream.NewHub(metrics, log.Named("stream"))

	router := newRouter(cfg, metrics)
	handlers := api.NewHandlers(store, dispatcher, hub, breaker, probe, metrics, log.Named("api"))
	handlers.Register(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	return &Server{
		cfg:        cfg,
		log:        log,
		metrics:    metrics,
		store:      store,
		breaker:    breaker,
		dispatcher: dispatcher,
		probe:      probe,
		hub:        hub,
		router:     router,
		http: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Router exposes the gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the background goroutines and serves HTTP until the listener
// is closed by Shutdown.
func (s *Server) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.stopBackground = cancel

	go s.hub.Run(ctx)
	if s.probe != nil {
		go s.probe.Run(ctx)
	}
	s.dispatcher.Start()

	s.log.Info("collector listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server in dependency order: first the listener, so no
// new records arrive, then the dispatcher so queued records drain, then the
// background goroutines and the store.
func (s *Server) Shutdown(ctx context.Context) error {
	var firstErr error

	if err := s.http.Shutdown(ctx); err != nil {
		s.log.Warn("http shutdown incomplete", zap.Error(err))
		firstErr = err
	}

	if err := s.dispatcher.Stop(ctx); err != nil && firstErr == nil {
		firstErr = err
	}

	if s.stopBackground != nil {
		s.stopBackground()
	}

	if err := s.store.Close(); err != nil {
		s.log.Warn("store close failed", zap.Error(err))
		if firstErr == nil {
			firstErr = err
		}
	}

	s.log.Info("collector stopped")
	return firstErr
}

func openStore(cfg *config.Config, log *logging.Logger) (storage.Store, error) {
	if cfg.Database.Path == "" {
		log.Info("using in-memory store")
		return storage.NewMemory(), nil
	}

	store, err := storage.OpenSQLite(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	log.Info("sqlite store ready", zap.String("path", cfg.Database.Path))
	return store, nil
}

func newRouter(cfg *config.Config, metrics *monitoring.Metrics) *gin.Engine {
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}
	router.Use(monitoring.Middleware(metrics))
	return router
}
