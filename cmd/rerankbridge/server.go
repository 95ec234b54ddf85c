package main

import (
	"context"
	"fmt"
	"net/http"
	"reflect"

	"github.com/BaSui01/rerankbridge/api/handlers"
	"github.com/BaSui01/rerankbridge/config"
	"github.com/BaSui01/rerankbridge/internal/metrics"
	"github.com/BaSui01/rerankbridge/internal/server"
	"github.com/BaSui01/rerankbridge/internal/telemetry"
	"github.com/BaSui01/rerankbridge/internal/tlsutil"
	"github.com/BaSui01/rerankbridge/rerank"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// metricsNamespace Prometheus 指标命名空间
const metricsNamespace = "rerankbridge"

// skipAuthPaths 不需要认证的路径
var skipAuthPaths = []string{"/health", "/healthz", "/ready", "/readyz", "/version"}

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 rerankbridge 的主服务器：API 与 Metrics 双端口、配置热重载、遥测
type Server struct {
	cfg    *config.Config
	loader *config.Loader
	logger *zap.Logger

	// 指标与追踪
	registry  *prometheus.Registry
	collector *metrics.Collector
	tracer    trace.Tracer

	// 服务级默认凭据，热重载时替换
	creds *handlers.CredentialsStore

	// Handlers
	healthHandler   *handlers.HealthHandler
	rerankHandler   *handlers.RerankHandler
	providerHandler *handlers.ProviderHandler
}

// NewServer 创建服务器实例。tracer 为 nil 时使用全局 tracer。
func NewServer(cfg *config.Config, loader *config.Loader, tracer trace.Tracer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tracer == nil {
		tracer = otel.Tracer(telemetry.InstrumentationName)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		cfg:       cfg,
		loader:    loader,
		logger:    logger,
		registry:  registry,
		collector: metrics.NewCollectorWithRegistry(metricsNamespace, registry, logger),
		tracer:    tracer,
		creds:     handlers.NewCredentialsStore(cfg.Reranker),
	}
	s.initHandlers()
	return s
}

// initHandlers 初始化所有 handlers
func (s *Server) initHandlers() {
	opts := []rerank.Option{
		rerank.WithObserver(s.collector),
		rerank.WithTracer(s.tracer),
	}

	s.healthHandler = handlers.NewHealthHandler(s.logger)
	s.healthHandler.RegisterCheck(handlers.NewFuncHealthCheck("reranker_config", func(context.Context) error {
		return s.creds.Load().Validate()
	}))
	s.healthHandler.RegisterCheck(handlers.NewRerankerHealthCheck(s.creds.Load, opts...))
	s.rerankHandler = handlers.NewRerankHandler(s.creds, s.logger, opts...)
	s.providerHandler = handlers.NewProviderHandler(s.creds, s.logger)

	s.logger.Info("handlers initialized",
		zap.String("reranker_url", s.cfg.Reranker.APIURL),
		zap.Duration("reranker_timeout", s.cfg.Reranker.Timeout),
	)
}

// =============================================================================
// 🌐 路由与中间件
// =============================================================================

// apiHandler 构建 API 路由与中间件链。ctx 控制限流器的清理 goroutine。
func (s *Server) apiHandler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()

	// 健康检查端点
	mux.HandleFunc("/health", s.healthHandler.HandleHealth)
	mux.HandleFunc("/healthz", s.healthHandler.HandleHealthz)
	mux.HandleFunc("/ready", s.healthHandler.HandleReady)
	mux.HandleFunc("/readyz", s.healthHandler.HandleReady)
	mux.HandleFunc("/version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	// API 路由
	mux.HandleFunc("/api/v1/rerank", s.rerankHandler.HandleRerank)
	mux.HandleFunc("/api/v1/credentials/validate", s.rerankHandler.HandleValidateCredentials)
	mux.HandleFunc("/api/v1/reranker/health", s.rerankHandler.HandleRemoteHealth)
	mux.HandleFunc("/api/v1/provider", s.providerHandler.HandleProvider)
	mux.HandleFunc("/api/v1/models/schema", s.providerHandler.HandleModelSchema)

	// 中间件链（第一个位于最外层）
	chain := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		OTelTracing(s.tracer),
		RequestLogger(s.logger),
		MetricsMiddleware(s.collector),
		CORS(s.cfg.Server.CORSAllowedOrigins),
		BodyLimit(s.cfg.Server.MaxBodyBytes),
		RateLimiter(ctx, float64(s.cfg.Server.RateLimitRPS), s.cfg.Server.RateLimitBurst, s.logger),
	}
	if len(s.cfg.Auth.APIKeys) > 0 {
		chain = append(chain, APIKeyAuth(s.cfg.Auth.APIKeys, skipAuthPaths, s.cfg.Auth.AllowQueryAPIKey, s.logger))
	}
	if s.cfg.Auth.JWT.Enabled() {
		chain = append(chain, JWTAuth(s.cfg.Auth.JWT, skipAuthPaths, s.logger))
	}
	if len(s.cfg.Auth.APIKeys) == 0 && !s.cfg.Auth.JWT.Enabled() {
		s.logger.Warn("no API keys or JWT secret configured, API is unauthenticated")
	}

	return Chain(mux, chain...)
}

// metricsHandler 构建 Metrics 路由
func (s *Server) metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))
	return mux
}

// =============================================================================
// 🚀 运行与关闭
// =============================================================================

// Run 启动 API、Metrics 服务器与配置监听，阻塞直到 ctx 取消或任一服务失败。
// 返回前完成优雅关闭。
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	apiConfig := server.Config{
		Name:            "api",
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20, // 1 MB
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}
	if s.cfg.Server.TLSEnabled() {
		tlsConfig, err := tlsutil.ServerTLSConfig(s.cfg.Server.TLSCertFile, s.cfg.Server.TLSKeyFile)
		if err != nil {
			return fmt.Errorf("failed to load TLS config: %w", err)
		}
		apiConfig.TLS = tlsConfig
	}
	apiManager := server.NewManager(s.apiHandler(gctx), apiConfig, s.logger)

	metricsManager := server.NewManager(s.metricsHandler(), server.Config{
		Name:            "metrics",
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.ReadTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger)

	var watcher *config.Watcher
	if s.loader != nil && s.loader.ConfigPath() != "" {
		w, err := config.NewWatcher(s.loader, s.cfg, config.WithWatcherLogger(s.logger))
		if err != nil {
			return fmt.Errorf("failed to create config watcher: %w", err)
		}
		watcher = w
	}

	g.Go(func() error { return apiManager.Run(gctx) })
	g.Go(func() error { return metricsManager.Run(gctx) })

	if watcher != nil {
		watcher.OnReload(s.applyConfig)
		if err := watcher.Start(gctx); err != nil {
			s.logger.Error("config watcher not started", zap.Error(err))
		} else {
			g.Go(func() error {
				<-gctx.Done()
				return watcher.Stop()
			})
		}
	}

	s.logger.Info("all servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.Bool("tls", s.cfg.Server.TLSEnabled()),
		zap.Bool("hot_reload_enabled", watcher != nil),
	)

	err := g.Wait()
	if err != nil {
		s.logger.Error("server stopped with error", zap.Error(err))
		return err
	}
	s.logger.Info("graceful shutdown completed")
	return nil
}

// applyConfig 在配置热重载后生效。只有 reranker 默认凭据可在线替换，
// 其余段落的变更需要重启。
func (s *Server) applyConfig(oldCfg, newCfg *config.Config) {
	s.creds.Store(newCfg.Reranker)
	s.logger.Info("reranker defaults reloaded",
		zap.String("api_url", newCfg.Reranker.APIURL),
		zap.Duration("timeout", newCfg.Reranker.Timeout),
		zap.Int("top_k", newCfg.Reranker.TopK),
	)

	if !reflect.DeepEqual(oldCfg.Server, newCfg.Server) ||
		!reflect.DeepEqual(oldCfg.Auth, newCfg.Auth) ||
		!reflect.DeepEqual(oldCfg.Log, newCfg.Log) ||
		oldCfg.Telemetry != newCfg.Telemetry {
		s.logger.Warn("settings outside reranker changed; restart required to apply")
	}
}
