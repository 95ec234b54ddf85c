// =============================================================================
// rerankbridge 主入口
// =============================================================================
// 完整服务入口点，包含 HTTP 服务、健康检查、Prometheus 指标
//
// 使用方法:
//
//	rerankbridge serve                          # 启动服务
//	rerankbridge serve --config config.yaml     # 指定配置文件
//	rerankbridge rerank -q "query" -d a -d b    # 单次重排序
//	rerankbridge validate --api-url http://...  # 校验远端服务
//	rerankbridge health                         # 健康检查
//	rerankbridge version                        # 显示版本信息
// =============================================================================

// @title rerankbridge API
// @version 1.0.0
// @description rerankbridge adapts a remote BGE reranking service (BAAI/bge-reranker-v2-m3) for a plugin host.
// @description
// @description ## Features
// @description - Rerank candidate documents with score threshold and top_n
// @description - Credential validation against the remote /health endpoint
// @description - Provider descriptors and customizable model schema
// @description - Health monitoring and metrics

// @contact.name rerankbridge Team
// @contact.url https://github.com/BaSui01/rerankbridge

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description API key for authentication

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/rerankbridge/config"
	"github.com/BaSui01/rerankbridge/internal/telemetry"
	"github.com/BaSui01/rerankbridge/internal/tlsutil"
	"github.com/BaSui01/rerankbridge/rerank"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd 构建根命令及全部子命令
func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "rerankbridge",
		Short: "Bridge a plugin host to a remote BGE reranking service",
		Long: `rerankbridge exposes a remote BGE reranking service (BAAI/bge-reranker-v2-m3)
to a plugin host over HTTP. It validates credentials, forwards rerank requests
and normalizes the results.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (YAML)")

	root.AddCommand(
		newServeCmd(&configPath),
		newRerankCmd(&configPath),
		newValidateCmd(&configPath),
		newHealthCmd(),
		newVersionCmd(),
	)
	return root
}

// =============================================================================
// 🖥️ serve 命令
// =============================================================================

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the rerankbridge server",
		Long: `Start the API server and the metrics server.

When --config is given the file is watched and reranker defaults are
reloaded without a restart.

Examples:
  rerankbridge serve
  rerankbridge serve --config /etc/rerankbridge/config.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			logger := initLogger(cfg.Log)
			defer func() { _ = logger.Sync() }()

			logger.Info("starting rerankbridge",
				zap.String("version", Version),
				zap.String("build_time", BuildTime),
				zap.String("git_commit", GitCommit),
			)

			otelProviders, err := telemetry.Init(cfg.Telemetry, Version, logger)
			if err != nil {
				logger.Warn("failed to initialize telemetry", zap.Error(err))
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := otelProviders.Shutdown(ctx); err != nil {
					logger.Warn("telemetry shutdown error", zap.Error(err))
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := NewServer(cfg, loader, otelProviders.Tracer(), logger)
			if err := srv.Run(ctx); err != nil {
				return err
			}
			logger.Info("rerankbridge stopped")
			return nil
		},
	}
}

// =============================================================================
// 🔀 rerank 命令
// =============================================================================

func newRerankCmd(configPath *string) *cobra.Command {
	var (
		query     string
		docs      []string
		docsFile  string
		topN      int
		threshold float64
		model     string
		apiURL    string
	)

	cmd := &cobra.Command{
		Use:   "rerank",
		Short: "Rerank documents once against the configured service",
		Long: `Send a single rerank request and print the results as JSON.

Documents come from repeated --doc flags or from --docs-file, a JSON array
of strings ("-" reads stdin).

Examples:
  rerankbridge rerank -q "what is a panda?" -d "pandas are bears" -d "the sky is blue"
  rerankbridge rerank -q "query" --docs-file docs.json --top-n 3 --threshold 0.2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			if docsFile != "" {
				fromFile, err := readDocuments(cmd.InOrStdin(), docsFile)
				if err != nil {
					return err
				}
				docs = append(docs, fromFile...)
			}

			inv := rerank.Invocation{
				Query:     query,
				Documents: docs,
				Model:     model,
			}
			if apiURL != "" {
				inv.Config = map[string]any{"api_url": apiURL}
			}
			if cmd.Flags().Changed("top-n") {
				inv.TopN = &topN
			}
			if cmd.Flags().Changed("threshold") {
				inv.ScoreThreshold = &threshold
			}

			logger := initLogger(config.LogConfig{Level: "warn", Format: "console", OutputPaths: []string{"stderr"}})
			defer func() { _ = logger.Sync() }()

			results, err := rerank.Invoke(cmd.Context(), inv, cfg.Reranker, rerank.WithLogger(logger))
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Query text")
	cmd.Flags().StringArrayVarP(&docs, "doc", "d", nil, "Candidate document (repeatable)")
	cmd.Flags().StringVar(&docsFile, "docs-file", "", "JSON array of documents (- for stdin)")
	cmd.Flags().IntVar(&topN, "top-n", 0, "Maximum number of results after filtering")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Drop results scoring below this value")
	cmd.Flags().StringVar(&model, "model", "", "Model name reported with the results")
	cmd.Flags().StringVar(&apiURL, "api-url", "", "Override reranker.api_url")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

func readDocuments(stdin io.Reader, path string) ([]string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}
	return rerank.ParseDocuments(data)
}

// =============================================================================
// ✅ validate 命令
// =============================================================================

func newValidateCmd(configPath *string) *cobra.Command {
	var apiURL string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate reranker credentials against the remote /health endpoint",
		Long: `Probe <api_url>/health and succeed only on HTTP 200.

Without --api-url the configured reranker.api_url is used.

Examples:
  rerankbridge validate
  rerankbridge validate --api-url http://reranker:8009`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if apiURL == "" {
				_, cfg, err := loadConfig(*configPath)
				if err != nil {
					return err
				}
				apiURL = cfg.Reranker.APIURL
			}

			err := rerank.ValidateProviderCredentials(cmd.Context(), map[string]any{"api_url": apiURL})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "credentials valid: %s\n", strings.TrimRight(apiURL, "/"))
			return nil
		},
	}
	cmd.Flags().StringVar(&apiURL, "api-url", "", "Reranker base URL")
	return cmd
}

// =============================================================================
// 🏥 健康检查命令
// =============================================================================

func newHealthCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check rerankbridge server health",
		Long: `Check the health status of a running rerankbridge server.

Examples:
  rerankbridge health
  rerankbridge health --addr https://localhost:8443`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(addr, "/")+"/health", nil)
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			resp, err := tlsutil.NewHTTPClient().Do(req)
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			defer func() { _ = resp.Body.Close() }()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("health check failed: status %d", resp.StatusCode)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "http://localhost:8080", "Server address")
	return cmd
}

// =============================================================================
// 📋 版本
// =============================================================================

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "rerankbridge %s\n", Version)
			fmt.Fprintf(out, "  Build Time: %s\n", BuildTime)
			fmt.Fprintf(out, "  Git Commit: %s\n", GitCommit)
		},
	}
}

// =============================================================================
// 🔧 配置与日志初始化
// =============================================================================

// loadConfig 加载并校验配置
func loadConfig(path string) (*config.Loader, *config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return loader, cfg, nil
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	// 解析日志级别
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	// 配置编码器
	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       encoding == "console",
		Encoding:          encoding,
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}

	logger, err := zapConfig.Build()
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}
	return logger.With(zap.String("service", "rerankbridge"))
}
