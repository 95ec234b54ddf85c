// =============================================================================
// 📦 rerankbridge 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import (
	"time"

	"github.com/BaSui01/rerankbridge/rerank"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Reranker:  rerank.DefaultCredentials(),
		Auth:      DefaultAuthConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    5*time.Minute + 10*time.Second, // 覆盖最大的 reranker.timeout
		ShutdownTimeout: 15 * time.Second,
		MaxBodyBytes:    10 << 20,
		RateLimitRPS:    100,
		RateLimitBurst:  200,
	}
}

// DefaultAuthConfig 返回默认认证配置（不启用认证）
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "rerankbridge",
		SampleRate:   0.1,
	}
}
