// Copyright (c) rerankbridge Authors.
// Licensed under the MIT License.

/*
Package main 提供 rerankbridge 服务端程序入口。

# 概述

cmd/rerankbridge 是 rerankbridge 的可执行入口，基于 cobra 提供 HTTP API 服务、
单次重排序、凭据校验、健康检查和版本查询等子命令。程序支持 YAML 配置文件
加载、结构化日志（zap）、Prometheus 指标采集、OpenTelemetry 追踪以及
reranker 默认凭据的热重载。

# 核心类型

  - Server      — 主服务器，管理 API、Metrics 双端口及优雅关闭
  - Middleware  — HTTP 中间件函数签名 func(http.Handler) http.Handler

# 主要能力

  - 子命令：serve、rerank、validate、health、version
  - 中间件链：Recovery、RequestID、SecurityHeaders、OTelTracing、
    RequestLogger、Metrics、CORS、BodyLimit、RateLimiter（基于 IP）、
    APIKeyAuth（X-API-Key / query 参数）、JWTAuth（HS256 Bearer）
  - 配置热重载：config.Watcher 监听文件变更，替换 reranker 默认凭据
  - Metrics 服务器：独立端口暴露 /metrics（Prometheus）
  - 优雅关闭：信号监听 → 取消 errgroup 上下文 → 关闭 API 与 Metrics → Wait
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
