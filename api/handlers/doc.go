// Copyright (c) rerankbridge Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 rerankbridge HTTP API 的请求处理器实现。

# 概述

handlers 包实现了所有 HTTP 端点的请求处理逻辑，
包括重排序、凭据校验、提供者描述、健康检查以及统一的响应/错误处理。
所有 Handler 均遵循标准 net/http 接口，通过 Swagger 注解生成 API 文档。

# 核心类型

  - RerankHandler    — 重排序与远端健康查询，默认凭据可在配置热更新时替换
  - ProviderHandler  — 提供者描述、模型列表与模型 schema
  - HealthHandler    — 服务健康检查（/health, /healthz, /ready）
  - CredentialsStore — 默认凭据的并发安全存储
  - Response         — 统一 JSON 响应结构（success + data + error + timestamp）
  - ErrorInfo        — 结构化错误信息，含 code、message、retryable、upstream_status
  - ResponseWriter   — 包装 http.ResponseWriter 以捕获状态码与响应大小
  - HealthCheck      — 可插拔健康检查接口（RerankerHealthCheck 等）

# 主要能力

  - 统一响应格式：WriteSuccess / WriteError / WriteJSON 辅助函数
  - 请求验证：DecodeJSONBody（严格模式 + 请求体上限）、ValidateContentType、RequireMethod
  - ErrorCode → HTTP 状态码映射，调用类错误的上游状态码以 upstream_status 透出
  - 可扩展健康检查：RegisterCheck 注册自定义 HealthCheck 实现
*/
package handlers
