// Copyright (c) rerankbridge Authors.
// Licensed under the MIT License.

/*
Package types 提供 rerankbridge 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包。rerank、api、cmd 等上层
模块通过它共享统一的错误码与上下文键。

# 核心类型

  - Error / ErrorCode — 结构化错误体系，含 HTTP 状态码、Retryable、Timeout、Provider 标记
  - 调用错误码：VALIDATION_ERROR、INVOKE_AUTHORIZATION、INVOKE_RATE_LIMIT、
    INVOKE_SERVER_UNAVAILABLE、INVOKE_BAD_REQUEST、INVOKE_CONNECTION、INVOKE_ERROR、
    CREDENTIALS_VALIDATE_FAILED

# 主要能力

  - Context 传播：WithRequestID / WithUserID
  - 错误检查：AsError / GetErrorCode / IsRetryable / IsTimeout / IsCode
*/
package types
