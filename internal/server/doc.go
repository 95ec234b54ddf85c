// Copyright (c) rerankbridge Authors.
// Licensed under the MIT License.

/*
包 server 提供 HTTP/HTTPS 服务器生命周期管理，支持非阻塞启动、
基于 context 的运行与优雅关闭。

# 概述

本包通过 Manager 封装 net/http.Server，统一管理监听、服务、
关闭与错误传播流程。cmd/rerankbridge 用它分别承载 API 与
/metrics 两个监听，并在 errgroup 中以 Run 驱动。

# 核心类型

  - Manager：持有 http.Server、net.Listener 与异步错误通道，
    提供 Start/Run/Shutdown 等生命周期方法。
  - Config：监听地址、读写超时、空闲超时、最大请求头、
    优雅关闭超时与可选的 TLS 配置（见 internal/tlsutil）。

# 主要能力

  - 非阻塞启动：Start 在后台 goroutine 中运行服务。
  - 阻塞运行：Run 在 ctx 取消时优雅关闭，服务异常时返回错误。
  - 错误传播：Errors() 返回异步错误通道。
  - 状态查询：IsRunning/Addr，Addr 在启动后返回实际绑定地址。
*/
package server
