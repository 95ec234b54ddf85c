// Copyright (c) rerankbridge Authors.
// Licensed under the MIT License.

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖入站 HTTP
请求与出站重排序调用两个维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制。所有指标按 namespace 隔离；测试可通过
NewCollectorWithRegistry 注入独立的 Registry。

# 主要能力

  - HTTP 指标：请求总数、请求耗时、请求/响应体大小，
    按 method/path/status 分组，状态码归类为 2xx/3xx/4xx/5xx。
  - 重排序指标：调用总数（按 model 与结果码）、耗时、
    每次调用的文档数与结果数分布。
  - 凭据校验指标：校验次数（valid/invalid）与耗时。

Collector 实现 rerank.Observer，可直接通过 rerank.WithObserver 注入客户端。
*/
package metrics
