// Copyright (c) rerankbridge Authors.
// Licensed under the MIT License.

/*
包 rerank 把插件宿主的重排序调用转发给外部托管的重排序 HTTP 服务，
并将结果规范化为宿主期望的结构。

# 概述

本包不包含任何排序模型或打分逻辑，所有相关性分数都由远端服务计算。
本包只负责两件事：在两种字段命名不同的 API 形态之间转换请求/响应，
以及把传输层失败映射为宿主可识别的错误类型。

# 核心组件

  - BuildRequest：纯函数，校验查询与文档并生成 Payload，
    top_k 会被裁剪到文档数量以内；字段名由 InputFormat 决定
    （"documents" 或 "passages"，auto 固定为 "passages"）。
  - Normalize / NormalizeResponse：纯函数，按远端返回顺序还原文本、
    读取 score 或 relevance_score、先按 score_threshold 过滤再按 top_n 截断。
  - MapHTTPError / MapTransportError：表驱动的错误映射，
    401、429、5xx、其他 4xx、连接失败、超时、其他异常各对应一种错误码。
  - Client：单次同步调用，不重试、不缓存，可被并发使用。
  - Invoke：宿主入口，解析松散类型的配置并按 OutputFormat 输出。
  - Provider / NewModelSchema / LegacyRegistration：供宿主消费的静态描述。
*/
package rerank
