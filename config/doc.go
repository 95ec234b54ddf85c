// Package config 提供 rerankbridge 服务的配置管理功能。
//
// 包含配置加载（默认值 → YAML → 环境变量）、配置校验，
// 以及基于文件轮询的重载监听，用于在运行时更新默认的重排序服务凭据。
package config
