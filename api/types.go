package api

import (
	"encoding/json"

	"github.com/BaSui01/rerankbridge/rerank"
)

// =============================================================================
// 重排序类型
// =============================================================================

// RerankRequest 表示一次宿主重排序调用。
// @Description 重排序请求结构
type RerankRequest struct {
	// 查询文本
	Query string `json:"query" example:"what is a panda?"`
	// 候选文档，必须是非空字符串数组
	Documents json.RawMessage `json:"documents" swaggertype:"array,string"`
	// 宿主凭据覆盖项（api_url、timeout、top_k、input_format、output_format、score_threshold）
	Config map[string]any `json:"config,omitempty"`
	// 型号名称，缺省为 BAAI/bge-reranker-v2-m3
	Model string `json:"model,omitempty" example:"BAAI/bge-reranker-v2-m3"`
	// 分数阈值，低于该值的结果被丢弃
	ScoreThreshold *float64 `json:"score_threshold,omitempty" example:"0.5"`
	// 过滤后最多返回的结果数
	TopN *int `json:"top_n,omitempty" example:"3"`
	// 用户身份
	User string `json:"user,omitempty" example:"user-1"`
}

// RerankResponse 表示重排序结果。
// @Description 重排序响应结构
type RerankResponse struct {
	// 使用型号
	Model string `json:"model" example:"BAAI/bge-reranker-v2-m3"`
	// 按远端顺序返回的结果
	Results []rerank.HostDocument `json:"results"`
}

// =============================================================================
// 凭据校验类型
// =============================================================================

// ValidateCredentialsRequest 凭据校验请求
// @Description 凭据校验请求结构
type ValidateCredentialsRequest struct {
	// 宿主提交的凭据表单
	Credentials map[string]any `json:"credentials"`
	// 非空时按模型级规则校验（完整解析凭据），否则只校验 api_url
	Model string `json:"model,omitempty"`
}

// ValidateCredentialsResponse 凭据校验结果
// @Description 凭据校验响应结构
type ValidateCredentialsResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// =============================================================================
// 提供者描述类型
// =============================================================================

// ProviderResponse 提供者描述与模型列表
// @Description 提供者描述响应结构
type ProviderResponse struct {
	Provider     rerank.ProviderInfo `json:"provider"`
	Models       []rerank.ModelInfo  `json:"models"`
	Registration rerank.Registration `json:"registration"`
}
