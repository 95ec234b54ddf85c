package handlers

import (
	"net/http"
	"strings"

	"github.com/BaSui01/rerankbridge/api"
	"github.com/BaSui01/rerankbridge/rerank"
	"go.uber.org/zap"
)

// =============================================================================
// 🏷️ 提供者描述 Handler
// =============================================================================

// ProviderHandler 提供者描述处理器，只返回静态描述数据
type ProviderHandler struct {
	creds  *CredentialsStore
	logger *zap.Logger
}

// NewProviderHandler 创建提供者描述处理器
func NewProviderHandler(creds *CredentialsStore, logger *zap.Logger) *ProviderHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProviderHandler{creds: creds, logger: logger}
}

// HandleProvider 返回提供者描述与模型列表
// @Summary 提供者描述
// @Description 返回提供者描述、模型列表与旧版注册信息
// @Tags 提供者
// @Produce json
// @Success 200 {object} api.ProviderResponse "提供者描述"
// @Security ApiKeyAuth
// @Router /api/v1/provider [get]
func (h *ProviderHandler) HandleProvider(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, h.logger) {
		return
	}

	p := rerank.Provider()
	WriteSuccess(w, api.ProviderResponse{
		Provider:     p,
		Models:       p.Models(),
		Registration: rerank.LegacyRegistration(),
	})
}

// HandleModelSchema 返回可自定义模型的 schema，context_size 取自默认凭据
// @Summary 模型 schema
// @Description 根据默认凭据生成可自定义重排序模型的实体描述
// @Tags 提供者
// @Produce json
// @Param model query string false "型号名称，缺省为 BAAI/bge-reranker-v2-m3"
// @Success 200 {object} rerank.ModelSchema "模型 schema"
// @Security ApiKeyAuth
// @Router /api/v1/models/schema [get]
func (h *ProviderHandler) HandleModelSchema(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, h.logger) {
		return
	}

	model := strings.TrimSpace(r.URL.Query().Get("model"))
	if model == "" {
		model = rerank.ModelName
	}
	WriteSuccess(w, rerank.NewModelSchema(model, h.creds.Load()))
}
