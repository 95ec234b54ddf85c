package handlers

import (
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/BaSui01/rerankbridge/api"
	"github.com/BaSui01/rerankbridge/rerank"
	"github.com/BaSui01/rerankbridge/types"
	"go.uber.org/zap"
)

// =============================================================================
// 🔐 默认凭据存储
// =============================================================================

// CredentialsStore 保存服务级默认凭据，配置热更新时整体替换
type CredentialsStore struct {
	v atomic.Pointer[rerank.Credentials]
}

// NewCredentialsStore 创建凭据存储
func NewCredentialsStore(initial rerank.Credentials) *CredentialsStore {
	s := &CredentialsStore{}
	s.Store(initial)
	return s
}

// Load 返回当前默认凭据
func (s *CredentialsStore) Load() rerank.Credentials {
	return *s.v.Load()
}

// Store 替换默认凭据
func (s *CredentialsStore) Store(creds rerank.Credentials) {
	s.v.Store(&creds)
}

// =============================================================================
// 🔀 重排序 Handler
// =============================================================================

// RerankHandler 重排序接口处理器
type RerankHandler struct {
	creds  *CredentialsStore
	opts   []rerank.Option
	logger *zap.Logger
}

// NewRerankHandler 创建重排序处理器。opts 透传给每次调用创建的 rerank.Client。
func NewRerankHandler(creds *CredentialsStore, logger *zap.Logger, opts ...rerank.Option) *RerankHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "rerank_handler"))
	return &RerankHandler{
		creds:  creds,
		opts:   append([]rerank.Option{rerank.WithLogger(logger)}, opts...),
		logger: logger,
	}
}

// HandleRerank 处理重排序请求
// @Summary 文档重排序
// @Description 调用远端 BGE 重排序服务，按相关性返回候选文档
// @Tags 重排序
// @Accept json
// @Produce json
// @Param request body api.RerankRequest true "重排序请求"
// @Success 200 {object} api.RerankResponse "重排序结果"
// @Failure 400 {object} Response "无效请求"
// @Failure 401 {object} Response "远端鉴权失败"
// @Failure 429 {object} Response "远端限流"
// @Failure 502 {object} Response "远端连接失败"
// @Failure 503 {object} Response "远端不可用"
// @Failure 504 {object} Response "远端超时"
// @Security ApiKeyAuth
// @Router /api/v1/rerank [post]
func (h *RerankHandler) HandleRerank(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost, h.logger) {
		return
	}

	// 验证 Content-Type
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	// 解码请求
	var req api.RerankRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	// 验证请求
	docs, err := h.validateRerankRequest(&req)
	if err != nil {
		WriteDomainError(w, err, h.logger)
		return
	}

	model := req.Model
	if model == "" {
		model = rerank.ModelName
	}

	// 调用远端服务
	start := time.Now()
	results, err := rerank.Invoke(r.Context(), rerank.Invocation{
		Query:          req.Query,
		Documents:      docs,
		Config:         req.Config,
		Model:          model,
		User:           req.User,
		ScoreThreshold: req.ScoreThreshold,
		TopN:           req.TopN,
	}, h.creds.Load(), h.opts...)
	duration := time.Since(start)

	if err != nil {
		WriteDomainError(w, err, h.logger)
		return
	}

	h.logger.Info("rerank",
		zap.String("model", model),
		zap.Int("documents", len(docs)),
		zap.Int("results", len(results)),
		zap.Duration("duration", duration),
	)

	WriteSuccess(w, api.RerankResponse{
		Model:   model,
		Results: results,
	})
}

func (h *RerankHandler) validateRerankRequest(req *api.RerankRequest) ([]string, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, types.NewError(types.ErrValidation, "query cannot be empty")
	}
	return rerank.ParseDocuments(req.Documents)
}

// HandleRemoteHealth 返回远端服务 /health 的响应体
// @Summary 远端服务健康
// @Description 透传远端重排序服务的健康信息，失败时返回 status=error
// @Tags 重排序
// @Produce json
// @Success 200 {object} map[string]any "远端健康信息"
// @Failure 503 {object} map[string]any "远端不可用"
// @Security ApiKeyAuth
// @Router /api/v1/reranker/health [get]
func (h *RerankHandler) HandleRemoteHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, h.logger) {
		return
	}

	body := rerank.NewClient(h.creds.Load(), h.opts...).HealthCheck(r.Context())
	if status, _ := body["status"].(string); status == "error" {
		WriteJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	WriteJSON(w, http.StatusOK, body)
}

// HandleValidateCredentials 处理凭据校验请求。
// 校验失败不是请求错误：以 200 返回 valid=false 与原因。
// @Summary 凭据校验
// @Description 校验宿主提交的凭据，访问远端 /health 并要求返回 200
// @Tags 重排序
// @Accept json
// @Produce json
// @Param request body api.ValidateCredentialsRequest true "凭据"
// @Success 200 {object} api.ValidateCredentialsResponse "校验结果"
// @Failure 400 {object} Response "无效请求"
// @Security ApiKeyAuth
// @Router /api/v1/credentials/validate [post]
func (h *RerankHandler) HandleValidateCredentials(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost, h.logger) {
		return
	}
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.ValidateCredentialsRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	var err error
	if req.Model != "" {
		err = h.validateModelCredentials(r, req.Credentials)
	} else {
		err = rerank.ValidateProviderCredentials(r.Context(), req.Credentials, h.opts...)
	}

	resp := api.ValidateCredentialsResponse{Valid: err == nil}
	if err != nil {
		resp.Error = err.Error()
		if apiErr, ok := types.AsError(err); ok {
			resp.Error = apiErr.Message
		}
		h.logger.Info("credentials rejected",
			zap.String("model", req.Model),
			zap.String("code", string(types.GetErrorCode(err))),
		)
	}
	WriteSuccess(w, resp)
}

func (h *RerankHandler) validateModelCredentials(r *http.Request, raw map[string]any) error {
	creds, err := rerank.ParseCredentialsWithBase(raw, h.creds.Load(), h.logger)
	if err != nil {
		return err
	}
	return rerank.NewClient(creds, h.opts...).CheckCredentials(r.Context())
}
