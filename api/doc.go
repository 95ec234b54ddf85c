// Package api holds the request and response shapes of the rerankbridge HTTP
// API.
//
// # API Overview
//
// rerankbridge exposes a remote BGE reranking service to a plugin host:
//   - POST /api/v1/rerank: rerank candidate documents against a query
//   - POST /api/v1/credentials/validate: check host-supplied credentials
//   - GET /api/v1/provider: provider descriptor and model list
//   - GET /api/v1/models/schema: customizable model schema
//   - GET /api/v1/reranker/health: remote service health body
//   - Health monitoring (/health, /healthz, /ready, /version) and metrics
//
// # Authentication
//
// When API keys are configured, API endpoints require the X-API-Key header:
//
//	X-API-Key: your-api-key
//
// A JWT bearer token may be used instead when auth.jwt.secret is set.
//
// # Base URL
//
// The default base URL for the API is:
//
//	http://localhost:8080
package api
