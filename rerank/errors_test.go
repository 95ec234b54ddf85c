package rerank

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"testing"

	"github.com/BaSui01/rerankbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapHTTPError(t *testing.T) {
	tests := []struct {
		status    int
		wantCode  types.ErrorCode
		wantRetry bool
	}{
		{http.StatusUnauthorized, types.ErrInvokeAuthorization, false},
		{http.StatusTooManyRequests, types.ErrInvokeRateLimit, true},
		{http.StatusInternalServerError, types.ErrInvokeServerUnavailable, true},
		{http.StatusBadGateway, types.ErrInvokeServerUnavailable, true},
		{http.StatusServiceUnavailable, types.ErrInvokeServerUnavailable, true},
		{599, types.ErrInvokeServerUnavailable, true},
		{http.StatusBadRequest, types.ErrInvokeBadRequest, false},
		{http.StatusForbidden, types.ErrInvokeBadRequest, false},
		{http.StatusNotFound, types.ErrInvokeBadRequest, false},
		{http.StatusUnprocessableEntity, types.ErrInvokeBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := MapHTTPError(tt.status, "detail")
			assert.Equal(t, tt.wantCode, err.Code)
			assert.Equal(t, tt.wantRetry, err.Retryable)
			assert.Equal(t, tt.status, err.HTTPStatus)
			assert.Equal(t, ProviderName, err.Provider)
			assert.Contains(t, err.Message, "detail")
		})
	}
}

func TestMapTransportError(t *testing.T) {
	refused := &url.Error{Op: "Post", URL: "http://x/rerank", Err: &net.OpError{
		Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED,
	}}
	timeout := &url.Error{Op: "Post", URL: "http://x/rerank", Err: context.DeadlineExceeded}

	tests := []struct {
		name        string
		err         error
		wantCode    types.ErrorCode
		wantTimeout bool
		wantMessage string
	}{
		{"connection refused", refused, types.ErrInvokeConnection, false, "Connection error occurred"},
		{"dns failure", &net.DNSError{Err: "no such host", Name: "nowhere"}, types.ErrInvokeConnection, false, "Connection error occurred"},
		{"deadline exceeded", timeout, types.ErrInvokeConnection, true, "Request timeout"},
		{"bare deadline", context.DeadlineExceeded, types.ErrInvokeConnection, true, "Request timeout"},
		{"unexpected", errors.New("boom"), types.ErrInvoke, false, "Unexpected error: boom"},
		{"canceled", context.Canceled, types.ErrInvoke, false, "Unexpected error: context canceled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapTransportError(tt.err)
			require.NotNil(t, err)
			assert.Equal(t, tt.wantCode, err.Code)
			assert.Equal(t, tt.wantTimeout, err.Timeout)
			assert.Equal(t, tt.wantMessage, err.Message)
			assert.True(t, errors.Is(err, tt.err))
		})
	}
}

func TestMapTransportError_PassesDomainErrorsThrough(t *testing.T) {
	domain := types.NewError(types.ErrValidation, "query cannot be empty")
	assert.Same(t, domain, MapTransportError(domain))
	assert.Nil(t, MapTransportError(nil))
}

func TestMapError(t *testing.T) {
	assert.Nil(t, MapError(http.StatusOK, nil))
	assert.Equal(t, types.ErrInvokeRateLimit, MapError(http.StatusTooManyRequests, nil).Code)
	assert.Equal(t, types.ErrInvokeServerUnavailable, MapError(http.StatusServiceUnavailable, nil).Code)
	assert.Equal(t, types.ErrInvokeConnection, MapError(0, context.DeadlineExceeded).Code)
}

func TestReadErrorMessage(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"detail":"model not loaded"}`, "model not loaded"},
		{`{"error":"bad input"}`, "bad input"},
		{`{"error":{"message":"quota exceeded"}}`, "quota exceeded"},
		{`{"message":"overloaded"}`, "overloaded"},
		{`{"detail":[{"loc":["body","query"]}]}`, `[{"loc":["body","query"]}]`},
		{"  plain text \n", "plain text"},
		{`{"other":"field"}`, `{"other":"field"}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ReadErrorMessage([]byte(tt.body)), tt.body)
	}
}
