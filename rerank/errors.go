package rerank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/BaSui01/rerankbridge/types"
)

// ProviderName identifies this provider in errors and metrics.
const ProviderName = "bge_reranker"

// MapHTTPError maps a non-success HTTP status from the remote service to an
// invocation error. Only 401 and 429 have dedicated kinds; every other 4xx
// is a bad request and everything from 500 up is server unavailability.
func MapHTTPError(status int, msg string) *types.Error {
	text := fmt.Sprintf("rerank service returned %d %s", status, http.StatusText(status))
	if msg != "" {
		text += ": " + msg
	}

	var e *types.Error
	switch {
	case status == http.StatusUnauthorized:
		e = types.NewError(types.ErrInvokeAuthorization, text)
	case status == http.StatusTooManyRequests:
		e = types.NewError(types.ErrInvokeRateLimit, text).WithRetryable(true)
	case status >= http.StatusInternalServerError:
		e = types.NewError(types.ErrInvokeServerUnavailable, text).WithRetryable(true)
	default:
		e = types.NewError(types.ErrInvokeBadRequest, text)
	}
	return e.WithHTTPStatus(status).WithProvider(ProviderName)
}

// MapTransportError maps a failure that produced no usable HTTP response.
// Timeouts and connection failures become connection errors; anything else
// is a generic invocation error carrying the original message.
func MapTransportError(err error) *types.Error {
	if err == nil {
		return nil
	}
	if e, ok := types.AsError(err); ok {
		return e
	}

	switch {
	case isTimeout(err):
		return types.NewError(types.ErrInvokeConnection, "Request timeout").
			WithCause(err).
			WithTimeout(true).
			WithRetryable(true).
			WithProvider(ProviderName)
	case isConnectionFailure(err):
		return types.NewError(types.ErrInvokeConnection, "Connection error occurred").
			WithCause(err).
			WithRetryable(true).
			WithProvider(ProviderName)
	default:
		return types.NewError(types.ErrInvoke, "Unexpected error: "+err.Error()).
			WithCause(err).
			WithProvider(ProviderName)
	}
}

// MapError is the full mapping table as a function of the transport outcome:
// a transport error wins, otherwise statuses from 400 up are mapped and
// anything below yields nil.
func MapError(status int, err error) *types.Error {
	if err != nil {
		return MapTransportError(err)
	}
	if status >= http.StatusBadRequest {
		return MapHTTPError(status, "")
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isConnectionFailure(err error) bool {
	var opErr *net.OpError
	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &opErr), errors.As(err, &dnsErr):
		return true
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET):
		return true
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return true
	}
	return false
}

// ReadErrorMessage extracts a readable message from an error response body.
// It understands {"detail": ...}, {"error": "..."} and
// {"error": {"message": ...}} and falls back to the raw text.
func ReadErrorMessage(data []byte) string {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(data, &body); err == nil {
		for _, key := range []string{"detail", "error", "message"} {
			if msg := rawMessageText(body[key]); msg != "" {
				return msg
			}
		}
	}
	return strings.TrimSpace(string(data))
}

func rawMessageText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	// FastAPI validation details are lists; keep them verbatim.
	if raw[0] == '[' {
		return string(raw)
	}
	return ""
}
