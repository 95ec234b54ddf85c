package rerank

import (
	"encoding/json"

	"github.com/BaSui01/rerankbridge/types"
)

// Normalize decodes a raw response body and normalizes it. See
// NormalizeResponse.
func Normalize(raw []byte, documents []string, scoreThreshold *float64, topN *int) ([]Document, error) {
	resp, err := DecodeResponse(raw)
	if err != nil {
		return nil, err
	}
	return NormalizeResponse(resp, documents, scoreThreshold, topN), nil
}

// DecodeResponse parses a remote response body. A body that is not a JSON
// object with a results list is an invocation error.
func DecodeResponse(raw []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, types.NewError(types.ErrInvoke, "Unexpected error: invalid rerank response").WithCause(err)
	}
	return resp, nil
}

// NormalizeResponse maps remote results to documents in the order the remote
// service returned them; it never re-sorts.
//
// Text comes from the item when present, else from documents[index], else
// is empty. Items scoring below scoreThreshold are dropped before the
// result is capped at topN.
func NormalizeResponse(resp Response, documents []string, scoreThreshold *float64, topN *int) []Document {
	out := make([]Document, 0, len(resp.Results))
	for _, item := range resp.Results {
		if scoreThreshold != nil && item.Score < *scoreThreshold {
			continue
		}
		out = append(out, Document{
			Index: item.Index,
			Text:  resolveText(item, documents),
			Score: item.Score,
		})
	}

	// top_n is a plain cap and is not re-clamped against len(documents).
	if topN != nil && *topN >= 0 && *topN < len(out) {
		out = out[:*topN]
	}
	return out
}

func resolveText(item ResultItem, documents []string) string {
	if item.Document != nil {
		return *item.Document
	}
	if item.Index >= 0 && item.Index < len(documents) {
		return documents[item.Index]
	}
	return ""
}
