package rerank

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/BaSui01/rerankbridge/types"
)

// BuildRequest turns a rerank request into the remote payload. It performs no
// I/O.
//
// The requested size is req.TopK, else req.TopN, else creds.TopK, and is
// clamped to len(req.Documents) so the remote service never sees a top_k
// larger than the candidate list.
func BuildRequest(req Request, creds Credentials) (Payload, error) {
	if strings.TrimSpace(req.Query) == "" {
		return Payload{}, types.NewError(types.ErrValidation, "query cannot be empty")
	}
	if len(req.Documents) == 0 {
		return Payload{}, types.NewError(types.ErrValidation, "documents list cannot be empty")
	}
	if req.TopN != nil && *req.TopN < 0 {
		return Payload{}, types.NewError(types.ErrValidation, "top_n must not be negative")
	}

	topK := creds.TopK
	switch {
	case req.TopK != nil:
		if *req.TopK <= 0 {
			return Payload{}, types.NewError(types.ErrValidation, "top_k must be a positive integer")
		}
		topK = *req.TopK
	case req.TopN != nil && *req.TopN > 0:
		topK = *req.TopN
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > len(req.Documents) {
		topK = len(req.Documents)
	}

	return Payload{
		Query:     req.Query,
		Field:     creds.InputFormat.FieldName(),
		Documents: req.Documents,
		TopK:      topK,
	}, nil
}

// ParseDocuments decodes a JSON list of strings. Hosts that serialize the
// list into a string field are accepted too.
func ParseDocuments(data json.RawMessage) ([]string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, types.NewError(types.ErrValidation, "documents list cannot be empty")
	}
	if data[0] == '"' {
		var encoded string
		if err := json.Unmarshal(data, &encoded); err != nil {
			return nil, types.NewError(types.ErrValidation, "documents must be a list of strings").WithCause(err)
		}
		data = json.RawMessage(encoded)
	}
	var items []*string
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, types.NewError(types.ErrValidation, "documents must be a list of strings").WithCause(err)
	}
	if len(items) == 0 {
		return nil, types.NewError(types.ErrValidation, "documents list cannot be empty")
	}
	docs := make([]string, len(items))
	for i, item := range items {
		// A null element would otherwise decode as "".
		if item == nil {
			return nil, types.NewError(types.ErrValidation, "documents must be a list of strings")
		}
		docs[i] = *item
	}
	return docs, nil
}
