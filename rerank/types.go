package rerank

import (
	"bytes"
	"encoding/json"
)

// Request is a single rerank invocation.
type Request struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`

	// TopK is the number of results requested from the remote service.
	TopK *int `json:"top_k,omitempty"`
	// ScoreThreshold drops results scoring below it. Ties are kept.
	ScoreThreshold *float64 `json:"score_threshold,omitempty"`
	// TopN caps the filtered results after they are received.
	TopN *int `json:"top_n,omitempty"`

	Model string `json:"model,omitempty"`
	User  string `json:"user,omitempty"`
}

// Payload is the body POSTed to <api_url>/rerank. The candidate list is
// emitted under Field ("passages" or "documents").
type Payload struct {
	Query     string
	Field     string
	Documents []string
	TopK      int
}

// MarshalJSON implements json.Marshaler.
func (p Payload) MarshalJSON() ([]byte, error) {
	field := p.Field
	if field == "" {
		field = FieldPassages
	}
	docs := p.Documents
	if docs == nil {
		docs = []string{}
	}
	return json.Marshal(map[string]any{
		"query": p.Query,
		field:   docs,
		"top_k": p.TopK,
	})
}

// Response is the remote service's reply.
type Response struct {
	Results []ResultItem `json:"results"`
}

// ResultItem is one entry of Response.Results. Vendors disagree on field
// names, so decoding is lenient: Index defaults to -1, Document accepts a
// string or an object with a "text" field, and the score is read from
// "score" falling back to "relevance_score".
//
// Any other document value (number, array, bool) is treated as absent so the
// text is recovered from the input list; DocumentIgnored records that.
type ResultItem struct {
	Index           int
	Document        *string
	Score           float64
	DocumentIgnored bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *ResultItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		Index          *int            `json:"index"`
		Document       json.RawMessage `json:"document"`
		Score          *float64        `json:"score"`
		RelevanceScore *float64        `json:"relevance_score"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Index = -1
	if raw.Index != nil {
		r.Index = *raw.Index
	}

	doc, ok := decodeDocument(raw.Document)
	r.Document = doc
	r.DocumentIgnored = !ok

	switch {
	case raw.Score != nil:
		r.Score = *raw.Score
	case raw.RelevanceScore != nil:
		r.Score = *raw.RelevanceScore
	default:
		r.Score = 0
	}
	return nil
}

// decodeDocument reports ok=false for values that are neither absent, a
// string, nor an object with a string "text" field.
func decodeDocument(data json.RawMessage) (*string, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, true
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, false
		}
		return &s, true
	case '{':
		var obj struct {
			Text *string `json:"text"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, false
		}
		return obj.Text, true
	default:
		return nil, false
	}
}

// Document is a reranked document in the host's schema.
type Document struct {
	Index int     `json:"index"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Result is the normalized outcome of a rerank call.
type Result struct {
	Model string     `json:"model"`
	Docs  []Document `json:"docs"`
}

// HostDocument is the entry shape returned to the host. Index is set only
// for OutputStandard.
type HostDocument struct {
	Document string  `json:"document"`
	Score    float64 `json:"score"`
	Index    *int    `json:"index,omitempty"`
}

// ToHostDocuments shapes docs for the given output format.
func ToHostDocuments(docs []Document, format OutputFormat) []HostDocument {
	out := make([]HostDocument, 0, len(docs))
	for _, d := range docs {
		hd := HostDocument{Document: d.Text, Score: d.Score}
		if format != OutputSimple {
			idx := d.Index
			hd.Index = &idx
		}
		out = append(out, hd)
	}
	return out
}
