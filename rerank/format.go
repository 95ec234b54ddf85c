package rerank

import "strings"

// InputFormat selects the field name the remote service expects for the
// candidate list.
type InputFormat string

const (
	InputPassages  InputFormat = "passages"
	InputDocuments InputFormat = "documents"
	// InputAuto is a fixed default, not detection: the target service is never
	// probed and the "passages" key is always sent.
	InputAuto InputFormat = "auto"
)

// Request field names understood by the remote reranker.
const (
	FieldPassages  = "passages"
	FieldDocuments = "documents"
)

// ParseInputFormat normalizes s. Matching is case-insensitive and ignores
// surrounding whitespace, so "Documents" selects InputDocuments without a
// warning. ok is false for unknown values, in which case InputAuto is
// returned. An empty value is the default, not an unknown one.
func ParseInputFormat(s string) (InputFormat, bool) {
	switch f := InputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case InputPassages, InputDocuments, InputAuto:
		return f, true
	case "":
		return InputAuto, true
	default:
		return InputAuto, false
	}
}

// FieldName maps the format to the JSON key used for the candidate list.
func (f InputFormat) FieldName() string {
	if f == InputDocuments {
		return FieldDocuments
	}
	return FieldPassages
}

// OutputFormat controls the shape of results returned to the host.
type OutputFormat string

const (
	// OutputStandard includes the original input index in every result.
	OutputStandard OutputFormat = "standard"
	// OutputSimple omits the index.
	OutputSimple OutputFormat = "simple"
)

// ParseOutputFormat normalizes s with the same case folding as
// ParseInputFormat. ok is false for unknown values, in which case
// OutputStandard is returned.
func ParseOutputFormat(s string) (OutputFormat, bool) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case OutputStandard, OutputSimple:
		return f, true
	case "":
		return OutputStandard, true
	default:
		return OutputStandard, false
	}
}
