package rerank

import (
	"os"
	"strings"
	"time"

	"github.com/BaSui01/rerankbridge/types"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// Defaults and bounds for reranker credentials.
const (
	DefaultAPIURL      = "http://localhost:8009"
	DefaultTimeout     = 30 * time.Second
	DefaultTopK        = 5
	DefaultContextSize = 512

	MinTimeoutSeconds = 1
	MaxTimeoutSeconds = 300
	MinTopK           = 1
	MaxTopK           = 100

	// EnvAPIURL overrides DefaultAPIURL when no api_url is configured.
	EnvAPIURL = "RERANKER_API_URL"
)

// Credentials identifies and configures the remote reranking service.
// A validated value is immutable for the lifetime of a Client.
type Credentials struct {
	APIURL       string        `json:"api_url" yaml:"api_url" env:"API_URL"`
	Timeout      time.Duration `json:"timeout" yaml:"timeout" env:"TIMEOUT"`
	TopK         int           `json:"top_k" yaml:"top_k" env:"TOP_K"`
	InputFormat  InputFormat   `json:"input_format" yaml:"input_format" env:"INPUT_FORMAT"`
	OutputFormat OutputFormat  `json:"output_format" yaml:"output_format" env:"OUTPUT_FORMAT"`
	ContextSize  int           `json:"context_size,omitempty" yaml:"context_size" env:"CONTEXT_SIZE"`
}

// DefaultCredentials returns credentials populated with defaults. The API URL
// comes from RERANKER_API_URL when set.
func DefaultCredentials() Credentials {
	apiURL := os.Getenv(EnvAPIURL)
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return Credentials{
		APIURL:       apiURL,
		Timeout:      DefaultTimeout,
		TopK:         DefaultTopK,
		InputFormat:  InputAuto,
		OutputFormat: OutputStandard,
		ContextSize:  DefaultContextSize,
	}
}

// Sanitize trims the API URL and degrades unknown formats to their defaults,
// logging a warning for each substitution.
func (c Credentials) Sanitize(logger *zap.Logger) Credentials {
	if logger == nil {
		logger = zap.NewNop()
	}
	c.APIURL = trimBaseURL(c.APIURL)

	if f, ok := ParseInputFormat(string(c.InputFormat)); ok {
		c.InputFormat = f
	} else {
		logger.Warn("invalid input_format, using default",
			zap.String("input_format", string(c.InputFormat)),
			zap.String("default", string(InputAuto)))
		c.InputFormat = f
	}

	if f, ok := ParseOutputFormat(string(c.OutputFormat)); ok {
		c.OutputFormat = f
	} else {
		logger.Warn("invalid output_format, using default",
			zap.String("output_format", string(c.OutputFormat)),
			zap.String("default", string(OutputStandard)))
		c.OutputFormat = f
	}

	if c.ContextSize <= 0 {
		c.ContextSize = DefaultContextSize
	}
	return c
}

// Validate checks field bounds. Formats are not checked here; Sanitize
// degrades them instead of failing.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.APIURL) == "" {
		return types.NewError(types.ErrValidation, "api_url must be a non-empty string")
	}
	if c.Timeout < MinTimeoutSeconds*time.Second || c.Timeout > MaxTimeoutSeconds*time.Second {
		return types.Errorf(types.ErrValidation, "timeout must be between %d and %d seconds", MinTimeoutSeconds, MaxTimeoutSeconds)
	}
	if c.TopK < MinTopK || c.TopK > MaxTopK {
		return types.Errorf(types.ErrValidation, "top_k must be between %d and %d", MinTopK, MaxTopK)
	}
	return nil
}

// ParseCredentials validates loosely typed credentials supplied by the host
// on top of DefaultCredentials.
func ParseCredentials(raw map[string]any, logger *zap.Logger) (Credentials, error) {
	return ParseCredentialsWithBase(raw, DefaultCredentials(), logger)
}

// ParseCredentialsWithBase is ParseCredentials with caller supplied defaults,
// typically the service's configured credentials. Numbers may arrive as JSON
// numbers or numeric strings.
func ParseCredentialsWithBase(raw map[string]any, base Credentials, logger *zap.Logger) (Credentials, error) {
	creds := base

	if v, ok := lookup(raw, "api_url"); ok {
		s, isString := v.(string)
		if !isString || strings.TrimSpace(s) == "" {
			return Credentials{}, types.NewError(types.ErrValidation, "api_url must be a non-empty string")
		}
		creds.APIURL = s
	}

	if v, ok := lookup(raw, "timeout"); ok {
		secs, err := toInt(v)
		if err != nil {
			return Credentials{}, types.NewError(types.ErrValidation, "timeout must be a valid integer").WithCause(err)
		}
		if secs < MinTimeoutSeconds || secs > MaxTimeoutSeconds {
			return Credentials{}, types.Errorf(types.ErrValidation, "timeout must be between %d and %d seconds", MinTimeoutSeconds, MaxTimeoutSeconds)
		}
		creds.Timeout = time.Duration(secs) * time.Second
	}

	if v, ok := lookup(raw, "top_k"); ok {
		k, err := toInt(v)
		if err != nil {
			return Credentials{}, types.NewError(types.ErrValidation, "top_k must be a valid integer").WithCause(err)
		}
		if k < MinTopK || k > MaxTopK {
			return Credentials{}, types.Errorf(types.ErrValidation, "top_k must be between %d and %d", MinTopK, MaxTopK)
		}
		creds.TopK = k
	}

	if v, ok := lookup(raw, "input_format"); ok {
		creds.InputFormat = InputFormat(cast.ToString(v))
	}
	if v, ok := lookup(raw, "output_format"); ok {
		creds.OutputFormat = OutputFormat(cast.ToString(v))
	}

	if v, ok := lookup(raw, "context_size"); ok {
		n, err := toInt(v)
		if err != nil || n <= 0 {
			return Credentials{}, types.NewError(types.ErrValidation, "context_size must be a positive integer")
		}
		creds.ContextSize = n
	}

	creds = creds.Sanitize(logger)
	if err := creds.Validate(); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

// ParseScoreThreshold reads an optional score_threshold from raw config.
func ParseScoreThreshold(raw map[string]any) (*float64, error) {
	v, ok := lookup(raw, "score_threshold")
	if !ok {
		return nil, nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return nil, types.NewError(types.ErrValidation, "score_threshold must be a number").WithCause(err)
	}
	return &f, nil
}

// lookup treats a missing key and an explicit null the same way.
func lookup(raw map[string]any, key string) (any, bool) {
	if raw == nil {
		return nil, false
	}
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func toInt(v any) (int, error) {
	if s, ok := v.(string); ok {
		v = strings.TrimSpace(s)
	}
	return cast.ToIntE(v)
}

func trimBaseURL(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), "/")
}
