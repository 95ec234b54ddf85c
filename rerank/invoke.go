package rerank

import (
	"context"
	"strings"

	"github.com/BaSui01/rerankbridge/types"
	"go.uber.org/zap"
)

// Invocation is a host call: rerank(query, documents, config?, model?).
type Invocation struct {
	Query     string
	Documents []string
	// Config holds loosely typed credential overrides plus an optional
	// score_threshold.
	Config map[string]any
	Model  string
	User   string

	// ScoreThreshold and TopN take precedence over values found in Config.
	ScoreThreshold *float64
	TopN           *int
}

// Invoke validates the invocation's configuration on top of base, calls the
// remote service once and shapes the results for the configured output
// format.
func Invoke(ctx context.Context, inv Invocation, base Credentials, opts ...Option) ([]HostDocument, error) {
	o := applyOptions(opts)

	creds, err := ParseCredentialsWithBase(inv.Config, base, o.logger)
	if err != nil {
		return nil, err
	}

	threshold := inv.ScoreThreshold
	if threshold == nil {
		if threshold, err = ParseScoreThreshold(inv.Config); err != nil {
			return nil, err
		}
	}

	user := inv.User
	if user == "" {
		user, _ = types.UserID(ctx)
	}

	client := NewClient(creds, opts...)
	result, err := client.Rerank(ctx, Request{
		Query:          inv.Query,
		Documents:      inv.Documents,
		ScoreThreshold: threshold,
		TopN:           inv.TopN,
		Model:          inv.Model,
		User:           user,
	})
	if err != nil {
		return nil, err
	}
	return ToHostDocuments(result.Docs, creds.OutputFormat), nil
}

// ValidateProviderCredentials is the provider-level check: api_url must be a
// non-empty string and the service must answer its health endpoint with 200
// within MaxCredentialCheckTimeout.
func ValidateProviderCredentials(ctx context.Context, raw map[string]any, opts ...Option) error {
	v, _ := lookup(raw, "api_url")
	apiURL, ok := v.(string)
	if !ok || strings.TrimSpace(apiURL) == "" {
		return types.NewError(types.ErrValidation, "api_url must be a non-empty string")
	}

	creds := DefaultCredentials()
	creds.APIURL = trimBaseURL(apiURL)
	creds.Timeout = MaxCredentialCheckTimeout

	o := applyOptions(opts)
	o.logger.Debug("validating provider credentials", zap.String("api_url", creds.APIURL))
	return NewClient(creds, opts...).CheckCredentials(ctx)
}
