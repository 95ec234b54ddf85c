package rerank

// Static descriptors consumed by the plugin host. They carry no behavior.

// Provider and model identity.
const (
	ModelName          = "BAAI/bge-reranker-v2-m3"
	ProviderLabel      = "BGE Reranker"
	ProviderFullName   = "BGE Reranker v2 m3"
	ProviderDesc       = "High-performance document reranking using BAAI/bge-reranker-v2-m3"
	ModelTypeRerank    = "rerank"
	FetchFromCustomize = "customizable-model"
)

// ProviderInfo describes the provider for host registration.
type ProviderInfo struct {
	Name              string `json:"name"`
	DisplayName       string `json:"display_name"`
	ModelName         string `json:"model_name"`
	Description       string `json:"description"`
	Type              string `json:"type"`
	SupportsGPU       bool   `json:"supports_gpu"`
	MaxDocuments      int    `json:"max_documents"`
	MaxQueryLength    int    `json:"max_query_length"`
	MaxDocumentLength int    `json:"max_document_length"`

	CredentialSchema []CredentialField `json:"credential_schema"`
}

// ModelInfo is one entry of the provider's model list.
type ModelInfo struct {
	Model     string `json:"model"`
	Name      string `json:"name"`
	ModelType string `json:"model_type"`
	Provider  string `json:"provider"`
}

// CredentialField declares one credential form field.
type CredentialField struct {
	Variable string   `json:"variable"`
	Label    string   `json:"label"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Default  any      `json:"default,omitempty"`
	Options  []string `json:"options,omitempty"`
}

// ModelSchema is the customizable model entity generated from credentials.
type ModelSchema struct {
	Model           string            `json:"model"`
	Label           map[string]string `json:"label"`
	ModelType       string            `json:"model_type"`
	FetchFrom       string            `json:"fetch_from"`
	ModelProperties map[string]any    `json:"model_properties"`
}

// Registration is the legacy discovery record.
type Registration struct {
	ProviderName  string `json:"provider_name"`
	ProviderType  string `json:"provider_type"`
	ProviderClass string `json:"provider_class"`
	Note          string `json:"note"`
}

var credentialSchema = []CredentialField{
	{Variable: "api_url", Label: "API URL", Type: "text-input", Required: true, Default: DefaultAPIURL},
	{Variable: "timeout", Label: "Timeout (seconds)", Type: "text-input", Default: int(DefaultTimeout.Seconds())},
	{Variable: "top_k", Label: "Default top_k", Type: "text-input", Default: DefaultTopK},
	{Variable: "input_format", Label: "Input field name", Type: "select", Default: string(InputAuto),
		Options: []string{string(InputAuto), string(InputPassages), string(InputDocuments)}},
	{Variable: "output_format", Label: "Output format", Type: "select", Default: string(OutputStandard),
		Options: []string{string(OutputStandard), string(OutputSimple)}},
	{Variable: "context_size", Label: "Context size", Type: "text-input", Default: DefaultContextSize},
}

// Provider returns the provider descriptor.
func Provider() ProviderInfo {
	schema := make([]CredentialField, len(credentialSchema))
	copy(schema, credentialSchema)
	return ProviderInfo{
		Name:              ProviderFullName,
		DisplayName:       ProviderLabel,
		ModelName:         ModelName,
		Description:       ProviderDesc,
		Type:              "reranker",
		SupportsGPU:       true,
		MaxDocuments:      1000,
		MaxQueryLength:    512,
		MaxDocumentLength: 512,
		CredentialSchema:  schema,
	}
}

// Models lists the models the provider exposes.
func (p ProviderInfo) Models() []ModelInfo {
	return []ModelInfo{{
		Model:     p.ModelName,
		Name:      p.DisplayName,
		ModelType: "reranker",
		Provider:  p.Name,
	}}
}

// NewModelSchema builds the model entity for model from creds.
func NewModelSchema(model string, creds Credentials) ModelSchema {
	contextSize := creds.ContextSize
	if contextSize <= 0 {
		contextSize = DefaultContextSize
	}
	return ModelSchema{
		Model:     model,
		Label:     map[string]string{"en_US": model},
		ModelType: ModelTypeRerank,
		FetchFrom: FetchFromCustomize,
		ModelProperties: map[string]any{
			"context_size": contextSize,
		},
	}
}

// LegacyRegistration returns the discovery record older hosts look up.
func LegacyRegistration() Registration {
	return Registration{
		ProviderName:  ProviderName,
		ProviderType:  "reranker",
		ProviderClass: "provider.bge_reranker:BGERerankerProvider",
		Note:          "Use manifest.yaml for actual registration.",
	}
}
