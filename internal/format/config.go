package format

import (
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/textra-dev/textra/internal/common"
)

// Config is the caller-supplied provider configuration. It is treated as an
// opaque value object: the dispatcher never caches or mutates it.
type Config struct {
	Provider string `json:"provider"`
	APIKey   string `json:"api_key"`
	Model    string `json:"model,omitempty"`    // overrides the profile default
	Endpoint string `json:"endpoint,omitempty"` // overrides the profile default
}

// Family splits backends by request/response shape.
type Family string

const (
	FamilyChat      Family = "chat"
	FamilyInference Family = "inference"
)

// Profile describes a named remote backend. {model} in the endpoint is
// substituted with the effective model at dispatch time.
type Profile struct {
	Name         string
	Family       Family
	Endpoint     string
	DefaultModel string
	RequiresKey  bool
}

var profiles = map[string]Profile{
	"openai": {
		Name:         "openai",
		Family:       FamilyChat,
		Endpoint:     "https://api.openai.com/v1/chat/completions",
		DefaultModel: "gpt-4o-mini",
		RequiresKey:  true,
	},
	"groq": {
		Name:         "groq",
		Family:       FamilyChat,
		Endpoint:     "https://api.groq.com/openai/v1/chat/completions",
		DefaultModel: "llama-3.3-70b-versatile",
		RequiresKey:  true,
	},
	"openrouter": {
		Name:         "openrouter",
		Family:       FamilyChat,
		Endpoint:     "https://openrouter.ai/api/v1/chat/completions",
		DefaultModel: "meta-llama/llama-3.3-70b-instruct",
		RequiresKey:  true,
	},
	"huggingface": {
		Name:         "huggingface",
		Family:       FamilyInference,
		Endpoint:     "https://api-inference.huggingface.co/models/{model}",
		DefaultModel: "mistralai/Mistral-7B-Instruct-v0.3",
		RequiresKey:  true,
	},
}

// LookupProfile resolves a provider name. Empty and "local" are not remote
// profiles and report ok=false.
func LookupProfile(name string) (Profile, bool) {
	p, ok := profiles[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// IsLocal reports whether the provider name selects the local transform.
func IsLocal(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	return name == "" || name == "local"
}

const configSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "provider": {"type": "string"},
    "api_key": {"type": "string"},
    "model": {"type": "string"},
    "endpoint": {"type": "string", "anyOf": [{"format": "uri"}, {"const": ""}]}
  },
  "required": ["provider"],
  "additionalProperties": false
}`

var configSchema = jsonschema.MustCompileString("provider-config.json", configSchemaJSON)

// ValidateConfigJSON checks a serialized provider configuration (as persisted
// by callers in the key/value store) against the schema.
func ValidateConfigJSON(raw []byte) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return common.NewAppError(common.CodeInvalidProvider, "provider config is not valid JSON", err)
	}
	if err := configSchema.Validate(doc); err != nil {
		return common.NewAppError(common.CodeInvalidProvider, "provider config rejected by schema", err)
	}
	return nil
}
