package llm

import (
	"os"
	"strings"

	"fincrew/internal/domain"
	"fincrew/internal/infra/config"
)

// EnvCredentials resolves provider API keys from config, falling back to
// the <NAME>_API_KEY environment variable.
type EnvCredentials struct {
	keys map[string]string
}

// NewEnvCredentials builds a credential source from provider configs.
func NewEnvCredentials(providers []config.ProviderConfig) *EnvCredentials {
	keys := make(map[string]string, len(providers))
	for _, p := range providers {
		if p.APIKey != "" {
			keys[p.Name] = p.APIKey
		}
	}
	return &EnvCredentials{keys: keys}
}

// Lookup implements domain.CredentialSource.
func (c *EnvCredentials) Lookup(provider string) (string, bool) {
	if key, ok := c.keys[provider]; ok {
		return key, true
	}
	env := strings.ToUpper(provider) + "_API_KEY"
	if key := os.Getenv(env); key != "" {
		return key, true
	}
	return "", false
}

var _ domain.CredentialSource = (*EnvCredentials)(nil)
