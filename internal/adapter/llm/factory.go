package llm

import (
	"log/slog"

	"github.com/sony/gobreaker/v2"

	"fincrew/internal/domain"
	"fincrew/internal/infra/config"
)

// Factory builds LLM providers by name with a per-request credential.
// Providers are cheap to construct; circuit breakers are not, so the factory
// keeps one long-lived breaker per backend and shares it across builds.
// Breaker state therefore survives per-request provider construction.
type Factory struct {
	configs  map[string]config.ProviderConfig
	breakers map[string]*gobreaker.CircuitBreaker[*domain.ChatResponse]
	cbCfg    config.CircuitBreakerConfig
	logger   *slog.Logger
}

// NewFactory creates a provider factory from the LLM configuration.
func NewFactory(cfg config.LLMConfig, logger *slog.Logger) *Factory {
	configs := make(map[string]config.ProviderConfig, len(cfg.Providers))
	breakers := make(map[string]*gobreaker.CircuitBreaker[*domain.ChatResponse], len(cfg.Providers))
	for _, p := range cfg.Providers {
		configs[p.Name] = p
		if cfg.CircuitBreaker.Enabled {
			breakers[p.Name] = NewBreaker(p.Name, cfg.CircuitBreaker, logger)
		}
	}
	return &Factory{
		configs:  configs,
		breakers: breakers,
		cbCfg:    cfg.CircuitBreaker,
		logger:   logger,
	}
}

// Build constructs the named provider with the given API key. The key
// overrides any key from config.
func (f *Factory) Build(name, apiKey string) (domain.LLMProvider, error) {
	cfg, ok := f.configs[name]
	if !ok {
		return nil, domain.NewDomainError("Factory.Build", domain.ErrProviderNotFound, name)
	}

	var provider domain.LLMProvider
	switch cfg.Type {
	case "gemini":
		provider = NewGeminiProvider(cfg, apiKey, f.logger)
	default:
		provider = NewGroqProvider(cfg, apiKey, f.logger)
	}

	if breaker, ok := f.breakers[name]; ok {
		provider = NewCircuitBreakerProvider(provider, breaker, f.logger)
	}
	return provider, nil
}
