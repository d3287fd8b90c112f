package registry

import (
	"net/http"

	"content-compliance-service/internal/config"
	"content-compliance-service/internal/observability/logging"
	"content-compliance-service/internal/service/llm"
	"content-compliance-service/internal/service/llm/mock"
)

// FromConfig builds the candidate catalog from configuration. Providers are
// added in preference order: every Gemini model outranks every GLM model,
// and models within a provider keep their configured order. A deployment
// with no provider credentials gets a single mock candidate, which keeps
// local development working without keys.
func FromConfig(cfg config.ProvidersConfig, httpClient *http.Client) *Registry {
	reg := New()
	logger := logging.WithComponent("registry")

	priority := 0
	if cfg.Gemini.APIKey != "" {
		client := llm.NewGemini(cfg.Gemini.APIKey, cfg.Gemini.BaseURL, httpClient)
		for _, model := range cfg.Gemini.Models {
			reg.Add(&Candidate{
				Provider: client.Name(),
				Model:    model,
				Priority: priority,
				Client:   client,
			}, CapabilityCompliance)
			priority++
		}
	}
	if cfg.GLM.APIKey != "" {
		client := llm.NewGLM(cfg.GLM.APIKey, cfg.GLM.BaseURL, httpClient)
		for _, model := range cfg.GLM.Models {
			reg.Add(&Candidate{
				Provider: client.Name(),
				Model:    model,
				Priority: priority,
				Client:   client,
			}, CapabilityCompliance)
			priority++
		}
	}

	if len(reg.All()) == 0 {
		logger.Warn().Msg("No provider credentials configured, registering mock candidate")
		client := mock.New()
		reg.Add(&Candidate{
			Provider: client.Name(),
			Model:    "mock-default",
			Priority: 0,
			Client:   client,
		}, CapabilityCompliance)
	}

	logger.Info().Int("candidates", len(reg.All())).Msg("Provider registry built")
	return reg
}
