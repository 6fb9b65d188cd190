package llm

import (
	"context"
	"fmt"
	"strings"

	"voice-assistant/internal/config"
)

// Factory creates LLM clients with consistent logic
type Factory struct {
	BaseURL            string
	APIKey             string
	Temperature        float32
	TopP               float32
	OpenRouterReferrer string
	OpenRouterTitle    string
	YandexOAuthToken   string
	YandexFolderID     string
	GeminiAPIKey       string
}

func NewFactory(cfg *config.Config) *Factory {
	return &Factory{
		BaseURL:            cfg.LLMBaseURL,
		APIKey:             cfg.LLMAPIKey,
		Temperature:        cfg.LLMTemperature,
		TopP:               cfg.LLMTopP,
		OpenRouterReferrer: cfg.OpenRouterReferrer,
		OpenRouterTitle:    cfg.OpenRouterTitle,
		YandexOAuthToken:   cfg.YandexOAuthToken,
		YandexFolderID:     cfg.YandexFolderID,
		GeminiAPIKey:       cfg.GeminiAPIKey,
	}
}

func (f *Factory) CreateClient(ctx context.Context, provider, model string) (Client, error) {
	switch config.LLMProvider(strings.ToLower(provider)) {
	case config.ProviderOllama:
		return NewOllama(f.BaseURL, model, f.Temperature, f.TopP), nil
	case config.ProviderOpenAI:
		return NewOpenAI(OpenAIOptions{
			APIKey:      f.APIKey,
			BaseURL:     f.BaseURL,
			Model:       model,
			Referrer:    f.OpenRouterReferrer,
			Title:       f.OpenRouterTitle,
			Temperature: f.Temperature,
			TopP:        f.TopP,
		}), nil
	case config.ProviderYandex:
		return NewYandex(f.YandexOAuthToken, f.YandexFolderID)
	case config.ProviderGemini:
		return NewGemini(ctx, f.GeminiAPIKey, model, f.Temperature, f.TopP)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}
