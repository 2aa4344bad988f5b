package oracle

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"resourcemap/internal/config"
	"resourcemap/internal/domain"
)

const providerGemini = "Gemini"

// gemini calls the Gemini API through its OpenAI-compatible surface at
// <endpoint>/openai/chat/completions, asking for schema-constrained JSON.
type gemini struct {
	endpoint string
	model    string
	apiKey   string
	timeout  time.Duration
	client   *http.Client
	logger   *slog.Logger
}

func newGemini(cfg config.Oracle, o options) *gemini {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.GeminiEndpoint), "/")
	if endpoint == "" {
		endpoint = config.DefaultGeminiEndpoint
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = config.DefaultModel
	}
	return &gemini{
		endpoint: endpoint,
		model:    model,
		apiKey:   strings.TrimSpace(cfg.GeminiAPIKey),
		timeout:  cfg.Timeout,
		client:   o.httpClient,
		logger:   o.logger,
	}
}

func (g *gemini) Structure(ctx context.Context, text string) (domain.Model, error) {
	if g.apiKey == "" {
		g.logger.Error("aborting oracle request", "provider", providerGemini, "reason", "missing api key")
		return domain.Model{}, newError(KindConfig, providerGemini, nil,
			"Gemini is the configured provider, but no API key is set (RESOURCEMAP_GEMINI_API_KEY or API_KEY)")
	}
	return chatCall{
		provider: providerGemini,
		baseURL:  g.endpoint + "/openai/",
		apiKey:   g.apiKey,
		model:    g.model,
		timeout:  g.timeout,
		client:   g.client,
		logger:   g.logger,
		schema:   true,
	}.structure(ctx, text)
}
