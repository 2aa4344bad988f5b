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

const providerGateway = "AI Gateway"

// gateway talks to an OpenAI-compatible gateway that routes by model name
// in the path: <url>/<model>/v1/chat/completions.
type gateway struct {
	baseURL string
	model   string
	apiKey  string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

func newGateway(cfg config.Oracle, o options) *gateway {
	model := strings.TrimSpace(cfg.GatewayModel)
	if model == "" {
		model = strings.TrimSpace(cfg.Model)
	}
	if model == "" {
		model = config.DefaultModel
	}
	return &gateway{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.GatewayURL), "/"),
		model:   model,
		apiKey:  strings.TrimSpace(cfg.GatewayAPIKey),
		timeout: cfg.Timeout,
		client:  o.httpClient,
		logger:  o.logger,
	}
}

// endpoint is the base URL handed to the OpenAI client, which appends
// chat/completions itself.
func (g *gateway) endpoint() string {
	return g.baseURL + "/" + g.model + "/v1/"
}

func (g *gateway) Structure(ctx context.Context, text string) (domain.Model, error) {
	if g.baseURL == "" || g.apiKey == "" {
		g.logger.Error("aborting oracle request", "provider", providerGateway, "reason", "missing url or api key")
		return domain.Model{}, newError(KindConfig, providerGateway, nil,
			"AI Gateway is the configured provider, but RESOURCEMAP_GATEWAY_URL or RESOURCEMAP_GATEWAY_API_KEY is missing")
	}
	return chatCall{
		provider: providerGateway,
		baseURL:  g.endpoint(),
		apiKey:   g.apiKey,
		model:    g.model,
		timeout:  g.timeout,
		client:   g.client,
		logger:   g.logger,
	}.structure(ctx, text)
}
