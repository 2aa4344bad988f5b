package oracle

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"resourcemap/internal/domain"
)

// chatCall is one chat-completions request against an OpenAI-compatible
// endpoint. Both providers go through it.
type chatCall struct {
	provider string
	baseURL  string
	apiKey   string
	model    string
	timeout  time.Duration
	client   *http.Client
	logger   *slog.Logger
	// schema requests structured output constrained to responseSchema.
	schema bool
}

func (c chatCall) structure(ctx context.Context, text string) (domain.Model, error) {
	prompt, err := Prompt(text)
	if err != nil {
		return domain.Model{}, newError(KindConfig, c.provider, err, "build prompt: %v", err)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	client := openai.NewClient(
		option.WithBaseURL(c.baseURL),
		option.WithAPIKey(c.apiKey),
		option.WithHTTPClient(c.client),
		option.WithMaxRetries(0),
	)
	params := openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
	}
	if c.schema {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "resource_map",
					Schema: responseSchema(),
				},
			},
		}
	}

	c.logger.Info("oracle request", "provider", c.provider, "url", c.baseURL+"chat/completions", "model", c.model, "input_bytes", len(text))
	start := time.Now()
	completion, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			c.logger.Info("oracle response", "provider", c.provider, "status", apiErr.StatusCode, "elapsed", time.Since(start))
			return domain.Model{}, newError(KindStatus, c.provider, err,
				"%s request failed with status %d: %s", c.provider, apiErr.StatusCode, strings.TrimSpace(apiErr.RawJSON()))
		}
		return domain.Model{}, newError(KindTransport, c.provider, err, "%s request failed: %v", c.provider, err)
	}
	c.logger.Info("oracle response", "provider", c.provider, "status", http.StatusOK, "elapsed", time.Since(start))
	if len(completion.Choices) == 0 {
		return domain.Model{}, newError(KindMalformed, c.provider, nil,
			`the %s response did not contain "choices[0].message.content"`, c.provider)
	}
	return Decode(c.provider, completion.Choices[0].Message.Content)
}
