// Package oracle turns free text into a domain.Model by asking a language
// model. Two providers are supported: Gemini through its OpenAI-compatible
// endpoint, and an OpenAI-compatible gateway. Neither retries; every failure
// surfaces as a single *Error.
package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"resourcemap/internal/config"
	"resourcemap/internal/domain"
)

// Oracle structures raw text into a model or fails.
type Oracle interface {
	Structure(ctx context.Context, text string) (domain.Model, error)
}

type ErrorKind string

const (
	KindConfig    ErrorKind = "config"
	KindTransport ErrorKind = "transport"
	KindStatus    ErrorKind = "status"
	KindMalformed ErrorKind = "malformed"
)

// Error is the one error shape callers see from an oracle call.
type Error struct {
	Kind     ErrorKind
	Provider string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, provider string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Provider: provider, Message: fmt.Sprintf(format, args...), Err: err}
}

type Option func(*options)

type options struct {
	httpClient *http.Client
	logger     *slog.Logger
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New returns the provider selected by cfg. Missing credentials are not an
// error here; they are reported when Structure is first called.
func New(cfg config.Oracle, opts ...Option) Oracle {
	o := options{httpClient: http.DefaultClient, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if strings.EqualFold(cfg.Provider, config.ProviderGateway) {
		return newGateway(cfg, o)
	}
	return newGemini(cfg, o)
}

// LogSummary writes the active provider configuration without secrets and
// warns when the provider cannot be called.
func LogSummary(logger *slog.Logger, cfg config.Oracle) {
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{"provider", cfg.Provider, "model", cfg.EffectiveModel()}
	if cfg.Provider == config.ProviderGateway {
		attrs = append(attrs, "gateway_url", orNotSet(cfg.GatewayURL), "api_key_set", cfg.GatewayAPIKey != "")
	} else {
		attrs = append(attrs, "api_key_set", cfg.GeminiAPIKey != "")
	}
	logger.Info("oracle configuration loaded", attrs...)
	if !cfg.HasCredentials() {
		logger.Warn("oracle provider is missing credentials; analysis will fail", "provider", cfg.Provider)
	}
}

func orNotSet(v string) string {
	if v == "" {
		return "not set"
	}
	return v
}
