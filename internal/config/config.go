package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	ProviderGemini  = "GEMINI"
	ProviderGateway = "GATEWAY"

	DefaultModel          = "gemini-2.5-flash"
	DefaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta"
)

// Config models resourcemap.yml. Secrets never come from the file; they are
// filled from the environment by ApplyEnv.
type Config struct {
	Oracle   Oracle          `yaml:"oracle"`
	Server   Server          `yaml:"server"`
	Export   Export          `yaml:"export"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

type Oracle struct {
	Provider       string        `yaml:"provider"`
	Model          string        `yaml:"model"`
	GeminiEndpoint string        `yaml:"gemini_endpoint"`
	GatewayURL     string        `yaml:"gateway_url"`
	GatewayModel   string        `yaml:"gateway_model"`
	Timeout        time.Duration `yaml:"timeout"`

	GeminiAPIKey  string `yaml:"-"`
	GatewayAPIKey string `yaml:"-"`
}

// HasCredentials reports whether the selected provider can be called.
func (o Oracle) HasCredentials() bool {
	if o.Provider == ProviderGateway {
		return o.GatewayURL != "" && o.GatewayAPIKey != ""
	}
	return o.GeminiAPIKey != ""
}

// EffectiveModel returns the model name the selected provider will use.
func (o Oracle) EffectiveModel() string {
	if o.Provider == ProviderGateway && o.GatewayModel != "" {
		return o.GatewayModel
	}
	if o.Model != "" {
		return o.Model
	}
	return DefaultModel
}

type Server struct {
	Addr      string `yaml:"addr"`
	BasePath  string `yaml:"base_path"`
	JWTSecret string `yaml:"-"`
}

type Export struct {
	PageSize   string        `yaml:"page_size"`
	ChromePath string        `yaml:"chrome_path"`
	Timeout    time.Duration `yaml:"timeout"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Events         []string `yaml:"events"`
	Secret         string   `yaml:"secret"`
	Enabled        *bool    `yaml:"enabled"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// envOverlay holds the variables that may override the file. Pointer fields
// stay nil when the variable is unset so file values survive.
type envOverlay struct {
	Provider      *string `env:"RESOURCEMAP_AI_PROVIDER"`
	Model         *string `env:"RESOURCEMAP_MODEL"`
	GeminiAPIKey  *string `env:"RESOURCEMAP_GEMINI_API_KEY"`
	LegacyAPIKey  *string `env:"API_KEY"`
	GatewayURL    *string `env:"RESOURCEMAP_GATEWAY_URL"`
	GatewayAPIKey *string `env:"RESOURCEMAP_GATEWAY_API_KEY"`
	GatewayModel  *string `env:"RESOURCEMAP_GATEWAY_MODEL"`
	JWTSecret     *string `env:"RESOURCEMAP_JWT_SECRET"`
	ServerAddr    *string `env:"RESOURCEMAP_ADDR"`
	ChromePath    *string `env:"RESOURCEMAP_CHROME_PATH"`
}

// ApplyEnv overlays environment variables onto c and re-validates.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(env.Options{})
}

// ApplyEnvFrom is ApplyEnv over an explicit environment, for tests.
func (c *Config) ApplyEnvFrom(environ map[string]string) error {
	return c.applyEnv(env.Options{Environment: environ})
}

func (c *Config) applyEnv(opts env.Options) error {
	var o envOverlay
	if err := env.ParseWithOptions(&o, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&c.Oracle.Provider, o.Provider)
	set(&c.Oracle.Model, o.Model)
	set(&c.Oracle.GeminiAPIKey, o.LegacyAPIKey)
	set(&c.Oracle.GeminiAPIKey, o.GeminiAPIKey)
	set(&c.Oracle.GatewayURL, o.GatewayURL)
	set(&c.Oracle.GatewayAPIKey, o.GatewayAPIKey)
	set(&c.Oracle.GatewayModel, o.GatewayModel)
	set(&c.Server.JWTSecret, o.JWTSecret)
	set(&c.Server.Addr, o.ServerAddr)
	set(&c.Export.ChromePath, o.ChromePath)
	c.Oracle.Provider = strings.ToUpper(c.Oracle.Provider)
	return c.Validate()
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	switch c.Oracle.Provider {
	case ProviderGemini, ProviderGateway:
	default:
		return fmt.Errorf("config.oracle.provider must be %s or %s, got %q", ProviderGemini, ProviderGateway, c.Oracle.Provider)
	}
	if c.Oracle.Timeout < 0 {
		return fmt.Errorf("config.oracle.timeout must not be negative")
	}
	if c.Export.Timeout < 0 {
		return fmt.Errorf("config.export.timeout must not be negative")
	}
	switch strings.ToUpper(c.Export.PageSize) {
	case "A4", "LETTER":
	default:
		return fmt.Errorf("config.export.page_size must be A4 or Letter, got %q", c.Export.PageSize)
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	for i, hook := range c.Webhooks {
		if strings.TrimSpace(hook.URL) == "" {
			return fmt.Errorf("config.webhooks[%d].url is required", i)
		}
		if hook.TimeoutSeconds < 0 {
			return fmt.Errorf("config.webhooks[%d].timeout_seconds must not be negative", i)
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "resourcemap.yml")
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with rmap config init", path)
		}
		return nil, err
	}
	return FromFile(path)
}

// LoadOptional returns Default() when the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	cfg, err := FromFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal([]byte(defaultTemplate), &cfg); err != nil {
		panic(fmt.Sprintf("default config: %v", err))
	}
	return &cfg
}

// FromYAML parses config from raw YAML bytes. Keys missing from data keep
// their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	cfg.Oracle.Provider = strings.ToUpper(strings.TrimSpace(cfg.Oracle.Provider))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Marshal renders c as YAML. Secrets are never written.
func (c *Config) Marshal() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

const defaultTemplate = `oracle:
  # GEMINI calls the Gemini API directly; GATEWAY calls an OpenAI-compatible
  # gateway at <gateway_url>/<model>/v1/chat/completions.
  provider: GEMINI
  model: gemini-2.5-flash
  gemini_endpoint: https://generativelanguage.googleapis.com/v1beta
  gateway_url: ""
  gateway_model: ""
  timeout: 2m

server:
  addr: 127.0.0.1:8080
  base_path: /v0

export:
  page_size: A4
  chrome_path: ""
  timeout: 1m

webhooks: []
`
