// file: config/config.go

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Bureau    BureauConfig    `mapstructure:"bureau" yaml:"bureau"`
	Security  SecurityConfig  `mapstructure:"security" yaml:"security"`
	Logging   LogConfig       `mapstructure:"logging" yaml:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Events    EventsConfig    `mapstructure:"events" yaml:"events"`
	Policy    PolicyConfig    `mapstructure:"policy" yaml:"policy"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Assistant AssistantConfig `mapstructure:"assistant" yaml:"assistant"`
}

// BureauConfig configures the outbound credit-bureau client.
type BureauConfig struct {
	APIKey  string        `mapstructure:"apiKey" yaml:"apiKey"`
	BaseURL string        `mapstructure:"baseUrl" yaml:"baseUrl"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	Auth AuthConfig `mapstructure:"auth" yaml:"auth"`
}

// AuthConfig selects how outbound requests authenticate beyond the signature:
// "apikey" sends the consumer key header only, "oauth2" additionally fetches a
// bearer token via the client-credentials flow.
type AuthConfig struct {
	Type         string   `mapstructure:"type" yaml:"type"`
	TokenURL     string   `mapstructure:"tokenUrl" yaml:"tokenUrl"`
	ClientID     string   `mapstructure:"clientId" yaml:"clientId"`
	ClientSecret string   `mapstructure:"clientSecret" yaml:"clientSecret"`
	Scopes       []string `mapstructure:"scopes" yaml:"scopes"`
}

// SecurityConfig points at the ECDSA key material.
type SecurityConfig struct {
	SigningKeyFile       string `mapstructure:"signingKeyFile" yaml:"signingKeyFile"`
	CounterpartyCertFile string `mapstructure:"counterpartyCertFile" yaml:"counterpartyCertFile"`

	// RequireCounterpartyKey makes a missing or unparseable counterparty
	// certificate fatal instead of entering unverified (demo) mode.
	RequireCounterpartyKey bool `mapstructure:"requireCounterpartyKey" yaml:"requireCounterpartyKey"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`           // debug, info, warn, error
	OutputPath string `mapstructure:"outputPath" yaml:"outputPath"` // file path, "stdout" or "stderr"
	Encoding   string `mapstructure:"encoding" yaml:"encoding"`     // json or console
}

type MetricsConfig struct {
	Enabled        bool   `mapstructure:"enabled" yaml:"enabled"`
	Address        string `mapstructure:"address" yaml:"address"`
	Path           string `mapstructure:"path" yaml:"path"`
	UpdateInterval string `mapstructure:"updateInterval" yaml:"updateInterval"` // Duration string
}

// EventsConfig configures the optional NATS publisher for terminal decisions.
type EventsConfig struct {
	Enabled bool     `mapstructure:"enabled" yaml:"enabled"`
	Subject string   `mapstructure:"subject" yaml:"subject"`
	URLs    []string `mapstructure:"urls" yaml:"urls"`

	// Authentication options (mutually exclusive)
	Username     string `mapstructure:"username" yaml:"username"`
	Password     string `mapstructure:"password" yaml:"password"`
	Token        string `mapstructure:"token" yaml:"token"`
	NKeySeedFile string `mapstructure:"nkeySeedFile" yaml:"nkeySeedFile"`
	CredsFile    string `mapstructure:"credsFile" yaml:"credsFile"`

	TLS struct {
		Enable   bool   `mapstructure:"enable" yaml:"enable"`
		CertFile string `mapstructure:"certFile" yaml:"certFile"`
		KeyFile  string `mapstructure:"keyFile" yaml:"keyFile"`
		CAFile   string `mapstructure:"caFile" yaml:"caFile"`
		Insecure bool   `mapstructure:"insecure" yaml:"insecure"`
	} `mapstructure:"tls" yaml:"tls"`
}

type PolicyConfig struct {
	File string `mapstructure:"file" yaml:"file"` // optional decision policy file
}

// ServerConfig configures serve mode.
type ServerConfig struct {
	Address             string        `mapstructure:"address" yaml:"address"`
	ReadTimeout         time.Duration `mapstructure:"readTimeout" yaml:"readTimeout"`
	WriteTimeout        time.Duration `mapstructure:"writeTimeout" yaml:"writeTimeout"`
	IdleTimeout         time.Duration `mapstructure:"idleTimeout" yaml:"idleTimeout"`
	ShutdownGracePeriod time.Duration `mapstructure:"shutdownGracePeriod" yaml:"shutdownGracePeriod"`
}

// AssistantConfig configures the generative assistant client. The client is
// constructed when an API key is present but never consulted for decisions.
type AssistantConfig struct {
	APIKey string `mapstructure:"apiKey" yaml:"apiKey"`
	Model  string `mapstructure:"model" yaml:"model"`
}

// envKeys lists every configuration key so CREDIT_AGENT_* env vars apply
// even when no config file is present.
var envKeys = []string{
	"bureau.apiKey",
	"bureau.baseUrl",
	"bureau.timeout",
	"bureau.auth.type",
	"bureau.auth.tokenUrl",
	"bureau.auth.clientId",
	"bureau.auth.clientSecret",
	"security.signingKeyFile",
	"security.counterpartyCertFile",
	"security.requireCounterpartyKey",
	"logging.level",
	"logging.outputPath",
	"logging.encoding",
	"metrics.enabled",
	"metrics.address",
	"metrics.path",
	"metrics.updateInterval",
	"events.enabled",
	"events.subject",
	"events.urls",
	"events.username",
	"events.password",
	"events.token",
	"events.nkeySeedFile",
	"events.credsFile",
	"policy.file",
	"server.address",
	"assistant.apiKey",
	"assistant.model",
}

// Load reads configuration from an optional file plus CREDIT_AGENT_* env
// vars and fills defaults. Callers run Validate after applying overrides.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("CREDIT_AGENT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// AutomaticEnv only covers keys viper has already seen, so without a
	// config file env overrides would be invisible to Unmarshal. Bind each
	// key explicitly.
	for _, key := range envKeys {
		v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	SetDefaults(&cfg)

	// Validation happens after the caller applies flag overrides.
	return &cfg, nil
}

// SetDefaults fills in default values for anything unset.
func SetDefaults(cfg *Config) {
	// Bureau defaults
	if cfg.Bureau.BaseURL == "" {
		cfg.Bureau.BaseURL = "https://services.circulodecredito.com.mx"
	}
	if cfg.Bureau.Timeout == 0 {
		cfg.Bureau.Timeout = 30 * time.Second
	}
	if cfg.Bureau.Auth.Type == "" {
		cfg.Bureau.Auth.Type = "apikey"
	}

	// Security defaults
	if cfg.Security.SigningKeyFile == "" {
		cfg.Security.SigningKeyFile = "security/pri_key.pem"
	}
	if cfg.Security.CounterpartyCertFile == "" {
		cfg.Security.CounterpartyCertFile = "security/cdc_cert.pem"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.OutputPath == "" {
		cfg.Logging.OutputPath = "stderr"
	}
	if cfg.Logging.Encoding == "" {
		cfg.Logging.Encoding = "json"
	}

	// Metrics defaults
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":2112"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Metrics.UpdateInterval == "" {
		cfg.Metrics.UpdateInterval = "15s"
	}

	// Events defaults
	if len(cfg.Events.URLs) == 0 {
		cfg.Events.URLs = []string{"nats://localhost:4222"}
	}
	if cfg.Events.Subject == "" {
		cfg.Events.Subject = "credit.decisions"
	}

	// Server defaults
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 120 * time.Second
	}
	if cfg.Server.ShutdownGracePeriod == 0 {
		cfg.Server.ShutdownGracePeriod = 15 * time.Second
	}

	// Assistant defaults
	if cfg.Assistant.Model == "" {
		cfg.Assistant.Model = "claude-3-5-haiku-latest"
	}
}

// Validate performs validation of all configuration values.
func Validate(cfg *Config) error {
	// Bureau validation
	if cfg.Bureau.BaseURL == "" {
		return fmt.Errorf("bureau base URL is required")
	}
	if cfg.Bureau.Timeout <= 0 {
		return fmt.Errorf("bureau timeout must be greater than 0")
	}
	switch cfg.Bureau.Auth.Type {
	case "apikey":
		if cfg.Bureau.APIKey == "" {
			return fmt.Errorf("bureau API key is required")
		}
	case "oauth2":
		if cfg.Bureau.Auth.TokenURL == "" {
			return fmt.Errorf("bureau auth tokenUrl is required for oauth2")
		}
		if cfg.Bureau.Auth.ClientID == "" {
			return fmt.Errorf("bureau auth clientId is required for oauth2")
		}
		if cfg.Bureau.Auth.ClientSecret == "" {
			return fmt.Errorf("bureau auth clientSecret is required for oauth2")
		}
	default:
		return fmt.Errorf("invalid bureau auth type: %s (must be 'apikey' or 'oauth2')", cfg.Bureau.Auth.Type)
	}

	// Security validation
	if cfg.Security.SigningKeyFile == "" {
		return fmt.Errorf("signing key file is required")
	}

	// Logging validation
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", cfg.Logging.Level)
	}
	switch cfg.Logging.Encoding {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log encoding: %s", cfg.Logging.Encoding)
	}

	// Metrics validation
	if cfg.Metrics.Enabled {
		if _, err := time.ParseDuration(cfg.Metrics.UpdateInterval); err != nil {
			return fmt.Errorf("invalid metrics update interval: %w", err)
		}
	}

	// Events validation
	if cfg.Events.Enabled {
		if len(cfg.Events.URLs) == 0 {
			return fmt.Errorf("at least one NATS server URL is required when events are enabled")
		}
		authCount := 0
		if cfg.Events.Username != "" {
			authCount++
		}
		if cfg.Events.Token != "" {
			authCount++
		}
		if cfg.Events.NKeySeedFile != "" {
			authCount++
		}
		if cfg.Events.CredsFile != "" {
			authCount++
		}
		if authCount > 1 {
			return fmt.Errorf("only one NATS authentication method should be specified")
		}
		if cfg.Events.CredsFile != "" {
			if _, err := os.Stat(cfg.Events.CredsFile); os.IsNotExist(err) {
				return fmt.Errorf("NATS creds file does not exist: %s", cfg.Events.CredsFile)
			}
		}
		if cfg.Events.TLS.Enable {
			if cfg.Events.TLS.CertFile != "" && cfg.Events.TLS.KeyFile == "" {
				return fmt.Errorf("NATS TLS key file required when cert file provided")
			}
			if cfg.Events.TLS.KeyFile != "" && cfg.Events.TLS.CertFile == "" {
				return fmt.Errorf("NATS TLS cert file required when key file provided")
			}
		}
	}

	return nil
}

// ApplyOverrides applies command line flag overrides to the configuration.
func (c *Config) ApplyOverrides(apiKey, baseURL, signingKeyFile, counterpartyCertFile string) {
	if apiKey != "" {
		c.Bureau.APIKey = apiKey
	}
	if baseURL != "" {
		c.Bureau.BaseURL = baseURL
	}
	if signingKeyFile != "" {
		c.Security.SigningKeyFile = signingKeyFile
	}
	if counterpartyCertFile != "" {
		c.Security.CounterpartyCertFile = counterpartyCertFile
	}
}
