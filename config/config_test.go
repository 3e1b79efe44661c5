// file: config/config_test.go

package config

import (
	"testing"
	"time"
)

func TestSetDefaults(t *testing.T) {
	tests := []struct {
		name     string
		initial  Config
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name:    "empty config gets all defaults",
			initial: Config{},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Bureau.BaseURL != "https://services.circulodecredito.com.mx" {
					t.Errorf("Bureau.BaseURL = %s, want sandbox default", cfg.Bureau.BaseURL)
				}
				if cfg.Bureau.Timeout != 30*time.Second {
					t.Errorf("Bureau.Timeout = %v, want 30s", cfg.Bureau.Timeout)
				}
				if cfg.Bureau.Auth.Type != "apikey" {
					t.Errorf("Auth.Type = %s, want apikey", cfg.Bureau.Auth.Type)
				}
				if cfg.Security.SigningKeyFile != "security/pri_key.pem" {
					t.Errorf("SigningKeyFile = %s, want security/pri_key.pem", cfg.Security.SigningKeyFile)
				}
				if cfg.Security.CounterpartyCertFile != "security/cdc_cert.pem" {
					t.Errorf("CounterpartyCertFile = %s, want security/cdc_cert.pem", cfg.Security.CounterpartyCertFile)
				}
				if cfg.Logging.Level != "info" || cfg.Logging.Encoding != "json" || cfg.Logging.OutputPath != "stderr" {
					t.Errorf("Logging defaults = %+v, want info/json/stderr", cfg.Logging)
				}
				if cfg.Metrics.Address != ":2112" || cfg.Metrics.Path != "/metrics" {
					t.Errorf("Metrics defaults = %+v", cfg.Metrics)
				}
				if cfg.Events.Subject != "credit.decisions" {
					t.Errorf("Events.Subject = %s, want credit.decisions", cfg.Events.Subject)
				}
				if len(cfg.Events.URLs) != 1 || cfg.Events.URLs[0] != "nats://localhost:4222" {
					t.Errorf("Events.URLs = %v, want [nats://localhost:4222]", cfg.Events.URLs)
				}
				if cfg.Server.Address != ":8080" {
					t.Errorf("Server.Address = %s, want :8080", cfg.Server.Address)
				}
				if cfg.Server.ShutdownGracePeriod != 15*time.Second {
					t.Errorf("ShutdownGracePeriod = %v, want 15s", cfg.Server.ShutdownGracePeriod)
				}
			},
		},
		{
			name: "explicit values are preserved",
			initial: Config{
				Bureau: BureauConfig{
					BaseURL: "https://bureau.example.com",
					Timeout: 5 * time.Second,
				},
				Logging: LogConfig{Level: "debug", OutputPath: "stdout", Encoding: "console"},
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Bureau.BaseURL != "https://bureau.example.com" {
					t.Errorf("Bureau.BaseURL overridden: %s", cfg.Bureau.BaseURL)
				}
				if cfg.Bureau.Timeout != 5*time.Second {
					t.Errorf("Bureau.Timeout overridden: %v", cfg.Bureau.Timeout)
				}
				if cfg.Logging.Level != "debug" || cfg.Logging.OutputPath != "stdout" {
					t.Errorf("Logging overridden: %+v", cfg.Logging)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			SetDefaults(&cfg)
			tt.validate(t, &cfg)
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Config{
			Bureau: BureauConfig{APIKey: "consumer-key"},
		}
		SetDefaults(&cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr bool
	}{
		{
			name:    "valid defaults",
			mutate:  func(cfg *Config) {},
			wantErr: false,
		},
		{
			name:    "missing API key",
			mutate:  func(cfg *Config) { cfg.Bureau.APIKey = "" },
			wantErr: true,
		},
		{
			name:    "zero timeout",
			mutate:  func(cfg *Config) { cfg.Bureau.Timeout = 0 },
			wantErr: true,
		},
		{
			name:    "unknown auth type",
			mutate:  func(cfg *Config) { cfg.Bureau.Auth.Type = "mtls" },
			wantErr: true,
		},
		{
			name: "oauth2 without client secret",
			mutate: func(cfg *Config) {
				cfg.Bureau.Auth.Type = "oauth2"
				cfg.Bureau.Auth.TokenURL = "https://auth.example.com/token"
				cfg.Bureau.Auth.ClientID = "id"
			},
			wantErr: true,
		},
		{
			name: "oauth2 complete does not need API key",
			mutate: func(cfg *Config) {
				cfg.Bureau.APIKey = ""
				cfg.Bureau.Auth.Type = "oauth2"
				cfg.Bureau.Auth.TokenURL = "https://auth.example.com/token"
				cfg.Bureau.Auth.ClientID = "id"
				cfg.Bureau.Auth.ClientSecret = "secret"
			},
			wantErr: false,
		},
		{
			name:    "invalid log level",
			mutate:  func(cfg *Config) { cfg.Logging.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "invalid metrics interval",
			mutate:  func(cfg *Config) { cfg.Metrics.Enabled = true; cfg.Metrics.UpdateInterval = "soon" },
			wantErr: true,
		},
		{
			name: "events with conflicting auth methods",
			mutate: func(cfg *Config) {
				cfg.Events.Enabled = true
				cfg.Events.Token = "tok"
				cfg.Events.Username = "user"
			},
			wantErr: true,
		},
		{
			name: "events with single auth method",
			mutate: func(cfg *Config) {
				cfg.Events.Enabled = true
				cfg.Events.Token = "tok"
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := Validate(&cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadEnvOverridesWithoutConfigFile(t *testing.T) {
	t.Setenv("CREDIT_AGENT_BUREAU_APIKEY", "env-consumer-key")
	t.Setenv("CREDIT_AGENT_BUREAU_BASEURL", "https://env.example.com")
	t.Setenv("CREDIT_AGENT_LOGGING_LEVEL", "debug")
	t.Setenv("CREDIT_AGENT_EVENTS_SUBJECT", "credit.decisions.env")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Bureau.APIKey != "env-consumer-key" {
		t.Errorf("Bureau.APIKey = %s, want env-consumer-key", cfg.Bureau.APIKey)
	}
	if cfg.Bureau.BaseURL != "https://env.example.com" {
		t.Errorf("Bureau.BaseURL = %s, want env override", cfg.Bureau.BaseURL)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %s, want debug", cfg.Logging.Level)
	}
	if cfg.Events.Subject != "credit.decisions.env" {
		t.Errorf("Events.Subject = %s, want env override", cfg.Events.Subject)
	}

	// Untouched keys keep their defaults.
	if cfg.Bureau.Timeout != 30*time.Second {
		t.Errorf("Bureau.Timeout = %v, want default 30s", cfg.Bureau.Timeout)
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := Config{}
	SetDefaults(&cfg)

	cfg.ApplyOverrides("key-override", "https://other.example.com", "/tmp/key.pem", "")

	if cfg.Bureau.APIKey != "key-override" {
		t.Errorf("APIKey = %s, want key-override", cfg.Bureau.APIKey)
	}
	if cfg.Bureau.BaseURL != "https://other.example.com" {
		t.Errorf("BaseURL = %s", cfg.Bureau.BaseURL)
	}
	if cfg.Security.SigningKeyFile != "/tmp/key.pem" {
		t.Errorf("SigningKeyFile = %s", cfg.Security.SigningKeyFile)
	}
	if cfg.Security.CounterpartyCertFile != "security/cdc_cert.pem" {
		t.Errorf("empty override should keep default, got %s", cfg.Security.CounterpartyCertFile)
	}
}
