// file: internal/events/publisher.go

// Package events publishes finished evaluation records to NATS so downstream
// systems (CRM, collections, audit) can react to decisions. Publishing is
// best effort: a broker outage never fails an evaluation.
package events

import (
	"crypto/tls"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nkeys"

	"credit-agent/config"
	"credit-agent/internal/logger"
	"credit-agent/internal/metrics"
	"credit-agent/internal/pipeline"
)

// Publisher sends decision events to a NATS subject.
type Publisher struct {
	conn    *nats.Conn
	subject string
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewPublisher connects to NATS with the configured authentication and TLS
// options. The metrics handle may be nil.
func NewPublisher(cfg *config.EventsConfig, log *logger.Logger, m *metrics.Metrics) (*Publisher, error) {
	opts, err := buildOptions(cfg, log)
	if err != nil {
		return nil, err
	}

	conn, err := nats.Connect(strings.Join(cfg.URLs, ","), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Info("decision event publisher connected",
		"servers", strings.Join(cfg.URLs, ","),
		"subject", cfg.Subject)

	return &Publisher{
		conn:    conn,
		subject: cfg.Subject,
		logger:  log,
		metrics: m,
	}, nil
}

// buildOptions creates NATS connection options with authentication and TLS.
func buildOptions(cfg *config.EventsConfig, log *logger.Logger) ([]nats.Option, error) {
	opts := []nats.Option{
		nats.Name("credit-agent"),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
	}

	// Authentication options (mutually exclusive)
	if cfg.CredsFile != "" {
		log.Info("using NATS JWT authentication with creds file", "credsFile", cfg.CredsFile)
		opts = append(opts, nats.UserCredentials(cfg.CredsFile))
	} else if cfg.NKeySeedFile != "" {
		log.Info("using NATS NKey authentication", "seedFile", cfg.NKeySeedFile)
		opt, err := nkeyOption(cfg.NKeySeedFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, opt)
	} else if cfg.Token != "" {
		log.Info("using NATS token authentication")
		opts = append(opts, nats.Token(cfg.Token))
	} else if cfg.Username != "" {
		log.Info("using NATS username/password authentication", "username", cfg.Username)
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}

	if cfg.TLS.Enable {
		log.Info("enabling TLS for NATS connection", "insecure", cfg.TLS.Insecure)

		tlsConfig := &tls.Config{
			InsecureSkipVerify: cfg.TLS.Insecure,
		}
		if cfg.TLS.CertFile != "" && cfg.TLS.KeyFile != "" {
			cert, err := tls.LoadX509KeyPair(cfg.TLS.CertFile, cfg.TLS.KeyFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load NATS TLS client certificate: %w", err)
			}
			tlsConfig.Certificates = []tls.Certificate{cert}
		}
		if cfg.TLS.CAFile != "" {
			opts = append(opts, nats.RootCAs(cfg.TLS.CAFile))
		}
		opts = append(opts, nats.Secure(tlsConfig))
	}

	return opts, nil
}

// nkeyOption loads an NKey seed file and returns a signing-callback option.
func nkeyOption(seedFile string) (nats.Option, error) {
	seed, err := os.ReadFile(seedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read NKey seed file: %w", err)
	}

	kp, err := nkeys.FromSeed([]byte(strings.TrimSpace(string(seed))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse NKey seed: %w", err)
	}
	pub, err := kp.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("failed to derive NKey public key: %w", err)
	}

	return nats.Nkey(pub, kp.Sign), nil
}

// Publish sends one evaluation record. Errors are logged and counted but
// never propagated to the evaluation path.
func (p *Publisher) Publish(record *pipeline.EvaluationRecord) {
	data, err := json.Marshal(record)
	if err != nil {
		p.logger.Error("failed to marshal decision event", "error", err)
		p.count("marshal_error")
		return
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		p.logger.Error("failed to publish decision event",
			"subject", p.subject,
			"applicationId", record.ApplicationID,
			"error", err)
		p.count("error")
		return
	}

	p.logger.Debug("published decision event",
		"subject", p.subject,
		"applicationId", record.ApplicationID,
		"status", record.Status)
	p.count("success")
}

func (p *Publisher) count(status string) {
	if p.metrics != nil {
		p.metrics.IncEventPublishTotal(status)
	}
}

// Close drains the connection so queued events flush before shutdown.
func (p *Publisher) Close() {
	if p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("failed to drain NATS connection", "error", err)
		p.conn.Close()
	}
}
