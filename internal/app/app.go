// file: internal/app/app.go

// Package app wires the application components together: logger, metrics,
// security context, bureau client, decision policy, evaluation pipeline and
// the optional event publisher and assistant.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"credit-agent/config"
	"credit-agent/internal/assistant"
	"credit-agent/internal/bureau"
	"credit-agent/internal/events"
	"credit-agent/internal/logger"
	"credit-agent/internal/metrics"
	"credit-agent/internal/pipeline"
	"credit-agent/internal/policy"
	"credit-agent/internal/security"
)

// App holds all initialized components.
type App struct {
	config           *config.Config
	logger           *logger.Logger
	metrics          *metrics.Metrics
	metricsCollector *metrics.MetricsCollector
	security         *security.Context
	bureau           *bureau.Client
	policy           *policy.Policy
	pipeline         *pipeline.Pipeline
	publisher        *events.Publisher
	assistant        *assistant.Client
}

// NewApp creates an application instance with all components initialized in
// dependency order.
func NewApp(cfg *config.Config) (*App, error) {
	app := &App{config: cfg}

	if err := app.setupLogger(); err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}
	if err := app.setupMetrics(); err != nil {
		return nil, fmt.Errorf("failed to setup metrics: %w", err)
	}
	if err := app.setupSecurity(); err != nil {
		return nil, fmt.Errorf("failed to setup security: %w", err)
	}
	if err := app.setupPolicy(); err != nil {
		return nil, fmt.Errorf("failed to setup policy: %w", err)
	}
	app.setupBureau()
	if err := app.setupEvents(); err != nil {
		return nil, fmt.Errorf("failed to setup event publisher: %w", err)
	}
	app.setupAssistant()

	app.pipeline = pipeline.New(app.bureau, app.policy, app.logger, app.metrics)

	return app, nil
}

func (a *App) setupLogger() error {
	log, err := logger.NewLogger(&a.config.Logging)
	if err != nil {
		return err
	}
	a.logger = log
	return nil
}

func (a *App) setupMetrics() error {
	if !a.config.Metrics.Enabled {
		return nil
	}

	m, err := metrics.NewMetrics(prometheus.NewRegistry())
	if err != nil {
		return err
	}
	a.metrics = m

	interval, err := time.ParseDuration(a.config.Metrics.UpdateInterval)
	if err != nil {
		return fmt.Errorf("invalid metrics update interval: %w", err)
	}
	a.metricsCollector = metrics.NewMetricsCollector(m, interval)
	a.metricsCollector.Start()

	a.logger.Info("metrics enabled",
		"address", a.config.Metrics.Address,
		"path", a.config.Metrics.Path,
		"updateInterval", interval.String())
	return nil
}

func (a *App) setupSecurity() error {
	sec, err := security.NewContext(&a.config.Security, a.logger)
	if err != nil {
		return err
	}
	a.security = sec
	return nil
}

func (a *App) setupPolicy() error {
	p, err := policy.Load(a.config.Policy.File)
	if err != nil {
		return err
	}
	a.policy = p
	if a.config.Policy.File != "" {
		a.logger.Info("loaded decision policy", "file", a.config.Policy.File)
	}
	return nil
}

func (a *App) setupBureau() {
	a.bureau = bureau.NewClient(&a.config.Bureau, a.security, a.logger, a.metrics)
}

func (a *App) setupEvents() error {
	if !a.config.Events.Enabled {
		return nil
	}
	pub, err := events.NewPublisher(&a.config.Events, a.logger, a.metrics)
	if err != nil {
		return err
	}
	a.publisher = pub
	return nil
}

func (a *App) setupAssistant() {
	a.assistant = assistant.NewClient(&a.config.Assistant, a.logger)
	if a.assistant != nil {
		a.logger.Info("assistant client enabled", "model", a.config.Assistant.Model)
	}
}

// Evaluate runs one application through the pipeline and publishes the
// resulting record when the event publisher is configured.
func (a *App) Evaluate(ctx context.Context, application *pipeline.CreditApplication) (*pipeline.EvaluationRecord, error) {
	record, err := a.pipeline.Evaluate(ctx, application)
	if err != nil {
		return nil, err
	}
	if a.publisher != nil {
		a.publisher.Publish(record)
	}
	return record, nil
}

// Logger exposes the application logger to commands.
func (a *App) Logger() *logger.Logger {
	return a.logger
}

// Metrics exposes the metrics handle; nil when metrics are disabled.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// SecurityContext exposes the signature context.
func (a *App) SecurityContext() *security.Context {
	return a.security
}

// Assistant exposes the assistant client; nil when no API key is configured.
func (a *App) Assistant() *assistant.Client {
	return a.assistant
}

// Close shuts down all components.
func (a *App) Close() {
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.metricsCollector != nil {
		a.metricsCollector.Stop()
	}
	if a.logger != nil {
		a.logger.Sync()
	}
}
