// Package logger configures application logging and APM.
//
// Logging is zerolog; when a New Relic license key is configured the logger
// writes through the logcontext-v2 zerologWriter so log lines are forwarded
// with trace linking. Without a key everything degrades to plain zerolog.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dictatemed/dictatemed/internal/config"
	"github.com/newrelic/go-agent/v3/integrations/logcontext-v2/zerologWriter"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"
)

// LoggerService owns the New Relic application instance. nrApp is nil when
// New Relic is not configured; callers must treat it as optional.
type LoggerService struct {
	nrApp *newrelic.Application
}

// GetApplication returns the New Relic application, or nil when APM is
// disabled.
func (s *LoggerService) GetApplication() *newrelic.Application {
	if s == nil {
		return nil
	}
	return s.nrApp
}

// Shutdown flushes pending telemetry. Safe to call with APM disabled.
func (s *LoggerService) Shutdown(timeout time.Duration) {
	if s == nil || s.nrApp == nil {
		return
	}
	s.nrApp.Shutdown(timeout)
}

// New builds the application logger and, when configured, the New Relic
// application behind a LoggerService.
func New(cfg *config.Config) (*zerolog.Logger, *LoggerService, error) {
	obs := cfg.Observability

	level, err := zerolog.ParseLevel(obs.GetLogLevel())
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", obs.GetLogLevel(), err)
	}

	service := &LoggerService{}

	if obs.NewRelic.LicenseKey != "" {
		app, err := newrelic.NewApplication(
			newrelic.ConfigAppName(obs.ServiceName),
			newrelic.ConfigLicense(obs.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(obs.NewRelic.DistributedTracingEnabled),
			newrelic.ConfigAppLogForwardingEnabled(obs.NewRelic.AppLogForwardingEnabled),
			func(c *newrelic.Config) {
				if obs.NewRelic.DebugLogging {
					c.Logger = newrelic.NewDebugLogger(os.Stderr)
				}
			},
		)
		if err != nil {
			return nil, nil, fmt.Errorf("initializing new relic: %w", err)
		}
		service.nrApp = app
	}

	var out io.Writer = os.Stdout
	if obs.Logging.Format == "console" || cfg.Primary.Env == "local" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	var log zerolog.Logger
	if service.nrApp != nil && obs.NewRelic.AppLogForwardingEnabled {
		writer := zerologWriter.New(out, service.nrApp)
		log = zerolog.New(writer).Level(level).With().Timestamp().
			Str("service", obs.ServiceName).
			Str("env", obs.Environment).
			Logger()
	} else {
		log = zerolog.New(out).Level(level).With().Timestamp().
			Str("service", obs.ServiceName).
			Str("env", obs.Environment).
			Logger()
	}

	return &log, service, nil
}

// WithTraceContext attaches New Relic trace correlation fields to a logger.
func WithTraceContext(log zerolog.Logger, txn *newrelic.Transaction) zerolog.Logger {
	if txn == nil {
		return log
	}

	md := txn.GetTraceMetadata()
	builder := log.With()
	if md.TraceID != "" {
		builder = builder.Str("trace.id", md.TraceID)
	}
	if md.SpanID != "" {
		builder = builder.Str("span.id", md.SpanID)
	}
	return builder.Logger()
}
