// Package log builds the structured loggers used across the pipeline:
// zap cores fanned out to one or more sinks (console, JSON, Sentry), with
// per-sink verbosity control and a process-wide default level.
package log

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// globalLogLevel is the default verbosity for sinks created without an
// explicit WithLevel/WithLeveler option.
var globalLogLevel = zap.NewAtomicLevel()

// SetLevel adjusts the default verbosity. It has no effect on sinks that
// were given their own WithLevel or WithLeveler option.
func SetLevel(level int8) {
	globalLogLevel.SetLevel(verbosityToZapLevel(level))
}

// SetLevelForControl adjusts the verbosity gated by a leveler handed out
// via WithLeveler.
func SetLevelForControl(l zap.AtomicLevel, level int8) {
	l.SetLevel(verbosityToZapLevel(level))
}

func verbosityToZapLevel(v int8) zapcore.Level { return zapcore.Level(-v) }

// sinkConfig holds the per-sink options applied by WithConsoleSink/WithJSONSink.
type sinkConfig struct {
	leveler zapcore.LevelEnabler
}

// SinkOption configures an individual sink.
type SinkOption func(*sinkConfig)

// WithLeveler gates a sink on a caller-owned, dynamically adjustable level.
func WithLeveler(l zapcore.LevelEnabler) SinkOption {
	return func(c *sinkConfig) { c.leveler = l }
}

// WithLevel gates a sink at a fixed verbosity for its lifetime.
func WithLevel(level int8) SinkOption {
	fixed := zap.NewAtomicLevel()
	fixed.SetLevel(verbosityToZapLevel(level))
	return WithLeveler(fixed)
}

func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if l <= zapcore.InfoLevel {
		enc.AppendString(fmt.Sprintf("info-%d", -int(l)))
		return
	}
	enc.AppendString(l.String())
}

func baseEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    encodeLevel,
		EncodeTime:     zapcore.RFC3339TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}

// loggerConfig accumulates the Options passed to New.
type loggerConfig struct {
	cores      []zapcore.Core
	sentryOpts *sentry.ClientOptions
	sentryCfg  func(*sentry.Scope)
}

// Option configures a logger constructed by New.
type Option func(*loggerConfig)

// WithConsoleSink writes tab-separated, human-readable log lines to w.
func WithConsoleSink(w io.Writer, opts ...SinkOption) Option {
	return func(lc *loggerConfig) {
		cfg := sinkConfig{leveler: globalLogLevel}
		for _, o := range opts {
			o(&cfg)
		}
		enc := zapcore.NewConsoleEncoder(baseEncoderConfig())
		lc.cores = append(lc.cores, zapcore.NewCore(enc, zapcore.AddSync(w), cfg.leveler))
	}
}

// WithJSONSink writes newline-delimited JSON log entries to w.
func WithJSONSink(w io.Writer, opts ...SinkOption) Option {
	return func(lc *loggerConfig) {
		cfg := sinkConfig{leveler: globalLogLevel}
		for _, o := range opts {
			o(&cfg)
		}
		enc := zapcore.NewJSONEncoder(baseEncoderConfig())
		lc.cores = append(lc.cores, zapcore.NewCore(enc, zapcore.AddSync(w), cfg.leveler))
	}
}

// WithSentry reports Error-level log entries to Sentry. If the client
// cannot be configured, the failure is logged through the other sinks
// instead of failing logger construction.
func WithSentry(opts sentry.ClientOptions, configureScope func(*sentry.Scope)) Option {
	return func(lc *loggerConfig) {
		lc.sentryOpts = &opts
		lc.sentryCfg = configureScope
	}
}

// New builds a logger named name from opts, returning it alongside a flush
// function that should be called before the process exits.
func New(name string, opts ...Option) (logr.Logger, func() error) {
	cfg := loggerConfig{}
	for _, o := range opts {
		o(&cfg)
	}

	cores := append([]zapcore.Core{}, cfg.cores...)
	var flushers []func() error

	if cfg.sentryOpts != nil {
		sentryCore, flush, err := newSentryCore(*cfg.sentryOpts, cfg.sentryCfg)
		if err != nil {
			zap.New(zapcore.NewTee(cores...)).Sugar().Errorw("error configuring logger", "error", err)
		} else {
			cores = append(cores, sentryCore)
			flushers = append(flushers, flush)
		}
	}

	zapLog := zap.New(zapcore.NewTee(cores...))
	logger := zapr.NewLogger(zapLog)
	if name != "" {
		logger = logger.WithName(name)
	}

	flush := func() error {
		errs := []error{zapLog.Sync()}
		for _, f := range flushers {
			errs = append(errs, f())
		}
		return errors.Join(errs...)
	}
	return logger, flush
}

// underlyingZap recovers the *zap.Logger backing a logr.Logger built by New.
func underlyingZap(logger logr.Logger) (*zap.Logger, bool) {
	u, ok := logger.GetSink().(zapr.Underlier)
	if !ok {
		return nil, false
	}
	return u.GetUnderlying(), true
}

// AddSink returns a new logger that writes everywhere logger already did,
// plus whatever sink opt configures.
func AddSink(logger logr.Logger, opt Option) (logr.Logger, func() error, error) {
	base, ok := underlyingZap(logger)
	if !ok {
		return logger, func() error { return nil }, fmt.Errorf("log: logger is not backed by zap")
	}

	cfg := loggerConfig{}
	opt(&cfg)

	newZap := base.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(append([]zapcore.Core{c}, cfg.cores...)...)
	}))
	return zapr.NewLogger(newZap), newZap.Sync, nil
}

// AddSentry returns a new logger that additionally reports Error-level
// entries to Sentry, or an error if the Sentry client could not be built.
func AddSentry(logger logr.Logger, opts sentry.ClientOptions, configureScope func(*sentry.Scope)) (logr.Logger, func() error, error) {
	base, ok := underlyingZap(logger)
	if !ok {
		return logger, func() error { return nil }, fmt.Errorf("log: logger is not backed by zap")
	}

	sentryCore, flush, err := newSentryCore(opts, configureScope)
	if err != nil {
		return logger, func() error { return nil }, err
	}

	newZap := base.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, sentryCore)
	}))
	return zapr.NewLogger(newZap), flush, nil
}

// gatedCore restricts an existing core to entries an additional leveler
// also allows.
type gatedCore struct {
	zapcore.Core
	leveler zapcore.LevelEnabler
}

func (g *gatedCore) Enabled(l zapcore.Level) bool { return g.leveler.Enabled(l) && g.Core.Enabled(l) }

func (g *gatedCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !g.leveler.Enabled(e.Level) {
		return ce
	}
	return g.Core.Check(e, ce)
}

func (g *gatedCore) With(fields []zapcore.Field) zapcore.Core {
	return &gatedCore{Core: g.Core.With(fields), leveler: g.leveler}
}

// AddLeveler layers an additional verbosity gate across every sink logger
// already writes to.
func AddLeveler(logger logr.Logger, leveler zapcore.LevelEnabler) (logr.Logger, error) {
	base, ok := underlyingZap(logger)
	if !ok {
		return logger, fmt.Errorf("log: logger is not backed by zap")
	}
	newZap := base.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return &gatedCore{Core: c, leveler: leveler}
	}))
	return zapr.NewLogger(newZap), nil
}

// sentryCore reports Error-level (and above) zap entries to a Sentry client.
type sentryCore struct {
	zapcore.LevelEnabler
	client *sentry.Client
	scope  *sentry.Scope
	fields []zapcore.Field
}

func newSentryCore(opts sentry.ClientOptions, configureScope func(*sentry.Scope)) (zapcore.Core, func() error, error) {
	client, err := sentry.NewClient(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("log: configuring sentry client: %w", err)
	}
	scope := sentry.NewScope()
	if configureScope != nil {
		configureScope(scope)
	}
	core := &sentryCore{
		LevelEnabler: zap.NewAtomicLevelAt(zapcore.ErrorLevel),
		client:       client,
		scope:        scope,
	}
	flush := func() error {
		if !client.Flush(5 * time.Second) {
			return fmt.Errorf("log: sentry flush timed out")
		}
		return nil
	}
	return core, flush, nil
}

func (c *sentryCore) With(fields []zapcore.Field) zapcore.Core {
	merged := append(append([]zapcore.Field{}, c.fields...), fields...)
	return &sentryCore{LevelEnabler: c.LevelEnabler, client: c.client, scope: c.scope, fields: merged}
}

func (c *sentryCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(e.Level) {
		return ce.AddCore(e, c)
	}
	return ce
}

func (c *sentryCore) Write(e zapcore.Entry, fields []zapcore.Field) error {
	event := sentry.NewEvent()
	event.Message = e.Message
	event.Level = sentry.LevelError
	event.Timestamp = e.Time

	enc := zapcore.NewMapObjectEncoder()
	for _, f := range append(append([]zapcore.Field{}, c.fields...), fields...) {
		f.AddTo(enc)
	}
	event.Extra = enc.Fields

	c.client.CaptureEvent(event, nil, c.scope)
	return nil
}

func (c *sentryCore) Sync() error { return nil }
