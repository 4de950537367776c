package bootstrap

import (
	"io"
	"time"

	"github.com/kbukum/injector/di"
	"github.com/kbukum/injector/logger"
)

// Option configures the App during creation.
// Options are non-generic so they can be used with any config type.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	injector        *di.Injector
	injectorOpts    []di.Option
	gracefulTimeout *time.Duration
	summaryOut      io.Writer
}

func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets a custom logger for the application.
// If not set, the logger is initialized from the config's Logging field.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) {
		o.logger = l
	}
}

// WithGracefulTimeout sets the maximum duration for graceful shutdown.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) {
		o.gracefulTimeout = &d
	}
}

// WithInjector makes the App adopt an existing injector. The App closes it
// on shutdown.
func WithInjector(inj *di.Injector) Option {
	return func(o *appOptions) {
		o.injector = inj
	}
}

// WithInjectorOptions passes options to the injector the App creates, such as
// di.WithMetrics or di.WithTracer. Ignored when WithInjector is used.
func WithInjectorOptions(opts ...di.Option) Option {
	return func(o *appOptions) {
		o.injectorOpts = append(o.injectorOpts, opts...)
	}
}

// WithSummaryOutput redirects the startup summary, which goes to stdout by
// default.
func WithSummaryOutput(w io.Writer) Option {
	return func(o *appOptions) {
		o.summaryOut = w
	}
}
