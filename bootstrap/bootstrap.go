// Package bootstrap wires together the components of one running index
// process behind a functional-options Setup call.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/kestrelhealth/pacsindex/config"
	"github.com/kestrelhealth/pacsindex/diagnostics"
	"github.com/kestrelhealth/pacsindex/index"
	"github.com/kestrelhealth/pacsindex/logger"
	"github.com/kestrelhealth/pacsindex/store"
)

// Components holds every initialized piece of one process. Shutdown
// releases them in the reverse order they were acquired.
type Components struct {
	Config      *config.Config
	Logger      *logger.Logger
	Store       *store.Store
	Index       *index.Facade
	Diagnostics *diagnostics.Server

	cleanupFuncs []func() error
}

func (c *Components) addCleanup(fn func() error) {
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
}

// Shutdown runs every registered cleanup function in LIFO order, logging
// but not stopping on individual failures.
func (c *Components) Shutdown(ctx context.Context) {
	for i := len(c.cleanupFuncs) - 1; i >= 0; i-- {
		if err := c.cleanupFuncs[i](); err != nil {
			c.Logger.Error("cleanup failed", "error", err)
		}
	}
}

// options configures Setup. Every service that embeds this module gets the
// same defaults unless it overrides them.
type options struct {
	customConfig *config.Config
	customLogger *logger.Logger
	sink         index.DeletionSink
	skipDiagnostics bool
}

// Option customizes Setup.
type Option func(*options)

func defaultOptions() *options {
	return &options{sink: index.NopDeletionSink{}}
}

// WithConfig overrides the configuration Setup would otherwise load from
// the environment.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.customConfig = cfg }
}

// WithLogger overrides the logger Setup would otherwise construct.
func WithLogger(log *logger.Logger) Option {
	return func(o *options) { o.customLogger = log }
}

// WithDeletionSink supplies the callback invoked with cascade-delete side
// effects. The default discards them.
func WithDeletionSink(sink index.DeletionSink) Option {
	return func(o *options) { o.sink = sink }
}

// WithoutDiagnostics skips starting the ambient health/pprof server.
func WithoutDiagnostics() Option {
	return func(o *options) { o.skipDiagnostics = true }
}

// Setup initializes configuration, logging, the embedded store, the index
// facade, and (unless skipped) the diagnostics server, in that order. Each
// step that allocates a resource registers a cleanup that Shutdown runs in
// reverse order. The steps that can fail (loading the config, opening the
// store) run before any cleanup is registered, and an error return runs no
// cleanups.
func Setup(ctx context.Context, serviceName string, opts ...Option) (*Components, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	components := &Components{}

	var err error
	if options.customConfig != nil {
		components.Config = options.customConfig
	} else {
		components.Config, err = config.Load(serviceName)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	if options.customLogger != nil {
		components.Logger = options.customLogger
	} else {
		components.Logger = logger.New(components.Config.Service.LogLevel, components.Config.Service.LogFormat)
	}
	components.Logger.Info("initializing service", "service", serviceName)

	components.Store, err = store.Open(components.Config.Database.Path, components.Logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	components.addCleanup(func() error {
		components.Logger.Info("closing store")
		return components.Store.Close()
	})

	components.Index = index.New(components.Store, options.sink, components.Logger, components.Config.Database.FlushSleep)
	components.addCleanup(func() error {
		components.Logger.Info("closing index")
		return components.Index.Close()
	})

	if !options.skipDiagnostics && components.Config.Diagnostics.Enabled {
		components.Diagnostics = diagnostics.New(components.Config.Diagnostics.Port, nil, components.Logger)
		diagCtx, cancel := context.WithCancel(ctx)
		components.addCleanup(func() error {
			cancel()
			return nil
		})
		go func() {
			if err := components.Diagnostics.Start(diagCtx); err != nil {
				components.Logger.Error("diagnostics server error", "error", err)
			}
		}()
	}

	components.Logger.Info("service initialization complete", "service", serviceName)
	return components, nil
}

// MustSetup is like Setup but panics on error.
func MustSetup(ctx context.Context, serviceName string, opts ...Option) *Components {
	components, err := Setup(ctx, serviceName, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to setup service %s: %v", serviceName, err))
	}
	return components
}
