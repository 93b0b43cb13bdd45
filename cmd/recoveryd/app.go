package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/recoverykit/chat"
	"github.com/kbukum/recoverykit/files"
	"github.com/kbukum/recoverykit/health"
	"github.com/kbukum/recoverykit/logger"
	"github.com/kbukum/recoverykit/models"
	"github.com/kbukum/recoverykit/observability"
	"github.com/kbukum/recoverykit/ollama"
	"github.com/kbukum/recoverykit/recovery"
	"github.com/kbukum/recoverykit/server"
	"github.com/kbukum/recoverykit/stream"
	"github.com/kbukum/recoverykit/title"
	"github.com/kbukum/recoverykit/version"
)

// app owns every long-lived component of the daemon.
type app struct {
	cfg *Config
	log *logger.Logger

	tracer *sdktrace.TracerProvider
	meter  *sdkmetric.MeterProvider

	client      *ollama.Client
	registry    *recovery.Registry
	models      *models.Manager
	chat        *chat.Service
	coordinator *health.Coordinator
	server      *server.Server

	gracefulTimeout time.Duration
}

// newApp applies defaults, validates the config and initializes the logger.
func newApp(cfg *Config) (*app, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	logger.Init(cfg.Logging)
	logger.RegisterDefaults()

	return &app{
		cfg:             cfg,
		log:             logger.GetGlobalLogger(),
		gracefulTimeout: 15 * time.Second,
	}, nil
}

// build wires the components. Observability providers are created first
// so the metrics handed to the registry and coordinator are live.
func (a *app) build(ctx context.Context) error {
	var metrics *observability.Metrics
	if a.cfg.Observability.Enabled {
		tp, err := observability.InitTracer(ctx, a.cfg.Observability.TracerConfig())
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		a.tracer = tp

		mp, err := observability.InitMeter(ctx, a.cfg.Observability.MeterConfig())
		if err != nil {
			return fmt.Errorf("init meter: %w", err)
		}
		a.meter = mp

		if metrics, err = observability.NewMetrics(observability.Meter(a.cfg.Name)); err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
	}

	a.client = ollama.NewClient(a.cfg.Ollama, ollama.WithLogger(a.log))

	a.registry = recovery.NewRegistry(
		recovery.WithConfig(a.cfg.Recovery),
		recovery.WithMetrics(metrics),
		recovery.WithLogger(a.log),
	)

	a.models = models.NewManager(a.client, a.registry, models.WithLogger(a.log))

	titles := title.NewService(
		&title.ModelSynthesizer{Backend: a.client, Model: a.cfg.Ollama.Model},
		title.WithRegistry(a.registry),
		title.WithLogger(a.log),
	)
	streams := stream.NewService(a.client, a.cfg.Stream,
		stream.WithRegistry(a.registry),
		stream.WithLogger(a.log),
	)
	tracker := files.NewTracker(a.cfg.Files,
		files.WithRegistry(a.registry),
		files.WithLogger(a.log),
	)
	a.chat = chat.NewService(streams,
		chat.WithTitler(titles),
		chat.WithLogger(a.log),
	)

	a.registry.SetResolver(recovery.NewFactory(recovery.Dependencies{
		Backend: a.client,
		Models:  a.models,
		Reset:   a.chat.ResetState,
		Config:  a.cfg.Recovery,
	}))

	a.coordinator = health.NewCoordinator(a.registry, health.Services{
		Chat:      a.chat,
		Streaming: streams,
		Files:     tracker,
		Titles:    titles,
	},
		health.WithMetrics(metrics),
		health.WithLogger(a.log),
	)

	a.server = server.New(a.cfg.Server, a.cfg.Name, a.coordinator, a.log)
	return nil
}

// start binds the server and optionally primes the model list. A failed
// preload is recorded in the registry and does not stop the daemon.
func (a *app) start(ctx context.Context) error {
	if err := a.server.Start(ctx); err != nil {
		return err
	}

	if a.cfg.PreloadModels {
		go func() {
			names, err := a.models.Load(ctx)
			if err != nil {
				a.log.Warn("model preload failed", logger.ErrorFields("load_models", err))
				return
			}
			a.log.Info("models loaded", logger.Fields("count", len(names), "model", a.client.Model()))
		}()
	}

	a.log.Info("recoveryd ready", logger.Fields(
		"addr", a.server.Addr(),
		"backend", a.cfg.Ollama.BaseURL,
		"environment", a.cfg.Environment,
		"version", version.Get().String(),
	))
	return nil
}

// waitForSignal blocks until SIGINT/SIGTERM or ctx is done.
func (a *app) waitForSignal(ctx context.Context) os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.log.Info("received shutdown signal", logger.Fields("signal", sig.String()))
		return sig
	case <-ctx.Done():
		a.log.Info("context canceled, shutting down")
		return nil
	}
}

// stop shuts the server down and flushes telemetry within the graceful
// timeout. Every step runs even if an earlier one fails.
func (a *app) stop() error {
	a.log.Info("shutting down", logger.Fields("timeout", a.gracefulTimeout.String()))

	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if a.server != nil {
		keep(a.server.Stop(ctx))
	}
	if a.coordinator != nil {
		a.coordinator.ResetAllServiceStates(ctx)
	}
	if a.meter != nil {
		keep(a.meter.Shutdown(ctx))
	}
	if a.tracer != nil {
		keep(a.tracer.Shutdown(ctx))
	}

	if firstErr != nil {
		a.log.Error("shutdown finished with errors", logger.Fields(logger.FieldError, firstErr.Error()))
		return firstErr
	}
	a.log.Info("shutdown complete")
	return nil
}

// run builds, starts and blocks until shutdown.
func (a *app) run(ctx context.Context) error {
	if err := a.build(ctx); err != nil {
		return err
	}
	if err := a.start(ctx); err != nil {
		return err
	}
	a.waitForSignal(ctx)
	return a.stop()
}
