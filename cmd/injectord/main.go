// Command injectord runs the injector demo services, either as a narrated
// lifecycle walkthrough or behind an HTTP server with a scope per request.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kbukum/injector/bootstrap"
	"github.com/kbukum/injector/config"
	"github.com/kbukum/injector/di"
	"github.com/kbukum/injector/internal/demo"
	"github.com/kbukum/injector/logger"
	"github.com/kbukum/injector/observability"
	"github.com/kbukum/injector/server"
	"github.com/kbukum/injector/version"
)

const serviceName = "injectord"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "injectord:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet(serviceName, pflag.ContinueOnError)
	var (
		configFile  = flags.String("config", "", "path to config.yml")
		envFile     = flags.String("env-file", "", "path to a .env file")
		profile     = flags.String("profile", "", "service profile: debug or release")
		walkthrough = flags.Bool("demo", false, "run the lifecycle walkthrough and exit")
		showVersion = flags.Bool("version", false, "print version and exit")
	)
	if err := flags.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		fmt.Println(version.Get().String())
		return nil
	}

	cfg, err := loadConfig(*configFile, *envFile, *profile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	shutdownTelemetry, injOpts, err := setupTelemetry(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdownTelemetry()

	app, err := bootstrap.NewApp(cfg, bootstrap.WithInjectorOptions(injOpts...))
	if err != nil {
		return err
	}

	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*AppConfig]) error {
		p, err := demo.ParseProfile(a.Cfg.Profile)
		if err != nil {
			return err
		}
		if err := demo.Configure(a.Injector, p, a.Cfg.LoggerParams); err != nil {
			return err
		}
		a.Warm(di.TypeOf[demo.Logger]())
		return nil
	})

	if *walkthrough {
		return app.RunTask(ctx, func(ctx context.Context) error {
			_, err := demo.Walkthrough(ctx, app.Injector, demo.Profile(cfg.Profile), os.Stdout)
			return err
		})
	}

	srv := server.New(cfg.Server, app.Logger)
	srv.ApplyDefaults(cfg.Name, app.Components.HealthAll, app.Injector)
	demo.NewHandler(app.Injector).Register(srv.API(app.Injector))
	if err := app.RegisterComponent(server.NewComponent(srv)); err != nil {
		return err
	}
	return app.Run(ctx)
}

func loadConfig(configFile, envFile, profile string) (*AppConfig, error) {
	cfg := &AppConfig{}
	opts := []config.LoaderOption{
		config.WithEnvPrefix("INJECTOR"),
		config.WithDefaults(map[string]any{
			"name":    serviceName,
			"version": version.Get().Short(),
		}),
	}
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	if profile != "" {
		cfg.Profile = profile
	}
	return cfg, nil
}

// setupTelemetry starts OTLP exporters when tracing is enabled and returns
// the injector options that report to them.
func setupTelemetry(ctx context.Context, cfg *AppConfig) (func(), []di.Option, error) {
	if !cfg.Tracing.Enabled {
		return func() {}, nil, nil
	}
	// Defaults are applied by bootstrap later; exporters need them now.
	cfg.ApplyDefaults()

	tp, err := observability.InitTracer(ctx, cfg.Tracing.TracerConfig)
	if err != nil {
		return nil, nil, err
	}

	meterCfg := observability.DefaultMeterConfig(cfg.Name)
	meterCfg.ServiceVersion = cfg.Version
	meterCfg.Environment = cfg.Environment
	meterCfg.Endpoint = cfg.Tracing.Endpoint
	meterCfg.Insecure = cfg.Tracing.Insecure
	meterCfg.Interval = time.Duration(cfg.Tracing.MetricsInterval) * time.Second
	mp, err := observability.InitMeter(ctx, &meterCfg)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, nil, err
	}

	metrics, err := observability.NewMetrics(observability.Meter(observability.DefaultTracerName))
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, nil, err
	}

	shutdown := func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(sctx); err != nil {
			logger.Warn("Tracer shutdown failed", logger.ErrorFields("shutdown", err))
		}
		if err := mp.Shutdown(sctx); err != nil {
			logger.Warn("Meter shutdown failed", logger.ErrorFields("shutdown", err))
		}
	}
	opts := []di.Option{
		di.WithMetrics(metrics),
		di.WithTracer(observability.Tracer(observability.DefaultTracerName)),
	}
	return shutdown, opts, nil
}
