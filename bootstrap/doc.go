// Package bootstrap runs an application built around an injector.
//
// An App validates its typed configuration, initializes logging, creates
// the injector and manages components in registration order. The injector
// itself is the first component: it warms up selected singletons on start
// and disposes every cached singleton after the other components stop.
//
//	app, err := bootstrap.NewApp(&cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*Config]) error {
//	    return demo.ConfigureRelease(a.Injector)
//	})
//	if err := app.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package bootstrap
