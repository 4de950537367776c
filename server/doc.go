// Package server exposes an injector over HTTP with gin, served with h2c
// so HTTP/2 works without TLS.
//
// Routes under the API prefix run in a per-request injector scope (see
// middleware.Scope). The built-in health checks, /info and /registrations
// endpoints run outside any scope.
//
//	srv := server.New(cfg, log)
//	srv.ApplyDefaults("injectord", app.Components.HealthAll, inj)
//	srv.API(inj).GET("/work", handler)
//	app.RegisterComponent(server.NewComponent(srv))
package server
