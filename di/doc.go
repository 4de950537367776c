// Package di provides a reflection-based dependency injection container.
//
// Services are keyed by type. A registration binds a service type (usually an
// interface) to a producer: a Factory, invoked fresh on every resolution, or
// a Class constructor whose parameters the injector satisfies and whose
// instances are cached per Lifecycle.
//
// # Registration
//
//	inj := di.New()
//	di.MustRegister[Logger](inj, di.Class(NewConsoleLogger), di.WithLifecycle(di.Singleton))
//	di.MustRegister[Worker](inj, di.Class(NewWorker, "logger", "retries"),
//	    di.WithLifecycle(di.Transient),
//	    di.WithParam("retries", 3),
//	)
//	di.MustRegister[Clock](inj, di.Factory(func() Clock { return systemClock{} }))
//
// Registration is rejected while any scope is open.
//
// # Resolution
//
//	w, err := di.Resolve[Worker](ctx, inj)
//
// Each constructor parameter is satisfied, in order of precedence, by an
// explicit parameter of the same registration, by the resolution context
// for context.Context parameters, or by resolving the parameter's type.
// Dependency cycles fail with a CircularDependency error. A failed
// resolution leaves every cache unchanged.
//
// # Scopes
//
//	err := inj.WithScope(ctx, func(ctx context.Context) error {
//	    s, err := di.Resolve[Session](ctx, inj)
//	    ...
//	})
//
// A scope lives in the context it was opened on. Scopes on different
// contexts are independent, and a scope cannot be opened inside another.
package di
