// Package component defines lifecycle-managed application parts and the
// registry that starts and stops them in order.
//
// InjectorComponent adapts a di.Injector so that the injector is closed,
// and its singletons disposed, after every component registered later has
// stopped.
package component
