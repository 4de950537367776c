package di

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/injector/logger"
	"github.com/kbukum/injector/observability"
)

// scopeKey stores the open scope of one injector in a context.
type scopeKey struct{ inj *Injector }

// Scope caches Scoped instances for one unit of work, usually a request.
// A scope belongs to the context returned by OpenScope; concurrent scopes on
// different contexts are independent.
type Scope struct {
	id     string
	inj    *Injector
	span   trace.Span
	opened time.Time

	mu        sync.Mutex
	instances map[reflect.Type]any
	order     []reflect.Type
	closed    bool
}

// ID returns the scope's unique identifier.
func (s *Scope) ID() string { return s.id }

// Closed reports whether Close has been called.
func (s *Scope) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Len returns the number of instances cached in the scope.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.instances)
}

func (s *Scope) get(t reflect.Type) (any, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, false
	}
	inst, ok := s.instances[t]
	return inst, ok, true
}

// store publishes staged instances. Nothing is stored if the scope closed
// while they were being built or if another resolution in the same scope
// stored one of the types first.
func (s *Scope) store(instances map[reflect.Type]any, order []reflect.Type) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errScopeState(order[0])
	}
	for _, t := range order {
		if _, ok := s.instances[t]; ok {
			return errLostRace
		}
	}
	for _, t := range order {
		s.instances[t] = instances[t]
		s.order = append(s.order, t)
	}
	return nil
}

// Close discards the scope's cache and closes cached instances that
// implement Close() error, newest first. Calling Close again is a no-op.
func (s *Scope) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	instances := make([]any, 0, len(s.order))
	for idx := len(s.order) - 1; idx >= 0; idx-- {
		instances = append(instances, s.instances[s.order[idx]])
	}
	s.instances = nil
	s.order = nil
	s.mu.Unlock()

	s.inj.mu.Lock()
	s.inj.openScopes--
	s.inj.mu.Unlock()

	err := closeAll(instances)

	ctx := trace.ContextWithSpan(context.Background(), s.span)
	s.inj.metrics.ScopeClosed(ctx)
	s.span.SetAttributes(attribute.Int("di.scope_instances", len(instances)))
	observability.EndSpan(s.span, err)

	s.inj.log.Debug("Scope closed", logger.Fields(
		logger.FieldScopeID, s.id,
		logger.FieldDuration, time.Since(s.opened).Milliseconds(),
		"instances", len(instances),
	))
	return err
}

// OpenScope opens a scope and returns a context carrying it. Scoped
// services resolved through that context share one instance per type until
// the scope is closed. Opening a scope on a context that already carries an
// open scope of this injector fails with a NestedScope error.
//
// Prefer WithScope, which guarantees the scope is closed.
func (i *Injector) OpenScope(ctx context.Context) (context.Context, *Scope, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if open := i.ScopeFrom(ctx); open != nil && !open.Closed() {
		i.metrics.RecordError(ctx, ErrorCode(ErrNestedScope), "di")
		return ctx, nil, errNestedScope(open)
	}

	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return ctx, nil, errInjectorClosed()
	}
	i.openScopes++
	i.mu.Unlock()

	s := &Scope{
		id:        uuid.NewString(),
		inj:       i,
		opened:    time.Now(),
		instances: make(map[reflect.Type]any),
	}
	ctx, s.span = i.tracer.Start(ctx, observability.SpanScope,
		trace.WithAttributes(attribute.String(observability.AttrScopeID, s.id)),
	)
	i.metrics.ScopeOpened(ctx)

	i.log.Debug("Scope opened", logger.Fields(logger.FieldScopeID, s.id))
	return context.WithValue(ctx, scopeKey{i}, s), s, nil
}

// WithScope runs fn inside a fresh scope and closes the scope when fn
// returns or panics. fn's error takes precedence over errors from closing
// scoped instances.
func (i *Injector) WithScope(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	scopeCtx, scope, err := i.OpenScope(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := scope.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(scopeCtx)
}

// ScopeFrom returns the scope of this injector carried by ctx, or nil.
func (i *Injector) ScopeFrom(ctx context.Context) *Scope {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(scopeKey{i}).(*Scope)
	return s
}
