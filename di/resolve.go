package di

import (
	"context"
	"errors"
	"reflect"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/injector/logger"
	"github.com/kbukum/injector/observability"
)

// resolutionKey stores the in-flight resolution of one injector in a context.
type resolutionKey struct{ inj *Injector }

// resolution is the state of one top-level GetInstance call. Instances built
// for cached lifecycles are staged here and published only if the whole
// graph resolves.
type resolution struct {
	scope *Scope
	done  bool

	singletons     map[reflect.Type]any
	singletonOrder []reflect.Type
	scoped         map[reflect.Type]any
	scopedOrder    []reflect.Type
	// staged holds every staged instance in build order.
	staged []any

	// Guarded by Injector.mu.
	claims  []reflect.Type
	waiting *claim
}

func (r *resolution) stageSingleton(t reflect.Type, inst any) {
	if r.singletons == nil {
		r.singletons = make(map[reflect.Type]any)
	}
	r.singletons[t] = inst
	r.singletonOrder = append(r.singletonOrder, t)
	r.staged = append(r.staged, inst)
}

func (r *resolution) stageScoped(t reflect.Type, inst any) {
	if r.scoped == nil {
		r.scoped = make(map[reflect.Type]any)
	}
	r.scoped[t] = inst
	r.scopedOrder = append(r.scopedOrder, t)
	r.staged = append(r.staged, inst)
}

// waitsOn reports whether r is blocked, directly or through other
// resolutions, on a claim held by target.
func (r *resolution) waitsOn(target *resolution) bool {
	for cur := r; cur.waiting != nil; cur = cur.waiting.owner {
		if cur.waiting.owner == target {
			return true
		}
	}
	return false
}

// claim marks a singleton that one resolution is building. Other
// resolutions wait for it to be released rather than build a second one.
// Once built, the instance waits only for its owner's commit; a claim in
// that state no longer blocks anyone.
type claim struct {
	owner *resolution
	done  chan struct{}
	built bool
}

// errLostRace reports that another resolution published an instance this
// one had staged. The resolution is discarded and run again.
var errLostRace = errors.New("di: instance published by a concurrent resolution")

// frame is one service type on the current resolution path.
type frame struct {
	res         *resolution
	parent      *frame
	serviceType reflect.Type
}

// chainTo returns the path from the first occurrence of t to t, or nil when
// t is not on the path.
func (f *frame) chainTo(t reflect.Type) []reflect.Type {
	var path []reflect.Type
	for cur := f; cur != nil; cur = cur.parent {
		path = append(path, cur.serviceType)
	}
	for idx := len(path) - 1; idx >= 0; idx-- {
		if path[idx] != t {
			continue
		}
		chain := make([]reflect.Type, 0, idx+2)
		for j := idx; j >= 0; j-- {
			chain = append(chain, path[j])
		}
		return append(chain, t)
	}
	return nil
}

// GetInstance resolves serviceType, building its dependency graph as needed.
//
// Scoped services need ctx to carry a scope opened by OpenScope or WithScope.
// Producers should resolve other services through the context they were
// given. Resolving through another context starts an independent resolution
// that neither sees the caller's scope nor takes part in cycle detection; a
// cycle routed through such a context waits until that context is done.
func (i *Injector) GetInstance(ctx context.Context, serviceType reflect.Type) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if f, ok := ctx.Value(resolutionKey{i}).(*frame); ok && !f.res.done {
		return i.resolve(ctx, f.res, f, serviceType)
	}

	start := time.Now()
	ctx, span := i.tracer.Start(ctx, observability.SpanResolve,
		trace.WithAttributes(attribute.String(observability.AttrServiceType, typeName(serviceType))),
	)

	inst, hit, err := i.resolveTop(ctx, serviceType)

	span.SetAttributes(attribute.Bool(observability.AttrCacheHit, hit))
	status := "ok"
	if err != nil {
		status = "error"
		code := ErrorCode(err)
		span.SetAttributes(attribute.String(observability.AttrErrorCode, code))
		i.metrics.RecordError(ctx, code, "di")
		i.log.Debug("Resolution failed", logger.Fields(
			logger.FieldServiceType, typeName(serviceType),
			logger.FieldError, err.Error(),
		))
	}
	observability.EndSpan(span, err)
	i.metrics.RecordResolve(ctx, typeName(serviceType), status, time.Since(start))

	return inst, err
}

// resolveTop serves cached instances without blocking and otherwise builds
// the graph. A resolution that loses a publication race is discarded and
// rebuilt on top of the instances the winner published.
func (i *Injector) resolveTop(ctx context.Context, serviceType reflect.Type) (any, bool, error) {
	scope := i.ScopeFrom(ctx)

	if inst, ok, err := i.cached(scope, serviceType); err != nil || ok {
		return inst, ok, err
	}

	for {
		res := &resolution{scope: scope}
		inst, err := i.resolve(ctx, res, nil, serviceType)
		res.done = true
		if err == nil {
			err = i.commit(res)
		}
		if err == nil {
			return inst, false, nil
		}

		if cerr := i.abort(res); cerr != nil {
			i.log.Warn("Closing discarded instances failed", logger.Fields(
				logger.FieldServiceType, typeName(serviceType),
				logger.FieldError, cerr.Error(),
			))
		}
		if !errors.Is(err, errLostRace) {
			return nil, false, err
		}
		i.log.Debug("Resolution lost a publication race, retrying", logger.Fields(
			logger.FieldServiceType, typeName(serviceType),
		))
	}
}

// cached returns an already published instance of serviceType, if any.
func (i *Injector) cached(scope *Scope, serviceType reflect.Type) (any, bool, error) {
	i.mu.RLock()
	if i.closed {
		i.mu.RUnlock()
		return nil, false, errInjectorClosed()
	}
	reg, registered := i.registrations[serviceType]
	inst, isSingleton := i.singletons[serviceType]
	i.mu.RUnlock()

	if !registered {
		return nil, false, errUnregistered(serviceType)
	}
	switch reg.lifecycle {
	case Singleton:
		return inst, isSingleton, nil
	case Scoped:
		if scope == nil {
			return nil, false, errScopeState(serviceType)
		}
		inst, ok, open := scope.get(serviceType)
		if !open {
			return nil, false, errScopeState(serviceType)
		}
		return inst, ok, nil
	}
	return nil, false, nil
}

// resolve produces serviceType within res. parent is the frame of the
// service whose constructor asked for it, nil at the top.
func (i *Injector) resolve(ctx context.Context, res *resolution, parent *frame, serviceType reflect.Type) (any, error) {
	if chain := parent.chainTo(serviceType); chain != nil {
		return nil, errCircular(chain)
	}

	i.mu.RLock()
	if i.closed {
		i.mu.RUnlock()
		return nil, errInjectorClosed()
	}
	reg, registered := i.registrations[serviceType]
	singleton, isSingleton := i.singletons[serviceType]
	i.mu.RUnlock()

	if !registered {
		return nil, errUnregistered(serviceType)
	}

	f := &frame{res: res, parent: parent, serviceType: serviceType}

	switch reg.lifecycle {
	case Singleton:
		if isSingleton {
			return singleton, nil
		}
		if inst, ok := res.singletons[serviceType]; ok {
			return inst, nil
		}
		inst, published, err := i.claimSingleton(ctx, res, reg)
		if err != nil || published {
			return inst, err
		}
		inst, err = i.construct(ctx, f, reg)
		if err != nil {
			return nil, err
		}
		res.stageSingleton(serviceType, inst)
		i.markBuilt(res, serviceType)
		return inst, nil

	case Scoped:
		if res.scope == nil {
			return nil, errScopeState(serviceType)
		}
		inst, ok, open := res.scope.get(serviceType)
		if !open {
			return nil, errScopeState(serviceType)
		}
		if ok {
			return inst, nil
		}
		if inst, ok := res.scoped[serviceType]; ok {
			return inst, nil
		}
		inst, err := i.construct(ctx, f, reg)
		if err != nil {
			return nil, err
		}
		res.stageScoped(serviceType, inst)
		return inst, nil

	default:
		return i.construct(ctx, f, reg)
	}
}

// construct invokes the registration's producer with its arguments resolved.
func (i *Injector) construct(ctx context.Context, f *frame, reg *registration) (any, error) {
	p := reg.producer
	ctx, span := i.tracer.Start(ctx, observability.SpanConstruct, trace.WithAttributes(
		attribute.String(observability.AttrServiceType, typeName(reg.serviceType)),
		attribute.String(observability.AttrLifecycle, reg.lifecycle.String()),
		attribute.String(observability.AttrProducer, p.kind.String()),
		attribute.String(observability.AttrConstructor, p.name),
	))
	ctx = context.WithValue(ctx, resolutionKey{i}, f)

	inst, err := i.invoke(ctx, f, reg)
	observability.EndSpan(span, err)
	if err != nil {
		return nil, err
	}

	i.metrics.RecordConstruct(ctx, typeName(reg.serviceType), reg.lifecycle.String())
	i.log.Debug("Service constructed", logger.Fields(
		logger.FieldServiceType, typeName(reg.serviceType),
		logger.FieldLifecycle, reg.lifecycle.String(),
		logger.FieldProducer, p.name,
	))
	return inst, nil
}

func (i *Injector) invoke(ctx context.Context, f *frame, reg *registration) (any, error) {
	p := reg.producer

	if p.kind == factoryProducer {
		var args []reflect.Value
		if p.withCtx {
			args = []reflect.Value{reflect.ValueOf(&ctx).Elem()}
		}
		inst, err := p.call(reg.serviceType, args)
		if err != nil {
			return nil, err
		}
		if inst != nil && !reflect.TypeOf(inst).AssignableTo(reg.serviceType) {
			return nil, errTypeMismatch(reflect.TypeOf(inst), reg.serviceType)
		}
		return inst, nil
	}

	args := make([]reflect.Value, len(p.params))
	for idx, prm := range p.params {
		v, err := i.argument(ctx, f, reg, prm)
		if err != nil {
			return nil, err
		}
		args[idx] = v
	}
	return p.call(reg.serviceType, args)
}

// argument satisfies one constructor parameter. Explicit parameters of the
// registration win, then the resolution context, then registered types.
func (i *Injector) argument(ctx context.Context, f *frame, reg *registration, prm Param) (reflect.Value, error) {
	if v, ok := reg.params[prm.Name]; ok {
		return v, nil
	}
	if prm.Type == contextType {
		return reflect.ValueOf(&ctx).Elem(), nil
	}
	if !i.IsRegistered(prm.Type) {
		return reflect.Value{}, errMissingParameter(prm, reg.producer.name, reg.serviceType)
	}

	dep, err := i.resolve(ctx, f.res, f, prm.Type)
	if err != nil {
		return reflect.Value{}, err
	}
	if dep == nil {
		return reflect.Zero(prm.Type), nil
	}
	return reflect.ValueOf(dep), nil
}

// claimSingleton reserves reg's singleton for res to build. If another
// resolution is still constructing it, claimSingleton waits and returns the
// instance that resolution publishes. When the other instance is already
// built, or waiting could deadlock, res builds its own and commit decides
// which instance is kept.
func (i *Injector) claimSingleton(ctx context.Context, res *resolution, reg *registration) (any, bool, error) {
	t := reg.serviceType
	for {
		i.mu.Lock()
		if i.closed {
			i.mu.Unlock()
			return nil, false, errInjectorClosed()
		}
		if inst, ok := i.singletons[t]; ok {
			i.mu.Unlock()
			return inst, true, nil
		}
		c := i.claims[t]
		switch {
		case c == nil:
			i.claims[t] = &claim{owner: res, done: make(chan struct{})}
			res.claims = append(res.claims, t)
			i.mu.Unlock()
			return nil, false, nil
		case c.owner == res:
			i.mu.Unlock()
			return nil, false, errCircular([]reflect.Type{t, t})
		case c.built, c.owner.waitsOn(res):
			i.mu.Unlock()
			return nil, false, nil
		}
		res.waiting = c
		i.mu.Unlock()

		var err error
		select {
		case <-c.done:
		case <-ctx.Done():
			err = ctx.Err()
		}

		i.mu.Lock()
		res.waiting = nil
		i.mu.Unlock()
		if err != nil {
			return nil, false, errConstructionFailed(reg.producer.name, t, err)
		}
	}
}

// commit publishes staged instances atomically and releases res's claims.
// Nothing is published if the injector or scope closed, or if another
// resolution already published one of the staged types.
func (i *Injector) commit(res *resolution) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return errInjectorClosed()
	}
	for _, t := range res.singletonOrder {
		if _, ok := i.singletons[t]; ok {
			return errLostRace
		}
	}
	if len(res.scopedOrder) > 0 {
		if err := res.scope.store(res.scoped, res.scopedOrder); err != nil {
			return err
		}
	}
	for _, t := range res.singletonOrder {
		i.singletons[t] = res.singletons[t]
		i.singletonOrder = append(i.singletonOrder, t)
	}
	i.releaseClaims(res)
	return nil
}

// abort releases res's claims and closes what it staged, newest first.
func (i *Injector) abort(res *resolution) error {
	i.mu.Lock()
	i.releaseClaims(res)
	i.mu.Unlock()

	instances := make([]any, 0, len(res.staged))
	for idx := len(res.staged) - 1; idx >= 0; idx-- {
		instances = append(instances, res.staged[idx])
	}
	return closeAll(instances)
}

func (i *Injector) markBuilt(res *resolution, t reflect.Type) {
	i.mu.Lock()
	if c := i.claims[t]; c != nil && c.owner == res {
		c.built = true
	}
	i.mu.Unlock()
}

// releaseClaims wakes resolutions waiting on res. Callers hold i.mu.
func (i *Injector) releaseClaims(res *resolution) {
	for _, t := range res.claims {
		if c := i.claims[t]; c != nil && c.owner == res {
			delete(i.claims, t)
			close(c.done)
		}
	}
	res.claims = nil
}
