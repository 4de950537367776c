package di

import (
	"errors"
	"math"
	"reflect"
	"sort"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/injector/logger"
	"github.com/kbukum/injector/observability"
)

// registration binds one service type to its producer.
type registration struct {
	serviceType reflect.Type
	producer    Producer
	lifecycle   Lifecycle
	params      map[string]reflect.Value
}

// Injector is a typed registry that resolves object graphs on demand.
// It is safe for concurrent use.
type Injector struct {
	mu             sync.RWMutex
	registrations  map[reflect.Type]*registration
	singletons     map[reflect.Type]any
	singletonOrder []reflect.Type
	openScopes     int
	closed         bool
	// claims holds the singletons currently being built, one resolution each.
	claims map[reflect.Type]*claim

	log     *logger.Logger
	metrics *observability.Metrics
	tracer  trace.Tracer
}

// Option configures an Injector.
type Option func(*Injector)

// WithLogger sets the logger used for registration and construction events.
func WithLogger(l *logger.Logger) Option {
	return func(i *Injector) {
		if l != nil {
			i.log = l.WithComponent("di")
		}
	}
}

// WithMetrics records resolution metrics on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(i *Injector) { i.metrics = m }
}

// WithTracer sets the tracer used for resolution spans. Defaults to the
// global provider's tracer.
func WithTracer(t trace.Tracer) Option {
	return func(i *Injector) {
		if t != nil {
			i.tracer = t
		}
	}
}

// New creates an empty injector.
func New(opts ...Option) *Injector {
	i := &Injector{
		registrations: make(map[reflect.Type]*registration),
		singletons:    make(map[reflect.Type]any),
		claims:        make(map[reflect.Type]*claim),
		log:           logger.WithComponent("di"),
		tracer:        observability.Tracer(observability.DefaultTracerName),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// RegisterOption configures a single registration.
type RegisterOption func(*registerOptions)

type registerOptions struct {
	lifecycle    Lifecycle
	lifecycleSet bool
	params       map[string]any
}

// WithLifecycle sets the lifecycle of a class registration. It is required
// for classes and rejected for factories.
func WithLifecycle(l Lifecycle) RegisterOption {
	return func(o *registerOptions) {
		o.lifecycle = l
		o.lifecycleSet = true
	}
}

// WithParams supplies literal values for constructor parameters by name.
// They apply only to the registration they are passed to, and take
// precedence over registered types.
func WithParams(params map[string]any) RegisterOption {
	return func(o *registerOptions) {
		if o.params == nil {
			o.params = make(map[string]any, len(params))
		}
		for k, v := range params {
			o.params[k] = v
		}
	}
}

// WithParam supplies a single literal constructor parameter.
func WithParam(name string, value any) RegisterOption {
	return WithParams(map[string]any{name: value})
}

// Register binds serviceType to producer. Registering the same type again
// replaces the previous binding. Caches are not touched, so a singleton that
// was already built for serviceType keeps being returned.
func (i *Injector) Register(serviceType reflect.Type, producer Producer, opts ...RegisterOption) error {
	var o registerOptions
	for _, opt := range opts {
		opt(&o)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return errInjectorClosed()
	}
	if i.openScopes > 0 {
		return errReconfigureInScope(serviceType)
	}

	reg, err := newRegistration(serviceType, producer, o)
	if err != nil {
		return err
	}

	if _, replaced := i.registrations[serviceType]; replaced {
		if _, stale := i.singletons[serviceType]; stale {
			i.log.Warn("Re-registered a service whose singleton is already built; the cached instance is kept", logger.Fields(
				logger.FieldServiceType, typeName(serviceType),
			))
		}
	}
	i.registrations[serviceType] = reg

	i.log.Debug("Service registered", logger.Fields(
		logger.FieldServiceType, typeName(serviceType),
		logger.FieldProducer, producer.kind.String(),
		logger.FieldLifecycle, reg.lifecycle.String(),
	))
	return nil
}

func newRegistration(serviceType reflect.Type, p Producer, o registerOptions) (*registration, error) {
	if serviceType == nil {
		return nil, errConfiguration("service type must not be nil")
	}
	if p.err != nil {
		return nil, p.err
	}

	reg := &registration{serviceType: serviceType, producer: p}

	switch p.kind {
	case factoryProducer:
		if o.lifecycleSet {
			return nil, errConfiguration("factory for %s must not declare a lifecycle", typeName(serviceType))
		}
		if len(o.params) > 0 {
			return nil, errConfiguration("factory for %s takes no parameters", typeName(serviceType))
		}
		reg.lifecycle = lifecycleNone
		// Interface results are checked when the factory runs.
		if p.result.Kind() != reflect.Interface && !p.result.AssignableTo(serviceType) {
			return nil, errTypeMismatch(p.result, serviceType)
		}
	case classProducer:
		if !o.lifecycleSet {
			return nil, errConfiguration("class %s for %s requires a lifecycle", p.name, typeName(serviceType))
		}
		if !o.lifecycle.valid() {
			return nil, errConfiguration("invalid lifecycle %s for %s", o.lifecycle, typeName(serviceType))
		}
		reg.lifecycle = o.lifecycle
		if !p.result.AssignableTo(serviceType) {
			return nil, errTypeMismatch(p.result, serviceType)
		}
		params, err := bindParams(p, o.params)
		if err != nil {
			return nil, err
		}
		reg.params = params
	default:
		return nil, errConfiguration("producer for %s must be built with Factory or Class", typeName(serviceType))
	}

	return reg, nil
}

// bindParams checks explicit parameters against the constructor signature.
func bindParams(p Producer, raw map[string]any) (map[string]reflect.Value, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	bound := make(map[string]reflect.Value, len(raw))
	for name, value := range raw {
		prm, ok := p.param(name)
		if !ok {
			return nil, errConfiguration("constructor %s has no parameter named %q", p.name, name)
		}
		if value == nil {
			if !nillable(prm.Type) {
				return nil, errParamMismatch(prm, nil, p.name)
			}
			bound[name] = reflect.Zero(prm.Type)
			continue
		}
		v := reflect.ValueOf(value)
		if !v.Type().AssignableTo(prm.Type) {
			if !numeric(v.Kind()) || !numeric(prm.Type.Kind()) {
				return nil, errParamMismatch(prm, v.Type(), p.name)
			}
			converted, ok := convertNumber(v, prm.Type)
			if !ok {
				return nil, errParamValue(prm, value, p.name)
			}
			v = converted
		}
		bound[name] = v
	}
	return bound, nil
}

// convertNumber converts v to the numeric type to, so that literals decoded
// from configuration (float64, int) can feed sized int, uint and float
// parameters. It fails when the value would change: a fractional or
// non-finite float for an integer type, a negative value for an unsigned
// type, or anything out of range.
func convertNumber(v reflect.Value, to reflect.Type) (reflect.Value, bool) {
	target := reflect.New(to).Elem()
	switch {
	case isInt(to.Kind()):
		n, ok := asInt64(v)
		if !ok || target.OverflowInt(n) {
			return reflect.Value{}, false
		}
		target.SetInt(n)
	case isUint(to.Kind()):
		n, ok := asUint64(v)
		if !ok || target.OverflowUint(n) {
			return reflect.Value{}, false
		}
		target.SetUint(n)
	default:
		f, ok := asFloat64(v)
		if !ok || target.OverflowFloat(f) {
			return reflect.Value{}, false
		}
		target.SetFloat(f)
	}
	return target, true
}

func asInt64(v reflect.Value) (int64, bool) {
	switch {
	case isInt(v.Kind()):
		return v.Int(), true
	case isUint(v.Kind()):
		u := v.Uint()
		return int64(u), u <= math.MaxInt64
	default:
		f := v.Float()
		if f != math.Trunc(f) || f < -(1<<63) || f >= 1<<63 {
			return 0, false
		}
		return int64(f), true
	}
}

func asUint64(v reflect.Value) (uint64, bool) {
	switch {
	case isInt(v.Kind()):
		n := v.Int()
		return uint64(n), n >= 0
	case isUint(v.Kind()):
		return v.Uint(), true
	default:
		f := v.Float()
		if f != math.Trunc(f) || f < 0 || f >= 1<<64 {
			return 0, false
		}
		return uint64(f), true
	}
}

// asFloat64 rejects integers that a float64 cannot represent exactly.
func asFloat64(v reflect.Value) (float64, bool) {
	const exact = 1 << 53
	switch {
	case isInt(v.Kind()):
		n := v.Int()
		return float64(n), n >= -exact && n <= exact
	case isUint(v.Kind()):
		n := v.Uint()
		return float64(n), n <= exact
	default:
		f := v.Float()
		return f, !math.IsNaN(f) && !math.IsInf(f, 0)
	}
}

func isInt(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUint(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func numeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return true
	}
	return false
}

// MustRegister is like Register but panics on error.
func (i *Injector) MustRegister(serviceType reflect.Type, producer Producer, opts ...RegisterOption) {
	if err := i.Register(serviceType, producer, opts...); err != nil {
		panic(err)
	}
}

// IsRegistered reports whether serviceType has a binding.
func (i *Injector) IsRegistered(serviceType reflect.Type) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	_, ok := i.registrations[serviceType]
	return ok
}

// Closed reports whether Close has been called.
func (i *Injector) Closed() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.closed
}

// OpenScopes returns the number of scopes currently open.
func (i *Injector) OpenScopes() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.openScopes
}

// RegistrationInfo describes a registration for introspection.
type RegistrationInfo struct {
	ServiceType string    `json:"service_type"`
	Producer    string    `json:"producer"`
	Constructor string    `json:"constructor"`
	Lifecycle   Lifecycle `json:"lifecycle"`
	Params      []string  `json:"params,omitempty"`
	Cached      bool      `json:"cached"`
}

// Registrations lists every binding, sorted by service type name.
// Explicit parameter values are not exposed, only their names.
func (i *Injector) Registrations() []RegistrationInfo {
	i.mu.RLock()
	defer i.mu.RUnlock()

	result := make([]RegistrationInfo, 0, len(i.registrations))
	for t, reg := range i.registrations {
		info := RegistrationInfo{
			ServiceType: typeName(t),
			Producer:    reg.producer.kind.String(),
			Constructor: reg.producer.name,
			Lifecycle:   reg.lifecycle,
		}
		for name := range reg.params {
			info.Params = append(info.Params, name)
		}
		sort.Strings(info.Params)
		_, info.Cached = i.singletons[t]
		result = append(result, info)
	}

	sort.Slice(result, func(a, b int) bool {
		return result[a].ServiceType < result[b].ServiceType
	})
	return result
}

// Close closes cached singletons that implement Close() error, newest first,
// and rejects further registration and resolution. Open scopes can still be
// closed afterwards.
func (i *Injector) Close() error {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return nil
	}
	i.closed = true
	instances := make([]any, 0, len(i.singletonOrder))
	for idx := len(i.singletonOrder) - 1; idx >= 0; idx-- {
		instances = append(instances, i.singletons[i.singletonOrder[idx]])
	}
	i.mu.Unlock()

	err := closeAll(instances)
	i.log.Debug("Injector closed", logger.Fields("singletons", len(instances)))
	return err
}

func closeAll(instances []any) error {
	var errs []error
	for _, inst := range instances {
		if closer, ok := inst.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
