package di

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"strconv"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

type producerKind int

const (
	factoryProducer producerKind = iota + 1
	classProducer
)

func (k producerKind) String() string {
	switch k {
	case factoryProducer:
		return "factory"
	case classProducer:
		return "class"
	default:
		return "invalid"
	}
}

// Param is one constructor parameter: the name used to match explicit
// parameters and the declared type used to match registrations.
type Param struct {
	Name string
	Type reflect.Type
}

// Producer builds instances for a registration. Build one with Factory or Class.
type Producer struct {
	kind     producerKind
	fn       reflect.Value
	name     string
	result   reflect.Type
	params   []Param
	withCtx  bool
	hasError bool
	err      error
}

// Factory wraps a function returning the service, optionally with an error:
//
//	func() T
//	func() (T, error)
//	func(context.Context) (T, error)
//
// Factories are invoked on every resolution and never cached. A factory that
// resolves other services must do so through the context it receives.
func Factory(fn any) Producer {
	p := Producer{kind: factoryProducer}
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		p.err = errConfiguration("factory must be a non-nil function, got %T", fn)
		return p
	}
	t := v.Type()
	p.fn = v
	p.name = funcName(v)

	switch {
	case t.NumIn() == 0:
	case t.NumIn() == 1 && t.In(0) == contextType:
		p.withCtx = true
	default:
		p.err = errConfiguration("factory %s must take no arguments or a single context.Context", p.name)
		return p
	}

	p.result, p.hasError, p.err = resultShape(t, p.name)
	return p
}

// Class wraps a constructor whose parameters are satisfied by the injector.
// paramNames is the constructor's signature manifest: one name per parameter,
// in order. Names are what WithParam matches against. When omitted, parameters
// are named by position: "arg0", "arg1", ...
//
//	di.Class(NewWorker, "logger", "retries")
//
// Parameters of type context.Context receive the resolution context.
func Class(ctor any, paramNames ...string) Producer {
	p := Producer{kind: classProducer}
	v := reflect.ValueOf(ctor)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		p.err = errConfiguration("class constructor must be a non-nil function, got %T", ctor)
		return p
	}
	t := v.Type()
	p.fn = v
	p.name = funcName(v)

	if t.IsVariadic() {
		p.err = errConfiguration("constructor %s must not be variadic", p.name)
		return p
	}
	if len(paramNames) > 0 && len(paramNames) != t.NumIn() {
		p.err = errConfiguration("constructor %s takes %d parameters but %d names were given",
			p.name, t.NumIn(), len(paramNames))
		return p
	}

	seen := make(map[string]bool, t.NumIn())
	p.params = make([]Param, t.NumIn())
	for i := 0; i < t.NumIn(); i++ {
		name := "arg" + strconv.Itoa(i)
		if len(paramNames) > 0 {
			name = paramNames[i]
		}
		if name == "" {
			p.err = errConfiguration("constructor %s has an empty name for parameter %d", p.name, i)
			return p
		}
		if seen[name] {
			p.err = errConfiguration("constructor %s names parameter %q twice", p.name, name)
			return p
		}
		seen[name] = true
		p.params[i] = Param{Name: name, Type: t.In(i)}
	}

	p.result, p.hasError, p.err = resultShape(t, p.name)
	return p
}

// Signature returns the constructor parameters in declaration order.
// Factories have none.
func (p Producer) Signature() []Param {
	out := make([]Param, len(p.params))
	copy(out, p.params)
	return out
}

// Name returns the producer function's name.
func (p Producer) Name() string { return p.name }

// Result returns the declared result type of the producer.
func (p Producer) Result() reflect.Type { return p.result }

func (p Producer) param(name string) (Param, bool) {
	for _, prm := range p.params {
		if prm.Name == name {
			return prm, true
		}
	}
	return Param{}, false
}

// call invokes the producer, converting a returned error or a panic into
// ConstructionFailed.
func (p Producer) call(serviceType reflect.Type, args []reflect.Value) (instance any, err error) {
	defer func() {
		if r := recover(); r != nil {
			instance = nil
			err = errConstructionFailed(p.name, serviceType, fmt.Errorf("panic: %v", r))
		}
	}()

	out := p.fn.Call(args)
	if p.hasError && !out[1].IsNil() {
		cause := out[1].Interface().(error)
		// A nested resolution failure keeps its own code.
		if isInjectorError(cause) {
			return nil, cause
		}
		return nil, errConstructionFailed(p.name, serviceType, cause)
	}
	return out[0].Interface(), nil
}

func resultShape(t reflect.Type, name string) (reflect.Type, bool, error) {
	switch {
	case t.NumOut() == 1:
		return t.Out(0), false, nil
	case t.NumOut() == 2 && t.Out(1) == errorType:
		return t.Out(0), true, nil
	default:
		return nil, false, errConfiguration("%s must return (T) or (T, error)", name)
	}
}

func funcName(v reflect.Value) string {
	if f := runtime.FuncForPC(v.Pointer()); f != nil {
		return f.Name()
	}
	return v.Type().String()
}
