package di

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/kbukum/injector/logger"
)

func TestRegister_Errors(t *testing.T) {
	tests := []struct {
		name     string
		service  reflect.Type
		producer Producer
		opts     []RegisterOption
		check    func(error) bool
		contains string
	}{
		{
			name:     "factory with lifecycle",
			service:  TypeOf[Logger](),
			producer: Factory(func() Logger { return &consoleLogger{} }),
			opts:     []RegisterOption{WithLifecycle(Singleton)},
			check:    IsConfigurationError,
			contains: "must not declare a lifecycle",
		},
		{
			name:     "factory with params",
			service:  TypeOf[Logger](),
			producer: Factory(func() Logger { return &consoleLogger{} }),
			opts:     []RegisterOption{WithParam("x", 1)},
			check:    IsConfigurationError,
		},
		{
			name:     "factory with arguments",
			service:  TypeOf[Logger](),
			producer: Factory(func(n int) Logger { return &consoleLogger{} }),
			check:    IsConfigurationError,
		},
		{
			name:     "factory not a function",
			service:  TypeOf[Logger](),
			producer: Factory("nope"),
			check:    IsConfigurationError,
		},
		{
			name:     "factory bad results",
			service:  TypeOf[Logger](),
			producer: Factory(func() (Logger, int) { return nil, 0 }),
			check:    IsConfigurationError,
		},
		{
			name:     "factory wrong concrete result",
			service:  TypeOf[Logger](),
			producer: Factory(func() *workerImpl { return nil }),
			check:    IsTypeMismatch,
		},
		{
			name:     "class without lifecycle",
			service:  TypeOf[Logger](),
			producer: Class(func() *consoleLogger { return &consoleLogger{} }),
			check:    IsConfigurationError,
			contains: "requires a lifecycle",
		},
		{
			name:     "class with invalid lifecycle",
			service:  TypeOf[Logger](),
			producer: Class(func() *consoleLogger { return &consoleLogger{} }),
			opts:     []RegisterOption{WithLifecycle(Lifecycle(42))},
			check:    IsConfigurationError,
		},
		{
			name:     "class not implementing service",
			service:  TypeOf[Logger](),
			producer: Class(newWorker),
			opts:     []RegisterOption{WithLifecycle(Transient)},
			check:    IsTypeMismatch,
			contains: "does not implement",
		},
		{
			name:     "class variadic",
			service:  TypeOf[Logger](),
			producer: Class(func(names ...string) *consoleLogger { return nil }),
			opts:     []RegisterOption{WithLifecycle(Transient)},
			check:    IsConfigurationError,
		},
		{
			name:     "class name count mismatch",
			service:  TypeOf[Retrier](),
			producer: Class(newRetrier, "logger"),
			opts:     []RegisterOption{WithLifecycle(Transient)},
			check:    IsConfigurationError,
		},
		{
			name:     "class duplicate names",
			service:  TypeOf[Retrier](),
			producer: Class(newRetrier, "x", "x"),
			opts:     []RegisterOption{WithLifecycle(Transient)},
			check:    IsConfigurationError,
		},
		{
			name:     "unknown explicit param",
			service:  TypeOf[Retrier](),
			producer: Class(newRetrier, "logger", "retries"),
			opts:     []RegisterOption{WithLifecycle(Transient), WithParam("timeout", 5)},
			check:    IsConfigurationError,
			contains: `"timeout"`,
		},
		{
			name:     "explicit param of wrong type",
			service:  TypeOf[Retrier](),
			producer: Class(newRetrier, "logger", "retries"),
			opts:     []RegisterOption{WithLifecycle(Transient), WithParam("retries", "three")},
			check:    IsTypeMismatch,
		},
		{
			name:     "nil explicit param for value type",
			service:  TypeOf[Retrier](),
			producer: Class(newRetrier, "logger", "retries"),
			opts:     []RegisterOption{WithLifecycle(Transient), WithParam("retries", nil)},
			check:    IsTypeMismatch,
		},
		{
			name:     "zero producer",
			service:  TypeOf[Logger](),
			producer: Producer{},
			check:    IsConfigurationError,
		},
		{
			name:     "nil service type",
			service:  nil,
			producer: Factory(func() Logger { return nil }),
			check:    IsConfigurationError,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			inj := newTestInjector()
			err := inj.Register(tc.service, tc.producer, tc.opts...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !tc.check(err) {
				t.Errorf("unexpected error kind: %v", err)
			}
			if tc.contains != "" && !strings.Contains(err.Error(), tc.contains) {
				t.Errorf("expected %q in %q", tc.contains, err.Error())
			}
			if tc.service != nil && inj.IsRegistered(tc.service) {
				t.Error("failed registration must not bind the type")
			}
		})
	}
}

func TestRegister_Valid(t *testing.T) {
	inj := newTestInjector()

	if err := Register[Logger](inj, Factory(func() Logger { return &consoleLogger{} })); err != nil {
		t.Fatalf("factory: %v", err)
	}
	if err := Register[Worker](inj, Class(newWorker), WithLifecycle(Transient)); err != nil {
		t.Fatalf("class: %v", err)
	}
	if err := Register[Retrier](inj, Class(newRetrier, "logger", "retries"),
		WithLifecycle(Scoped), WithParams(map[string]any{"retries": 3})); err != nil {
		t.Fatalf("class with params: %v", err)
	}

	for _, typ := range []reflect.Type{TypeOf[Logger](), TypeOf[Worker](), TypeOf[Retrier]()} {
		if !inj.IsRegistered(typ) {
			t.Errorf("expected %s to be registered", typ)
		}
	}
	if IsRegisteredType[Session](inj) {
		t.Error("Session was never registered")
	}
}

func TestRegister_NumericParamConversion(t *testing.T) {
	inj := newTestInjector()
	MustRegister[Logger](inj, Class(loggerCtor(&counter{})), WithLifecycle(Singleton))
	// Numbers decoded from YAML or JSON arrive as float64.
	MustRegister[Retrier](inj, Class(newRetrier, "logger", "retries"),
		WithLifecycle(Transient), WithParam("retries", float64(4)))

	r, err := Resolve[Retrier](context.Background(), inj)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.Retries() != 4 {
		t.Errorf("expected 4 retries, got %d", r.Retries())
	}
}

func TestRegister_NumericParamMustFit(t *testing.T) {
	type Sized interface{}

	tests := []struct {
		name   string
		ctor   any
		value  any
		wantOK bool
	}{
		{"integral float to int", func(v int) *int { return &v }, float64(3), true},
		{"fractional float to int", func(v int) *int { return &v }, 3.9, false},
		{"int to uint8", func(v uint8) *uint8 { return &v }, 200, true},
		{"int overflows uint8", func(v uint8) *uint8 { return &v }, 300, false},
		{"negative int to uint", func(v uint) *uint { return &v }, -1, false},
		{"int to float64", func(v float64) *float64 { return &v }, 7, true},
		{"float64 overflows float32", func(v float32) *float32 { return &v }, 1e300, false},
		{"int64 beyond float64 precision", func(v float64) *float64 { return &v }, int64(1<<53 + 1), false},
		{"NaN to float32", func(v float32) *float32 { return &v }, math.NaN(), false},
		{"uint64 overflows int64", func(v int64) *int64 { return &v }, uint64(math.MaxUint64), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			inj := newTestInjector()
			err := Register[Sized](inj, Class(tc.ctor, "v"),
				WithLifecycle(Transient), WithParam("v", tc.value))
			if tc.wantOK && err != nil {
				t.Fatalf("expected registration to succeed, got %v", err)
			}
			if !tc.wantOK && !IsTypeMismatch(err) {
				t.Fatalf("expected type mismatch, got %v", err)
			}
		})
	}

	inj := newTestInjector()
	MustRegister[Sized](inj, Class(func(v uint8) *uint8 { return &v }, "v"),
		WithLifecycle(Transient), WithParam("v", 200))
	got := MustResolve[Sized](context.Background(), inj)
	if *got.(*uint8) != 200 {
		t.Errorf("expected 200, got %d", *got.(*uint8))
	}
}

func TestRegister_RejectedDuringScope(t *testing.T) {
	inj := newTestInjector()
	original := Factory(func() Logger { return &consoleLogger{} })
	MustRegister[Logger](inj, original)

	ctx, scope, err := inj.OpenScope(context.Background())
	if err != nil {
		t.Fatalf("OpenScope: %v", err)
	}

	err = Register[Logger](inj, Class(loggerCtor(&counter{})), WithLifecycle(Singleton))
	if !IsConfigurationError(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !strings.Contains(err.Error(), "active scope") {
		t.Errorf("unexpected message: %v", err)
	}

	// Shape errors are not reported while bindings are frozen.
	invalid := []struct {
		name     string
		producer Producer
		opts     []RegisterOption
	}{
		{"type mismatch", Class(newA, "b"), []RegisterOption{WithLifecycle(Singleton)}},
		{"class without lifecycle", Class(loggerCtor(&counter{})), nil},
		{"not a function", Factory(42), nil},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			err := Register[Logger](inj, tc.producer, tc.opts...)
			if !IsConfigurationError(err) || !strings.Contains(err.Error(), "active scope") {
				t.Errorf("expected active scope error, got %v", err)
			}
		})
	}

	// The factory binding is still in place: a fresh instance per call.
	a, _ := Resolve[Logger](ctx, inj)
	b, _ := Resolve[Logger](ctx, inj)
	if a == b {
		t.Error("expected original factory registration to be kept")
	}

	if err := scope.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := Register[Logger](inj, Class(loggerCtor(&counter{})), WithLifecycle(Singleton)); err != nil {
		t.Errorf("expected registration after scope close to succeed, got %v", err)
	}
}

func TestRegister_ReplaceKeepsCachedSingleton(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "warn", Format: "json"}, "test", &buf)
	inj := New(WithLogger(log))

	first := &counter{}
	MustRegister[Logger](inj, Class(loggerCtor(first)), WithLifecycle(Singleton))
	before := MustResolve[Logger](context.Background(), inj)

	second := &counter{}
	MustRegister[Logger](inj, Class(loggerCtor(second)), WithLifecycle(Singleton))
	after := MustResolve[Logger](context.Background(), inj)

	if before != after {
		t.Error("expected cached singleton to survive re-registration")
	}
	if second.get() != 0 {
		t.Error("replacement constructor should not run while a singleton is cached")
	}
	if !strings.Contains(buf.String(), "singleton is already built") {
		t.Errorf("expected stale singleton warning, got %q", buf.String())
	}
}

func TestRegistrations(t *testing.T) {
	inj := newTestInjector()
	MustRegister[Worker](inj, Class(newWorker), WithLifecycle(Transient))
	MustRegister[Logger](inj, Class(loggerCtor(&counter{})), WithLifecycle(Singleton))
	MustRegister[Retrier](inj, Class(newRetrier, "logger", "retries"),
		WithLifecycle(Scoped), WithParam("retries", 2))
	MustRegister[Session](inj, Factory(func() Session { return &session{} }))

	MustResolve[Logger](context.Background(), inj)

	regs := inj.Registrations()
	if len(regs) != 4 {
		t.Fatalf("expected 4 registrations, got %d", len(regs))
	}
	for i := 1; i < len(regs); i++ {
		if regs[i-1].ServiceType > regs[i].ServiceType {
			t.Errorf("registrations not sorted: %s before %s", regs[i-1].ServiceType, regs[i].ServiceType)
		}
	}

	byType := map[string]RegistrationInfo{}
	for _, r := range regs {
		byType[r.ServiceType] = r
	}

	logInfo := byType["di.Logger"]
	if !logInfo.Cached || logInfo.Lifecycle != Singleton || logInfo.Producer != "class" {
		t.Errorf("unexpected logger info: %+v", logInfo)
	}
	if got := byType["di.Retrier"].Params; len(got) != 1 || got[0] != "retries" {
		t.Errorf("expected retries param name, got %v", got)
	}
	if byType["di.Session"].Producer != "factory" || byType["di.Session"].Lifecycle != lifecycleNone {
		t.Errorf("unexpected session info: %+v", byType["di.Session"])
	}

	data, err := json.Marshal(byType["di.Worker"])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"lifecycle":"transient"`) {
		t.Errorf("expected lifecycle name in JSON, got %s", data)
	}
}

func TestInjectorClose(t *testing.T) {
	inj := newTestInjector()
	var order []string

	type first interface{ Close() error }
	type second interface{ Close() error }

	MustRegister[first](inj, Class(func() *closeRecorder {
		return &closeRecorder{name: "first", order: &order}
	}), WithLifecycle(Singleton))
	MustRegister[second](inj, Class(func(f first) *closeRecorder {
		return &closeRecorder{name: "second", order: &order, err: errBoom}
	}), WithLifecycle(Singleton))

	MustResolve[second](context.Background(), inj)

	if inj.Closed() {
		t.Fatal("expected open injector")
	}
	err := inj.Close()
	if !inj.Closed() {
		t.Error("expected Closed after Close")
	}
	if !errors.Is(err, errBoom) {
		t.Errorf("expected joined close error, got %v", err)
	}
	if len(order) != 2 || order[0] != "second" || order[1] != "first" {
		t.Errorf("expected reverse creation order, got %v", order)
	}

	if err := inj.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
	if _, err := Resolve[second](context.Background(), inj); !IsConfigurationError(err) {
		t.Errorf("expected configuration error after Close, got %v", err)
	}
	if err := Register[Logger](inj, Factory(func() Logger { return nil })); !IsConfigurationError(err) {
		t.Errorf("expected configuration error after Close, got %v", err)
	}
	if _, _, err := inj.OpenScope(context.Background()); !IsConfigurationError(err) {
		t.Errorf("expected configuration error opening a scope after Close, got %v", err)
	}
}

func TestMustRegisterPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	MustRegister[Logger](newTestInjector(), Class(newWorker), WithLifecycle(Singleton))
}
