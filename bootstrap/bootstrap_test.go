package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/injector/component"
	"github.com/kbukum/injector/config"
	"github.com/kbukum/injector/di"
	"github.com/kbukum/injector/logger"
)

type testConfig struct {
	config.ServiceConfig
}

type mockComponent struct {
	name     string
	startErr error
	stopErr  error
	health   component.Health
	started  bool
	stopped  bool
}

func (m *mockComponent) Name() string { return m.name }
func (m *mockComponent) Start(ctx context.Context) error {
	m.started = true
	return m.startErr
}
func (m *mockComponent) Stop(ctx context.Context) error {
	m.stopped = true
	return m.stopErr
}
func (m *mockComponent) Health(ctx context.Context) component.Health {
	return m.health
}

type Clock interface{ Now() time.Time }

type fixedClock struct {
	closed bool
}

func (c *fixedClock) Now() time.Time { return time.Unix(0, 0) }
func (c *fixedClock) Close() error   { c.closed = true; return nil }

func newTestConfig(name, version string) *testConfig {
	return &testConfig{
		ServiceConfig: config.ServiceConfig{
			Name:        name,
			Version:     version,
			Environment: "development",
		},
	}
}

func newTestApp(t *testing.T, opts ...Option) *App[*testConfig] {
	t.Helper()
	opts = append([]Option{WithLogger(logger.Nop()), WithSummaryOutput(io.Discard)}, opts...)
	app, err := NewApp(newTestConfig("test-svc", "1.0.0"), opts...)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	return app
}

func TestNewApp(t *testing.T) {
	app := newTestApp(t)

	if app.Name != "test-svc" || app.Version != "1.0.0" {
		t.Errorf("unexpected identity %q %q", app.Name, app.Version)
	}
	if app.Injector == nil {
		t.Fatal("expected an injector")
	}
	if app.Cfg.Name != "test-svc" {
		t.Errorf("expected typed config, got %q", app.Cfg.Name)
	}
	if app.gracefulTimeout != 15*time.Second {
		t.Errorf("expected default timeout, got %v", app.gracefulTimeout)
	}

	all := app.Components.All()
	if len(all) != 1 || all[0].Name() != "injector" {
		t.Errorf("expected injector as the first component, got %v", all)
	}
}

func TestNewAppValidation(t *testing.T) {
	cfg := &testConfig{ServiceConfig: config.ServiceConfig{Environment: "development"}}
	if _, err := NewApp(cfg, WithLogger(logger.Nop())); err == nil {
		t.Error("expected error for missing name")
	}

	cfg = newTestConfig("svc", "1")
	cfg.Environment = "qa"
	if _, err := NewApp(cfg, WithLogger(logger.Nop())); err == nil {
		t.Error("expected error for unknown environment")
	}
}

func TestNewAppWithOptions(t *testing.T) {
	inj := di.New(di.WithLogger(logger.Nop()))
	app := newTestApp(t, WithGracefulTimeout(30*time.Second), WithInjector(inj))

	if app.gracefulTimeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", app.gracefulTimeout)
	}
	if app.Injector != inj {
		t.Error("expected the adopted injector")
	}
}

func TestRegisterComponentDuplicate(t *testing.T) {
	app := newTestApp(t)
	if err := app.RegisterComponent(&mockComponent{name: "db"}); err != nil {
		t.Fatalf("RegisterComponent: %v", err)
	}
	if err := app.RegisterComponent(&mockComponent{name: "db"}); err == nil {
		t.Error("expected duplicate registration error")
	}
	if err := app.RegisterComponent(&mockComponent{name: "injector"}); err == nil {
		t.Error("the injector name is taken")
	}
}

func TestHooksRunInOrder(t *testing.T) {
	app := newTestApp(t)
	var order []string
	record := func(name string) Hook {
		return func(ctx context.Context) error {
			order = append(order, name)
			return nil
		}
	}
	app.OnConfigure(func(ctx context.Context, a *App[*testConfig]) error {
		order = append(order, "configure")
		return nil
	})
	app.OnStart(record("start"))
	app.OnReady(record("ready"))
	app.OnStop(record("stop"))

	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		order = append(order, "task")
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask: %v", err)
	}

	want := "configure,start,ready,task,stop"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestHookErrors(t *testing.T) {
	boom := errors.New("boom")
	fail := func(ctx context.Context) error { return boom }

	tests := []struct {
		name  string
		setup func(app *App[*testConfig])
		want  string
	}{
		{
			name:  "start hook",
			setup: func(app *App[*testConfig]) { app.OnStart(fail) },
			want:  "onStart hook failed",
		},
		{
			name:  "ready hook",
			setup: func(app *App[*testConfig]) { app.OnReady(fail) },
			want:  "onReady hook failed",
		},
		{
			name: "configure",
			setup: func(app *App[*testConfig]) {
				app.OnConfigure(func(ctx context.Context, a *App[*testConfig]) error { return boom })
			},
			want: "configuration failed",
		},
		{
			name:  "stop hook",
			setup: func(app *App[*testConfig]) { app.OnStop(fail) },
			want:  "hook 0 failed",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t)
			tc.setup(app)
			err := app.RunTask(context.Background(), func(ctx context.Context) error { return nil })
			if !errors.Is(err, boom) {
				t.Fatalf("expected boom, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected %q in %q", tc.want, err.Error())
			}
		})
	}
}

func TestReadyCheck(t *testing.T) {
	tests := []struct {
		name    string
		status  component.HealthStatus
		message string
		wantErr bool
	}{
		{name: "healthy", status: component.StatusHealthy},
		{name: "unhealthy", status: component.StatusUnhealthy, message: "connection refused", wantErr: true},
		{name: "degraded", status: component.StatusDegraded, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t)
			_ = app.RegisterComponent(&mockComponent{
				name:   "cache",
				health: component.Health{Name: "cache", Status: tc.status, Message: tc.message},
			})
			err := app.ReadyCheck(context.Background())
			if (err != nil) != tc.wantErr {
				t.Fatalf("unexpected ready check result %v", err)
			}
			if tc.message != "" && !strings.Contains(err.Error(), tc.message) {
				t.Errorf("expected message in %q", err.Error())
			}
		})
	}
}

func TestRunTaskWarmsAndClosesSingletons(t *testing.T) {
	app := newTestApp(t)
	clock := &fixedClock{}
	built := 0

	app.OnConfigure(func(ctx context.Context, a *App[*testConfig]) error {
		a.Warm(di.TypeOf[Clock]())
		return di.Register[Clock](a.Injector, di.Class(func() *fixedClock {
			built++
			return clock
		}), di.WithLifecycle(di.Singleton))
	})

	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		if built != 1 {
			t.Errorf("expected the clock to be built during startup, built %d", built)
		}
		c, err := di.Resolve[Clock](ctx, app.Injector)
		if err != nil {
			return err
		}
		if c != clock {
			t.Error("expected the warmed singleton")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask: %v", err)
	}
	if !clock.closed {
		t.Error("expected the singleton to be closed at shutdown")
	}
}

func TestRunTaskWarmUpFailure(t *testing.T) {
	app := newTestApp(t)
	db := &mockComponent{name: "db"}
	_ = app.RegisterComponent(db)
	app.Warm(di.TypeOf[Clock]())

	ran := false
	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		ran = true
		return nil
	})
	if !di.IsUnregistered(err) {
		t.Fatalf("expected unregistered error, got %v", err)
	}
	if ran {
		t.Error("task must not run after a failed startup")
	}
	if db.started {
		t.Error("components after the injector must not start")
	}
}

func TestRunTaskComponentStartError(t *testing.T) {
	app := newTestApp(t)
	good := &mockComponent{name: "good"}
	bad := &mockComponent{name: "bad", startErr: errors.New("refused")}
	_ = app.RegisterComponent(good)
	_ = app.RegisterComponent(bad)

	err := app.RunTask(context.Background(), func(ctx context.Context) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "start bad") {
		t.Fatalf("expected start error, got %v", err)
	}
	if !good.stopped {
		t.Error("components started before the failure must be stopped")
	}
}

func TestRunTaskErrors(t *testing.T) {
	taskErr := errors.New("task failed")
	stopErr := errors.New("stop failed")

	t.Run("task error wins", func(t *testing.T) {
		app := newTestApp(t)
		_ = app.RegisterComponent(&mockComponent{name: "c", stopErr: stopErr})
		err := app.RunTask(context.Background(), func(ctx context.Context) error { return taskErr })
		if !errors.Is(err, taskErr) {
			t.Errorf("expected task error, got %v", err)
		}
	})

	t.Run("stop error surfaces", func(t *testing.T) {
		app := newTestApp(t)
		_ = app.RegisterComponent(&mockComponent{name: "c", stopErr: stopErr})
		err := app.RunTask(context.Background(), func(ctx context.Context) error { return nil })
		if !errors.Is(err, stopErr) {
			t.Errorf("expected stop error, got %v", err)
		}
	})
}

func TestRunTaskCancellation(t *testing.T) {
	app := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())

	err := app.RunTask(ctx, func(ctx context.Context) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRunReturnsOnContextCancel(t *testing.T) {
	app := newTestApp(t)
	c := &mockComponent{name: "server", health: component.Health{Name: "server", Status: component.StatusHealthy}}
	_ = app.RegisterComponent(c)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := app.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !c.started || !c.stopped {
		t.Error("expected the component to be started and stopped")
	}
}

func TestWaitForSignalContextCancellation(t *testing.T) {
	app := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if sig := app.WaitForSignal(ctx); sig != nil {
		t.Errorf("expected nil signal, got %v", sig)
	}
}

type describedComponent struct {
	mockComponent
}

func (d *describedComponent) Describe() component.Description {
	return component.Description{Type: "http", Details: "gin", Port: 8080}
}

func (d *describedComponent) Routes() []component.Route {
	return []component.Route{{Method: "GET", Path: "/health", Handler: "health"}}
}

func TestSummaryRender(t *testing.T) {
	var buf bytes.Buffer
	app := newTestApp(t, WithSummaryOutput(&buf))
	_ = app.RegisterComponent(&describedComponent{mockComponent{
		name:   "server",
		health: component.Health{Name: "server", Status: component.StatusDegraded, Message: "warming"},
	}})
	di.MustRegister[Clock](app.Injector, di.Class(func() *fixedClock { return &fixedClock{} }),
		di.WithLifecycle(di.Singleton))

	app.Summary.SetStartupDuration(1500 * time.Millisecond)
	app.DisplaySummary()
	out := buf.String()

	for _, want := range []string{
		"test-svc v1.0.0 started in 1.50s",
		"server [http]: gin (:8080)",
		"Injector [di]: registrations=1 singletons=0",
		"Bindings (1)",
		"bootstrap.Clock",
		"[singleton]",
		"GET     /health → health",
		"server: degraded (warming)",
		"(1/2 healthy)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in summary:\n%s", want, out)
		}
	}
}

func TestSummaryRenderWithoutRegistry(t *testing.T) {
	var buf bytes.Buffer
	NewSummary("svc", "0.1").Render(&buf, nil, nil)
	if !strings.Contains(buf.String(), "svc v0.1") {
		t.Errorf("unexpected summary %q", buf.String())
	}
}

func TestBindingSuffix(t *testing.T) {
	tests := []struct {
		info di.RegistrationInfo
		want string
	}{
		{di.RegistrationInfo{}, ""},
		{di.RegistrationInfo{Cached: true}, " (built)"},
		{di.RegistrationInfo{Params: []string{"a", "b"}, Cached: true}, " (params: a, b; built)"},
	}
	for _, tc := range tests {
		if got := bindingSuffix(tc.info); got != tc.want {
			t.Errorf("bindingSuffix(%+v) = %q, want %q", tc.info, got, tc.want)
		}
	}
}
