package di

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/kbukum/injector/logger"
)

type Logger interface {
	Log(msg string)
}

type consoleLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *consoleLogger) Log(msg string) {
	l.mu.Lock()
	l.lines = append(l.lines, msg)
	l.mu.Unlock()
}

type Worker interface {
	Logger() Logger
}

type workerImpl struct {
	log Logger
}

func (w *workerImpl) Logger() Logger { return w.log }

type Retrier interface {
	Retries() int
}

type retrier struct {
	log     Logger
	retries int
}

func (r *retrier) Retries() int { return r.retries }

type Session interface {
	ID() int64
}

type session struct {
	id     int64
	closed *[]int64
}

func (s *session) ID() int64 { return s.id }

func (s *session) Close() error {
	if s.closed != nil {
		*s.closed = append(*s.closed, s.id)
	}
	return nil
}

// counter counts constructions per fixture.
type counter struct {
	n atomic.Int64
}

func (c *counter) inc() int64 { return c.n.Add(1) }
func (c *counter) get() int64 { return c.n.Load() }

func newTestInjector(opts ...Option) *Injector {
	return New(append([]Option{WithLogger(logger.Nop())}, opts...)...)
}

func loggerCtor(c *counter) func() *consoleLogger {
	return func() *consoleLogger {
		c.inc()
		return &consoleLogger{}
	}
}

func newWorker(log Logger) *workerImpl {
	return &workerImpl{log: log}
}

func newRetrier(log Logger, retries int) *retrier {
	return &retrier{log: log, retries: retries}
}

func sessionCtor(c *counter) func() *session {
	return func() *session {
		return &session{id: c.inc()}
	}
}

// Cycle fixtures: A needs B, B needs A.
type (
	ServiceA interface{ a() }
	ServiceB interface{ b() }
	ServiceC interface{ c() }
)

type implA struct{ B ServiceB }
type implB struct{ A ServiceA }
type implC struct{ C ServiceC }

func (implA) a() {}
func (implB) b() {}
func (implC) c() {}

func newA(b ServiceB) *implA { return &implA{B: b} }
func newB(a ServiceA) *implB { return &implB{A: a} }
func newC(c ServiceC) *implC { return &implC{C: c} }
func newLeafB() *implB { return &implB{} }
func failing() (*implB, error) { return nil, errBoom }

var errBoom = errors.New("boom")

type closeRecorder struct {
	name  string
	order *[]string
	err   error
}

func (c *closeRecorder) Close() error {
	*c.order = append(*c.order, c.name)
	return c.err
}

// Pipeline needs a Logger directly and again through its Worker.
type Pipeline interface {
	Parts() (Logger, Worker)
}

type pipeline struct {
	log    Logger
	worker Worker
}

func (p *pipeline) Parts() (Logger, Worker) { return p.log, p.worker }

func newPipeline(log Logger, w Worker) *pipeline {
	return &pipeline{log: log, worker: w}
}
