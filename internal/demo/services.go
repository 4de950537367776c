package demo

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Logger formats log lines. Both profiles bind it as a singleton.
type Logger interface {
	Log(message string) string
}

// Worker does one unit of work. Debug binds it per scope, release as a
// singleton.
type Worker interface {
	DoSomething() string
}

// Processor processes input. Both profiles bind it as transient.
type Processor interface {
	Process() string
}

var instances atomic.Int64

// instance numbers every constructed service so that responses show
// whether two lookups returned the same object.
type instance struct{ n int64 }

func newInstance() instance { return instance{n: instances.Add(1)} }

// Instance returns the construction number.
func (i instance) Instance() int64 { return i.n }

type debugLogger struct {
	instance
	prefix string
}

func newDebugLogger(prefix string) *debugLogger {
	return &debugLogger{instance: newInstance(), prefix: prefix}
}

func (l *debugLogger) Log(message string) string {
	return fmt.Sprintf("%s %s", l.prefix, message)
}

// releaseLogger keeps every entry on one line.
type releaseLogger struct {
	instance
	prefix string
}

func newReleaseLogger(prefix string) *releaseLogger {
	return &releaseLogger{instance: newInstance(), prefix: prefix}
}

func (l *releaseLogger) Log(message string) string {
	return l.prefix + " " + strings.Join(strings.Fields(message), " ")
}

type debugWorker struct {
	instance
	log    Logger
	closed atomic.Bool
}

func newDebugWorker(log Logger) *debugWorker {
	return &debugWorker{instance: newInstance(), log: log}
}

func (w *debugWorker) DoSomething() string {
	return w.log.Log("Debug mode: doing something...")
}

// Close runs when the worker's scope ends.
func (w *debugWorker) Close() error {
	w.closed.Store(true)
	return nil
}

type releaseWorker struct{ instance }

func newReleaseWorker() *releaseWorker { return &releaseWorker{newInstance()} }

func (w *releaseWorker) DoSomething() string { return "Release mode: done!" }

type debugProcessor struct {
	instance
	log Logger
}

func newDebugProcessor(log Logger) *debugProcessor {
	return &debugProcessor{instance: newInstance(), log: log}
}

func (p *debugProcessor) Process() string {
	return p.log.Log("Debug mode: processing...")
}

type releaseProcessor struct{ instance }

func newReleaseProcessor() *releaseProcessor { return &releaseProcessor{newInstance()} }

func (p *releaseProcessor) Process() string { return "Release mode: processed!" }

// instanceOf returns the construction number of v, or 0.
func instanceOf(v any) int64 {
	if i, ok := v.(interface{ Instance() int64 }); ok {
		return i.Instance()
	}
	return 0
}
