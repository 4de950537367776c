package demo

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kbukum/injector/di"
	"github.com/kbukum/injector/logger"
)

// Report records what the walkthrough observed.
type Report struct {
	Profile           Profile
	SingletonShared   bool
	TransientDistinct bool
	// OutsideScopeErr is the error from resolving Worker without a scope.
	// Nil in the release profile, where Worker is a singleton.
	OutsideScopeErr error
	ScopedShared    bool
	WorkerOutput    string
	ProcessorOutput string
	// AfterScopeErr is the error from resolving Worker with the context of
	// a closed scope.
	AfterScopeErr error
	FactoryOutput string
}

// Walkthrough exercises every lifecycle against inj, which must be configured
// for profile, and writes a narrated transcript to w.
func Walkthrough(ctx context.Context, inj *di.Injector, profile Profile, w io.Writer) (*Report, error) {
	r := &Report{Profile: profile}
	fmt.Fprintf(w, "%s\nWALKTHROUGH: %s profile\n%s\n", rule, profile, rule)

	fmt.Fprintln(w, "\n→ Singleton (Logger):")
	log1, err := di.Resolve[Logger](ctx, inj)
	if err != nil {
		return nil, err
	}
	log2, err := di.Resolve[Logger](ctx, inj)
	if err != nil {
		return nil, err
	}
	r.SingletonShared = log1 == log2
	fmt.Fprintf(w, "  log1 == log2: %t\n", r.SingletonShared)

	fmt.Fprintln(w, "\n→ Transient (Processor):")
	proc1, err := di.Resolve[Processor](ctx, inj)
	if err != nil {
		return nil, err
	}
	proc2, err := di.Resolve[Processor](ctx, inj)
	if err != nil {
		return nil, err
	}
	r.TransientDistinct = proc1 != proc2
	fmt.Fprintf(w, "  proc1 == proc2: %t\n", !r.TransientDistinct)

	fmt.Fprintln(w, "\n→ Worker outside a scope:")
	_, r.OutsideScopeErr = di.Resolve[Worker](ctx, inj)
	describeErr(w, r.OutsideScopeErr)

	fmt.Fprintln(w, "\n→ Worker inside a scope:")
	var scoped context.Context
	err = inj.WithScope(ctx, func(sctx context.Context) error {
		scoped = sctx
		obj1, err := di.Resolve[Worker](sctx, inj)
		if err != nil {
			return err
		}
		obj2, err := di.Resolve[Worker](sctx, inj)
		if err != nil {
			return err
		}
		r.ScopedShared = obj1 == obj2
		fmt.Fprintf(w, "  obj1 == obj2: %t\n", r.ScopedShared)

		proc, err := di.Resolve[Processor](sctx, inj)
		if err != nil {
			return err
		}
		r.WorkerOutput = obj1.DoSomething()
		r.ProcessorOutput = proc.Process()
		fmt.Fprintln(w, "\n→ Through the interfaces:")
		fmt.Fprintf(w, "  Worker:    %s\n", r.WorkerOutput)
		fmt.Fprintf(w, "  Processor: %s\n", r.ProcessorOutput)
		return nil
	})
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(w, "\n→ Worker after the scope closed:")
	_, r.AfterScopeErr = di.Resolve[Worker](scoped, inj)
	describeErr(w, r.AfterScopeErr)

	fmt.Fprintln(w, "\n→ Factory registration:")
	out, err := factoryDemo(ctx)
	if err != nil {
		return nil, err
	}
	r.FactoryOutput = out
	fmt.Fprintf(w, "  factory returned: %s\n\n", out)

	return r, nil
}

var rule = strings.Repeat("=", 50)

func describeErr(w io.Writer, err error) {
	if err == nil {
		fmt.Fprintln(w, "  resolved (not scoped in this profile)")
		return
	}
	fmt.Fprintf(w, "  error (expected) [%s]: %v\n", di.ErrorCode(err), err)
}

// factoryDemo binds Logger through a factory on a fresh injector.
func factoryDemo(ctx context.Context) (string, error) {
	inj := di.New(di.WithLogger(logger.Nop()))
	defer inj.Close()

	err := di.Register[Logger](inj, di.Factory(func() Logger {
		return newDebugLogger("[DEBUG]")
	}))
	if err != nil {
		return "", err
	}
	l, err := di.Resolve[Logger](ctx, inj)
	if err != nil {
		return "", err
	}
	return l.Log("hello from factory"), nil
}
