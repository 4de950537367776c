package component

import (
	"context"
	"fmt"
	"reflect"

	"github.com/kbukum/injector/di"
)

// InjectorComponent ties an injector to the application lifecycle. Start
// resolves the warm-up types so that singleton failures surface at boot;
// Stop closes the injector, disposing cached singletons.
type InjectorComponent struct {
	inj  *di.Injector
	warm []reflect.Type
}

// NewInjectorComponent wraps inj. warm lists service types to resolve on Start.
func NewInjectorComponent(inj *di.Injector, warm ...reflect.Type) *InjectorComponent {
	return &InjectorComponent{inj: inj, warm: warm}
}

// Injector returns the wrapped injector.
func (c *InjectorComponent) Injector() *di.Injector { return c.inj }

// Warm adds service types to resolve on Start.
func (c *InjectorComponent) Warm(types ...reflect.Type) {
	c.warm = append(c.warm, types...)
}

func (c *InjectorComponent) Name() string { return "injector" }

func (c *InjectorComponent) Start(ctx context.Context) error {
	for _, t := range c.warm {
		if _, err := c.inj.GetInstance(ctx, t); err != nil {
			return fmt.Errorf("warm up %s: %w", t, err)
		}
	}
	return nil
}

func (c *InjectorComponent) Stop(ctx context.Context) error {
	return c.inj.Close()
}

func (c *InjectorComponent) Health(ctx context.Context) Health {
	h := Health{Name: c.Name(), Status: StatusHealthy}
	if c.inj.Closed() {
		h.Status = StatusUnhealthy
		h.Message = "closed"
		return h
	}
	if open := c.inj.OpenScopes(); open > 0 {
		h.Message = fmt.Sprintf("%d open scopes", open)
	}
	return h
}

func (c *InjectorComponent) Describe() Description {
	cached := 0
	regs := c.inj.Registrations()
	for _, r := range regs {
		if r.Cached {
			cached++
		}
	}
	return Description{
		Name:    "Injector",
		Type:    "di",
		Details: fmt.Sprintf("registrations=%d singletons=%d", len(regs), cached),
	}
}
