package demo

import (
	"fmt"

	"github.com/kbukum/injector/di"
	"github.com/kbukum/injector/validation"
)

// Profile selects which implementations are bound.
type Profile string

const (
	ProfileDebug   Profile = "debug"
	ProfileRelease Profile = "release"
)

// ParseProfile validates a profile name.
func ParseProfile(s string) (Profile, error) {
	v := validation.New().
		Required("profile", s).
		OneOf("profile", s, string(ProfileDebug), string(ProfileRelease))
	if err := v.Validate(); err != nil {
		return "", err
	}
	return Profile(s), nil
}

// Configure binds the services of profile. loggerParams are explicit
// constructor parameters for the Logger, such as "prefix"; they override the
// profile's defaults.
func Configure(inj *di.Injector, profile Profile, loggerParams map[string]any) error {
	switch profile {
	case ProfileDebug:
		return ConfigureDebug(inj, loggerParams)
	case ProfileRelease:
		return ConfigureRelease(inj, loggerParams)
	default:
		return fmt.Errorf("unknown profile %q", profile)
	}
}

// ConfigureDebug binds the verbose implementations: a singleton Logger, a
// Worker per scope and a transient Processor, the latter two logging through
// the Logger.
func ConfigureDebug(inj *di.Injector, loggerParams map[string]any) error {
	return registerAll(inj,
		binding[Logger](di.Class(newDebugLogger, "prefix"), di.Singleton,
			di.WithParam("prefix", "[DEBUG]"), di.WithParams(loggerParams)),
		binding[Worker](di.Class(newDebugWorker, "log"), di.Scoped),
		binding[Processor](di.Class(newDebugProcessor, "log"), di.Transient),
	)
}

// ConfigureRelease binds the quiet implementations. Worker is a singleton,
// so it resolves outside a scope.
func ConfigureRelease(inj *di.Injector, loggerParams map[string]any) error {
	return registerAll(inj,
		binding[Logger](di.Class(newReleaseLogger, "prefix"), di.Singleton,
			di.WithParam("prefix", "[RELEASE]"), di.WithParams(loggerParams)),
		binding[Worker](di.Class(newReleaseWorker), di.Singleton),
		binding[Processor](di.Class(newReleaseProcessor), di.Transient),
	)
}

type registration func(inj *di.Injector) error

func binding[T any](p di.Producer, l di.Lifecycle, opts ...di.RegisterOption) registration {
	return func(inj *di.Injector) error {
		return di.Register[T](inj, p, append([]di.RegisterOption{di.WithLifecycle(l)}, opts...)...)
	}
}

func registerAll(inj *di.Injector, regs ...registration) error {
	for _, r := range regs {
		if err := r(inj); err != nil {
			return err
		}
	}
	return nil
}
