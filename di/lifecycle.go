package di

import "fmt"

// Lifecycle governs how instances of a class registration are cached.
type Lifecycle int

const (
	// lifecycleNone marks factory registrations, which are never cached.
	lifecycleNone Lifecycle = iota
	// Transient builds a new instance on every resolution.
	Transient
	// Scoped shares one instance per open scope.
	Scoped
	// Singleton shares one instance for the life of the injector.
	Singleton
)

func (l Lifecycle) String() string {
	switch l {
	case lifecycleNone:
		return "none"
	case Transient:
		return "transient"
	case Scoped:
		return "scoped"
	case Singleton:
		return "singleton"
	default:
		return fmt.Sprintf("lifecycle(%d)", int(l))
	}
}

// MarshalText renders the lifecycle name in JSON and YAML output.
func (l Lifecycle) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// ParseLifecycle parses a lifecycle name as written in configuration.
func ParseLifecycle(s string) (Lifecycle, error) {
	switch s {
	case "transient", "per_request":
		return Transient, nil
	case "scoped":
		return Scoped, nil
	case "singleton":
		return Singleton, nil
	default:
		return lifecycleNone, fmt.Errorf("unknown lifecycle %q", s)
	}
}

func (l Lifecycle) valid() bool {
	return l == Transient || l == Scoped || l == Singleton
}
