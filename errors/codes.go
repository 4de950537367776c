package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Injector errors
const (
	// ErrCodeConfiguration indicates a malformed registration or a registration
	// attempted while a scope is open.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	// ErrCodeTypeMismatch indicates a producer does not satisfy the service type it is bound to.
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"
	// ErrCodeUnregisteredDependency indicates a missing binding or an unsatisfiable constructor parameter.
	ErrCodeUnregisteredDependency ErrorCode = "UNREGISTERED_DEPENDENCY"
	// ErrCodeScopeState indicates a scoped resolution outside an open scope.
	ErrCodeScopeState ErrorCode = "SCOPE_STATE"
	// ErrCodeNestedScope indicates an attempt to open a scope inside an open scope.
	ErrCodeNestedScope ErrorCode = "NESTED_SCOPE"
	// ErrCodeCircularDependency indicates a service type that depends on itself.
	ErrCodeCircularDependency ErrorCode = "CIRCULAR_DEPENDENCY"
	// ErrCodeConstructionFailed indicates a producer returned an error or panicked.
	ErrCodeConstructionFailed ErrorCode = "CONSTRUCTION_FAILED"
)

// Request errors
const (
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTimeout:  true,
	ErrCodeInternal: false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
// Injector errors are deterministic and never retryable.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
