package di

import (
	"fmt"
	"net/http"
	"reflect"
	"strings"

	apperrors "github.com/kbukum/injector/errors"
)

// Sentinels for errors.Is. They match any injector error with the same code.
var (
	ErrConfiguration          = apperrors.Sentinel(apperrors.ErrCodeConfiguration)
	ErrTypeMismatch           = apperrors.Sentinel(apperrors.ErrCodeTypeMismatch)
	ErrUnregisteredDependency = apperrors.Sentinel(apperrors.ErrCodeUnregisteredDependency)
	ErrScopeState             = apperrors.Sentinel(apperrors.ErrCodeScopeState)
	ErrNestedScope            = apperrors.Sentinel(apperrors.ErrCodeNestedScope)
	ErrCircularDependency     = apperrors.Sentinel(apperrors.ErrCodeCircularDependency)
	ErrConstructionFailed     = apperrors.Sentinel(apperrors.ErrCodeConstructionFailed)
)

// Detail keys attached to injector errors.
const (
	DetailServiceType   = "service_type"
	DetailConcreteType  = "concrete_type"
	DetailParameter     = "parameter"
	DetailParameterType = "parameter_type"
	DetailConstructor   = "constructor"
	DetailChain         = "chain"
	DetailScopeID       = "scope_id"
)

func errConfiguration(format string, args ...any) *apperrors.AppError {
	return apperrors.New(apperrors.ErrCodeConfiguration, fmt.Sprintf(format, args...), http.StatusInternalServerError)
}

func errReconfigureInScope(serviceType reflect.Type) *apperrors.AppError {
	return errConfiguration("cannot reconfigure during an active scope").
		WithDetail(DetailServiceType, typeName(serviceType))
}

func errInjectorClosed() *apperrors.AppError {
	return errConfiguration("injector closed")
}

func errTypeMismatch(concrete, serviceType reflect.Type) *apperrors.AppError {
	return apperrors.New(apperrors.ErrCodeTypeMismatch,
		fmt.Sprintf("%s does not implement %s", typeName(concrete), typeName(serviceType)),
		http.StatusInternalServerError,
	).WithDetails(map[string]any{
		DetailConcreteType: typeName(concrete),
		DetailServiceType:  typeName(serviceType),
	})
}

func errParamMismatch(p Param, value reflect.Type, ctor string) *apperrors.AppError {
	return apperrors.New(apperrors.ErrCodeTypeMismatch,
		fmt.Sprintf("explicit parameter %q of %s has type %s, want %s", p.Name, ctor, typeName(value), typeName(p.Type)),
		http.StatusInternalServerError,
	).WithDetails(map[string]any{
		DetailParameter:     p.Name,
		DetailParameterType: typeName(p.Type),
		DetailConcreteType:  typeName(value),
		DetailConstructor:   ctor,
	})
}

func errParamValue(p Param, value any, ctor string) *apperrors.AppError {
	return apperrors.New(apperrors.ErrCodeTypeMismatch,
		fmt.Sprintf("explicit parameter %q of %s: %v does not fit %s", p.Name, ctor, value, typeName(p.Type)),
		http.StatusInternalServerError,
	).WithDetails(map[string]any{
		DetailParameter:     p.Name,
		DetailParameterType: typeName(p.Type),
		DetailConcreteType:  typeName(reflect.TypeOf(value)),
		DetailConstructor:   ctor,
	})
}

func errUnregistered(serviceType reflect.Type) *apperrors.AppError {
	return apperrors.New(apperrors.ErrCodeUnregisteredDependency,
		fmt.Sprintf("%s is not registered", typeName(serviceType)),
		http.StatusInternalServerError,
	).WithDetail(DetailServiceType, typeName(serviceType))
}

func errMissingParameter(p Param, ctor string, serviceType reflect.Type) *apperrors.AppError {
	return apperrors.New(apperrors.ErrCodeUnregisteredDependency,
		fmt.Sprintf("cannot resolve parameter %q (type %s) of %s: register %s or pass it with WithParam",
			p.Name, typeName(p.Type), ctor, typeName(p.Type)),
		http.StatusInternalServerError,
	).WithDetails(map[string]any{
		DetailParameter:     p.Name,
		DetailParameterType: typeName(p.Type),
		DetailConstructor:   ctor,
		DetailServiceType:   typeName(serviceType),
	})
}

func errScopeState(serviceType reflect.Type) *apperrors.AppError {
	return apperrors.New(apperrors.ErrCodeScopeState,
		"scoped resolution requires an open scope",
		http.StatusConflict,
	).WithDetail(DetailServiceType, typeName(serviceType))
}

func errNestedScope(open *Scope) *apperrors.AppError {
	return apperrors.New(apperrors.ErrCodeNestedScope,
		"a scope is already open in this context",
		http.StatusConflict,
	).WithDetail(DetailScopeID, open.ID())
}

func errCircular(chain []reflect.Type) *apperrors.AppError {
	names := make([]string, len(chain))
	for i, t := range chain {
		names[i] = typeName(t)
	}
	return apperrors.New(apperrors.ErrCodeCircularDependency,
		"circular dependency: "+strings.Join(names, " -> "),
		http.StatusInternalServerError,
	).WithDetails(map[string]any{
		DetailChain:       names,
		DetailServiceType: names[0],
	})
}

func errConstructionFailed(ctor string, serviceType reflect.Type, cause error) *apperrors.AppError {
	return apperrors.New(apperrors.ErrCodeConstructionFailed,
		fmt.Sprintf("%s failed to build %s", ctor, typeName(serviceType)),
		http.StatusInternalServerError,
	).WithCause(cause).WithDetails(map[string]any{
		DetailConstructor: ctor,
		DetailServiceType: typeName(serviceType),
	})
}

// IsConfigurationError reports a malformed registration, a registration
// during an open scope, or use of a closed injector.
func IsConfigurationError(err error) bool {
	return apperrors.HasCode(err, apperrors.ErrCodeConfiguration)
}

// IsTypeMismatch reports a producer or explicit parameter of the wrong type.
func IsTypeMismatch(err error) bool {
	return apperrors.HasCode(err, apperrors.ErrCodeTypeMismatch)
}

// IsUnregistered reports a missing binding or an unsatisfiable parameter.
func IsUnregistered(err error) bool {
	return apperrors.HasCode(err, apperrors.ErrCodeUnregisteredDependency)
}

// IsScopeStateError reports a scoped resolution without an open scope.
func IsScopeStateError(err error) bool {
	return apperrors.HasCode(err, apperrors.ErrCodeScopeState)
}

// IsNestedScopeError reports an attempt to open a scope inside another.
func IsNestedScopeError(err error) bool {
	return apperrors.HasCode(err, apperrors.ErrCodeNestedScope)
}

// IsCircularDependency reports a dependency cycle.
func IsCircularDependency(err error) bool {
	return apperrors.HasCode(err, apperrors.ErrCodeCircularDependency)
}

// IsConstructionFailed reports a producer that returned an error or panicked.
func IsConstructionFailed(err error) bool {
	return apperrors.HasCode(err, apperrors.ErrCodeConstructionFailed)
}

var injectorCodes = map[apperrors.ErrorCode]bool{
	apperrors.ErrCodeConfiguration:          true,
	apperrors.ErrCodeTypeMismatch:           true,
	apperrors.ErrCodeUnregisteredDependency: true,
	apperrors.ErrCodeScopeState:             true,
	apperrors.ErrCodeNestedScope:            true,
	apperrors.ErrCodeCircularDependency:     true,
	apperrors.ErrCodeConstructionFailed:     true,
}

func isInjectorError(err error) bool {
	appErr, ok := apperrors.AsAppError(err)
	return ok && injectorCodes[appErr.Code]
}

// ErrorCode returns the injector error code carried by err, or "" if err is
// not an injector error.
func ErrorCode(err error) string {
	if appErr, ok := apperrors.AsAppError(err); ok && injectorCodes[appErr.Code] {
		return string(appErr.Code)
	}
	return ""
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
