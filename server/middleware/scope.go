package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/injector/di"
	"github.com/kbukum/injector/logger"
)

const keyScopeID = "scope_id"

// Scope opens an injector scope for each request. The scoped context
// replaces the request context, so handlers resolve scoped services through
// ScopedContext(c). The scope is closed when the handler chain returns, also
// after a panic.
func Scope(inj *di.Injector, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, scope, err := inj.OpenScope(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		defer func() {
			if err := scope.Close(); err != nil {
				log.Warn("Closing request scope failed", logger.Fields(
					logger.FieldScopeID, scope.ID(),
					logger.FieldError, err.Error(),
				))
			}
		}()

		c.Request = c.Request.WithContext(ctx)
		c.Set(keyScopeID, scope.ID())
		c.Next()
	}
}

// ScopedContext returns the request context, which carries the request's
// scope when Scope is installed.
func ScopedContext(c *gin.Context) context.Context {
	return c.Request.Context()
}

// ScopeID returns the ID of the request's scope, or "" outside Scope.
func ScopeID(c *gin.Context) string {
	return c.GetString(keyScopeID)
}

// Resolve resolves T in the request's scope and aborts with the error
// envelope on failure. ok is false when the request was aborted.
func Resolve[T any](c *gin.Context, inj *di.Injector) (v T, ok bool) {
	v, err := di.Resolve[T](ScopedContext(c), inj)
	if err != nil {
		_ = c.Error(err)
		abortWithError(c, err)
		return v, false
	}
	return v, true
}
