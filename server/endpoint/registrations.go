package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/injector/di"
)

// Registrations lists the injector's bindings. Explicit parameter values
// are never exposed, only their names.
func Registrations(inj *di.Injector) gin.HandlerFunc {
	return func(c *gin.Context) {
		regs := inj.Registrations()
		c.JSON(http.StatusOK, gin.H{
			"count":         len(regs),
			"open_scopes":   inj.OpenScopes(),
			"registrations": regs,
		})
	}
}
