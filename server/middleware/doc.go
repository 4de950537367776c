// Package middleware holds the gin middleware used by the injector's HTTP
// server: request IDs, panic recovery, request logging and per-request
// injector scopes.
//
//	api := engine.Group("/api", middleware.Scope(inj, log))
//	api.GET("/session", func(c *gin.Context) {
//	    s, ok := middleware.Resolve[Session](c, inj)
//	    if !ok {
//	        return
//	    }
//	    c.JSON(http.StatusOK, s)
//	})
package middleware
