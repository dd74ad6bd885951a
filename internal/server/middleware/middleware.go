// Package middleware provides the HTTP middleware stack for the whisperlm
// server: recovery, request ID, CORS, body-size limiting, request logging,
// and optional bearer-token authentication.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Middleware wraps an http.Handler with additional behavior. This is the
// standard Go middleware signature and the single middleware type for the
// entire server.
type Middleware func(http.Handler) http.Handler

// GinWrap adapts a standard Middleware for use in a Gin middleware chain.
func GinWrap(mw Middleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			// Propagate any request modifications (e.g. added headers) back to Gin.
			c.Request = r
			c.Next()
		})
		mw(next).ServeHTTP(c.Writer, c.Request)
	}
}
