// package server contains the router, middleware and OAuth callback handling for the local authorization server
package server

import (
	"net/http"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Router registers method-bound handlers behind a middleware stack.
type Router interface {
	http.Handler

	Use(middleware ...Middleware)
	Handle(method, path string, handler http.Handler)
}
