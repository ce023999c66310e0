package app

import (
	"net/http"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// Option configures the environment run by Run().
type Option func(o *opts)

type opts struct {
	httpMiddleware []func(http.Handler) http.Handler
}

// WithHTTPMiddleware wraps the app's HTTP handler. The first middleware
// added is the outermost, and all of them run inside request tracing.
func WithHTTPMiddleware(middleware func(http.Handler) http.Handler) Option {
	return func(o *opts) {
		o.httpMiddleware = append(o.httpMiddleware, middleware)
	}
}

func (o opts) wrap(handler http.Handler, nr *newrelic.Application) http.Handler {
	for i := len(o.httpMiddleware) - 1; i >= 0; i-- {
		handler = o.httpMiddleware[i](handler)
	}
	return newRelicMiddleware(nr, handler)
}
