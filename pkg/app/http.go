package app

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/newrelic/go-agent/v3/newrelic"

	metrics_util "github.com/code-payments/collateral-server/pkg/metrics"
)

// newRelicMiddleware runs each request in a New Relic web transaction and
// makes the application available to metrics recorded downstream. The
// transaction is named after the matched chi route pattern, so path
// parameters don't create distinct transactions.
func newRelicMiddleware(nr *newrelic.Application, next http.Handler) http.Handler {
	if nr == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		txn := nr.StartTransaction(r.Method + " " + r.URL.Path)
		defer txn.End()

		txn.SetWebRequestHTTP(r)
		w = txn.SetWebResponse(w)

		routeCtx := chi.NewRouteContext()

		ctx := newrelic.NewContext(r.Context(), txn)
		ctx = metrics_util.NewContext(ctx, nr)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)

		next.ServeHTTP(w, r.WithContext(ctx))

		if pattern := routeCtx.RoutePattern(); len(pattern) > 0 {
			txn.SetName(r.Method + " " + pattern)
		}
	})
}
