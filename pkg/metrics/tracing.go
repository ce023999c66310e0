package metrics

import (
	"context"

	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/code-payments/collateral-server/pkg/collateral/failure"
)

// MethodTracer is a segment of the New Relic transaction carried by the
// request context. A nil tracer ignores every call, so callers never check
// whether tracing is enabled.
type MethodTracer struct {
	txn *newrelic.Transaction
	seg *newrelic.Segment
}

// TraceMethodCall starts a segment named "<component> <method>".
func TraceMethodCall(ctx context.Context, component, method string) *MethodTracer {
	txn := newrelic.FromContext(ctx)
	if txn == nil {
		return nil
	}

	return &MethodTracer{
		txn: txn,
		seg: txn.StartSegment(component + " " + method),
	}
}

func (t *MethodTracer) AddAttribute(key string, value interface{}) {
	if t == nil {
		return
	}
	t.seg.AddAttribute(key, value)
}

// OnError tags the segment with the error's failure kind. Only submission
// failures and unclassified errors are noticed on the transaction.
func (t *MethodTracer) OnError(err error) {
	if t == nil || err == nil {
		return
	}

	kind := failure.KindOf(err)
	t.seg.AddAttribute("error_kind", string(kind))

	switch kind {
	case failure.KindSubmissionFailed, failure.KindUnknown:
		t.txn.NoticeError(err)
	}
}

func (t *MethodTracer) End() {
	if t == nil {
		return
	}
	t.seg.End()
}
