package metrics

import (
	"context"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// MethodTracer is a segment of the New Relic transaction carried by a
// context. A nil *MethodTracer is valid and records nothing.
type MethodTracer struct {
	txn     *newrelic.Transaction
	segment *newrelic.Segment
}

// TraceMethodCall starts a segment named "<owner> <method>". It returns nil
// when ctx carries no transaction.
func TraceMethodCall(ctx context.Context, owner, method string) *MethodTracer {
	txn := newrelic.FromContext(ctx)
	if txn == nil {
		return nil
	}
	return &MethodTracer{
		txn:     txn,
		segment: txn.StartSegment(owner + " " + method),
	}
}

func (t *MethodTracer) AddAttribute(key string, value interface{}) {
	if t != nil {
		t.segment.AddAttribute(key, value)
	}
}

func (t *MethodTracer) AddAttributes(attributes map[string]interface{}) {
	for key, value := range attributes {
		t.AddAttribute(key, value)
	}
}

// OnError reports err against the enclosing transaction.
func (t *MethodTracer) OnError(err error) {
	if t != nil && err != nil {
		t.txn.NoticeError(err)
	}
}

func (t *MethodTracer) End() {
	if t != nil {
		t.segment.End()
	}
}
