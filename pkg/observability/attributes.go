package observability

import "go.opentelemetry.io/otel/attribute"

var (
	AttrInstanceID = attribute.Key("fundgov.instance.id")
	AttrAction     = attribute.Key("fundgov.action")
	AttrDecision   = attribute.Key("fundgov.decision")
	AttrReason     = attribute.Key("fundgov.reason")
	AttrVersion    = attribute.Key("fundgov.instance.version")
)

// Decision values.
const (
	DecisionAccepted = "accepted"
	DecisionRejected = "rejected"
)

// SubmissionAttrs identifies a submission on spans and RED metrics.
func SubmissionAttrs(action string) []attribute.KeyValue {
	return []attribute.KeyValue{AttrAction.String(action)}
}

// DecisionAttrs labels one verdict.
func DecisionAttrs(action string, accepted bool, reason string) []attribute.KeyValue {
	decision := DecisionRejected
	if accepted {
		decision = DecisionAccepted
	}
	attrs := []attribute.KeyValue{
		AttrAction.String(action),
		AttrDecision.String(decision),
	}
	if reason != "" {
		attrs = append(attrs, AttrReason.String(reason))
	}
	return attrs
}
