package governance

import (
	"errors"
	"fmt"

	"github.com/Onyinyechi46/Fund-Governance/pkg/contracts"
)

// Reason names why a proposed transition was refused.
type Reason string

const (
	ReasonUnauthorized        Reason = "UNAUTHORIZED"
	ReasonAlreadyApproved     Reason = "ALREADY_APPROVED"
	ReasonTimeWindowViolated  Reason = "TIME_WINDOW_VIOLATED"
	ReasonThresholdNotMet     Reason = "THRESHOLD_NOT_MET"
	ReasonThresholdAlreadyMet Reason = "THRESHOLD_ALREADY_MET"
	ReasonAmountMismatch      Reason = "AMOUNT_MISMATCH"
	ReasonMalformedParameters Reason = "MALFORMED_PARAMETERS"
	ReasonMissingRecord       Reason = "MISSING_RECORD"
	ReasonAlreadyInitialized  Reason = "ALREADY_INITIALIZED"
	ReasonInvalidTimeContext  Reason = "INVALID_TIME_CONTEXT"

	// Malformed input from the caller rather than a policy outcome.
	ReasonMalformedRequest  Reason = "MALFORMED_REQUEST"
	ReasonMalformedEvidence Reason = "MALFORMED_EVIDENCE"
	ReasonMalformedRecord   Reason = "MALFORMED_RECORD"

	ReasonPolicyOverlayDenied Reason = "POLICY_OVERLAY_DENIED"
)

var (
	// ErrRejected matches every *Rejection via errors.Is.
	ErrRejected = errors.New("transition rejected")
	// ErrInvariantViolated reports an engine defect: a computed successor broke a
	// record invariant. It is never a Rejection.
	ErrInvariantViolated = errors.New("record invariant violated")
)

// Rejection is returned by Engine.Evaluate when a transition is refused.
type Rejection struct {
	Reason Reason               `json:"reason"`
	Action contracts.ActionKind `json:"action,omitempty"`
	// Guard names the predicate that failed.
	Guard  string `json:"guard,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func (r *Rejection) Error() string {
	msg := string(r.Reason)
	if r.Action != "" {
		msg = fmt.Sprintf("%s rejected: %s", r.Action, r.Reason)
	}
	if r.Detail != "" {
		msg += ": " + r.Detail
	}
	return msg
}

func (r *Rejection) Is(target error) bool { return target == ErrRejected }

// ReasonOf extracts the rejection reason from err.
func ReasonOf(err error) (Reason, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return "", false
}

func reject(kind contracts.ActionKind, reason Reason, guard, format string, args ...any) *Rejection {
	return &Rejection{
		Reason: reason,
		Action: kind,
		Guard:  guard,
		Detail: fmt.Sprintf(format, args...),
	}
}
