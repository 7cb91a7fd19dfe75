package contracts

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ActionKind tags the transition a proposer is asking for.
type ActionKind string

const (
	KindInitialize ActionKind = "INITIALIZE"
	KindApprove    ActionKind = "APPROVE"
	KindRelease    ActionKind = "RELEASE"
	KindRefund     ActionKind = "REFUND"
)

// ActionKinds lists every kind the engine handles.
var ActionKinds = []ActionKind{KindInitialize, KindApprove, KindRelease, KindRefund}

// ErrUnknownActionKind is returned when decoding an action tag that no variant claims.
var ErrUnknownActionKind = errors.New("unknown action kind")

// Action is the closed set of transitions. Only the variants in this package
// implement it.
type Action interface {
	Kind() ActionKind
	isAction()
}

// Initialize creates a record from raw parameters.
type Initialize struct {
	Params InitParams
}

// Approve adds the signing official to the approvals received.
type Approve struct{}

// Release retires the record and pays the locked value to the owner.
type Release struct{}

// Refund retires the record after the deadline when the threshold was not met.
type Refund struct{}

func (Initialize) Kind() ActionKind { return KindInitialize }
func (Approve) Kind() ActionKind    { return KindApprove }
func (Release) Kind() ActionKind    { return KindRelease }
func (Refund) Kind() ActionKind     { return KindRefund }

func (Initialize) isAction() {}
func (Approve) isAction()    {}
func (Release) isAction()    {}
func (Refund) isAction()     {}

// KindOf returns the kind of a, or "" when a is nil or not one of the
// variants above. Pointer and typed-nil values are never dereferenced.
func KindOf(a Action) ActionKind {
	switch a.(type) {
	case Initialize:
		return KindInitialize
	case Approve:
		return KindApprove
	case Release:
		return KindRelease
	case Refund:
		return KindRefund
	}
	return ""
}

// ActionEnvelope is the wire form of an Action.
type ActionEnvelope struct {
	Kind   ActionKind  `json:"kind"`
	Params *InitParams `json:"params,omitempty"`
}

// Envelope converts a into its wire form.
func Envelope(a Action) ActionEnvelope {
	env := ActionEnvelope{Kind: KindOf(a)}
	if init, ok := a.(Initialize); ok {
		p := init.Params
		env.Params = &p
	}
	return env
}

// Action resolves the envelope to its variant.
func (e ActionEnvelope) Action() (Action, error) {
	switch e.Kind {
	case KindInitialize:
		if e.Params == nil {
			return nil, fmt.Errorf("%s: missing params", e.Kind)
		}
		return Initialize{Params: *e.Params}, nil
	case KindApprove:
		return Approve{}, nil
	case KindRelease:
		return Release{}, nil
	case KindRefund:
		return Refund{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownActionKind, e.Kind)
}

// DecodeAction parses a JSON action envelope.
func DecodeAction(data []byte) (Action, error) {
	var env ActionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode action: %w", err)
	}
	return env.Action()
}
