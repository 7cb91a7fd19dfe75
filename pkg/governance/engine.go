// Package governance decides whether a proposed transition of a governance
// record is authorized and computes the record that follows it.
//
// The Engine is a pure function of its inputs: it reads no clock, performs no
// I/O and keeps no mutable state, so any number of verifiers can re-evaluate
// the same transition concurrently and reach the same verdict.
package governance

import (
	"fmt"

	"github.com/Onyinyechi46/Fund-Governance/pkg/contracts"
)

// Engine evaluates transitions against a fixed Policy.
type Engine struct {
	policy   Policy
	rules    map[contracts.ActionKind]ruleSet
	overlays []compiledOverlay
}

// NewEngine compiles the policy. It fails only when an overlay rule is invalid.
func NewEngine(policy Policy) (*Engine, error) {
	overlays, err := compileOverlays(policy.Overlays)
	if err != nil {
		return nil, err
	}
	return &Engine{
		policy:   policy,
		rules:    buildRules(policy),
		overlays: overlays,
	}, nil
}

// NewDefaultEngine returns an engine running DefaultPolicy.
func NewDefaultEngine() *Engine {
	e, _ := NewEngine(DefaultPolicy())
	return e
}

// Policy returns the policy the engine was built with.
func (e *Engine) Policy() Policy { return e.policy }

// Guards lists the built-in guard names for kind in evaluation order.
func (e *Engine) Guards(kind contracts.ActionKind) []string {
	return e.rules[kind].names()
}

// Evaluate decides a transition.
//
// record is the current record, or nil when none exists yet. On success it
// returns the successor record, or nil when the action retires the record.
// A refused transition returns a *Rejection. The input record is never
// modified.
func (e *Engine) Evaluate(record *contracts.Record, action contracts.Action, ev contracts.Evidence) (*contracts.Record, error) {
	if action == nil {
		return nil, reject("", ReasonMalformedRequest, "", "no action")
	}
	kind := contracts.KindOf(action)

	switch a := action.(type) {
	case contracts.Initialize:
		if record != nil {
			return nil, reject(kind, ReasonAlreadyInitialized, "", "record already exists")
		}
		now, rej := resolveNow(kind, ev)
		if rej != nil {
			return nil, rej
		}
		return e.initialize(a.Params, ev, now)

	case contracts.Approve:
		now, rej := e.precheck(kind, record, ev)
		if rej != nil {
			return nil, rej
		}
		return e.approve(record, ev, now)

	case contracts.Release:
		now, rej := e.precheck(kind, record, ev)
		if rej != nil {
			return nil, rej
		}
		return nil, e.retire(kind, record, ev, now)

	case contracts.Refund:
		now, rej := e.precheck(kind, record, ev)
		if rej != nil {
			return nil, rej
		}
		return nil, e.retire(kind, record, ev, now)

	default:
		return nil, reject(kind, ReasonMalformedRequest, "", "unsupported action %T", action)
	}
}

func resolveNow(kind contracts.ActionKind, ev contracts.Evidence) (contracts.Timestamp, *Rejection) {
	if ev.Now == nil {
		return 0, reject(kind, ReasonInvalidTimeContext, "", "no finite lower validity bound")
	}
	return *ev.Now, nil
}

// precheck runs the checks shared by every action that consumes a record.
// They precede all policy guards.
func (e *Engine) precheck(kind contracts.ActionKind, record *contracts.Record, ev contracts.Evidence) (contracts.Timestamp, *Rejection) {
	if record == nil {
		return 0, reject(kind, ReasonMissingRecord, "", "no current record")
	}
	now, rej := resolveNow(kind, ev)
	if rej != nil {
		return 0, rej
	}
	if err := record.Validate(); err != nil {
		return 0, reject(kind, ReasonMalformedRecord, "", "%v", err)
	}
	if ev.InputAmount != record.TotalAmount {
		return 0, reject(kind, ReasonMalformedEvidence, "", "input amount %d does not match locked amount %d", ev.InputAmount, record.TotalAmount)
	}
	return now, nil
}

func (e *Engine) initialize(p contracts.InitParams, ev contracts.Evidence, now contracts.Timestamp) (*contracts.Record, error) {
	const kind = contracts.KindInitialize
	in := &input{params: &p, evidence: ev, now: now}
	if rej := e.rules[kind].firstFailure(kind, in); rej != nil {
		return nil, rej
	}

	officials, err := contracts.NewPartySet(p.Officials...)
	if err != nil {
		return nil, reject(kind, ReasonMalformedParameters, "officials_distinct", "%v", err)
	}
	// No check of the deadline against now: a record may be created already
	// past its own deadline.
	next := &contracts.Record{
		TotalAmount:       p.TotalAmount,
		Owner:             p.Owner,
		Officials:         officials,
		RequiredApprovals: p.RequiredApprovals,
		ApprovalsReceived: contracts.PartySet{},
		Deadline:          p.Deadline,
	}
	if err := next.Validate(); err != nil {
		return nil, reject(kind, ReasonMalformedParameters, "", "%v", err)
	}
	if rej := evalOverlays(e.overlays, kind, next, ev, now); rej != nil {
		return nil, rej
	}
	return next, nil
}

func (e *Engine) approve(record *contracts.Record, ev contracts.Evidence, now contracts.Timestamp) (*contracts.Record, error) {
	const kind = contracts.KindApprove
	in := &input{record: record, evidence: ev, now: now}
	if rej := e.rules[kind].firstFailure(kind, in); rej != nil {
		return nil, rej
	}
	if rej := evalOverlays(e.overlays, kind, record, ev, now); rej != nil {
		return nil, rej
	}

	official, _ := matchOfficial(e.policy, record, ev)
	next := record.Clone()
	next.ApprovalsReceived = record.ApprovalsReceived.With(official)
	if err := checkApproveSuccessor(record, next, official); err != nil {
		return nil, err
	}
	return next, nil
}

// checkApproveSuccessor asserts that an approval only added official.
func checkApproveSuccessor(prev, next *contracts.Record, official contracts.PartyID) error {
	switch {
	case !prev.SameTerms(next):
		return fmt.Errorf("%w: immutable field changed", ErrInvariantViolated)
	case next.Approvals() != prev.Approvals()+1:
		return fmt.Errorf("%w: approvals grew by %d", ErrInvariantViolated, next.Approvals()-prev.Approvals())
	case !prev.ApprovalsReceived.SubsetOf(next.ApprovalsReceived) || !next.ApprovalsReceived.Contains(official):
		return fmt.Errorf("%w: approvals not extended by %s", ErrInvariantViolated, official)
	}
	if err := next.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvariantViolated, err)
	}
	return nil
}

// retire evaluates Release and Refund, which consume the record without a successor.
func (e *Engine) retire(kind contracts.ActionKind, record *contracts.Record, ev contracts.Evidence, now contracts.Timestamp) error {
	in := &input{record: record, evidence: ev, now: now}
	if rej := e.rules[kind].firstFailure(kind, in); rej != nil {
		return rej
	}
	if rej := evalOverlays(e.overlays, kind, record, ev, now); rej != nil {
		return rej
	}
	return nil
}
