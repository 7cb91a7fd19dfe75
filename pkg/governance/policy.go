package governance

import (
	"fmt"

	"github.com/Onyinyechi46/Fund-Governance/pkg/contracts"
)

// Policy holds the tunable choices of the rule set.
type Policy struct {
	// RequireSingleSigner makes Approve accept only transactions signed by
	// exactly one party, who must be an official. When false, the first
	// official in the supplied signer order is the approver and other
	// signers are ignored.
	RequireSingleSigner bool `json:"require_single_signer" yaml:"require_single_signer"`

	// ApproveWithinDeadline rejects approvals once now > deadline.
	ApproveWithinDeadline bool `json:"approve_within_deadline" yaml:"approve_within_deadline"`

	// Overlays are extra CEL guards evaluated after the built-in ones.
	Overlays []OverlayRule `json:"overlays,omitempty" yaml:"overlays,omitempty"`
}

// DefaultPolicy is the strictest reading: one signer per approval and no
// approvals after the deadline.
func DefaultPolicy() Policy {
	return Policy{
		RequireSingleSigner:   true,
		ApproveWithinDeadline: true,
	}
}

// input is what every guard sees. Exactly one of record and params is set.
type input struct {
	record   *contracts.Record
	params   *contracts.InitParams
	evidence contracts.Evidence
	now      contracts.Timestamp
}

// guard is one named predicate of a rule set. check returns a detail string
// when the predicate fails, and "" when it holds.
type guard struct {
	name   string
	reason Reason
	check  func(in *input) string
}

// ruleSet is the ordered guard list of one action kind.
type ruleSet []guard

// firstFailure evaluates guards in order and stops at the first that fails.
func (rs ruleSet) firstFailure(kind contracts.ActionKind, in *input) *Rejection {
	for _, g := range rs {
		if detail := g.check(in); detail != "" {
			return reject(kind, g.reason, g.name, "%s", detail)
		}
	}
	return nil
}

// names lists guard names in evaluation order.
func (rs ruleSet) names() []string {
	out := make([]string, len(rs))
	for i, g := range rs {
		out[i] = g.name
	}
	return out
}

func buildRules(p Policy) map[contracts.ActionKind]ruleSet {
	return map[contracts.ActionKind]ruleSet{
		contracts.KindInitialize: initializeRules(),
		contracts.KindApprove:    approveRules(p),
		contracts.KindRelease:    releaseRules(),
		contracts.KindRefund:     refundRules(),
	}
}

func initializeRules() ruleSet {
	return ruleSet{
		{
			name:   "officials_distinct",
			reason: ReasonMalformedParameters,
			check: func(in *input) string {
				if len(in.params.Officials) == 0 {
					return "officials must not be empty"
				}
				if _, err := contracts.NewPartySet(in.params.Officials...); err != nil {
					return err.Error()
				}
				return ""
			},
		},
		{
			name:   "threshold_in_range",
			reason: ReasonMalformedParameters,
			check: func(in *input) string {
				n := len(in.params.Officials)
				if in.params.RequiredApprovals < 1 || in.params.RequiredApprovals > n {
					return fmt.Sprintf("required approvals %d not in [1, %d]", in.params.RequiredApprovals, n)
				}
				return ""
			},
		},
		{
			name:   "owner_signed",
			reason: ReasonUnauthorized,
			check: func(in *input) string {
				return ownerSigned(in.params.Owner, in.evidence)
			},
		},
	}
}

func approveRules(p Policy) ruleSet {
	var rs ruleSet
	if p.ApproveWithinDeadline {
		rs = append(rs, guard{
			name:   "before_deadline",
			reason: ReasonTimeWindowViolated,
			check:  beforeDeadline,
		})
	}
	return append(rs,
		guard{
			name:   "official_signed",
			reason: ReasonUnauthorized,
			check: func(in *input) string {
				if _, ok := matchOfficial(p, in.record, in.evidence); !ok {
					if p.RequireSingleSigner {
						return "approval must be signed by exactly one party, an official"
					}
					return "no official among signers"
				}
				return ""
			},
		},
		guard{
			name:   "not_yet_approved",
			reason: ReasonAlreadyApproved,
			check: func(in *input) string {
				official, _ := matchOfficial(p, in.record, in.evidence)
				if in.record.ApprovalsReceived.Contains(official) {
					return fmt.Sprintf("%s has already approved", official)
				}
				return ""
			},
		},
	)
}

func releaseRules() ruleSet {
	return ruleSet{
		{name: "owner_signed", reason: ReasonUnauthorized, check: recordOwnerSigned},
		{name: "before_deadline", reason: ReasonTimeWindowViolated, check: beforeDeadline},
		{
			name:   "threshold_met",
			reason: ReasonThresholdNotMet,
			check: func(in *input) string {
				if !in.record.ThresholdMet() {
					return fmt.Sprintf("%d of %d approvals", in.record.Approvals(), in.record.RequiredApprovals)
				}
				return ""
			},
		},
		{name: "owner_paid", reason: ReasonAmountMismatch, check: ownerPaid},
	}
}

func refundRules() ruleSet {
	return ruleSet{
		{name: "owner_signed", reason: ReasonUnauthorized, check: recordOwnerSigned},
		{
			name:   "after_deadline",
			reason: ReasonTimeWindowViolated,
			check: func(in *input) string {
				if in.now <= in.record.Deadline {
					return fmt.Sprintf("now %d is not past deadline %d", in.now, in.record.Deadline)
				}
				return ""
			},
		},
		{
			name:   "threshold_not_met",
			reason: ReasonThresholdAlreadyMet,
			check: func(in *input) string {
				if in.record.ThresholdMet() {
					return fmt.Sprintf("%d of %d approvals", in.record.Approvals(), in.record.RequiredApprovals)
				}
				return ""
			},
		},
		{name: "owner_paid", reason: ReasonAmountMismatch, check: ownerPaid},
	}
}

func ownerSigned(owner contracts.PartyID, ev contracts.Evidence) string {
	if owner == "" || !ev.SignedBy(owner) {
		return "owner signature required"
	}
	return ""
}

func recordOwnerSigned(in *input) string { return ownerSigned(in.record.Owner, in.evidence) }

func beforeDeadline(in *input) string {
	if in.now > in.record.Deadline {
		return fmt.Sprintf("now %d is past deadline %d", in.now, in.record.Deadline)
	}
	return ""
}

func ownerPaid(in *input) string {
	if in.evidence.AmountPaidToOwner < in.evidence.InputAmount {
		return fmt.Sprintf("owner paid %d, locked %d", in.evidence.AmountPaidToOwner, in.evidence.InputAmount)
	}
	return ""
}

// matchOfficial resolves which official an Approve is on behalf of.
func matchOfficial(p Policy, r *contracts.Record, ev contracts.Evidence) (contracts.PartyID, bool) {
	if p.RequireSingleSigner {
		signers := distinct(ev.Signers)
		if len(signers) != 1 || !r.Officials.Contains(signers[0]) {
			return "", false
		}
		return signers[0], true
	}
	for _, s := range ev.Signers {
		if r.Officials.Contains(s) {
			return s, true
		}
	}
	return "", false
}

func distinct(ids []contracts.PartyID) []contracts.PartyID {
	seen := make(map[contracts.PartyID]struct{}, len(ids))
	out := make([]contracts.PartyID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
