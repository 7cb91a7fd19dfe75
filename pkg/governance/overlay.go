package governance

import (
	"fmt"
	"slices"

	"github.com/google/cel-go/cel"

	"github.com/Onyinyechi46/Fund-Governance/pkg/contracts"
)

// OverlayRule is an additional guard written in CEL. The expression sees
// `action` (string), `record` (map) and `evidence` (map) and must yield a bool;
// false rejects the transition with ReasonPolicyOverlayDenied.
//
// For Initialize, `record` is the record that would be created.
type OverlayRule struct {
	ID      string                 `json:"id" yaml:"id"`
	Actions []contracts.ActionKind `json:"actions,omitempty" yaml:"actions,omitempty"` // empty applies to all
	Expr    string                 `json:"expr" yaml:"expr"`
}

const overlayCostLimit = 10000

type compiledOverlay struct {
	rule OverlayRule
	prg  cel.Program
}

func (o compiledOverlay) appliesTo(kind contracts.ActionKind) bool {
	return len(o.rule.Actions) == 0 || slices.Contains(o.rule.Actions, kind)
}

func newOverlayEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("action", cel.StringType),
		cel.Variable("record", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("evidence", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

func compileOverlays(rules []OverlayRule) ([]compiledOverlay, error) {
	if len(rules) == 0 {
		return nil, nil
	}
	env, err := newOverlayEnv()
	if err != nil {
		return nil, err
	}
	out := make([]compiledOverlay, 0, len(rules))
	seen := make(map[string]bool, len(rules))
	for _, rule := range rules {
		if rule.ID == "" {
			return nil, fmt.Errorf("overlay rule without id")
		}
		if seen[rule.ID] {
			return nil, fmt.Errorf("overlay %s: duplicate id", rule.ID)
		}
		seen[rule.ID] = true
		for _, k := range rule.Actions {
			if !slices.Contains(contracts.ActionKinds, k) {
				return nil, fmt.Errorf("overlay %s: %w: %q", rule.ID, contracts.ErrUnknownActionKind, k)
			}
		}

		ast, issues := env.Compile(rule.Expr)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("overlay %s: compile: %w", rule.ID, issues.Err())
		}
		if t := ast.OutputType(); !t.IsExactType(cel.BoolType) && !t.IsExactType(cel.DynType) {
			return nil, fmt.Errorf("overlay %s: expression must be bool, got %s", rule.ID, t)
		}
		prg, err := env.Program(ast, cel.CostLimit(overlayCostLimit))
		if err != nil {
			return nil, fmt.Errorf("overlay %s: program: %w", rule.ID, err)
		}
		out = append(out, compiledOverlay{rule: rule, prg: prg})
	}
	return out, nil
}

// evalOverlays runs every overlay that applies to kind, in declaration order.
// Evaluation errors deny.
func evalOverlays(overlays []compiledOverlay, kind contracts.ActionKind, r *contracts.Record, ev contracts.Evidence, now contracts.Timestamp) *Rejection {
	if len(overlays) == 0 {
		return nil
	}
	vars := map[string]any{
		"action":   string(kind),
		"record":   recordVars(r),
		"evidence": evidenceVars(ev, now),
	}
	for _, o := range overlays {
		if !o.appliesTo(kind) {
			continue
		}
		out, _, err := o.prg.Eval(vars)
		if err != nil {
			return reject(kind, ReasonPolicyOverlayDenied, o.rule.ID, "eval: %v", err)
		}
		allowed, ok := out.Value().(bool)
		if !ok {
			return reject(kind, ReasonPolicyOverlayDenied, o.rule.ID, "result not bool")
		}
		if !allowed {
			return reject(kind, ReasonPolicyOverlayDenied, o.rule.ID, "denied by overlay %s", o.rule.ID)
		}
	}
	return nil
}

func recordVars(r *contracts.Record) map[string]any {
	return map[string]any{
		"total_amount":       r.TotalAmount,
		"owner":              string(r.Owner),
		"officials":          partyStrings(r.Officials),
		"required_approvals": int64(r.RequiredApprovals),
		"approvals_received": partyStrings(r.ApprovalsReceived),
		"deadline":           int64(r.Deadline),
	}
}

func evidenceVars(ev contracts.Evidence, now contracts.Timestamp) map[string]any {
	return map[string]any{
		"signers":              partyStrings(ev.Signers),
		"now":                  int64(now),
		"amount_paid_to_owner": ev.AmountPaidToOwner,
		"input_amount":         ev.InputAmount,
	}
}

func partyStrings[S ~[]contracts.PartyID](ids S) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
