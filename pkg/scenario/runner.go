package scenario

import (
	"context"
	"errors"
	"fmt"

	"github.com/Onyinyechi46/Fund-Governance/pkg/contracts"
	"github.com/Onyinyechi46/Fund-Governance/pkg/evidence"
	"github.com/Onyinyechi46/Fund-Governance/pkg/governance"
	"github.com/Onyinyechi46/Fund-Governance/pkg/processor"
	"github.com/Onyinyechi46/Fund-Governance/pkg/store"
)

// StepResult is the verdict of one step and whether it matched.
type StepResult struct {
	Step      string            `json:"step"`
	Action    string            `json:"action"`
	Accepted  bool              `json:"accepted"`
	Reason    governance.Reason `json:"reason,omitempty"`
	Approvals int               `json:"approvals"`
	Retired   bool              `json:"retired"`
	Passed    bool              `json:"passed"`
	Mismatch  string            `json:"mismatch,omitempty"`
}

// Result is the report of one scenario run.
type Result struct {
	Name       string       `json:"name"`
	InstanceID string       `json:"instance_id,omitempty"`
	Steps      []StepResult `json:"steps"`
	Passed     bool         `json:"passed"`
}

// Failed returns the steps that did not match their expectation.
func (r *Result) Failed() []StepResult {
	var out []StepResult
	for _, s := range r.Steps {
		if !s.Passed {
			out = append(out, s)
		}
	}
	return out
}

// NewProcessor builds a memory-backed processor for doc's policy.
func NewProcessor(doc *Document) (*processor.Processor, error) {
	policy := governance.DefaultPolicy()
	if doc.Policy != nil {
		policy = doc.Policy.Policy()
	}
	engine, err := governance.NewEngine(policy)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", doc.Name, err)
	}
	return processor.New(engine, store.NewMemoryStore()), nil
}

// Run executes doc against a fresh memory-backed processor.
func Run(ctx context.Context, doc *Document) (*Result, error) {
	p, err := NewProcessor(doc)
	if err != nil {
		return nil, err
	}
	return RunWith(ctx, p, doc)
}

// RunWith executes doc against p. Expectation mismatches are reported in the
// result; only store or engine failures are returned as errors.
func RunWith(ctx context.Context, p *processor.Processor, doc *Document) (*Result, error) {
	res := &Result{Name: doc.Name, Passed: true}
	owner := contracts.NormalizePartyID(doc.Params.Owner)

	for i, step := range doc.Steps {
		label := step.Label(i)
		action, err := buildAction(step.Action, doc.Params)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", label, err)
		}
		ev, err := evidence.Assemble(owner, facts(step, doc.Params))
		if err != nil {
			return nil, fmt.Errorf("%s: evidence: %w", label, err)
		}

		out, err := p.Submit(ctx, processor.Submission{
			InstanceID: res.InstanceID,
			Action:     action,
			Evidence:   ev,
		})
		sr := StepResult{Step: label, Action: string(step.Action)}
		switch reason, rejected := governance.ReasonOf(err); {
		case err == nil:
			sr.Accepted = true
			if res.InstanceID == "" {
				res.InstanceID = out.InstanceID
			}
		case rejected:
			sr.Reason = reason
		default:
			return nil, fmt.Errorf("%s: %w", label, err)
		}

		if err := observe(ctx, p.Store(), res.InstanceID, &sr); err != nil {
			return nil, fmt.Errorf("%s: %w", label, err)
		}
		sr.Mismatch = compare(step.Expect, sr)
		sr.Passed = sr.Mismatch == ""
		res.Passed = res.Passed && sr.Passed
		res.Steps = append(res.Steps, sr)
	}
	return res, nil
}

func buildAction(kind contracts.ActionKind, params Params) (contracts.Action, error) {
	env := contracts.ActionEnvelope{Kind: kind}
	if kind == contracts.KindInitialize {
		ip := params.InitParams()
		env.Params = &ip
	}
	return env.Action()
}

func facts(step Step, params Params) evidence.Facts {
	f := evidence.Facts{Signers: step.Signers}
	if step.Now != nil {
		f.Validity.From = evidence.At(contracts.Timestamp(*step.Now))
	}
	if step.Until != nil {
		f.Validity.To = evidence.At(contracts.Timestamp(*step.Until))
	}
	in := params.TotalAmount
	if step.InputAmount != nil {
		in = *step.InputAmount
	}
	f.Inputs = []evidence.Input{{Ref: "fund", Amount: in}}
	if step.PaidToOwner > 0 {
		f.Outputs = []evidence.Output{{Recipient: contracts.PartyID(params.Owner), Amount: step.PaidToOwner}}
	}
	return f
}

// observe fills in the stored state after a step.
func observe(ctx context.Context, st store.Store, id string, sr *StepResult) error {
	if id == "" {
		return nil
	}
	v, err := st.Load(ctx, id)
	switch {
	case err == nil:
		sr.Approvals = v.Record.Approvals()
	case errors.Is(err, store.ErrRetired):
		sr.Retired = true
	case errors.Is(err, store.ErrNotFound):
	default:
		return err
	}
	return nil
}

func compare(want Expect, got StepResult) string {
	switch {
	case want.Reason == "" && !got.Accepted:
		return fmt.Sprintf("expected acceptance, got %s", got.Reason)
	case want.Reason != "" && got.Accepted:
		return fmt.Sprintf("expected %s, got acceptance", want.Reason)
	case want.Reason != "" && governance.Reason(want.Reason) != got.Reason:
		return fmt.Sprintf("expected %s, got %s", want.Reason, got.Reason)
	case want.Approvals != nil && *want.Approvals != got.Approvals:
		return fmt.Sprintf("expected %d approvals, got %d", *want.Approvals, got.Approvals)
	case want.Retired != nil && *want.Retired != got.Retired:
		return fmt.Sprintf("expected retired=%t, got %t", *want.Retired, got.Retired)
	}
	return ""
}
