// Package evidence turns the raw facts of a proposed transaction into the
// Evidence the governance engine trusts.
//
// Signatures are assumed verified upstream; this package only reduces them to
// identifiers, resolves the validity window to a single instant, and totals
// value movements.
package evidence

import (
	"errors"
	"fmt"
	"math"

	"github.com/Onyinyechi46/Fund-Governance/pkg/contracts"
)

var (
	ErrAmountOverflow = errors.New("amount overflows uint64")
	ErrInvertedRange  = errors.New("validity range lower bound after upper bound")
)

// Bound is one end of a validity range. The zero value is unbounded.
type Bound struct {
	Finite bool                `json:"finite"`
	At     contracts.Timestamp `json:"at,omitempty"`
}

// At returns a finite bound at t.
func At(t contracts.Timestamp) Bound { return Bound{Finite: true, At: t} }

// Unbounded returns an infinite bound.
func Unbounded() Bound { return Bound{} }

// ValidityRange is the interval in which a transaction may be included.
type ValidityRange struct {
	From Bound `json:"from"`
	To   Bound `json:"to"`
}

// Lower resolves the instant the engine treats as now. It reports false when
// the lower bound is not finite. The upper bound is never consulted for the
// instant, only for consistency.
func (r ValidityRange) Lower() (contracts.Timestamp, bool, error) {
	if r.From.Finite && r.To.Finite && r.From.At > r.To.At {
		return 0, false, fmt.Errorf("%w: %d > %d", ErrInvertedRange, r.From.At, r.To.At)
	}
	if !r.From.Finite {
		return 0, false, nil
	}
	return r.From.At, true, nil
}

// Input is a value-carrying input consumed by the transaction.
type Input struct {
	Ref    string `json:"ref,omitempty"`
	Amount uint64 `json:"amount"`
}

// Output is a value transfer the transaction proposes.
type Output struct {
	Recipient contracts.PartyID `json:"recipient"`
	Amount    uint64            `json:"amount"`
}

// Facts are what the transaction-building layer knows about a proposal.
type Facts struct {
	Signers  []string      `json:"signers"`
	Validity ValidityRange `json:"validity"`
	Inputs   []Input       `json:"inputs,omitempty"`
	Outputs  []Output      `json:"outputs,omitempty"`
}

// Assemble reduces facts to Evidence for a record owned by owner.
//
// Signer identifiers are normalized and deduplicated, keeping first-seen
// order. The owner and output recipients are normalized the same way before
// they are compared. An unbounded lower validity bound yields Evidence with a nil Now,
// which the engine rejects as an invalid time context.
func Assemble(owner contracts.PartyID, f Facts) (contracts.Evidence, error) {
	var ev contracts.Evidence
	owner = contracts.NormalizePartyID(string(owner))

	seen := make(map[contracts.PartyID]bool, len(f.Signers))
	for _, raw := range f.Signers {
		id, err := contracts.ParsePartyID(raw)
		if err != nil {
			return contracts.Evidence{}, fmt.Errorf("signer %q: %w", raw, err)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ev.Signers = append(ev.Signers, id)
	}

	now, ok, err := f.Validity.Lower()
	if err != nil {
		return contracts.Evidence{}, err
	}
	if ok {
		ev.Now = contracts.At(now)
	}

	for _, in := range f.Inputs {
		if ev.InputAmount, err = add(ev.InputAmount, in.Amount); err != nil {
			return contracts.Evidence{}, fmt.Errorf("inputs: %w", err)
		}
	}
	for _, out := range f.Outputs {
		if contracts.NormalizePartyID(string(out.Recipient)) != owner {
			continue
		}
		if ev.AmountPaidToOwner, err = add(ev.AmountPaidToOwner, out.Amount); err != nil {
			return contracts.Evidence{}, fmt.Errorf("outputs: %w", err)
		}
	}
	return ev, nil
}

func add(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrAmountOverflow
	}
	return a + b, nil
}
