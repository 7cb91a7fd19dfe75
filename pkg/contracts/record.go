package contracts

import (
	"errors"
	"fmt"
)

// Timestamp is an instant on the chain's clock (POSIX milliseconds in practice).
type Timestamp int64

// At returns a pointer to t, for filling Evidence.Now.
func At(t Timestamp) *Timestamp { return &t }

// Record is the state of one governance instance.
//
// Field order mirrors the persisted layout and must not be reordered.
type Record struct {
	TotalAmount       uint64    `json:"total_amount"`
	Owner             PartyID   `json:"owner"`
	Officials         PartySet  `json:"officials"`
	RequiredApprovals int       `json:"required_approvals"`
	ApprovalsReceived PartySet  `json:"approvals_received"`
	Deadline          Timestamp `json:"deadline"`
}

// InitParams are the raw parameters an Initialize action proposes.
// Officials is kept as supplied so duplicates can be detected and rejected.
type InitParams struct {
	TotalAmount       uint64    `json:"total_amount"`
	Owner             PartyID   `json:"owner"`
	Officials         []PartyID `json:"officials"`
	RequiredApprovals int       `json:"required_approvals"`
	Deadline          Timestamp `json:"deadline"`
}

var (
	ErrNoOfficials        = errors.New("officials must not be empty")
	ErrThresholdRange     = errors.New("required approvals out of range")
	ErrApprovalsNotSubset = errors.New("approvals received is not a subset of officials")
	ErrMissingOwner       = errors.New("owner is empty")
	ErrUnsortedSet        = errors.New("party set is not canonical")
)

// Validate checks the invariants every stored record must uphold.
func (r *Record) Validate() error {
	if r.Owner == "" {
		return ErrMissingOwner
	}
	if !r.Officials.sorted() || !r.ApprovalsReceived.sorted() {
		return ErrUnsortedSet
	}
	if r.Officials.Len() == 0 {
		return ErrNoOfficials
	}
	if r.RequiredApprovals < 1 || r.RequiredApprovals > r.Officials.Len() {
		return fmt.Errorf("%w: %d of %d", ErrThresholdRange, r.RequiredApprovals, r.Officials.Len())
	}
	if !r.ApprovalsReceived.SubsetOf(r.Officials) {
		return ErrApprovalsNotSubset
	}
	return nil
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	out := *r
	out.Officials = r.Officials.Clone()
	out.ApprovalsReceived = r.ApprovalsReceived.Clone()
	return &out
}

// Approvals returns the number of distinct approvals received.
func (r *Record) Approvals() int { return r.ApprovalsReceived.Len() }

// ThresholdMet reports whether enough officials have approved.
func (r *Record) ThresholdMet() bool { return r.Approvals() >= r.RequiredApprovals }

// Equal compares every field of two records.
func (r *Record) Equal(other *Record) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.SameTerms(other) && r.ApprovalsReceived.Equal(other.ApprovalsReceived)
}

// SameTerms compares the fields that are fixed at creation.
func (r *Record) SameTerms(other *Record) bool {
	return r.TotalAmount == other.TotalAmount &&
		r.Owner == other.Owner &&
		r.Officials.Equal(other.Officials) &&
		r.RequiredApprovals == other.RequiredApprovals &&
		r.Deadline == other.Deadline
}
