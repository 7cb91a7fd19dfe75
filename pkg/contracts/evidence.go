package contracts

// Evidence is the set of facts the engine trusts for one proposed transition.
// It is assembled by the caller; the engine never derives any of it.
type Evidence struct {
	// Signers are the authenticated signers of the proposing transaction,
	// in the order the collaborator supplied them.
	Signers []PartyID `json:"signers"`
	// Now is the resolved lower bound of the validity window.
	// Nil means no finite lower bound could be resolved.
	Now *Timestamp `json:"now,omitempty"`
	// AmountPaidToOwner is the value the proposed outputs transfer to the owner.
	AmountPaidToOwner uint64 `json:"amount_paid_to_owner"`
	// InputAmount is the value locked in the record being consumed.
	InputAmount uint64 `json:"input_amount"`
}

// SignedBy reports whether id is among the signers.
func (e Evidence) SignedBy(id PartyID) bool {
	for _, s := range e.Signers {
		if s == id {
			return true
		}
	}
	return false
}
