package governance

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Onyinyechi46/Fund-Governance/pkg/contracts"
)

// RejectionReceipt is the audit artifact kept for every refused transition.
// Every refusal is receipted; none is dropped silently.
type RejectionReceipt struct {
	ReceiptID   string               `json:"receipt_id"`
	RejectedAt  time.Time            `json:"rejected_at"`
	InstanceID  string               `json:"instance_id"`
	Action      contracts.ActionKind `json:"action"`
	Reason      Reason               `json:"reason"`
	Guard       string               `json:"guard,omitempty"`
	Details     string               `json:"details"`
	ContentHash string               `json:"content_hash"`
}

// RejectionLedger records rejection receipts for audit. Safe for concurrent use.
type RejectionLedger struct {
	mu       sync.Mutex
	receipts []RejectionReceipt
	clock    func() time.Time
	newID    func() string
}

// NewRejectionLedger creates an empty ledger.
func NewRejectionLedger() *RejectionLedger {
	return &RejectionLedger{
		receipts: make([]RejectionReceipt, 0),
		clock:    time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// WithClock overrides clock for testing.
func (l *RejectionLedger) WithClock(clock func() time.Time) *RejectionLedger {
	l.clock = clock
	return l
}

// Record stores a receipt for rej against instanceID and returns it.
func (l *RejectionLedger) Record(instanceID string, rej *Rejection) RejectionReceipt {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := "rejection-" + l.newID()
	hashInput := fmt.Sprintf("%s:%s:%s:%s:%s:%s", id, instanceID, rej.Action, rej.Reason, rej.Guard, rej.Detail)
	h := sha256.Sum256([]byte(hashInput))

	receipt := RejectionReceipt{
		ReceiptID:   id,
		RejectedAt:  l.clock(),
		InstanceID:  instanceID,
		Action:      rej.Action,
		Reason:      rej.Reason,
		Guard:       rej.Guard,
		Details:     rej.Detail,
		ContentHash: "sha256:" + hex.EncodeToString(h[:]),
	}
	l.receipts = append(l.receipts, receipt)
	return receipt
}

// Get retrieves a receipt by ID.
func (l *RejectionLedger) Get(receiptID string) (RejectionReceipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, r := range l.receipts {
		if r.ReceiptID == receiptID {
			return r, nil
		}
	}
	return RejectionReceipt{}, fmt.Errorf("rejection receipt %q not found", receiptID)
}

// QueryByReason returns all receipts with the given reason.
func (l *RejectionLedger) QueryByReason(reason Reason) []RejectionReceipt {
	return l.filter(func(r RejectionReceipt) bool { return r.Reason == reason })
}

// QueryByInstance returns all receipts for one governance instance.
func (l *RejectionLedger) QueryByInstance(instanceID string) []RejectionReceipt {
	return l.filter(func(r RejectionReceipt) bool { return r.InstanceID == instanceID })
}

// Count returns the number of receipts.
func (l *RejectionLedger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.receipts)
}

func (l *RejectionLedger) filter(keep func(RejectionReceipt) bool) []RejectionReceipt {
	l.mu.Lock()
	defer l.mu.Unlock()

	var result []RejectionReceipt
	for _, r := range l.receipts {
		if keep(r) {
			result = append(result, r)
		}
	}
	return result
}
