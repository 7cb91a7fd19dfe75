package governance

import (
	"strings"
	"testing"
	"time"

	"github.com/Onyinyechi46/Fund-Governance/pkg/contracts"
)

func TestRejectionLedgerRecord(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	l := NewRejectionLedger().WithClock(func() time.Time { return at })

	r := l.Record("inst-1", reject(contracts.KindApprove, ReasonAlreadyApproved, "not_yet_approved", "O1 has already approved"))
	if !strings.HasPrefix(r.ReceiptID, "rejection-") {
		t.Fatalf("unexpected receipt ID %q", r.ReceiptID)
	}
	if r.Reason != ReasonAlreadyApproved {
		t.Fatalf("expected ALREADY_APPROVED, got %s", r.Reason)
	}
	if !r.RejectedAt.Equal(at) {
		t.Fatalf("expected injected clock, got %s", r.RejectedAt)
	}
	if !strings.HasPrefix(r.ContentHash, "sha256:") {
		t.Fatal("expected content hash")
	}
}

func TestRejectionLedgerQueries(t *testing.T) {
	l := NewRejectionLedger()
	l.Record("a", reject(contracts.KindRelease, ReasonThresholdNotMet, "", "1 of 2"))
	l.Record("b", reject(contracts.KindApprove, ReasonUnauthorized, "", "x"))
	l.Record("a", reject(contracts.KindRefund, ReasonUnauthorized, "", "y"))

	if got := len(l.QueryByReason(ReasonUnauthorized)); got != 2 {
		t.Fatalf("expected 2 unauthorized receipts, got %d", got)
	}
	if got := len(l.QueryByInstance("a")); got != 2 {
		t.Fatalf("expected 2 receipts for a, got %d", got)
	}
	if l.Count() != 3 {
		t.Fatalf("expected 3 receipts, got %d", l.Count())
	}
}

func TestRejectionLedgerGet(t *testing.T) {
	l := NewRejectionLedger()
	r := l.Record("a", reject(contracts.KindRefund, ReasonTimeWindowViolated, "after_deadline", "early"))

	got, err := l.Get(r.ReceiptID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Guard != "after_deadline" {
		t.Fatal("guard mismatch")
	}
	if _, err := l.Get("missing"); err == nil {
		t.Fatal("expected error for unknown receipt")
	}
}
