package ledger

import (
	"testing"
	"time"

	"github.com/Onyinyechi46/Fund-Governance/pkg/contracts"
)

func approve(instance string, version int64) Transition {
	return Transition{InstanceID: instance, Action: contracts.KindApprove, Version: version, RecordHash: "sha256:00"}
}

func TestLedgerAppend(t *testing.T) {
	l := New()
	seq, err := l.Append(approve("a", 2))
	if err != nil {
		t.Fatal(err)
	}
	if seq != 1 {
		t.Fatalf("expected seq 1, got %d", seq)
	}
	if l.Length() != 1 {
		t.Fatalf("expected length 1, got %d", l.Length())
	}
}

func TestLedgerChainIntegrity(t *testing.T) {
	l := New()
	_, _ = l.Append(Transition{InstanceID: "a", Action: contracts.KindInitialize, Version: 1})
	_, _ = l.Append(approve("a", 2))
	_, _ = l.Append(Transition{InstanceID: "a", Action: contracts.KindRelease, Version: 3, Retired: true})

	ok, reason := l.Verify()
	if !ok {
		t.Fatalf("expected valid chain, got: %s", reason)
	}
}

func TestLedgerTamperDetected(t *testing.T) {
	l := New()
	_, _ = l.Append(approve("a", 2))
	_, _ = l.Append(approve("a", 3))

	l.entries[0].Transition.Version = 9
	if ok, _ := l.Verify(); ok {
		t.Fatal("expected tampered content to fail verification")
	}

	l.entries[0].Transition.Version = 2
	l.entries[1].PrevHash = "sha256:forged"
	if ok, _ := l.Verify(); ok {
		t.Fatal("expected broken link to fail verification")
	}
}

func TestLedgerHashIgnoresTimestamp(t *testing.T) {
	a := New().WithClock(func() time.Time { return time.Unix(1, 0) })
	b := New().WithClock(func() time.Time { return time.Unix(2, 0) })
	_, _ = a.Append(approve("x", 2))
	_, _ = b.Append(approve("x", 2))
	if a.Head() != b.Head() {
		t.Fatal("expected identical heads for identical transitions")
	}
}

func TestLedgerGet(t *testing.T) {
	l := New()
	_, _ = l.Append(approve("a", 2))

	entry, err := l.Get(1)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Transition.Action != contracts.KindApprove {
		t.Fatalf("expected APPROVE, got %s", entry.Transition.Action)
	}
	if _, err := l.Get(99); err == nil {
		t.Fatal("expected error for missing entry")
	}
}

func TestLedgerHistory(t *testing.T) {
	l := New()
	_, _ = l.Append(approve("a", 2))
	_, _ = l.Append(approve("b", 2))
	_, _ = l.Append(approve("a", 3))

	h := l.History("a")
	if len(h) != 2 || h[0].Transition.Version != 2 || h[1].Transition.Version != 3 {
		t.Fatalf("unexpected history %+v", h)
	}
}

func TestLedgerHead(t *testing.T) {
	l := New()
	if l.Head() != "genesis" {
		t.Fatal("expected genesis head")
	}
	_, _ = l.Append(approve("a", 2))
	if l.Head() == "genesis" {
		t.Fatal("expected head to advance")
	}
}
