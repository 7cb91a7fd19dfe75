// Package ledger keeps an append-only, hash-chained log of accepted
// transitions.
//
// Each entry commits to its predecessor's hash, so rewriting any past entry
// breaks every hash after it.
package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/Onyinyechi46/Fund-Governance/pkg/contracts"
)

const genesis = "genesis"

// Transition is what gets committed for one accepted action.
type Transition struct {
	InstanceID string               `json:"instance_id"`
	Action     contracts.ActionKind `json:"action"`
	// Version the instance reached; for Release and Refund the retiring write.
	Version int64 `json:"version"`
	// RecordHash of the successor, or of the consumed record when the action
	// retires the instance.
	RecordHash string `json:"record_hash"`
	Retired    bool   `json:"retired,omitempty"`
}

// Entry is an immutable, hash-chained entry.
type Entry struct {
	Sequence    uint64     `json:"sequence"`
	Transition  Transition `json:"transition"`
	ContentHash string     `json:"content_hash"`
	PrevHash    string     `json:"prev_hash"`
	Timestamp   time.Time  `json:"timestamp"`
}

// Ledger is an append-only, hash-chained log.
type Ledger struct {
	mu       sync.RWMutex
	entries  []Entry
	headHash string
	clock    func() time.Time
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		entries:  make([]Entry, 0),
		headHash: genesis,
		clock:    time.Now,
	}
}

// WithClock overrides clock for testing.
func (l *Ledger) WithClock(clock func() time.Time) *Ledger {
	l.clock = clock
	return l
}

func contentHash(seq uint64, t Transition, prev string) (string, error) {
	raw, err := contracts.CanonicalJSON(struct {
		Seq        uint64     `json:"seq"`
		Transition Transition `json:"transition"`
		PrevHash   string     `json:"prev"`
	}{seq, t, prev})
	if err != nil {
		return "", err
	}
	h := sha256.Sum256(raw)
	return "sha256:" + hex.EncodeToString(h[:]), nil
}

// Append commits t and returns its sequence number.
func (l *Ledger) Append(t Transition) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	seq := uint64(len(l.entries)) + 1
	hash, err := contentHash(seq, t, l.headHash)
	if err != nil {
		return 0, fmt.Errorf("failed to hash entry: %w", err)
	}

	l.entries = append(l.entries, Entry{
		Sequence:    seq,
		Transition:  t,
		ContentHash: hash,
		PrevHash:    l.headHash,
		Timestamp:   l.clock(),
	})
	l.headHash = hash
	return seq, nil
}

// Get retrieves an entry by sequence number.
func (l *Ledger) Get(seq uint64) (*Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if seq == 0 || seq > uint64(len(l.entries)) {
		return nil, fmt.Errorf("entry %d not found", seq)
	}
	entry := l.entries[seq-1]
	return &entry, nil
}

// History returns the entries of one instance in commit order.
func (l *Ledger) History(instanceID string) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Entry
	for _, e := range l.entries {
		if e.Transition.InstanceID == instanceID {
			out = append(out, e)
		}
	}
	return out
}

// Head returns the current head hash.
func (l *Ledger) Head() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.headHash
}

// Length returns the number of entries.
func (l *Ledger) Length() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Verify checks the integrity of the entire chain.
func (l *Ledger) Verify() (bool, string) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	prevHash := genesis
	for i, entry := range l.entries {
		if entry.PrevHash != prevHash {
			return false, fmt.Sprintf("chain broken at entry %d: expected prev %s, got %s", i+1, prevHash, entry.PrevHash)
		}
		computed, err := contentHash(entry.Sequence, entry.Transition, entry.PrevHash)
		if err != nil {
			return false, fmt.Sprintf("failed to hash entry %d", i+1)
		}
		if computed != entry.ContentHash {
			return false, fmt.Sprintf("hash mismatch at entry %d", i+1)
		}
		prevHash = entry.ContentHash
	}
	return true, "chain verified"
}
