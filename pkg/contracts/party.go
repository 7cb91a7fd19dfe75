package contracts

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	ErrEmptyPartyID     = errors.New("party id is empty")
	ErrDuplicatePartyID = errors.New("duplicate party id")
)

// PartyID is an opaque identifier standing in for a verified signer's public identity.
type PartyID string

// ParsePartyID normalizes s to NFC and trims surrounding whitespace so that the
// same identity supplied by different collaborators compares equal.
func ParsePartyID(s string) (PartyID, error) {
	id := NormalizePartyID(s)
	if id == "" {
		return "", ErrEmptyPartyID
	}
	return id, nil
}

// NormalizePartyID is ParsePartyID without the emptiness check, for callers
// that leave validation to the engine.
func NormalizePartyID(s string) PartyID {
	return PartyID(strings.TrimSpace(norm.NFC.String(s)))
}

// UnmarshalJSON decodes a string and normalizes it like ParsePartyID.
// Empty identifiers decode and are rejected by Record.Validate.
func (p *PartyID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*p = NormalizePartyID(s)
	return nil
}

// PartySet is a sorted set of distinct party identifiers.
// The zero value is an empty set.
type PartySet []PartyID

// NewPartySet builds a set from ids. Empty or repeated identifiers are rejected.
func NewPartySet(ids ...PartyID) (PartySet, error) {
	set := make(PartySet, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			return nil, ErrEmptyPartyID
		}
		i := set.search(id)
		if i < len(set) && set[i] == id {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePartyID, id)
		}
		set = append(set, "")
		copy(set[i+1:], set[i:])
		set[i] = id
	}
	return set, nil
}

// MustPartySet is NewPartySet for literals known to be valid.
func MustPartySet(ids ...PartyID) PartySet {
	set, err := NewPartySet(ids...)
	if err != nil {
		panic(err)
	}
	return set
}

func (s PartySet) search(id PartyID) int {
	return sort.Search(len(s), func(i int) bool { return s[i] >= id })
}

// Len returns the number of members.
func (s PartySet) Len() int { return len(s) }

// Contains reports whether id is a member.
func (s PartySet) Contains(id PartyID) bool {
	i := s.search(id)
	return i < len(s) && s[i] == id
}

// With returns a new set holding the members of s plus id. s is not modified.
func (s PartySet) With(id PartyID) PartySet {
	i := s.search(id)
	if i < len(s) && s[i] == id {
		return s.Clone()
	}
	out := make(PartySet, 0, len(s)+1)
	out = append(out, s[:i]...)
	out = append(out, id)
	out = append(out, s[i:]...)
	return out
}

// SubsetOf reports whether every member of s is a member of other.
func (s PartySet) SubsetOf(other PartySet) bool {
	for _, id := range s {
		if !other.Contains(id) {
			return false
		}
	}
	return true
}

// Equal reports whether both sets hold the same members.
func (s PartySet) Equal(other PartySet) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy. A nil set clones to an empty set.
func (s PartySet) Clone() PartySet {
	out := make(PartySet, len(s))
	copy(out, s)
	return out
}

// sorted reports whether the set upholds its ordering and uniqueness invariant.
// Sets decoded from untrusted input are checked with it.
func (s PartySet) sorted() bool {
	for i := 1; i < len(s); i++ {
		if s[i-1] >= s[i] {
			return false
		}
	}
	for _, id := range s {
		if id == "" {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the set as an array, never null.
func (s PartySet) MarshalJSON() ([]byte, error) {
	return json.Marshal([]PartyID(s.Clone()))
}

// UnmarshalJSON decodes an array of identifiers and rejects duplicates.
func (s *PartySet) UnmarshalJSON(data []byte) error {
	var ids []PartyID
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	set, err := NewPartySet(ids...)
	if err != nil {
		return err
	}
	*s = set
	return nil
}
