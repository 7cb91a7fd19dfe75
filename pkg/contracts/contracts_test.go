package contracts

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartySet_SortedAndUnique(t *testing.T) {
	s, err := NewPartySet("o3", "o1", "o2")
	require.NoError(t, err)
	assert.Equal(t, PartySet{"o1", "o2", "o3"}, s)

	_, err = NewPartySet("o1", "o2", "o1")
	require.ErrorIs(t, err, ErrDuplicatePartyID)

	_, err = NewPartySet("o1", "")
	require.ErrorIs(t, err, ErrEmptyPartyID)
}

func TestPartySet_WithDoesNotMutate(t *testing.T) {
	s := MustPartySet("o1", "o3")
	next := s.With("o2")

	assert.Equal(t, PartySet{"o1", "o3"}, s)
	assert.Equal(t, PartySet{"o1", "o2", "o3"}, next)
	assert.True(t, s.SubsetOf(next))
	assert.False(t, next.SubsetOf(s))
	assert.Equal(t, next, next.With("o2"))
}

func TestPartySet_JSON(t *testing.T) {
	var empty PartySet
	b, err := json.Marshal(empty)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(b))

	var s PartySet
	require.NoError(t, json.Unmarshal([]byte(`["b","a"]`), &s))
	assert.Equal(t, PartySet{"a", "b"}, s)

	require.Error(t, json.Unmarshal([]byte(`["a","a"]`), &s))
}

func TestParsePartyID_NormalizesNFC(t *testing.T) {
	composed, err := ParsePartyID("caf\u00e9")
	require.NoError(t, err)
	decomposed, err := ParsePartyID("  cafe\u0301 ")
	require.NoError(t, err)
	assert.Equal(t, composed, decomposed)

	_, err = ParsePartyID("   ")
	require.ErrorIs(t, err, ErrEmptyPartyID)
}

func TestPartyID_JSONNormalizes(t *testing.T) {
	var r Record
	require.NoError(t, json.Unmarshal([]byte(`{
		"total_amount": 1,
		"owner": "cafe\u0301",
		"officials": ["Zoe\u0308", "bob"],
		"required_approvals": 1,
		"approvals_received": [],
		"deadline": 1
	}`), &r))
	assert.Equal(t, PartyID("caf\u00e9"), r.Owner)
	assert.True(t, r.Officials.Contains("Zo\u00eb"))
	require.NoError(t, r.Validate())

	var s PartySet
	require.ErrorIs(t, json.Unmarshal([]byte(`["caf\u00e9", "cafe\u0301"]`), &s), ErrDuplicatePartyID)
}

func validRecord() *Record {
	return &Record{
		TotalAmount:       10_000_000,
		Owner:             "owner",
		Officials:         MustPartySet("o1", "o2", "o3"),
		RequiredApprovals: 2,
		ApprovalsReceived: MustPartySet("o1"),
		Deadline:          1000,
	}
}

func TestRecord_Validate(t *testing.T) {
	require.NoError(t, validRecord().Validate())

	tests := []struct {
		name   string
		mutate func(r *Record)
		want   error
	}{
		{"no owner", func(r *Record) { r.Owner = "" }, ErrMissingOwner},
		{"no officials", func(r *Record) { r.Officials = nil; r.ApprovalsReceived = nil }, ErrNoOfficials},
		{"zero threshold", func(r *Record) { r.RequiredApprovals = 0 }, ErrThresholdRange},
		{"threshold above committee", func(r *Record) { r.RequiredApprovals = 4 }, ErrThresholdRange},
		{"outsider approval", func(r *Record) { r.ApprovalsReceived = MustPartySet("x") }, ErrApprovalsNotSubset},
		{"unsorted officials", func(r *Record) { r.Officials = PartySet{"o2", "o1"} }, ErrUnsortedSet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRecord()
			tt.mutate(r)
			require.ErrorIs(t, r.Validate(), tt.want)
		})
	}
}

func TestRecord_CloneIsIndependent(t *testing.T) {
	r := validRecord()
	c := r.Clone()
	c.ApprovalsReceived[0] = "zz"
	assert.Equal(t, PartyID("o1"), r.ApprovalsReceived[0])
	assert.True(t, r.SameTerms(c))
	assert.False(t, r.Equal(c))
}

func TestRecord_HashIsStableAndFieldSensitive(t *testing.T) {
	a, err := validRecord().Hash()
	require.NoError(t, err)
	b, err := validRecord().Hash()
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Regexp(t, `^sha256:[0-9a-f]{64}$`, a)

	r := validRecord()
	r.ApprovalsReceived = r.ApprovalsReceived.With("o2")
	c, err := r.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	for _, amount := range []uint64{1<<53 + 1, math.MaxUint64} {
		hi := validRecord()
		hi.TotalAmount = amount
		lo := validRecord()
		lo.TotalAmount = amount - 1
		h1, err := hi.Hash()
		require.NoError(t, err)
		h2, err := lo.Hash()
		require.NoError(t, err)
		assert.NotEqual(t, h1, h2, "amount %d", amount)
	}
}

func TestCanonicalJSON_KeepsLargeIntegersExact(t *testing.T) {
	r := validRecord()
	r.TotalAmount = math.MaxUint64
	b, err := CanonicalJSON(r)
	require.NoError(t, err)
	assert.Equal(t,
		`{"approvals_received":["o1"],"deadline":1000,"officials":["o1","o2","o3"],"owner":"owner","required_approvals":2,"total_amount":18446744073709551615}`,
		string(b))

	decoded, err := DecodeRecord(b)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), decoded.TotalAmount)

	b, err = CanonicalJSON(map[string]any{"n": 45_000_000_000_000_001, "neg": -9_007_199_254_740_993})
	require.NoError(t, err)
	assert.Equal(t, `{"n":45000000000000001,"neg":-9007199254740993}`, string(b))
}

func TestCanonicalJSON_LeavesFollowJCS(t *testing.T) {
	b, err := CanonicalJSON(map[string]any{"s": "a<b>&c", "f": 1.5, "z": nil, "t": true})
	require.NoError(t, err)
	assert.Equal(t, `{"f":1.5,"s":"a<b>&c","t":true,"z":null}`, string(b))
}

func TestRecord_JSONFieldOrder(t *testing.T) {
	b, err := json.Marshal(validRecord())
	require.NoError(t, err)
	assert.Equal(t,
		`{"total_amount":10000000,"owner":"owner","officials":["o1","o2","o3"],"required_approvals":2,"approvals_received":["o1"],"deadline":1000}`,
		string(b))

	decoded, err := DecodeRecord(b)
	require.NoError(t, err)
	assert.True(t, decoded.Equal(validRecord()))
}

func TestDecodeRecord_RejectsBrokenInvariants(t *testing.T) {
	_, err := DecodeRecord([]byte(`{"total_amount":1,"owner":"w","officials":["a"],"required_approvals":2,"approvals_received":[],"deadline":1}`))
	require.ErrorIs(t, err, ErrThresholdRange)
}

func TestActionEnvelope_RoundTripsEveryKind(t *testing.T) {
	actions := []Action{
		Initialize{Params: InitParams{TotalAmount: 5, Owner: "w", Officials: []PartyID{"a"}, RequiredApprovals: 1, Deadline: 9}},
		Approve{},
		Release{},
		Refund{},
	}
	require.Len(t, actions, len(ActionKinds))
	for _, a := range actions {
		b, err := json.Marshal(Envelope(a))
		require.NoError(t, err)
		got, err := DecodeAction(b)
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
}

func TestDecodeAction_Unknown(t *testing.T) {
	_, err := DecodeAction([]byte(`{"kind":"WITHDRAW"}`))
	require.ErrorIs(t, err, ErrUnknownActionKind)

	_, err = DecodeAction([]byte(`{"kind":"INITIALIZE"}`))
	require.Error(t, err)
}

func TestEvidence_SignedBy(t *testing.T) {
	ev := Evidence{Signers: []PartyID{"a", "b"}}
	assert.True(t, ev.SignedBy("b"))
	assert.False(t, ev.SignedBy("c"))
}
