package store

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Onyinyechi46/Fund-Governance/pkg/contracts"
)

func fixture() *contracts.Record {
	return &contracts.Record{
		TotalAmount:       1_000,
		Owner:             "OWNER",
		Officials:         contracts.MustPartySet("O1", "O2", "O3"),
		RequiredApprovals: 2,
		ApprovalsReceived: contracts.MustPartySet(),
		Deadline:          1_000,
	}
}

// runStoreContract exercises the behaviour every backend shares.
func runStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	rec := fixture()

	t.Run("create and load", func(t *testing.T) {
		require.NoError(t, s.Create(ctx, "a", rec))
		got, err := s.Load(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.Version)
		assert.Equal(t, "a", got.ID)
		assert.True(t, rec.Equal(got.Record))
	})

	t.Run("create twice", func(t *testing.T) {
		require.NoError(t, s.Create(ctx, "b", rec))
		require.ErrorIs(t, s.Create(ctx, "b", rec), ErrExists)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := s.Load(ctx, "nope")
		require.ErrorIs(t, err, ErrNotFound)
		_, err = s.Replace(ctx, "nope", 1, rec)
		require.ErrorIs(t, err, ErrNotFound)
		require.ErrorIs(t, s.Retire(ctx, "nope", 1), ErrNotFound)
	})

	t.Run("invalid record refused", func(t *testing.T) {
		bad := fixture()
		bad.RequiredApprovals = 9
		require.Error(t, s.Create(ctx, "bad", bad))
		_, err := s.Load(ctx, "bad")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("optimistic replace", func(t *testing.T) {
		require.NoError(t, s.Create(ctx, "c", rec))
		next := rec.Clone()
		next.ApprovalsReceived = next.ApprovalsReceived.With("O1")

		v, err := s.Replace(ctx, "c", 1, next)
		require.NoError(t, err)
		assert.Equal(t, int64(2), v)

		_, err = s.Replace(ctx, "c", 1, next)
		require.ErrorIs(t, err, ErrStaleVersion)

		got, err := s.Load(ctx, "c")
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.Version)
		assert.Equal(t, 1, got.Record.Approvals())
	})

	t.Run("retire is terminal", func(t *testing.T) {
		require.NoError(t, s.Create(ctx, "d", rec))
		require.ErrorIs(t, s.Retire(ctx, "d", 7), ErrStaleVersion)
		require.NoError(t, s.Retire(ctx, "d", 1))

		_, err := s.Load(ctx, "d")
		require.ErrorIs(t, err, ErrRetired)
		_, err = s.Replace(ctx, "d", 2, rec)
		require.ErrorIs(t, err, ErrRetired)
		require.ErrorIs(t, s.Retire(ctx, "d", 2), ErrRetired)
		require.ErrorIs(t, s.Create(ctx, "d", rec), ErrExists)
	})
	t.Run("large amounts round trip", func(t *testing.T) {
		for _, amount := range []uint64{1<<53 + 1, 45_000_000_000_000_001, math.MaxUint64} {
			id := fmt.Sprintf("big-%d", amount)
			big := fixture()
			big.TotalAmount = amount
			require.NoError(t, s.Create(ctx, id, big))

			got, err := s.Load(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, amount, got.Record.TotalAmount)

			next := got.Record.Clone()
			next.ApprovalsReceived = next.ApprovalsReceived.With("O2")
			_, err = s.Replace(ctx, id, got.Version, next)
			require.NoError(t, err)

			got, err = s.Load(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, amount, got.Record.TotalAmount)
		}
	})
}
