// Package store persists fund instances between transitions.
//
// Every backend gives per-instance optimistic concurrency: a write names the
// version it was computed from and fails with ErrStaleVersion when another
// transition got there first. Release and Refund retire an instance; a retired
// instance never comes back.
package store

import (
	"context"
	"errors"

	"github.com/Onyinyechi46/Fund-Governance/pkg/contracts"
)

var (
	ErrNotFound           = errors.New("instance not found")
	ErrExists             = errors.New("instance already exists")
	ErrStaleVersion       = errors.New("stale instance version")
	ErrRetired            = errors.New("instance retired")
	ErrIncompatibleSchema = errors.New("incompatible record schema")
)

// Versioned is a stored record together with the version it was read at.
type Versioned struct {
	ID      string
	Record  *contracts.Record
	Version int64
}

// Store is implemented by every backend.
type Store interface {
	// Create stores rec as version 1 of a new instance.
	Create(ctx context.Context, id string, rec *contracts.Record) error
	// Load returns the live record. Retired instances yield ErrRetired.
	Load(ctx context.Context, id string) (Versioned, error)
	// Replace swaps in next if the instance is still at expected and returns
	// the new version.
	Replace(ctx context.Context, id string, expected int64, next *contracts.Record) (int64, error)
	// Retire ends the instance if it is still at expected.
	Retire(ctx context.Context, id string, expected int64) error
}
