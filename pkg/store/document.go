package store

import (
	"encoding/json"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/Onyinyechi46/Fund-Governance/pkg/contracts"
)

// SchemaVersion is written into every persisted document.
const SchemaVersion = "1.0.0"

// readableSchemas is the range of document versions this build can decode.
var readableSchemas = mustConstraint("^1.0")

func mustConstraint(c string) *semver.Constraints {
	out, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return out
}

type document struct {
	SchemaVersion string            `json:"schema_version"`
	Record        *contracts.Record `json:"record"`
}

// encodeRecord returns the canonical persisted form of rec.
func encodeRecord(rec *contracts.Record) ([]byte, error) {
	if rec == nil {
		return nil, fmt.Errorf("encode: nil record")
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return contracts.CanonicalJSON(document{SchemaVersion: SchemaVersion, Record: rec})
}

func decodeRecord(data []byte) (*contracts.Record, error) {
	var doc struct {
		SchemaVersion string          `json:"schema_version"`
		Record        json.RawMessage `json:"record"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if err := checkSchema(doc.SchemaVersion); err != nil {
		return nil, err
	}
	return contracts.DecodeRecord(doc.Record)
}

func checkSchema(v string) error {
	ver, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrIncompatibleSchema, v, err)
	}
	if !readableSchemas.Check(ver) {
		return fmt.Errorf("%w: %s", ErrIncompatibleSchema, ver)
	}
	return nil
}
