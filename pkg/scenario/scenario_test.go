package scenario

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Onyinyechi46/Fund-Governance/pkg/governance"
)

func TestShippedScenarios(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, path := range files {
		t.Run(filepath.Base(path), func(t *testing.T) {
			doc, err := Load(path)
			require.NoError(t, err)

			res, err := Run(context.Background(), doc)
			require.NoError(t, err)
			for _, s := range res.Failed() {
				t.Errorf("%s: %s", s.Step, s.Mismatch)
			}
			assert.True(t, res.Passed)
			assert.NotEmpty(t, res.InstanceID)
		})
	}
}

func TestScenarioC_BothExitsRefused(t *testing.T) {
	doc, err := Load(filepath.Join("testdata", "scenario_c.yaml"))
	require.NoError(t, err)
	res, err := Run(context.Background(), doc)
	require.NoError(t, err)

	last := res.Steps[len(res.Steps)-2:]
	assert.Equal(t, governance.ReasonTimeWindowViolated, last[0].Reason)
	assert.Equal(t, governance.ReasonThresholdAlreadyMet, last[1].Reason)
	assert.False(t, last[1].Retired)
}

func TestRunReportsMismatch(t *testing.T) {
	doc, err := Parse([]byte(`
name: wrong-expectation
params: {total_amount: 10, owner: OWNER, officials: [O1, O2], required_approvals: 2, deadline: 100}
steps:
  - {action: INITIALIZE, signers: [OWNER], now: 0}
  - {action: RELEASE, signers: [OWNER], now: 1, paid_to_owner: 10}
  - {action: APPROVE, signers: [O1], now: 2, expect: {reason: UNAUTHORIZED}}
  - {action: APPROVE, signers: [O2], now: 3, expect: {approvals: 5}}
`))
	require.NoError(t, err)

	res, err := Run(context.Background(), doc)
	require.NoError(t, err)
	assert.False(t, res.Passed)

	failed := res.Failed()
	require.Len(t, failed, 3)
	assert.Equal(t, "expected acceptance, got THRESHOLD_NOT_MET", failed[0].Mismatch)
	assert.Equal(t, "expected UNAUTHORIZED, got acceptance", failed[1].Mismatch)
	assert.Equal(t, "expected 5 approvals, got 2", failed[2].Mismatch)
}

func TestRunMalformedInitialization(t *testing.T) {
	doc, err := Parse([]byte(`
name: bad-params
params: {total_amount: 10, owner: OWNER, officials: [O1, O1], required_approvals: 1, deadline: 100}
steps:
  - {action: INITIALIZE, signers: [OWNER], now: 0, expect: {reason: MALFORMED_PARAMETERS}}
  - {action: APPROVE, signers: [O1], now: 1, expect: {reason: MISSING_RECORD}}
`))
	require.NoError(t, err)
	res, err := Run(context.Background(), doc)
	require.NoError(t, err)
	for _, s := range res.Failed() {
		t.Errorf("%s: %s", s.Step, s.Mismatch)
	}
	assert.Empty(t, res.InstanceID)
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ``},
		{"not yaml", "name: [unclosed"},
		{"missing steps", "name: x\nparams: {total_amount: 1, owner: A, officials: [B], required_approvals: 1, deadline: 1}\n"},
		{"unknown action", "name: x\nparams: {total_amount: 1, owner: A, officials: [B], required_approvals: 1, deadline: 1}\nsteps: [{action: WITHDRAW}]\n"},
		{"unknown field", "name: x\nparams: {total_amount: 1, owner: A, officials: [B], required_approvals: 1, deadline: 1}\nsteps: [{action: APPROVE, signer: B}]\n"},
		{"negative amount", "name: x\nparams: {total_amount: -1, owner: A, officials: [B], required_approvals: 1, deadline: 1}\nsteps: [{action: APPROVE}]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
		})
	}
}

func TestRunRejectsBadOverlay(t *testing.T) {
	doc, err := Parse([]byte(`
name: bad-overlay
policy:
  overlays: [{id: broken, expr: "record.total_amount >"}]
params: {total_amount: 1, owner: A, officials: [B], required_approvals: 1, deadline: 1}
steps: [{action: INITIALIZE, signers: [A], now: 0}]
`))
	require.NoError(t, err)
	_, err = Run(context.Background(), doc)
	require.Error(t, err)
}
