package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/Onyinyechi46/Fund-Governance/pkg/contracts"
	"github.com/Onyinyechi46/Fund-Governance/pkg/governance"
)

// evaluateRequest is the input of `fundgov evaluate`.
type evaluateRequest struct {
	Record   *contracts.Record        `json:"record"`
	Action   contracts.ActionEnvelope `json:"action"`
	Evidence contracts.Evidence       `json:"evidence"`
}

type verdict struct {
	Accepted   bool                  `json:"accepted"`
	Record     *contracts.Record     `json:"record,omitempty"`
	RecordHash string                `json:"record_hash,omitempty"`
	Retired    bool                  `json:"retired,omitempty"`
	Rejection  *governance.Rejection `json:"rejection,omitempty"`
}

// runEvaluateCmd implements `fundgov evaluate`.
//
// Runs the engine once over a record, action and evidence read as JSON and
// prints the verdict. Nothing is persisted.
func runEvaluateCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		requestPath string
		policyPath  string
	)
	cmd.StringVar(&requestPath, "request", "", "Path to request JSON, or - for stdin (REQUIRED)")
	cmd.StringVar(&policyPath, "policy", "", "Policy profile YAML (overrides FUNDGOV_POLICY_FILE)")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if requestPath == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --request is required")
		return 2
	}

	cfg, err := setup(stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	engine, err := engineFor(cfg, policyPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: policy: %v\n", err)
		return 2
	}

	data, err := readInput(requestPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	var req evaluateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: decode request: %v\n", err)
		return 2
	}
	action, err := req.Action.Action()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	v, err := evaluate(engine, req.Record, action, req.Evidence)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if err := writeJSON(stdout, v); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if !v.Accepted {
		return 1
	}
	return 0
}

// evaluate returns an error only when the engine itself fails.
func evaluate(engine *governance.Engine, record *contracts.Record, action contracts.Action, ev contracts.Evidence) (verdict, error) {
	next, err := engine.Evaluate(record, action, ev)
	if err != nil {
		var rej *governance.Rejection
		if !errors.As(err, &rej) {
			return verdict{}, err
		}
		return verdict{Rejection: rej}, nil
	}
	v := verdict{Accepted: true, Record: next, Retired: next == nil}
	if next != nil {
		if v.RecordHash, err = next.Hash(); err != nil {
			return verdict{}, err
		}
	}
	return v, nil
}
