package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/Onyinyechi46/Fund-Governance/pkg/contracts"
	"github.com/Onyinyechi46/Fund-Governance/pkg/governance"
	"github.com/Onyinyechi46/Fund-Governance/pkg/processor"
)

type submitRequest struct {
	InstanceID      string                   `json:"instance_id"`
	Action          contracts.ActionEnvelope `json:"action"`
	Evidence        contracts.Evidence       `json:"evidence"`
	ExpectedVersion int64                    `json:"expected_version"`
}

// runSubmitCmd implements `fundgov submit`.
//
// Loads the instance from the configured store, evaluates, and commits the
// successor. Prints the outcome as JSON.
func runSubmitCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("submit", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var requestPath string
	cmd.StringVar(&requestPath, "request", "", "Path to request JSON, or - for stdin (REQUIRED)")

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
	data, err := readInput(requestPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	var req submitRequest
	if err := json.Unmarshal(data, &req); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: decode request: %v\n", err)
		return 2
	}
	action, err := req.Action.Action()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	engine, err := engineFor(cfg, "")
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: policy: %v\n", err)
		return 2
	}
	ctx := context.Background()
	p, closeFn, err := openProcessor(ctx, cfg, engine)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer closeFn()

	out, err := p.Submit(ctx, processor.Submission{
		InstanceID:      req.InstanceID,
		Action:          action,
		Evidence:        req.Evidence,
		ExpectedVersion: req.ExpectedVersion,
	})
	if _, rejected := governance.ReasonOf(err); err != nil && !rejected {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if err := writeJSON(stdout, out); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if !out.Accepted {
		return 1
	}
	return 0
}
