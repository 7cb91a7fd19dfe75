package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/Onyinyechi46/Fund-Governance/pkg/governance"
	"github.com/Onyinyechi46/Fund-Governance/pkg/scenario"
)

// runScenarioCmd implements `fundgov scenario`.
//
// Exit codes:
//
//	0 = every step matched
//	1 = at least one step did not match
//	2 = runtime error
func runScenarioCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("scenario", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		file       string
		jsonOutput bool
	)
	cmd.StringVar(&file, "file", "", "Path to scenario YAML (REQUIRED)")
	cmd.BoolVar(&jsonOutput, "json", false, "Output result as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if file == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --file is required")
		return 2
	}

	cfg, err := setup(stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	doc, err := scenario.Load(file)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	policy := governance.DefaultPolicy()
	if doc.Policy != nil {
		policy = doc.Policy.Policy()
	}
	engine, err := governance.NewEngine(policy)
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

	res, err := scenario.RunWith(ctx, p, doc)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if jsonOutput {
		if err := writeJSON(stdout, res); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
	} else {
		printResult(stdout, res)
	}
	if !res.Passed {
		return 1
	}
	return 0
}

func printResult(w io.Writer, res *scenario.Result) {
	_, _ = fmt.Fprintf(w, "scenario %s\n", res.Name)
	for _, s := range res.Steps {
		status := "PASS"
		if !s.Passed {
			status = "FAIL"
		}
		verdict := "accepted"
		if !s.Accepted {
			verdict = "rejected " + string(s.Reason)
		}
		_, _ = fmt.Fprintf(w, "  %s %-36s %s\n", status, s.Step, verdict)
		if s.Mismatch != "" {
			_, _ = fmt.Fprintf(w, "       %s\n", s.Mismatch)
		}
	}
	passed := len(res.Steps) - len(res.Failed())
	_, _ = fmt.Fprintf(w, "%d/%d steps passed\n", passed, len(res.Steps))
}
