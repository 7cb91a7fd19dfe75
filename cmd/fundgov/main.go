package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Onyinyechi46/Fund-Governance/pkg/config"
	"github.com/Onyinyechi46/Fund-Governance/pkg/governance"

	_ "github.com/lib/pq" // Postgres Driver
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// Dispatcher
func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint for testing.
//
// Exit codes:
//
//	0 = success
//	1 = transition rejected or scenario expectation failed
//	2 = usage or runtime error
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stderr)
		return 2
	}

	switch args[1] {
	case "evaluate":
		return runEvaluateCmd(args[2:], stdout, stderr)
	case "submit":
		return runSubmitCmd(args[2:], stdout, stderr)
	case "scenario":
		return runScenarioCmd(args[2:], stdout, stderr)
	case "version", "--version":
		_, _ = fmt.Fprintf(stdout, "fundgov %s\n", version)
		return 0
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Usage: fundgov <command> [flags]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "Commands:")
	printCommand(w, "evaluate", "Evaluate one transition without persisting it (--request, --policy)")
	printCommand(w, "submit", "Submit a transition to the configured store (--request)")
	printCommand(w, "scenario", "Run a scenario file and check every step (--file, --json)")
	printCommand(w, "version", "Show version information")
	printCommand(w, "help", "Show this help")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "Environment: FUNDGOV_LOG_LEVEL, FUNDGOV_STORE, FUNDGOV_DATABASE_URL,")
	_, _ = fmt.Fprintln(w, "FUNDGOV_REDIS_ADDR, FUNDGOV_POLICY_FILE, FUNDGOV_OTEL_ENABLED,")
	_, _ = fmt.Fprintln(w, "FUNDGOV_OTEL_ENDPOINT, FUNDGOV_OTEL_INSECURE, FUNDGOV_SUBMIT_RATE,")
	_, _ = fmt.Fprintln(w, "FUNDGOV_SUBMIT_BURST")
}

func printCommand(w io.Writer, name, desc string) {
	_, _ = fmt.Fprintf(w, "  %-10s %s\n", name, desc)
}

// setup loads configuration and installs the default logger on stderr.
func setup(stderr io.Writer) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	return cfg, nil
}

// engineFor builds the engine from policyFile, falling back to the
// configured policy.
func engineFor(cfg *config.Config, policyFile string) (*governance.Engine, error) {
	if policyFile != "" {
		cfg.PolicyFile = policyFile
	}
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}
	return governance.NewEngine(policy)
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
