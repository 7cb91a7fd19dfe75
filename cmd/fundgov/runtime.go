package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Onyinyechi46/Fund-Governance/pkg/config"
	"github.com/Onyinyechi46/Fund-Governance/pkg/governance"
	"github.com/Onyinyechi46/Fund-Governance/pkg/observability"
	"github.com/Onyinyechi46/Fund-Governance/pkg/processor"
	"github.com/Onyinyechi46/Fund-Governance/pkg/store"
)

// openProcessor wires the configured store and telemetry around engine.
// The returned function releases both.
func openProcessor(ctx context.Context, cfg *config.Config, engine *governance.Engine) (*processor.Processor, func(), error) {
	st, closeStore, err := store.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return nil, nil, err
	}
	oc := cfg.Observability()
	oc.ServiceVersion = version
	obs, err := observability.New(ctx, oc)
	if err != nil {
		_ = closeStore()
		return nil, nil, fmt.Errorf("observability: %w", err)
	}

	p := processor.New(engine, st).
		WithObservability(obs).
		WithRateLimit(cfg.SubmitRate, cfg.SubmitBurst)
	return p, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(shutdownCtx)
		_ = closeStore()
	}, nil
}
