// Package processor runs submissions through the engine and commits accepted
// transitions.
//
// A submission is handled as: load the instance, check the caller's version,
// evaluate, then persist with a compare-and-swap on the loaded version. Every
// verdict is logged and counted; rejections are receipted and accepted
// transitions are appended to the transition ledger.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/Onyinyechi46/Fund-Governance/pkg/contracts"
	"github.com/Onyinyechi46/Fund-Governance/pkg/governance"
	"github.com/Onyinyechi46/Fund-Governance/pkg/ledger"
	"github.com/Onyinyechi46/Fund-Governance/pkg/observability"
	"github.com/Onyinyechi46/Fund-Governance/pkg/store"
)

// Submission is one proposed transition.
type Submission struct {
	// InstanceID may be empty for Initialize, in which case one is assigned.
	InstanceID string
	Action     contracts.Action
	Evidence   contracts.Evidence
	// ExpectedVersion, when non-zero, must equal the stored version.
	ExpectedVersion int64
}

// Outcome describes what happened to a submission.
type Outcome struct {
	InstanceID string               `json:"instance_id"`
	Action     contracts.ActionKind `json:"action"`
	Accepted   bool                 `json:"accepted"`
	// Record is the stored successor. Nil when the action retired the
	// instance or was rejected.
	Record  *contracts.Record `json:"record,omitempty"`
	Version int64             `json:"version,omitempty"`
	Retired bool              `json:"retired,omitempty"`

	Rejection *governance.Rejection        `json:"rejection,omitempty"`
	Receipt   *governance.RejectionReceipt `json:"receipt,omitempty"`
	LedgerSeq uint64                       `json:"ledger_seq,omitempty"`
}

// Processor is safe for concurrent use. Submissions on the same instance are
// serialized by the store's version check; the loser gets ErrStaleVersion.
type Processor struct {
	engine     *governance.Engine
	store      store.Store
	ledger     *ledger.Ledger
	rejections *governance.RejectionLedger
	obs        *observability.Provider
	logger     *slog.Logger
	newID      func() string
	limiter    *instanceLimiter
}

// New creates a processor with an in-memory ledger, receipts and disabled
// telemetry.
func New(engine *governance.Engine, st store.Store) *Processor {
	obs, _ := observability.New(context.Background(), &observability.Config{Enabled: false})
	return &Processor{
		engine:     engine,
		store:      st,
		ledger:     ledger.New(),
		rejections: governance.NewRejectionLedger(),
		obs:        obs,
		logger:     slog.Default().With("component", "processor"),
		newID:      uuid.NewString,
	}
}

// WithObservability routes spans and metrics through obs.
func (p *Processor) WithObservability(obs *observability.Provider) *Processor {
	p.obs = obs
	return p
}

// WithLogger overrides the logger.
func (p *Processor) WithLogger(l *slog.Logger) *Processor {
	p.logger = l.With("component", "processor")
	return p
}

// WithLedger replaces the transition ledger.
func (p *Processor) WithLedger(l *ledger.Ledger) *Processor {
	p.ledger = l
	return p
}

// WithRejectionLedger replaces the receipt ledger.
func (p *Processor) WithRejectionLedger(l *governance.RejectionLedger) *Processor {
	p.rejections = l
	return p
}

// WithIDGenerator overrides instance ID assignment for testing.
func (p *Processor) WithIDGenerator(f func() string) *Processor {
	p.newID = f
	return p
}

// WithRateLimit caps submissions per instance at perSecond with the given
// burst. Excess submissions fail with ErrThrottled. A non-positive rate
// removes the cap.
func (p *Processor) WithRateLimit(perSecond float64, burst int) *Processor {
	if perSecond <= 0 {
		p.limiter = nil
		return p
	}
	p.limiter = newInstanceLimiter(perSecond, burst)
	return p
}

func (p *Processor) Ledger() *ledger.Ledger                 { return p.ledger }
func (p *Processor) Rejections() *governance.RejectionLedger { return p.rejections }
func (p *Processor) Engine() *governance.Engine              { return p.engine }
func (p *Processor) Store() store.Store                      { return p.store }

// Submit evaluates and commits one submission.
//
// A policy rejection is returned both in Outcome and as the error, which is a
// *governance.Rejection. Store and ledger failures are returned as errors
// with a zero Outcome.
func (p *Processor) Submit(ctx context.Context, sub Submission) (out Outcome, err error) {
	kind := contracts.KindOf(sub.Action)

	ctx, finish := p.obs.TrackOperation(ctx, "fundgov.submit", observability.SubmissionAttrs(string(kind))...)
	defer func() {
		if _, rejected := governance.ReasonOf(err); rejected {
			finish(nil)
			return
		}
		finish(err)
	}()

	id := sub.InstanceID
	if id == "" && kind == contracts.KindInitialize {
		id = p.newID()
	}
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(observability.AttrInstanceID.String(id))

	if p.limiter != nil && id != "" && !p.limiter.allow(id) {
		p.logger.WarnContext(ctx, "submission throttled", "instance", id, "action", kind)
		return Outcome{}, fmt.Errorf("%w: %s", ErrThrottled, id)
	}

	var current store.Versioned
	if id != "" {
		current, err = p.store.Load(ctx, id)
		switch {
		case err == nil:
		case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrRetired):
			err = nil
		default:
			return Outcome{}, fmt.Errorf("load %s: %w", id, err)
		}
	}
	if sub.ExpectedVersion != 0 && current.Version != sub.ExpectedVersion {
		return Outcome{}, fmt.Errorf("%w: %s at %d, expected %d", store.ErrStaleVersion, id, current.Version, sub.ExpectedVersion)
	}

	next, err := p.engine.Evaluate(current.Record, sub.Action, sub.Evidence)
	if err != nil {
		var rej *governance.Rejection
		if !errors.As(err, &rej) {
			p.logger.ErrorContext(ctx, "engine failure", "instance", id, "action", kind, "error", err)
			return Outcome{}, err
		}
		return p.rejected(ctx, id, kind, rej), rej
	}

	out = Outcome{InstanceID: id, Action: kind, Accepted: true}
	hashed := next
	switch sub.Action.(type) {
	case contracts.Initialize:
		if err := p.store.Create(ctx, id, next); err != nil {
			return Outcome{}, fmt.Errorf("create %s: %w", id, err)
		}
		out.Record, out.Version = next, 1
	case contracts.Approve:
		v, err := p.store.Replace(ctx, id, current.Version, next)
		if err != nil {
			return Outcome{}, fmt.Errorf("replace %s: %w", id, err)
		}
		out.Record, out.Version = next, v
	default:
		if err := p.store.Retire(ctx, id, current.Version); err != nil {
			return Outcome{}, fmt.Errorf("retire %s: %w", id, err)
		}
		out.Version, out.Retired = current.Version+1, true
		hashed = current.Record
	}

	hash, err := hashed.Hash()
	if err != nil {
		return Outcome{}, fmt.Errorf("hash %s: %w", id, err)
	}
	out.LedgerSeq, err = p.ledger.Append(ledger.Transition{
		InstanceID: id,
		Action:     kind,
		Version:    out.Version,
		RecordHash: hash,
		Retired:    out.Retired,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("ledger %s: %w", id, err)
	}

	span.SetAttributes(observability.AttrDecision.String(observability.DecisionAccepted), observability.AttrVersion.Int64(out.Version))
	p.obs.RecordDecision(ctx, string(kind), true, "")
	p.logger.InfoContext(ctx, "transition accepted",
		"instance", id,
		"action", kind,
		"version", out.Version,
		"retired", out.Retired,
	)
	return out, nil
}

func (p *Processor) rejected(ctx context.Context, id string, kind contracts.ActionKind, rej *governance.Rejection) Outcome {
	receipt := p.rejections.Record(id, rej)

	trace.SpanFromContext(ctx).SetAttributes(
		observability.AttrDecision.String(observability.DecisionRejected),
		observability.AttrReason.String(string(rej.Reason)),
	)
	p.obs.RecordDecision(ctx, string(kind), false, string(rej.Reason))
	p.logger.WarnContext(ctx, "transition rejected",
		"instance", id,
		"action", kind,
		"reason", rej.Reason,
		"guard", rej.Guard,
		"receipt", receipt.ReceiptID,
	)
	return Outcome{
		InstanceID: id,
		Action:     kind,
		Rejection:  rej,
		Receipt:    &receipt,
	}
}
