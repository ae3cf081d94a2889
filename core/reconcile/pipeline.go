package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Labeler derives the human-meaningful version label for a commit.
type Labeler func(t time.Time) string

// QuarterLabel is the default labeler. It derives a calendar-quarter label
// such as "2026-Q1" from the commit time.
func QuarterLabel(t time.Time) string {
	quarter := (int(t.Month())-1)/3 + 1
	return fmt.Sprintf("%d-Q%d", t.Year(), quarter)
}

// Pipeline drives one reconciliation run per Reconcile call.
type Pipeline struct {
	fetcher   Fetcher
	extractor Extractor
	store     Store
	label     Labeler
	logger    *zap.Logger
	locks     *targetLocks
	now       func() time.Time
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLabeler overrides the version label policy.
func WithLabeler(l Labeler) Option {
	return func(p *Pipeline) { p.label = l }
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline around the three collaborators.
func New(fetcher Fetcher, extractor Extractor, store Store, logger *zap.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher:   fetcher,
		extractor: extractor,
		store:     store,
		label:     QuarterLabel,
		logger:    logger,
		locks:     newTargetLocks(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Reconcile runs the fetch → classify → extract → commit sequence for one
// target and records exactly one audit outcome.
//
// last is the fingerprint of the target's current latest version, or the zero
// Fingerprint when the target has never been successfully processed.
//
// The returned error is non-nil only for conditions the caller must act on:
// an invalid target definition (no run happened, no outcome recorded),
// ErrCommitConflict (retryable; a FAILED outcome was recorded), or a store
// write failure. Fetch and extraction failures are not errors here; they are
// reported through the outcome kind.
func (p *Pipeline) Reconcile(ctx context.Context, target Target, last Fingerprint) (Outcome, error) {
	if err := target.Validate(); err != nil {
		return Outcome{}, err
	}

	// Serialize the read-compare-commit sequence per target. The caller read
	// `last` before entering; holding the lock from here on means a concurrent
	// same-target run cannot commit between our classification and our commit
	// without the store seeing a stale PriorFingerprint.
	unlock := p.locks.acquire(target.ID)
	defer unlock()

	log := p.logger.With(
		zap.Uint("card_id", target.ID),
		zap.String("card", target.Name),
	)

	res, err := p.fetcher.Fetch(ctx, target.URL, last)
	if err != nil {
		detail := failureDetail(err)
		log.Warn("Fetch failed", zap.String("detail", detail))
		return p.record(ctx, target.ID, OutcomeFailed, detail)
	}

	branch, detail := Classify(res, last)
	switch branch {
	case BranchNoChange:
		log.Info("Content unchanged, skipping extraction")
		return p.record(ctx, target.ID, OutcomeNoChange, "")

	case BranchFailed:
		log.Warn("Fetch failed", zap.String("detail", detail))
		return p.record(ctx, target.ID, OutcomeFailed, detail)
	}

	// Cancellation between fetch and extraction still leaves an audit record.
	if err := ctx.Err(); err != nil {
		return p.record(ctx, target.ID, OutcomeFailed, cancelDetail(err))
	}

	log.Info("Content changed, extracting reward rules",
		zap.String("fingerprint", string(res.Fingerprint)))

	payload, err := p.extractor.Extract(ctx, res.Content)
	if err != nil {
		// A cancelled run is FAILED, not AI_FAILED: the extractor did not
		// get a chance to answer.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return p.record(ctx, target.ID, OutcomeFailed, cancelDetail(ctxErr))
		}
		// The fetched content is discarded: only successfully parsed content
		// becomes a durable version.
		detail := failureDetail(err)
		log.Warn("Extraction failed", zap.String("detail", detail))
		return p.record(ctx, target.ID, OutcomeAIFailed, detail)
	}

	if err := ctx.Err(); err != nil {
		return p.record(ctx, target.ID, OutcomeFailed, cancelDetail(err))
	}

	versionID, err := p.store.CreateVersion(ctx, NewVersion{
		TargetID:         target.ID,
		Label:            p.label(p.now()),
		Fingerprint:      res.Fingerprint,
		Payload:          payload,
		RawContent:       res.Content,
		PriorFingerprint: last,
	})
	if errors.Is(err, ErrCommitConflict) {
		log.Warn("Version commit conflict, another run won the race")
		outcome, recErr := p.record(ctx, target.ID, OutcomeFailed, "commit conflict: a concurrent run committed first")
		if recErr != nil {
			return outcome, recErr
		}
		return outcome, ErrCommitConflict
	}
	if err != nil {
		detail := failureDetail(err)
		log.Error("Version commit failed", zap.Error(err))
		outcome, recErr := p.record(ctx, target.ID, OutcomeFailed, "commit failed: "+detail)
		if recErr != nil {
			return outcome, recErr
		}
		return outcome, fmt.Errorf("commit version: %w", err)
	}

	log.Info("Committed new version",
		zap.Uint("version_id", versionID),
		zap.String("fingerprint", string(res.Fingerprint)))

	return Outcome{
		Kind:        OutcomeSuccess,
		VersionID:   versionID,
		Fingerprint: res.Fingerprint,
	}, nil
}

// record appends the run's audit outcome. SUCCESS is never recorded here;
// the store writes it inside the CreateVersion transaction so a version row
// and its audit record cannot be split by a crash.
func (p *Pipeline) record(ctx context.Context, targetID uint, kind OutcomeKind, detail string) (Outcome, error) {
	// Use a detached context so a cancelled run can still write its record.
	if ctx.Err() != nil {
		ctx = context.WithoutCancel(ctx)
	}

	if err := p.store.AppendOutcome(ctx, targetID, kind, detail); err != nil {
		p.logger.Error("Failed to append crawl outcome",
			zap.Uint("card_id", targetID),
			zap.String("kind", string(kind)),
			zap.Error(err))
		return Outcome{Kind: kind, Detail: detail}, fmt.Errorf("append outcome: %w", err)
	}
	return Outcome{Kind: kind, Detail: detail}, nil
}
