package tracker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"reward-tracker/core/reconcile"
	"reward-tracker/core/storage"
	"reward-tracker/feature/tracker/models"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// Service drives reconciliation runs for tracked cards.
type Service struct {
	store    *Store
	pipeline *reconcile.Pipeline
	logger   *zap.Logger

	// archive is optional; when set, the raw content of each committed
	// version is mirrored to object storage.
	archive storage.Client
	bucket  string

	concurrency int
}

// NewService creates a tracker service. archive may be nil.
func NewService(store *Store, pipeline *reconcile.Pipeline, logger *zap.Logger, archive storage.Client, bucket string, concurrency int) *Service {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Service{
		store:       store,
		pipeline:    pipeline,
		logger:      logger,
		archive:     archive,
		bucket:      bucket,
		concurrency: concurrency,
	}
}

// ErrCardNotFound is returned when a reconciliation is requested for an
// unknown card.
var ErrCardNotFound = errors.New("card not found")

// ReconcileCard runs one reconciliation for one card: reads the latest
// fingerprint, delegates to the pipeline, and archives the raw content of a
// committed version.
func (s *Service) ReconcileCard(ctx context.Context, cardID uint) (reconcile.Outcome, error) {
	card, err := s.store.CardByID(ctx, cardID)
	if err != nil {
		return reconcile.Outcome{}, err
	}
	if card == nil {
		return reconcile.Outcome{}, fmt.Errorf("%w: %d", ErrCardNotFound, cardID)
	}
	return s.reconcile(ctx, *card)
}

func (s *Service) reconcile(ctx context.Context, card models.Card) (reconcile.Outcome, error) {
	last, err := s.store.LatestFingerprint(ctx, card.ID)
	if err != nil {
		return reconcile.Outcome{}, err
	}

	target := reconcile.Target{
		ID:     card.ID,
		BankID: card.BankID,
		Name:   card.Name,
		URL:    card.SourceURL,
	}

	outcome, err := s.pipeline.Reconcile(ctx, target, last)
	if err != nil {
		return outcome, err
	}

	if outcome.Kind == reconcile.OutcomeSuccess {
		s.archiveVersion(ctx, card.ID, outcome.VersionID)
	}
	return outcome, nil
}

// archiveVersion mirrors a committed version's raw content to object
// storage. Best effort: the durable copy of record is the version row, so
// an archive failure is logged, not surfaced.
func (s *Service) archiveVersion(ctx context.Context, cardID, versionID uint) {
	if s.archive == nil {
		return
	}

	v, err := s.store.VersionByID(ctx, versionID)
	if err != nil || v == nil {
		s.logger.Warn("Archive skipped, version not readable",
			zap.Uint("version_id", versionID), zap.Error(err))
		return
	}

	objectName := fmt.Sprintf("raw/%d/%s.md", cardID, v.ContentHash)
	reader := bytes.NewReader([]byte(v.RawContent))
	_, err = s.archive.PutObject(ctx, s.bucket, objectName, reader, int64(reader.Len()), minio.PutObjectOptions{
		ContentType: "text/markdown",
	})
	if err != nil {
		s.logger.Warn("Failed to archive raw content",
			zap.Uint("card_id", cardID),
			zap.String("object", objectName),
			zap.Error(err))
		return
	}

	s.logger.Info("Archived raw content", zap.String("object", objectName))
}

// RunSummary aggregates the outcomes of one ReconcileAll pass.
type RunSummary struct {
	Total     int `json:"total"`
	NoChange  int `json:"no_change"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	AIFailed  int `json:"ai_failed"`
	Skipped   int `json:"skipped"`
}

// ReconcileAll reconciles every enabled card, at most `concurrency` cards
// in flight at once. Distinct cards share no fingerprint lineage, so runs
// need no coordination beyond the store. A card with an invalid definition
// is skipped and does not stop the pass.
func (s *Service) ReconcileAll(ctx context.Context) (RunSummary, error) {
	cards, err := s.store.EnabledCards(ctx)
	if err != nil {
		return RunSummary{}, err
	}

	var (
		mu      sync.Mutex
		summary = RunSummary{Total: len(cards)}
		wg      sync.WaitGroup
		sem     = make(chan struct{}, s.concurrency)
	)

	for _, card := range cards {
		wg.Add(1)
		sem <- struct{}{}
		go func(card models.Card) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome, err := s.reconcile(ctx, card)

			mu.Lock()
			defer mu.Unlock()

			var cfgErr *reconcile.ConfigError
			switch {
			case errors.As(err, &cfgErr):
				s.logger.Warn("Skipping card with invalid definition",
					zap.Uint("card_id", card.ID), zap.Error(err))
				summary.Skipped++
				return
			case err != nil:
				s.logger.Error("Reconciliation error",
					zap.Uint("card_id", card.ID), zap.Error(err))
			}

			switch outcome.Kind {
			case reconcile.OutcomeSuccess:
				summary.Succeeded++
			case reconcile.OutcomeNoChange:
				summary.NoChange++
			case reconcile.OutcomeAIFailed:
				summary.AIFailed++
			default:
				summary.Failed++
			}
		}(card)
	}
	wg.Wait()

	s.logger.Info("Reconciliation pass finished",
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("no_change", summary.NoChange),
		zap.Int("failed", summary.Failed),
		zap.Int("ai_failed", summary.AIFailed),
		zap.Int("skipped", summary.Skipped))

	return summary, nil
}
