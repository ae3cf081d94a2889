package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"reward-tracker/core/reconcile"
	"reward-tracker/feature/tracker/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the durable version and audit-log storage on top of gorm.
// It implements reconcile.Store.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the tracker tables.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(
		&models.Bank{},
		&models.Card{},
		&models.CardVersion{},
		&models.CrawlLog{},
	)
}

// Cards returns all cards, banks first ordering by id.
func (s *Store) Cards(ctx context.Context) ([]models.Card, error) {
	var cards []models.Card
	if err := s.db.WithContext(ctx).Order("id").Find(&cards).Error; err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	return cards, nil
}

// EnabledCards returns the cards that are currently being tracked.
func (s *Store) EnabledCards(ctx context.Context) ([]models.Card, error) {
	var cards []models.Card
	if err := s.db.WithContext(ctx).Where("enabled = ?", true).Order("id").Find(&cards).Error; err != nil {
		return nil, fmt.Errorf("list enabled cards: %w", err)
	}
	return cards, nil
}

// CardByID returns one card, or nil when it does not exist.
func (s *Store) CardByID(ctx context.Context, id uint) (*models.Card, error) {
	var card models.Card
	err := s.db.WithContext(ctx).First(&card, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get card %d: %w", id, err)
	}
	return &card, nil
}

// LatestVersion returns the card's most recent version, or nil when the
// card has never been successfully processed.
func (s *Store) LatestVersion(ctx context.Context, cardID uint) (*models.CardVersion, error) {
	var v models.CardVersion
	err := s.db.WithContext(ctx).
		Where("card_id = ?", cardID).
		Order("id DESC").
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest version for card %d: %w", cardID, err)
	}
	return &v, nil
}

// LatestFingerprint returns the fingerprint of the card's latest version,
// or the zero Fingerprint when none exists.
func (s *Store) LatestFingerprint(ctx context.Context, cardID uint) (reconcile.Fingerprint, error) {
	v, err := s.LatestVersion(ctx, cardID)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", nil
	}
	return reconcile.Fingerprint(v.ContentHash), nil
}

// VersionByID returns one version, or nil when it does not exist.
func (s *Store) VersionByID(ctx context.Context, id uint) (*models.CardVersion, error) {
	var v models.CardVersion
	err := s.db.WithContext(ctx).First(&v, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get version %d: %w", id, err)
	}
	return &v, nil
}

// Versions returns a card's versions, newest first.
func (s *Store) Versions(ctx context.Context, cardID uint) ([]models.CardVersion, error) {
	var versions []models.CardVersion
	err := s.db.WithContext(ctx).
		Where("card_id = ?", cardID).
		Order("id DESC").
		Find(&versions).Error
	if err != nil {
		return nil, fmt.Errorf("list versions for card %d: %w", cardID, err)
	}
	return versions, nil
}

// History returns a card's crawl log entries, newest first.
func (s *Store) History(ctx context.Context, cardID uint, limit int) ([]models.CrawlLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []models.CrawlLog
	err := s.db.WithContext(ctx).
		Where("card_id = ?", cardID).
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("crawl history for card %d: %w", cardID, err)
	}
	return logs, nil
}

// CreateVersion commits a new version and its SUCCESS audit record in one
// transaction. The latest version is re-read with a row lock inside the
// transaction; when it no longer matches the fingerprint the run observed,
// or already carries the new fingerprint, the commit is rejected with
// reconcile.ErrCommitConflict and nothing is written.
func (s *Store) CreateVersion(ctx context.Context, nv reconcile.NewVersion) (uint, error) {
	rewards, err := json.Marshal(nv.Payload)
	if err != nil {
		return 0, fmt.Errorf("marshal rewards: %w", err)
	}

	var versionID uint
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.CardVersion
		findErr := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("card_id = ?", nv.TargetID).
			Order("id DESC").
			First(&current).Error

		currentHash := ""
		switch {
		case findErr == nil:
			currentHash = current.ContentHash
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			// First version for this card.
		default:
			return fmt.Errorf("read latest version: %w", findErr)
		}

		if currentHash != string(nv.PriorFingerprint) {
			return reconcile.ErrCommitConflict
		}
		if currentHash == string(nv.Fingerprint) {
			// Duplicate commit of the same content.
			return reconcile.ErrCommitConflict
		}

		version := models.CardVersion{
			CardID:      nv.TargetID,
			VersionName: nv.Label,
			ContentHash: string(nv.Fingerprint),
			Rewards:     string(rewards),
			RawContent:  nv.RawContent,
		}
		if err := tx.Create(&version).Error; err != nil {
			return fmt.Errorf("insert version: %w", err)
		}

		log := models.CrawlLog{
			CardID: nv.TargetID,
			Status: string(reconcile.OutcomeSuccess),
		}
		if err := tx.Create(&log).Error; err != nil {
			return fmt.Errorf("insert crawl log: %w", err)
		}

		versionID = version.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return versionID, nil
}

// AppendOutcome records one non-SUCCESS run outcome. SUCCESS outcomes are
// written by CreateVersion inside the commit transaction.
func (s *Store) AppendOutcome(ctx context.Context, cardID uint, kind reconcile.OutcomeKind, detail string) error {
	log := models.CrawlLog{
		CardID:       cardID,
		Status:       string(kind),
		ErrorMessage: detail,
	}
	if err := s.db.WithContext(ctx).Create(&log).Error; err != nil {
		return fmt.Errorf("insert crawl log: %w", err)
	}
	return nil
}

// EnsureBank returns the bank with the given name, creating it when absent.
func (s *Store) EnsureBank(ctx context.Context, name, code string) (*models.Bank, error) {
	bank := models.Bank{Name: name, Code: code}
	err := s.db.WithContext(ctx).
		Where(models.Bank{Name: name}).
		FirstOrCreate(&bank).Error
	if err != nil {
		return nil, fmt.Errorf("ensure bank %q: %w", name, err)
	}
	return &bank, nil
}

// EnsureCard returns the card with the given name under the bank, creating
// it when absent. An existing card's URL is never mutated.
func (s *Store) EnsureCard(ctx context.Context, bankID uint, name, sourceURL string) (*models.Card, error) {
	card := models.Card{BankID: bankID, Name: name, SourceURL: sourceURL, Enabled: true}
	err := s.db.WithContext(ctx).
		Where(models.Card{BankID: bankID, Name: name}).
		FirstOrCreate(&card).Error
	if err != nil {
		return nil, fmt.Errorf("ensure card %q: %w", name, err)
	}
	return &card, nil
}
