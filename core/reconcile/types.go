package reconcile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Fingerprint is the hex-encoded SHA-256 digest of a page's normalized
// content. The empty string means "no version recorded yet". Comparison is
// exact string equality.
type Fingerprint string

// ComputeFingerprint returns the fingerprint of normalized content.
// Byte-identical input always yields the same fingerprint.
func ComputeFingerprint(content []byte) Fingerprint {
	sum := sha256.Sum256(content)
	return Fingerprint(hex.EncodeToString(sum[:]))
}

// IsZero reports whether no fingerprint is recorded.
func (f Fingerprint) IsZero() bool {
	return f == ""
}

// Target identifies one monitored reward-terms page. Targets are created
// during seeding and immutable afterwards; a URL change is modeled as a new
// target so historical versions keep pointing at what was actually crawled.
type Target struct {
	// ID is the card's stable identifier.
	ID uint

	// BankID is the owning institution.
	BankID uint

	// Name is the human-readable card name, used for logging only.
	Name string

	// URL is the reward-terms page to crawl.
	URL string
}

// Validate reports a configuration error for a target that can never be
// crawled. Such targets are skipped before a run starts; no outcome is
// recorded for them.
func (t Target) Validate() error {
	if t.ID == 0 {
		return &ConfigError{Reason: "target has no id"}
	}
	if t.URL == "" {
		return &ConfigError{Reason: fmt.Sprintf("target %d has no source URL", t.ID)}
	}
	return nil
}

// FetchStatus classifies the result of one fetch.
type FetchStatus string

const (
	// FetchUnchanged means the page content matches the last known fingerprint.
	FetchUnchanged FetchStatus = "UNCHANGED"
	// FetchChanged means new content was retrieved.
	FetchChanged FetchStatus = "CHANGED"
	// FetchFailed means the page could not be retrieved.
	FetchFailed FetchStatus = "FAILED"
)

// FetchResult is what a Fetcher returns for one target URL.
type FetchResult struct {
	// Status classifies the fetch.
	Status FetchStatus

	// Content is the normalized page content. Only set when Status is
	// FetchChanged; an unchanged fetch short-circuits without content.
	Content string

	// Fingerprint is the digest of Content. Only set when Status is
	// FetchChanged.
	Fingerprint Fingerprint

	// Detail is a human-readable diagnostic. Only set when Status is
	// FetchFailed.
	Detail string
}

// OutcomeKind is the audit classification of one reconciliation run.
type OutcomeKind string

const (
	// OutcomeNoChange means the content fingerprint was unchanged.
	OutcomeNoChange OutcomeKind = "NO_CHANGE"
	// OutcomeFailed means the fetch failed or the run was aborted.
	OutcomeFailed OutcomeKind = "FAILED"
	// OutcomeAIFailed means extraction of the changed content failed.
	OutcomeAIFailed OutcomeKind = "AI_FAILED"
	// OutcomeSuccess means a new version was committed.
	OutcomeSuccess OutcomeKind = "SUCCESS"
)

// Outcome is the terminal result of one run.
type Outcome struct {
	// Kind is the audit classification.
	Kind OutcomeKind `json:"kind"`

	// Detail carries the failure diagnostic for non-SUCCESS kinds.
	Detail string `json:"detail,omitempty"`

	// VersionID is the committed version's identifier. Only set on SUCCESS.
	VersionID uint `json:"version_id,omitempty"`

	// Fingerprint is the committed version's fingerprint. Only set on SUCCESS.
	Fingerprint Fingerprint `json:"fingerprint,omitempty"`
}

// Payload is the structured reward data extracted from page content,
// a mapping of reward-rule fields to values.
type Payload map[string]any

// NewVersion describes a version commit request.
type NewVersion struct {
	// TargetID is the owning card.
	TargetID uint

	// Label is the human-meaningful version name, e.g. "2026-Q1".
	Label string

	// Fingerprint is the digest of RawContent.
	Fingerprint Fingerprint

	// Payload is the extracted reward data.
	Payload Payload

	// RawContent is the normalized content the payload was extracted from.
	RawContent string

	// PriorFingerprint is the fingerprint the run observed as latest before
	// fetching. The store rejects the commit with ErrCommitConflict when the
	// stored latest no longer matches it.
	PriorFingerprint Fingerprint
}

// Fetcher retrieves a target URL and performs the fingerprint comparison.
// Implementations may short-circuit cheaply (e.g. conditional requests)
// and must be deterministic for identical remote content.
type Fetcher interface {
	Fetch(ctx context.Context, url string, last Fingerprint) (*FetchResult, error)
}

// Extractor turns normalized content into structured reward data.
type Extractor interface {
	Extract(ctx context.Context, content string) (Payload, error)
}

// Store is the durable version and audit-log storage.
//
// CreateVersion must insert the version row and its SUCCESS audit record in
// one transaction, and must return ErrCommitConflict when the target's latest
// fingerprint no longer matches NewVersion.PriorFingerprint or already equals
// the new fingerprint. Versions and audit records are append-only.
type Store interface {
	CreateVersion(ctx context.Context, v NewVersion) (uint, error)
	AppendOutcome(ctx context.Context, targetID uint, kind OutcomeKind, detail string) error
}
