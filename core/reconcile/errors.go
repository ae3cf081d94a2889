package reconcile

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrCommitConflict is returned by a Store when a concurrent run committed a
// version for the same target between this run's fingerprint read and its
// commit. The run aborts without a partial write; callers may retry with a
// fresh fingerprint.
var ErrCommitConflict = errors.New("version commit conflict")

// FetchError describes a failed page retrieval.
type FetchError struct {
	// Detail is the human-readable diagnostic recorded in the audit log.
	Detail string
	// Timeout marks deadline-style failures.
	Timeout bool
}

func (e *FetchError) Error() string {
	return "fetch failed: " + e.Detail
}

// ExtractionError describes a failed reward-rule extraction.
type ExtractionError struct {
	// Detail is the human-readable diagnostic recorded in the audit log.
	Detail string
	// Timeout marks deadline-style failures.
	Timeout bool
}

func (e *ExtractionError) Error() string {
	return "extraction failed: " + e.Detail
}

// ConfigError marks a target definition that can never produce a run.
// It is fatal for that target only; other targets are unaffected.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid target: " + e.Reason
}

// failureDetail converts a collaborator error into the diagnostic string
// recorded in the audit log, preferring the typed detail when present and
// tagging timeouts so operators can tell them from hard failures.
func failureDetail(err error) string {
	var fe *FetchError
	if errors.As(err, &fe) {
		if fe.Timeout {
			return "timeout: " + fe.Detail
		}
		return fe.Detail
	}

	var xe *ExtractionError
	if errors.As(err, &xe) {
		if xe.Timeout {
			return "timeout: " + xe.Detail
		}
		return xe.Detail
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout: " + err.Error()
	}
	if errors.Is(err, context.Canceled) {
		return "cancelled: " + err.Error()
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return "timeout: " + err.Error()
	}

	return err.Error()
}

// cancelDetail is the diagnostic recorded when a run is cancelled between
// stages. A FAILED record with this detail is preferred over leaving no
// record at all.
func cancelDetail(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "cancelled: run deadline exceeded"
	}
	return fmt.Sprintf("cancelled: %v", err)
}
