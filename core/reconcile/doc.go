// Package reconcile implements the change-detection and version-reconciliation
// pipeline that drives one crawl run for one tracked card page.
//
// # Pipeline
//
// A run is a fixed sequence: fetch the page, classify the result against the
// last known fingerprint, extract reward rules only when the content changed,
// and commit the new version together with its audit record. Every run
// terminates in exactly one of four outcome kinds:
//
//	NO_CHANGE  content fingerprint matches the latest stored version
//	FAILED     fetch failed (network, HTTP status, timeout, cancellation)
//	AI_FAILED  extraction failed (upstream error, malformed response, timeout)
//	SUCCESS    a new version was committed
//
// Collaborator failures are converted into outcomes at the pipeline boundary;
// they never propagate as faults to the caller. A version row is created if
// and only if the run ends in SUCCESS, and the store pairs that insert with
// the SUCCESS audit record in a single transaction.
//
// # Concurrency
//
// Runs for distinct targets are independent and may execute in parallel.
// Runs for the same target are serialized through a per-target lock so two
// runs cannot both observe a stale fingerprint and both commit; the store
// additionally rejects conflicting commits with ErrCommitConflict.
package reconcile
