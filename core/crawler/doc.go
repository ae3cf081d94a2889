// Package crawler retrieves reward-terms pages and normalizes them for
// change detection.
//
// A fetch downloads the page over plain HTTP, sanitizes the HTML, converts
// it to markdown, and fingerprints the normalized text with SHA-256. When
// the fingerprint matches the last known one the fetch short-circuits with
// an UNCHANGED result and no content, so unchanged pages never reach the
// extraction stage.
//
// Normalization is deterministic: byte-identical remote content always
// produces the same fingerprint.
package crawler
