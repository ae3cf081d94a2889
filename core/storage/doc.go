// Package storage provides the object-storage archive for raw page snapshots.
//
// It wraps the MinIO Go client to provide a simplified interface for the
// operations the archive needs. This abstraction supports both AWS S3 and
// self-hosted MinIO instances.
//
// # Client Interface
//
// The Client interface abstracts the underlying storage provider, making it easier
// to mock storage interactions for unit testing (as seen in core/storage/mocks).
//
// # Operations
//
//   - BucketExists: Verifies access to the archive bucket.
//   - MakeBucket: Creates the bucket if needed.
//   - PutObject: Uploads a version's raw markdown snapshot.
//   - GetObject: Retrieves a snapshot as a stream.
//
// # Usage
//
//	client, err := storage.NewClient(config)
//	exists, err := client.BucketExists(ctx, "reward-raw")
package storage
