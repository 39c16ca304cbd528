// Package blobstore abstracts where splat captures are read from and where
// converted models are written to.
//
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: a directory on the local file system, read via mmap
//   - MemoryStore: process memory, for tests
//   - s3.Store: Amazon S3 (blobstore/s3)
//   - minio.Store: MinIO and other S3-compatible services (blobstore/minio)
//
// Blob names are slash-separated paths relative to the store root.
package blobstore
