// Package s3 provides an Amazon S3 implementation of blobstore.Store.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("captures/"),
//	    s3.WithRegion("eu-central-1"),
//	)
//
//	runner := batch.NewRunner(conv, store, store)
//
// Small outputs are written with a single PutObject carrying a CRC32C
// checksum; larger ones go through the multipart upload manager.
package s3
