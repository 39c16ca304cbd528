// Package minio provides a blobstore.Store on top of the MinIO client.
//
// It works against MinIO and any other S3-compatible service (Ceph,
// SeaweedFS, Garage) without pulling in AWS configuration.
//
//	store, err := minio.New("localhost:9000", minio.Config{
//	    AccessKey: "minioadmin",
//	    SecretKey: "minioadmin",
//	    Bucket:    "captures",
//	    Prefix:    "scans/",
//	})
package minio
