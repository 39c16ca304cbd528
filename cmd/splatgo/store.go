package main

import (
	"fmt"
	"strings"

	"github.com/hupe1980/splatgo/blobstore"
	"github.com/hupe1980/splatgo/blobstore/minio"
	"github.com/hupe1980/splatgo/blobstore/s3"
	"github.com/urfave/cli/v2"
)

func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "aws-region",
			Usage:   "region for s3:// locations",
			EnvVars: []string{"AWS_REGION", "AWS_DEFAULT_REGION"},
		},
		&cli.StringFlag{
			Name:    "s3-endpoint",
			Usage:   "S3-compatible endpoint for s3:// locations",
			EnvVars: []string{"AWS_ENDPOINT_URL_S3"},
		},
		&cli.StringFlag{
			Name:    "minio-endpoint",
			Usage:   "endpoint for minio:// locations",
			EnvVars: []string{"MINIO_ENDPOINT"},
		},
		&cli.BoolFlag{
			Name:    "minio-secure",
			Usage:   "use TLS for minio:// locations",
			EnvVars: []string{"MINIO_SECURE"},
		},
	}
}

// openStore resolves a location:
//
//	s3://bucket/prefix     Amazon S3 (or --s3-endpoint)
//	minio://bucket/prefix  MinIO at --minio-endpoint
//	anything else          a local directory
func openStore(c *cli.Context, location string) (blobstore.Store, error) {
	switch {
	case strings.HasPrefix(location, "s3://"):
		bucket, prefix, err := s3.ParseURI(location)
		if err != nil {
			return nil, err
		}
		opts := []s3.Option{s3.WithPrefix(prefix)}
		if region := c.String("aws-region"); region != "" {
			opts = append(opts, s3.WithRegion(region))
		}
		if endpoint := c.String("s3-endpoint"); endpoint != "" {
			opts = append(opts, s3.WithEndpoint(endpoint))
		}
		return s3.New(c.Context, bucket, opts...)

	case strings.HasPrefix(location, "minio://"):
		endpoint := c.String("minio-endpoint")
		if endpoint == "" {
			return nil, fmt.Errorf("%s: --minio-endpoint is required", location)
		}
		bucket, prefix, _ := strings.Cut(strings.TrimPrefix(location, "minio://"), "/")
		if bucket == "" {
			return nil, fmt.Errorf("%s: missing bucket", location)
		}
		return minio.New(endpoint, minio.ConfigFromEnv(minio.Config{
			Bucket: bucket,
			Prefix: prefix,
			Secure: c.Bool("minio-secure"),
			Region: c.String("aws-region"),
		}))

	default:
		return blobstore.NewLocalStore(location), nil
	}
}
