package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/dustin/go-humanize"
	"github.com/hupe1980/splatgo"
	"github.com/hupe1980/splatgo/clean"
	"github.com/hupe1980/splatgo/internal/conv"
	"github.com/hupe1980/splatgo/license"
	"github.com/urfave/cli/v2"
)

func conversionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Value:   "glb",
			Usage:   "output format: glb, gltf or ply",
		},
		&cli.BoolFlag{Name: "quantize-positions", Usage: "store positions as normalized int16"},
		&cli.BoolFlag{Name: "quantize-colors", Value: true, Usage: "store colors as normalized uint8; --quantize-colors=false keeps floats"},
		&cli.BoolFlag{Name: "full-sh", Usage: "export all 48 spherical-harmonics coefficients"},
		&cli.BoolFlag{Name: "compress", Usage: "apply meshopt vertex compression"},
		&cli.StringFlag{Name: "generator", Value: "splatgo", Usage: "asset generator string"},

		&cli.BoolFlag{Name: "clean", Usage: "remove faint, tiny and outlying splats"},
		&cli.Float64Flag{Name: "min-opacity", Value: 0.005, Usage: "cleaning: minimum activated opacity"},
		&cli.Float64Flag{Name: "min-scale", Value: 1e-4, Usage: "cleaning: minimum largest activated scale"},
		&cli.Float64Flag{Name: "outlier-sigma", Value: -1, Usage: "cleaning: outlier threshold in robust deviations; negative disables"},

		&cli.StringFlag{
			Name:    "license",
			Usage:   "license token (JWT)",
			EnvVars: []string{"SPLATGO_LICENSE"},
		},
		&cli.StringFlag{
			Name:    "license-key",
			Usage:   "file holding the Ed25519 public key (PEM) or HMAC secret that signs licenses",
			EnvVars: []string{"SPLATGO_LICENSE_KEY"},
		},
		&cli.StringFlag{
			Name:    "ledger-table",
			Usage:   "DynamoDB table tracking remaining conversions",
			EnvVars: []string{"SPLATGO_LEDGER_TABLE"},
		},
		&cli.StringFlag{
			Name:  "max-decompressed",
			Value: "4GiB",
			Usage: "upper bound for decompressed input size",
		},
	}
}

// builderFrom maps the conversion flags onto a converter builder.
func builderFrom(c *cli.Context) (splatgo.Builder, error) {
	b := splatgo.NewBuilder().Logger(loggerFrom(c))

	format, err := splatgo.ParseFormat(c.String("format"))
	if err != nil {
		return b, err
	}
	b = b.Format(format).Generator(c.String("generator"))

	if c.Bool("quantize-positions") {
		b = b.QuantizePositions()
	}
	if !c.Bool("quantize-colors") {
		b = b.FloatColors()
	}
	if c.Bool("full-sh") {
		b = b.FullSH()
	}
	if c.Bool("compress") {
		b = b.Compress()
	}

	if c.Bool("clean") {
		cfg := clean.Config{
			MinOpacity: float32(c.Float64("min-opacity")),
			MinScale:   float32(c.Float64("min-scale")),
		}
		if sigma := c.Float64("outlier-sigma"); sigma >= 0 {
			cfg.OutlierSigma = clean.Sigma(float32(sigma))
		}
		b = b.Clean(cfg)
	}

	maxBytes, err := humanize.ParseBytes(c.String("max-decompressed"))
	if err != nil {
		return b, fmt.Errorf("bad value for --max-decompressed: %w", err)
	}
	b = b.MaxDecompressedSize(int64(maxBytes))

	if m := metricsFrom(c); m != nil {
		b = b.Metrics(m)
	}

	auth, err := authorizerFrom(c)
	if err != nil {
		return b, err
	}
	if auth != nil {
		b = b.Authorizer(auth)
	}
	return b, nil
}

// authorizerFrom returns nil when no license is configured.
func authorizerFrom(c *cli.Context) (*license.Authorizer, error) {
	token := strings.TrimSpace(c.String("license"))
	keyPath := c.String("license-key")
	if token == "" && keyPath == "" {
		return nil, nil
	}
	if token == "" || keyPath == "" {
		return nil, fmt.Errorf("--license and --license-key must be used together")
	}

	raw, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("read license key: %w", err)
	}
	keys, err := license.ParseKey(raw)
	if err != nil {
		return nil, err
	}
	verifier, err := license.NewVerifier(keys)
	if err != nil {
		return nil, err
	}

	var ledger license.Ledger
	if table := c.String("ledger-table"); table != "" {
		awsCfg, err := config.LoadDefaultConfig(c.Context)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		ledger = license.NewDynamoLedger(dynamodb.NewFromConfig(awsCfg), table)
	}

	return license.NewAuthorizer(verifier, token, ledger), nil
}

func parseBytesFlag(c *cli.Context, name string) (int64, error) {
	s := c.String(name)
	if s == "" || s == "0" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("bad value for --%s: %w", name, err)
	}
	v, err := conv.Uint64ToInt64(n)
	if err != nil {
		return 0, fmt.Errorf("bad value for --%s: %w", name, err)
	}
	return v, nil
}
