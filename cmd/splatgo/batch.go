package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hupe1980/splatgo/batch"
	"github.com/hupe1980/splatgo/resource"
	"github.com/urfave/cli/v2"
)

func batchCommand() *cli.Command {
	flags := append(conversionFlags(), storeFlags()...)
	flags = append(flags,
		&cli.IntFlag{Name: "workers", Aliases: []string{"j"}, Value: 2, Usage: "concurrent conversions"},
		&cli.StringFlag{Name: "memory-limit", Usage: "working-memory budget across jobs, e.g. 8GiB (0 = unlimited)"},
		&cli.StringFlag{Name: "io-limit", Usage: "read plus write bytes per second, e.g. 200MB (0 = unlimited)"},
		&cli.StringFlag{Name: "prefix", Usage: "only convert inputs whose names start with this prefix"},
		&cli.StringFlag{Name: "output-prefix", Usage: "prepend to every output name"},
		&cli.BoolFlag{Name: "fail-fast", Usage: "stop scheduling after the first failure"},
		&cli.BoolFlag{Name: "json", Usage: "print the summary as JSON"},
	)

	return &cli.Command{
		Name:      "batch",
		Usage:     "convert every capture in a location",
		ArgsUsage: "SOURCE DESTINATION",
		Description: "Locations are local directories, s3://bucket/prefix or minio://bucket/prefix.\n" +
			"Inputs ending in .ply, .ply.zst, .ply.lz4 or .ply.gz are converted.",
		Flags:  flags,
		Action: runBatch,
	}
}

func runBatch(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("batch: expected SOURCE DESTINATION", 2)
	}

	b, err := builderFrom(c)
	if err != nil {
		return cli.Exit(err, 2)
	}
	conv, err := b.Build()
	if err != nil {
		return cli.Exit(err, 2)
	}

	memLimit, err := parseBytesFlag(c, "memory-limit")
	if err != nil {
		return cli.Exit(err, 2)
	}
	ioLimit, err := parseBytesFlag(c, "io-limit")
	if err != nil {
		return cli.Exit(err, 2)
	}

	src, err := openStore(c, c.Args().Get(0))
	if err != nil {
		return err
	}
	dst, err := openStore(c, c.Args().Get(1))
	if err != nil {
		return err
	}

	rc := resource.NewController(resource.Config{
		MaxWorkers:         int64(c.Int("workers")),
		MemoryLimitBytes:   memLimit,
		IOLimitBytesPerSec: ioLimit,
	})

	runner := batch.NewRunner(conv, src, dst,
		batch.WithController(rc),
		batch.WithLogger(loggerFrom(c)),
		batch.WithFailFast(c.Bool("fail-fast")),
		batch.WithOutputPrefix(c.String("output-prefix")),
	)

	summary, runErr := runner.RunPrefix(c.Context, c.String("prefix"))
	if summary == nil {
		return runErr
	}

	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return err
		}
	} else {
		for _, r := range summary.Results {
			if r.Err != nil {
				fmt.Fprintf(c.App.Writer, "FAIL %s: %v\n", r.Input, r.Err)
				continue
			}
			fmt.Fprintf(c.App.Writer, "ok   %s -> %s (%d splats, %s)\n",
				r.Input, r.Output, r.Result.Splats, humanize.IBytes(uint64(len(r.Result.Data))))
		}
		fmt.Fprintf(c.App.Writer, "%d succeeded, %d failed, %s written in %s\n",
			summary.Succeeded, summary.Failed, humanize.IBytes(uint64(summary.OutputBytes)), summary.Duration.Round(time.Millisecond))
	}

	if runErr != nil {
		return runErr
	}
	if summary.Failed > 0 {
		return cli.Exit("", 1)
	}
	return nil
}
