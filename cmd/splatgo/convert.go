package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/hupe1980/splatgo"
	"github.com/hupe1980/splatgo/clean"
	"github.com/hupe1980/splatgo/export"
	"github.com/hupe1980/splatgo/internal/mmap"
	"github.com/urfave/cli/v2"
)

func convertCommand() *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "convert one PLY file",
		ArgsUsage: "INPUT [OUTPUT]",
		Description: "INPUT may be zstd, lz4 or gzip compressed; \"-\" reads stdin.\n" +
			"OUTPUT defaults to INPUT with the format's extension; \"-\" writes stdout.",
		Flags: append(conversionFlags(),
			&cli.BoolFlag{Name: "json", Usage: "print the result summary as JSON"},
		),
		Action: runConvert,
	}
}

type convertSummary struct {
	Input       string                   `json:"input"`
	Output      string                   `json:"output"`
	Format      splatgo.OutputFormat     `json:"format"`
	InputCodec  string                   `json:"input_codec"`
	InputBytes  int                      `json:"input_bytes"`
	OutputBytes int                      `json:"output_bytes"`
	Splats      int                      `json:"splats"`
	Clean       *clean.Stats             `json:"clean,omitempty"`
	Compression *export.CompressionStats `json:"compression,omitempty"`
	DurationMS  int64                    `json:"duration_ms"`
}

func runConvert(c *cli.Context) error {
	if c.NArg() < 1 || c.NArg() > 2 {
		return cli.Exit("convert: expected INPUT [OUTPUT]", 2)
	}
	input := c.Args().Get(0)

	b, err := builderFrom(c)
	if err != nil {
		return cli.Exit(err, 2)
	}
	conv, err := b.Build()
	if err != nil {
		return cli.Exit(err, 2)
	}

	output := c.Args().Get(1)
	if output == "" {
		if input == "-" {
			output = "-"
		} else {
			output = defaultOutput(input, conv.Format())
		}
	}

	data, closeInput, err := readInput(c.Context, c.App.Reader, input)
	if err != nil {
		return err
	}
	res, err := conv.Convert(c.Context, data)
	closeInput()
	if err != nil {
		return err
	}

	if err := writeOutput(c.App.Writer, output, res.Data); err != nil {
		return err
	}

	summary := convertSummary{
		Input:       input,
		Output:      output,
		Format:      res.Format,
		InputCodec:  res.InputCodec.String(),
		InputBytes:  res.InputBytes,
		OutputBytes: len(res.Data),
		Splats:      res.Splats,
		Clean:       res.Clean,
		Compression: res.Compression,
		DurationMS:  res.Duration.Milliseconds(),
	}

	// With stdout carrying the model, the summary goes to stderr.
	w := c.App.Writer
	if output == "-" {
		w = c.App.ErrWriter
	}
	if c.Bool("json") {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	fmt.Fprintf(w, "%s -> %s: %d splats, %s -> %s",
		input, output, res.Splats,
		humanize.IBytes(uint64(res.InputBytes)), humanize.IBytes(uint64(len(res.Data))))
	if res.Clean != nil {
		fmt.Fprintf(w, ", %d removed", res.Clean.Removed())
	}
	if res.Compression != nil {
		fmt.Fprintf(w, ", compression %.2fx", res.Compression.Ratio())
	}
	fmt.Fprintln(w)
	return nil
}

func defaultOutput(input string, format splatgo.OutputFormat) string {
	base := input
	for _, ext := range []string{".zst", ".lz4", ".gz"} {
		base = strings.TrimSuffix(base, ext)
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	out := base + format.Extension()
	if out == input {
		out = base + ".clean" + format.Extension()
	}
	return out
}

// readInput maps files instead of reading them; the returned close func
// releases the mapping and must be called once the bytes are no longer used.
func readInput(ctx context.Context, stdin io.Reader, path string) ([]byte, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if data == nil {
			data = []byte{}
		}
		return data, func() {}, err
	}

	m, err := mmap.Open(path)
	if err != nil {
		return nil, nil, err
	}
	_ = m.Advise(mmap.AccessSequential)

	data := m.Bytes()
	if data == nil {
		data = []byte{}
	}
	return data, func() { _ = m.Close() }, nil
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
