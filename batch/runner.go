package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/splatgo"
	"github.com/hupe1980/splatgo/blobstore"
	"github.com/hupe1980/splatgo/resource"
	"golang.org/x/sync/errgroup"
)

// Converter converts one input. *splatgo.Converter implements it.
type Converter interface {
	Convert(ctx context.Context, data []byte) (*splatgo.Result, error)
	Format() splatgo.OutputFormat
}

// Job is one input to convert.
type Job struct {
	ID     string `json:"id"`
	Input  string `json:"input"`
	Output string `json:"output"`
}

// JobResult is the outcome of one Job.
type JobResult struct {
	Job
	// Result is nil when the job failed.
	Result   *splatgo.Result `json:"-"`
	Err      error           `json:"-"`
	Duration time.Duration   `json:"duration"`
}

// MarshalJSON adds the error message and output size.
func (r JobResult) MarshalJSON() ([]byte, error) {
	type plain JobResult
	out := struct {
		plain
		Error       string `json:"error,omitempty"`
		Splats      int    `json:"splats,omitempty"`
		OutputBytes int    `json:"output_bytes,omitempty"`
	}{plain: plain(r)}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	if r.Result != nil {
		out.Splats = r.Result.Splats
		out.OutputBytes = len(r.Result.Data)
	}
	return json.Marshal(out)
}

// Summary aggregates all job results of one run, in job order.
type Summary struct {
	Results     []JobResult   `json:"results"`
	Succeeded   int           `json:"succeeded"`
	Failed      int           `json:"failed"`
	InputBytes  int64         `json:"input_bytes"`
	OutputBytes int64         `json:"output_bytes"`
	Duration    time.Duration `json:"duration"`
}

// Errors returns the job errors joined, or nil when every job succeeded.
func (s *Summary) Errors() error {
	var errs []error
	for _, r := range s.Results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Input, r.Err))
		}
	}
	return errors.Join(errs...)
}

// Runner converts blobs from one store into another.
type Runner struct {
	conv Converter
	src  blobstore.Store
	dst  blobstore.Store
	opts options
}

// NewRunner creates a Runner reading from src and writing to dst.
func NewRunner(conv Converter, src, dst blobstore.Store, optFns ...Option) *Runner {
	return &Runner{
		conv: conv,
		src:  src,
		dst:  dst,
		opts: applyOptions(optFns),
	}
}

// Jobs lists the inputs under prefix and plans one job per recognized
// input. Output names replace the input suffix with the converter's
// format extension.
func (r *Runner) Jobs(ctx context.Context, prefix string) ([]Job, error) {
	names, err := r.src.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("batch: list %q: %w", prefix, err)
	}

	ext := r.conv.Format().Extension()

	var jobs []Job
	for _, name := range names {
		suffix, ok := r.match(name)
		if !ok {
			continue
		}
		jobs = append(jobs, Job{
			ID:     uuid.NewString(),
			Input:  name,
			Output: r.opts.outputPrefix + strings.TrimSuffix(name, suffix) + ext,
		})
	}
	return jobs, nil
}

func (r *Runner) match(name string) (string, bool) {
	lower := strings.ToLower(name)
	best := ""
	for _, s := range r.opts.suffixes {
		if strings.HasSuffix(lower, strings.ToLower(s)) && len(s) > len(best) {
			best = s
		}
	}
	return name[len(name)-len(best):], best != ""
}

// RunPrefix plans and runs all jobs under prefix.
func (r *Runner) RunPrefix(ctx context.Context, prefix string) (*Summary, error) {
	jobs, err := r.Jobs(ctx, prefix)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, jobs)
}

// Run executes jobs concurrently within the controller's limits. Job
// failures are reported in the Summary; the returned error is only set
// when the run itself was cut short (ctx canceled, or fail-fast
// triggered).
func (r *Runner) Run(ctx context.Context, jobs []Job) (*Summary, error) {
	start := time.Now()
	results := make([]JobResult, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(int(r.opts.controller.Config().MaxWorkers))

	jobCtx := ctx
	if r.opts.failFast {
		jobCtx = gctx
	}

	scheduled := 0

	for i, job := range jobs {
		if err := jobCtx.Err(); err != nil {
			break
		}
		if job.ID == "" {
			job.ID = uuid.NewString()
		}

		scheduled = i + 1

		g.Go(func() error {
			res := r.runJob(jobCtx, job)
			results[i] = res
			if r.opts.failFast && res.Err != nil {
				return res.Err
			}
			return nil
		})
	}

	runErr := g.Wait()
	if runErr == nil {
		runErr = ctx.Err()
	}

	summary := &Summary{Duration: time.Since(start)}
	for i, res := range results {
		if i >= scheduled {
			cause := runErr
			if cause == nil {
				cause = context.Canceled
			}
			res = JobResult{Job: jobs[i], Err: fmt.Errorf("batch: not started: %w", cause)}
		}
		summary.add(res)
	}

	r.opts.logger.LogAttrs(ctx, slog.LevelInfo, "batch completed",
		slog.Int("jobs", len(jobs)),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("failed", summary.Failed),
		slog.Duration("duration", summary.Duration),
	)

	return summary, runErr
}

func (s *Summary) add(res JobResult) {
	s.Results = append(s.Results, res)
	if res.Err != nil {
		s.Failed++
		return
	}
	s.Succeeded++
	if res.Result != nil {
		s.InputBytes += int64(res.Result.InputBytes)
		s.OutputBytes += int64(len(res.Result.Data))
	}
}

func (r *Runner) runJob(ctx context.Context, job Job) JobResult {
	start := time.Now()
	log := r.opts.logger.WithJob(job.ID).WithInput(job.Input)

	res, err := r.convertBlob(ctx, job)
	out := JobResult{Job: job, Result: res, Err: err, Duration: time.Since(start)}

	if err != nil {
		log.LogAttrs(ctx, slog.LevelError, "job failed",
			slog.String("output", job.Output),
			slog.String("error", err.Error()),
		)
	} else {
		log.LogAttrs(ctx, slog.LevelInfo, "job completed",
			slog.String("output", job.Output),
			slog.Int("splats", res.Splats),
			slog.Int("output_bytes", len(res.Data)),
			slog.Duration("duration", out.Duration),
		)
	}
	return out
}

func (r *Runner) convertBlob(ctx context.Context, job Job) (*splatgo.Result, error) {
	rc := r.opts.controller

	blob, err := r.src.Open(ctx, job.Input)
	if err != nil {
		return nil, fmt.Errorf("batch: open: %w", err)
	}
	defer blob.Close()

	release, err := rc.Reserve(ctx, blob.Size()*r.opts.memoryFactor)
	if err != nil {
		return nil, err
	}
	defer release()

	data, err := r.read(ctx, blob)
	if err != nil {
		return nil, err
	}

	res, err := r.conv.Convert(ctx, data)
	if err != nil {
		return nil, err
	}

	if err := rc.AcquireIO(ctx, len(res.Data)); err != nil {
		return nil, err
	}
	if err := r.dst.Put(ctx, job.Output, res.Data); err != nil {
		return nil, fmt.Errorf("batch: write %s: %w", job.Output, err)
	}
	return res, nil
}

// read returns the blob contents. Mapped blobs are used in place when no
// IO limit applies; the slice is only valid until the blob is closed, and
// conversion never retains its input.
func (r *Runner) read(ctx context.Context, blob blobstore.Blob) ([]byte, error) {
	rc := r.opts.controller
	if m, ok := blob.(blobstore.Mappable); ok && rc.Config().IOLimitBytesPerSec == 0 {
		data, err := m.Bytes()
		if err == nil && data != nil {
			return data, nil
		}
	}

	data, err := io.ReadAll(resource.NewRateLimitedReader(ctx, blobstore.NewReader(blob), rc))
	if err != nil {
		return nil, fmt.Errorf("batch: read: %w", err)
	}
	return data, nil
}
