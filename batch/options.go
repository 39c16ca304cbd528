package batch

import (
	"github.com/hupe1980/splatgo"
	"github.com/hupe1980/splatgo/resource"
)

// DefaultMemoryFactor estimates peak working memory as a multiple of the
// stored input size. Decoded columns plus the encoded output are roughly
// three times a binary PLY; compressed inputs expand further.
const DefaultMemoryFactor = 4

// DefaultSuffixes are the input names picked up by Jobs.
var DefaultSuffixes = []string{".ply", ".ply.zst", ".ply.lz4", ".ply.gz"}

type options struct {
	controller   *resource.Controller
	logger       *splatgo.Logger
	memoryFactor int64
	failFast     bool
	suffixes     []string
	outputPrefix string
}

// Option configures a Runner.
type Option func(*options)

// WithController sets the resource controller. Defaults to one worker with
// no memory or IO limit.
func WithController(rc *resource.Controller) Option {
	return func(o *options) {
		if rc != nil {
			o.controller = rc
		}
	}
}

// WithLogger sets the logger for job events.
func WithLogger(logger *splatgo.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMemoryFactor sets the multiple of the input size reserved per job.
func WithMemoryFactor(f int64) Option {
	return func(o *options) {
		if f > 0 {
			o.memoryFactor = f
		}
	}
}

// WithFailFast stops scheduling new jobs after the first failure.
func WithFailFast(enabled bool) Option {
	return func(o *options) {
		o.failFast = enabled
	}
}

// WithSuffixes replaces the input suffixes recognized by Jobs.
func WithSuffixes(suffixes ...string) Option {
	return func(o *options) {
		o.suffixes = suffixes
	}
}

// WithOutputPrefix prepends prefix to every output name.
func WithOutputPrefix(prefix string) Option {
	return func(o *options) {
		o.outputPrefix = prefix
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:       splatgo.NoopLogger(),
		memoryFactor: DefaultMemoryFactor,
		suffixes:     DefaultSuffixes,
	}
	for _, fn := range optFns {
		fn(&o)
	}
	if o.controller == nil {
		o.controller = resource.NewController(resource.Config{MaxWorkers: 1})
	}
	return o
}
