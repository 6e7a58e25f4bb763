package ndf

import (
	"github.com/robert-malhotra/go-darr/container"
	"github.com/robert-malhotra/go-darr/darr"
	"github.com/rs/zerolog"
)

// Option configures a Write or Read call. WithAxis, WithSelection and
// WithReplicated only affect Read; the rest apply to both.
type Option func(*config)

type config struct {
	logger  zerolog.Logger
	axes    map[string]int
	sels    map[string]darr.Sel
	repl    map[string]bool
	filters map[string]Filter
}

func newConfig(opts []Option) *config {
	cfg := &config{
		logger:  zerolog.Nop(),
		axes:    make(map[string]int),
		sels:    make(map[string]darr.Sel),
		repl:    make(map[string]bool),
		filters: make(map[string]Filter),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithLogger sets the logger for I/O progress events. The default logger
// discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithAxis distributes the named dataset over the given axis when
// reading, instead of the default axis 0.
func WithAxis(path string, axis int) Option {
	return func(cfg *config) {
		cfg.axes[container.CleanPath(path)] = axis
	}
}

// WithSelection restricts the read of the named dataset to a selection:
// only the selected elements are read from the file, and the resulting
// dataset has the selection's shape, canonically partitioned over its
// distributed axis. Along that axis the selection must be strictly
// increasing.
func WithSelection(path string, sel darr.Sel) Option {
	return func(cfg *config) {
		cfg.sels[container.CleanPath(path)] = sel
	}
}

// WithReplicated reads the named datasets as replicated: every rank loads
// the full payload instead of a slab.
func WithReplicated(paths ...string) Option {
	return func(cfg *config) {
		for _, p := range paths {
			cfg.repl[container.CleanPath(p)] = true
		}
	}
}

// WithFilter passes the named dataset's payload bytes through a filter on
// their way to and from the file. The file does not record which filter
// was used; data written with a filter must be read back with the same
// filter.
func WithFilter(path string, f Filter) Option {
	return func(cfg *config) {
		cfg.filters[container.CleanPath(path)] = f
	}
}
