package files

import (
	"context"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/kbukum/recoverykit/errors"
	"github.com/kbukum/recoverykit/logger"
	"github.com/kbukum/recoverykit/recovery"
)

// Config limits what the tracker accepts.
type Config struct {
	MaxSize    int64    `yaml:"max_size" mapstructure:"max_size" validate:"gt=0"`
	Extensions []string `yaml:"extensions" mapstructure:"extensions"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.MaxSize <= 0 {
		c.MaxSize = 10 << 20
	}
	if len(c.Extensions) == 0 {
		c.Extensions = []string{".txt", ".md", ".json", ".csv", ".pdf"}
	}
}

// File describes an upload.
type File struct {
	Name string
	Size int64
}

// Processor ingests one file.
type Processor func(ctx context.Context, f File) error

type job struct {
	generation uint64
	cancel     context.CancelFunc
}

// Tracker runs file jobs and remembers which are in flight and which
// finished in the current generation.
type Tracker struct {
	cfg      Config
	registry *recovery.Registry
	log      *logger.Logger

	mu         sync.Mutex
	generation uint64
	pending    map[string]job
	processed  []string
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(t *Tracker) { t.log = l }
}

// WithRegistry reports failed jobs to reg.
func WithRegistry(reg *recovery.Registry) Option {
	return func(t *Tracker) { t.registry = reg }
}

// NewTracker creates a tracker.
func NewTracker(cfg Config, opts ...Option) *Tracker {
	cfg.ApplyDefaults()
	t := &Tracker{cfg: cfg, pending: make(map[string]job)}
	for _, opt := range opts {
		opt(t)
	}
	t.log = logger.ForComponent(t.log, logger.ComponentFiles)
	return t
}

// Process validates f and runs fn for it. A file that fails validation is
// reported without calling fn. Transient failures of fn are retried under
// the registry's policy for the file processing service.
func (t *Tracker) Process(ctx context.Context, f File, fn Processor) error {
	op := func(ctx context.Context) (struct{}, error) {
		return struct{}{}, t.run(ctx, f, fn)
	}
	var err error
	if t.registry == nil {
		_, err = op(ctx)
	} else {
		opts := t.registry.OperationOptions()
		opts.Context = map[string]any{"file": f.Name, "size": f.Size}
		_, err = recovery.ExecuteServiceOperation(ctx, t.registry, recovery.ServiceFileProcessing.String(), "process_file", opts, op)
	}
	return err
}

func (t *Tracker) run(ctx context.Context, f File, fn Processor) error {
	if err := t.validate(f); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	gen, err := t.begin(f.Name, cancel)
	if err != nil {
		return err
	}

	err = fn(ctx, f)
	t.finish(f.Name, gen, err == nil)
	return err
}

func (t *Tracker) validate(f File) error {
	if strings.TrimSpace(f.Name) == "" {
		return errors.MissingField("file name")
	}
	ext := strings.ToLower(filepath.Ext(f.Name))
	if !slices.Contains(t.cfg.Extensions, ext) {
		return errors.UnsupportedFile(f.Name, "unsupported file type "+ext)
	}
	if f.Size <= 0 {
		return errors.UnsupportedFile(f.Name, "the file is empty")
	}
	if f.Size > t.cfg.MaxSize {
		return errors.UnsupportedFile(f.Name, "the file is too large")
	}
	return nil
}

func (t *Tracker) begin(name string, cancel context.CancelFunc) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, busy := t.pending[name]; busy {
		return 0, errors.Conflict("file " + name + " is already being processed")
	}
	t.pending[name] = job{generation: t.generation, cancel: cancel}
	return t.generation, nil
}

// finish is a no-op for jobs from a generation that was cleared.
func (t *Tracker) finish(name string, gen uint64, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.generation {
		return
	}
	delete(t.pending, name)
	if ok {
		t.processed = append(t.processed, name)
	}
}

// Pending returns the names of files in flight, sorted.
func (t *Tracker) Pending() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(t.pending))
	for name := range t.pending {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Processed returns the files finished since the last clear.
func (t *Tracker) Processed() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.processed)
}

// ClearProcessingState cancels every job and forgets pending and processed
// files. Jobs still running finish without touching the new state.
func (t *Tracker) ClearProcessingState(context.Context) error {
	t.mu.Lock()
	t.generation++
	old := t.pending
	t.pending = make(map[string]job)
	t.processed = nil
	t.mu.Unlock()

	for _, j := range old {
		j.cancel()
	}
	t.log.Info("file processing state cleared", logger.Fields("cancelled", len(old)))
	return nil
}
