package catalog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/compose-network/wlscanner/x/generator"
	"github.com/compose-network/wlscanner/x/protocol"
	"github.com/compose-network/wlscanner/x/scanner"
	"github.com/compose-network/wlscanner/x/validator"
)

// Collection results.
const (
	StatusCompiled = "compiled"
	StatusFailed   = "failed"
	StatusSkipped  = "skipped"
)

// CollectionResult is the outcome of one collection.
type CollectionResult struct {
	Name        string
	Version     string
	Description string
	Skipped     bool
	Reason      string
	Protocols   []*protocol.Protocol
	Outputs     []*generator.Output
	Duration    time.Duration
	Err         error
}

// Status is one of StatusCompiled, StatusFailed or StatusSkipped.
func (r *CollectionResult) Status() string {
	switch {
	case r.Skipped:
		return StatusSkipped
	case r.Err != nil:
		return StatusFailed
	default:
		return StatusCompiled
	}
}

// Result is the outcome of one catalog run.
type Result struct {
	RunID       string
	Started     time.Time
	Finished    time.Time
	Imports     []*protocol.Protocol
	Collections []*CollectionResult
}

// Err joins the errors of every failed collection.
func (r *Result) Err() error {
	var errs []error
	for _, c := range r.Collections {
		if c.Err != nil {
			errs = append(errs, fmt.Errorf("collection %s: %w", c.Name, c.Err))
		}
	}
	return errors.Join(errs...)
}

// Collection returns the result of the named collection, or nil.
func (r *Result) Collection(name string) *CollectionResult {
	for _, c := range r.Collections {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Protocols returns every compiled protocol sorted by name.
func (r *Result) Protocols() []*protocol.Protocol {
	var out []*protocol.Protocol
	for _, c := range r.Collections {
		if c.Status() == StatusCompiled {
			out = append(out, c.Protocols...)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Write stores every generated output below dir.
func (r *Result) Write(dir string) ([]string, error) {
	var written []string
	for _, c := range r.Collections {
		for _, out := range c.Outputs {
			paths, err := out.Write(dir)
			written = append(written, paths...)
			if err != nil {
				return written, fmt.Errorf("collection %s: %w", c.Name, err)
			}
		}
	}
	return written, nil
}

// Catalog compiles the collections of a manifest.
type Catalog struct {
	manifest  *Manifest
	scanner   *scanner.Scanner
	validator *validator.Validator
	generator *generator.Generator
	log       zerolog.Logger
	metrics   *Metrics
	limit     int
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Catalog) { c.log = log }
}

// WithMetrics records compile metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Catalog) { c.metrics = m }
}

// WithConcurrency bounds the number of collections compiled at once.
// Values below one mean GOMAXPROCS.
func WithConcurrency(n int) Option {
	return func(c *Catalog) { c.limit = n }
}

// WithGenerator also renders every compiled protocol. Without it Compile
// only parses and validates.
func WithGenerator(g *generator.Generator) Option {
	return func(c *Catalog) { c.generator = g }
}

// New creates a catalog over m.
func New(m *Manifest, opts ...Option) *Catalog {
	c := &Catalog{manifest: m, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	if c.limit < 1 {
		c.limit = runtime.GOMAXPROCS(0)
	}
	c.log = c.log.With().Str("component", "catalog").Logger()
	c.scanner = scanner.New(c.log)
	c.validator = validator.New(c.log)
	return c
}

// Manifest returns the manifest the catalog compiles.
func (c *Catalog) Manifest() *Manifest { return c.manifest }

// Compile parses the imports, then compiles every enabled collection in
// parallel. A failing collection does not stop the others; its error is in
// the result. The returned error is only set when the run itself could not
// proceed: a broken import or a cancelled context.
func (c *Catalog) Compile(ctx context.Context) (*Result, error) {
	res := &Result{
		RunID:       uuid.NewString(),
		Started:     time.Now(),
		Collections: make([]*CollectionResult, len(c.manifest.Collections)),
	}
	log := c.log.With().Str("run_id", res.RunID).Logger()
	log.Info().
		Int("collections", len(c.manifest.Collections)).
		Int("imports", len(c.manifest.Imports)).
		Int("concurrency", c.limit).
		Msg("Starting catalog run")

	imports, importPaths, err := c.parseImports(ctx)
	if err != nil {
		return nil, err
	}
	res.Imports = imports

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.limit)
	for i, coll := range c.manifest.Collections {
		if !coll.Enabled() {
			r := &CollectionResult{
				Name:        coll.Name,
				Version:     coll.Version,
				Description: coll.Description,
				Skipped:     true,
				Reason:      coll.Disabled,
			}
			res.Collections[i] = r
			c.metrics.recordCollection(r)
			log.Info().Str("collection", coll.Name).Str("reason", coll.Disabled).Msg("Skipping disabled collection")
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r := c.compile(gctx, coll, imports, importPaths)
			res.Collections[i] = r
			c.metrics.recordCollection(r)
			ev := log.Info()
			if r.Err != nil {
				ev = log.Warn().Err(r.Err)
			}
			ev.Str("collection", r.Name).
				Str("status", r.Status()).
				Int("protocols", len(r.Protocols)).
				Dur("took", r.Duration).
				Msg("Collection done")
			// Only cancellation aborts the group.
			if r.Err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res.Finished = time.Now()
	c.metrics.recordRun(res)
	log.Info().
		Dur("took", res.Finished.Sub(res.Started)).
		Bool("ok", res.Err() == nil).
		Msg("Catalog run finished")
	return res, nil
}

func (c *Catalog) parseImports(ctx context.Context) ([]*protocol.Protocol, []string, error) {
	protos := make([]*protocol.Protocol, 0, len(c.manifest.Imports))
	paths := make([]string, 0, len(c.manifest.Imports))
	for _, doc := range c.manifest.Imports {
		path := c.manifest.resolve(doc)
		p, err := c.scanner.Parse(ctx, path)
		if err != nil {
			c.metrics.recordDocument("import", StatusFailed)
			return nil, nil, fmt.Errorf("import %s: %w", doc, err)
		}
		c.metrics.recordDocument("import", StatusCompiled)
		protos = append(protos, p)
		paths = append(paths, filepath.Clean(path))
	}
	return protos, paths, nil
}

// compile runs one collection through parse, validate and, if configured,
// generate.
func (c *Catalog) compile(ctx context.Context, coll Collection, imports []*protocol.Protocol, importPaths []string) *CollectionResult {
	start := time.Now()
	r := &CollectionResult{Name: coll.Name, Version: coll.Version, Description: coll.Description}
	defer func() { r.Duration = time.Since(start) }()

	own := make(map[string]bool, len(coll.Documents))
	for _, doc := range coll.Documents {
		path := c.manifest.resolve(doc)
		own[filepath.Clean(path)] = true
		p, err := c.scanner.Parse(ctx, path)
		if err != nil {
			c.metrics.recordDocument("collection", StatusFailed)
			r.Err = err
			return r
		}
		c.metrics.recordDocument("collection", StatusCompiled)
		r.Protocols = append(r.Protocols, p)
	}

	// A collection that also appears as an import is compiled, not imported.
	set := validator.Set{Protocols: r.Protocols}
	for i, p := range imports {
		if !own[importPaths[i]] {
			set.Imports = append(set.Imports, p)
		}
	}
	if err := c.validator.Validate(set); err != nil {
		r.Err = err
		return r
	}

	if c.generator == nil {
		return r
	}
	outs, err := c.generator.GenerateAll(ctx, r.Protocols)
	if err != nil {
		r.Err = err
		return r
	}
	r.Outputs = outs
	return r
}
