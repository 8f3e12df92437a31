package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/compose-network/wlscanner/metrics"
	"github.com/compose-network/wlscanner/server/api"
	"github.com/compose-network/wlscanner/wlscanner-app/config"
	"github.com/compose-network/wlscanner/x/catalog"
	"github.com/compose-network/wlscanner/x/generator"
	"github.com/compose-network/wlscanner/x/scanner"
)

const (
	formatYAML = "yaml"
	formatJSON = "json"
)

// adhocCollection names the collection built from documents given on the
// command line.
const adhocCollection = "documents"

var (
	ErrUnknownFormat      = errors.New("unknown dump format")
	ErrImportsWithoutDocs = errors.New("--import needs documents on the command line")
)

// App wires configuration, logging and metrics around the catalog.
type App struct {
	cfg      *config.Config
	root     zerolog.Logger
	log      zerolog.Logger
	registry *prometheus.Registry
	metrics  *catalog.Metrics
}

// NewApp creates a new application instance
func NewApp(cfg *config.Config, log zerolog.Logger) *App {
	app := &App{
		cfg:      cfg,
		root:     log,
		log:      log.With().Str("component", "app").Logger(),
		registry: prometheus.NewRegistry(),
	}
	if cfg.Metrics.Enabled {
		app.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		app.metrics = catalog.NewMetricsWith(metrics.NewComponentRegistryWith(app.registry, "wlscanner", "catalog"))
	}
	return app
}

// Generate compiles and renders, then writes every output below the
// configured output directory. Outputs of collections that compiled are
// written even when others failed.
func (a *App) Generate(ctx context.Context, documents, imports []string) (*catalog.Result, []string, error) {
	gcfg, err := a.cfg.GeneratorConfig()
	if err != nil {
		return nil, nil, err
	}
	gen, err := generator.New(gcfg, a.root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create generator: %w", err)
	}

	res, err := a.compile(ctx, documents, imports, gen)
	if res == nil {
		return nil, nil, err
	}

	written, werr := res.Write(a.cfg.Generate.Output)
	if werr != nil {
		werr = fmt.Errorf("failed to write generated code: %w", werr)
	}
	a.log.Info().
		Str("run_id", res.RunID).
		Str("output", a.cfg.Generate.Output).
		Int("files", len(written)).
		Msg("Generation finished")
	return res, written, errors.Join(err, werr)
}

// Validate parses and validates without generating.
func (a *App) Validate(ctx context.Context, documents, imports []string) (*catalog.Result, error) {
	return a.compile(ctx, documents, imports, nil)
}

// Dump writes the parsed model of the document at path in the given format.
// The YAML rendering is itself a valid input document.
func (a *App) Dump(ctx context.Context, path, format string, w io.Writer) error {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != formatYAML && format != formatJSON {
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	p, err := scanner.New(a.root).Parse(ctx, path)
	if err != nil {
		return err
	}

	if format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return err
	}
	return enc.Close()
}

// Serve compiles the catalog and serves it until ctx is cancelled or the
// process is interrupted. SIGHUP recompiles and swaps the published result.
func (a *App) Serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler := api.NewHandler(a.root)
	srv := api.NewServer(a.cfg.API, a.root)
	var gatherer prometheus.Gatherer
	if a.cfg.Metrics.Enabled {
		gatherer = a.registry
	}
	handler.RegisterMux(srv.Router, gatherer)

	if err := a.refresh(ctx, handler); err != nil {
		return err
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				a.log.Info().Msg("Recompiling catalog")
				if err := a.refresh(ctx, handler); err != nil {
					a.log.Error().Err(err).Msg("Recompile failed, keeping previous result")
				}
			}
		}
	}()

	return srv.Start(ctx)
}

// refresh compiles the catalog and publishes the result. Failed collections
// are published too; only a run that could not proceed is an error.
func (a *App) refresh(ctx context.Context, h *api.Handler) error {
	res, err := a.compile(ctx, nil, nil, nil)
	if res == nil {
		return err
	}
	if err != nil {
		a.log.Warn().Err(err).Msg("Catalog compiled with failures")
	}
	h.Update(res)
	return nil
}

// compile runs the catalog. The result is nil only when the run itself
// could not proceed; otherwise the error joins per-collection failures.
func (a *App) compile(ctx context.Context, documents, imports []string, gen *generator.Generator) (*catalog.Result, error) {
	m, err := a.manifest(documents, imports)
	if err != nil {
		return nil, err
	}

	opts := []catalog.Option{
		catalog.WithLogger(a.root),
		catalog.WithMetrics(a.metrics),
		catalog.WithConcurrency(a.cfg.Catalog.Concurrency),
	}
	if gen != nil {
		opts = append(opts, catalog.WithGenerator(gen))
	}

	res, err := catalog.New(m, opts...).Compile(ctx)
	a.writeTextfile()
	if err != nil {
		return nil, err
	}
	return res, res.Err()
}

// manifest builds a one-collection manifest from command line documents, or
// loads the configured catalog.
func (a *App) manifest(documents, imports []string) (*catalog.Manifest, error) {
	if len(documents) > 0 {
		m := &catalog.Manifest{
			Imports:     imports,
			Collections: []catalog.Collection{{Name: adhocCollection, Documents: documents}},
		}
		if err := m.Validate(); err != nil {
			return nil, err
		}
		return m, nil
	}
	if len(imports) > 0 {
		return nil, ErrImportsWithoutDocs
	}

	m, err := catalog.LoadManifest(a.cfg.Catalog.Manifest)
	if err != nil {
		return nil, err
	}
	return m.Select(a.cfg.Catalog.Collections...)
}

func (a *App) writeTextfile() {
	path := a.cfg.Metrics.Textfile
	if path == "" || !a.cfg.Metrics.Enabled {
		return
	}
	if err := prometheus.WriteToTextfile(path, a.registry); err != nil {
		a.log.Warn().Err(err).Str("path", path).Msg("Failed to write metrics textfile")
	}
}

// printSummary writes one line per collection.
func printSummary(cmd *cobra.Command, res *catalog.Result) {
	out := cmd.OutOrStdout()
	for _, c := range res.Collections {
		switch c.Status() {
		case catalog.StatusSkipped:
			fmt.Fprintf(out, "%-24s skipped  %s\n", c.Name, c.Reason)
		case catalog.StatusFailed:
			fmt.Fprintf(out, "%-24s failed   %v\n", c.Name, c.Err)
		default:
			names := make([]string, 0, len(c.Protocols))
			for _, p := range c.Protocols {
				names = append(names, p.Name)
			}
			fmt.Fprintf(out, "%-24s ok       %s\n", c.Name, strings.Join(names, ", "))
		}
	}
}
