package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/rs/zerolog"

	"github.com/compose-network/wlscanner/x/protocol"
)

// Version is the version of the generator reported in Metadata.
const Version = "0.3.0"

// DefaultRuntimePath is the import path prefix of the wire and session
// packages generated code depends on.
const DefaultRuntimePath = "github.com/compose-network/wlscanner/x"

var (
	ErrNoImportPath   = errors.New("generator: import path is required")
	ErrUnknownRole    = errors.New("generator: unknown role")
	ErrNameCollision  = errors.New("generator: generated name collision")
	ErrFormat         = errors.New("generator: generated code does not format")
	ErrEmptyProtocol  = errors.New("generator: protocol has no interfaces")
	ErrOutputConflict = errors.New("generator: output path already taken")
)

// Role selects a role package to generate.
type Role string

const (
	RoleClient Role = "client"
	RoleServer Role = "server"
)

// ParseRole maps a role name onto a Role.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleClient, RoleServer:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// Config controls what is generated and where the packages live.
type Config struct {
	// ImportPath is the import path of the output directory. Each protocol
	// becomes the package ImportPath/<name>, with role packages below it.
	ImportPath string
	// Roles to generate. Empty means both.
	Roles []Role
	// RuntimePath overrides DefaultRuntimePath.
	RuntimePath string
}

func (c *Config) setDefaults() {
	if len(c.Roles) == 0 {
		c.Roles = []Role{RoleClient, RoleServer}
	}
	if c.RuntimePath == "" {
		c.RuntimePath = DefaultRuntimePath
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ImportPath) == "" {
		return ErrNoImportPath
	}
	for _, r := range c.Roles {
		if _, err := ParseRole(string(r)); err != nil {
			return err
		}
	}
	return nil
}

// Metadata describes the generator.
type Metadata struct {
	Name           string
	Version        string
	Description    string
	FileExtensions []string
}

// File is one generated source file. Path is relative to the output root.
type File struct {
	Path    string
	Content []byte
}

// Output is the result of generating one protocol.
type Output struct {
	Protocol string
	Package  string
	Files    []File
}

// Write stores the files below dir, creating directories as needed, and
// returns the written paths.
func (o *Output) Write(dir string) ([]string, error) {
	written := make([]string, 0, len(o.Files))
	for _, f := range o.Files {
		path := filepath.Join(dir, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return written, fmt.Errorf("create %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, f.Content, 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

// Generator renders validated protocols into Go packages.
type Generator struct {
	cfg Config
	log zerolog.Logger
}

// New creates a generator. Models passed to Generate must have passed the
// validator.
func New(cfg Config, log zerolog.Logger) (*Generator, error) {
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Generator{
		cfg: cfg,
		log: log.With().Str("component", "generator").Logger(),
	}, nil
}

// Metadata returns information about this generator.
func (g *Generator) Metadata() Metadata {
	return Metadata{
		Name:           "go",
		Version:        Version,
		Description:    "Typed client and server packages over the session runtime",
		FileExtensions: []string{".go"},
	}
}

// Generate renders the shared package and one package per configured role.
func (g *Generator) Generate(ctx context.Context, p *protocol.Protocol) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(p.Interfaces) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyProtocol, p.Name)
	}
	start := time.Now()

	b := newBuilder(g.cfg, p)
	sv, err := b.shared()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Name, err)
	}
	out := &Output{Protocol: p.Name, Package: sv.Import}
	src, err := render(sharedTmpl, sv)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Name, err)
	}
	out.Files = append(out.Files, File{Path: b.pkg + "/protocol.go", Content: src})

	for _, r := range g.cfg.Roles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rv, err := b.role(r, sv)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", p.Name, r, err)
		}
		src, err := render(roleTmpl, rv)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", p.Name, r, err)
		}
		out.Files = append(out.Files, File{Path: b.pkg + "/" + string(r) + "/" + string(r) + ".go", Content: src})
	}

	g.log.Debug().
		Str("protocol", p.Name).
		Str("package", out.Package).
		Int("files", len(out.Files)).
		Dur("duration", time.Since(start)).
		Msg("Generated protocol")
	return out, nil
}

// GenerateAll renders every protocol and rejects two protocols mapping onto
// the same package directory.
func (g *Generator) GenerateAll(ctx context.Context, protos []*protocol.Protocol) ([]*Output, error) {
	owner := make(map[string]string, len(protos))
	outs := make([]*Output, 0, len(protos))
	for _, p := range protos {
		pkg := packageName(p.Name)
		if prev, ok := owner[pkg]; ok {
			return nil, fmt.Errorf("%w: %s and %s both map to package %s", ErrOutputConflict, prev, p.Name, pkg)
		}
		owner[pkg] = p.Name
		out, err := g.Generate(ctx, p)
		if err != nil {
			return nil, err
		}
		outs = append(outs, out)
	}
	return outs, nil
}

func render(t *template.Template, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute %s template: %w", t.Name(), err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return src, nil
}
