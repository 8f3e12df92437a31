package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/compose-network/wlscanner/x/protocol"
)

// Scanner loads protocol documents from disk.
type Scanner struct {
	log zerolog.Logger
}

// New creates a scanner logging through log.
func New(log zerolog.Logger) *Scanner {
	return &Scanner{log: log.With().Str("component", "scanner").Logger()}
}

// Format is a document syntax.
type Format string

const (
	FormatXML  Format = "xml"
	FormatYAML Format = "yaml"
)

// FormatOf picks the syntax from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return FormatXML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, filepath.Base(path))
	}
}

// Parse reads and parses the document at path. The syntax is chosen from
// the extension.
func (s *Scanner) Parse(ctx context.Context, path string) (*protocol.Protocol, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	format, err := FormatOf(path)
	if err != nil {
		return nil, &ParseError{Document: path, Err: err}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open protocol document: %w", err)
	}
	defer f.Close()

	start := time.Now()
	var proto *protocol.Protocol
	switch format {
	case FormatXML:
		proto, err = ParseXML(path, f)
	case FormatYAML:
		proto, err = ParseYAML(path, f)
	}
	if err != nil {
		s.log.Debug().Err(err).Str("document", path).Msg("Parse failed")
		return nil, err
	}

	s.log.Debug().
		Str("document", path).
		Str("protocol", proto.Name).
		Int("interfaces", len(proto.Interfaces)).
		Dur("took", time.Since(start)).
		Msg("Parsed protocol document")
	return proto, nil
}
