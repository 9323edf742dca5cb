package transform

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bep/godartsass/v2"
	"github.com/euphroshub/minimalist-stack/internal/ctxlog"
)

// sassCompiler is the subset of godartsass.Transpiler used here.
type sassCompiler interface {
	Execute(args godartsass.Args) (godartsass.Result, error)
	Close() error
}

// Sass compiles SCSS sources to CSS with an external source map, using the
// Dart Sass embedded protocol. The transpiler process is started on first
// use and shared by all files until Close.
type Sass struct {
	// Binary is the dart-sass executable name or path.
	Binary       string
	IncludePaths []string

	mu       sync.Mutex
	compiler sassCompiler
	start    func() (sassCompiler, error)
}

// NewSass returns a Sass transformer backed by the given dart-sass binary.
func NewSass(binary string, includePaths []string) *Sass {
	s := &Sass{Binary: binary, IncludePaths: includePaths}
	s.start = func() (sassCompiler, error) {
		t, err := godartsass.Start(godartsass.Options{DartSassEmbeddedFilename: s.Binary})
		if err != nil {
			return nil, fmt.Errorf("starting dart-sass %q: %w", s.Binary, err)
		}
		return t, nil
	}
	return s
}

// Name implements Transformer.
func (s *Sass) Name() string { return "sass" }

func (s *Sass) transpiler() (sassCompiler, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.compiler != nil {
		return s.compiler, nil
	}
	if s.start == nil {
		return nil, errors.New("sass transpiler is not configured")
	}
	c, err := s.start()
	if err != nil {
		return nil, err
	}
	s.compiler = c
	return c, nil
}

// Transform implements Transformer. Partials (files whose name starts with
// an underscore) produce no output.
func (s *Sass) Transform(ctx context.Context, in *File) ([]*File, error) {
	if strings.HasPrefix(path.Base(in.Rel), "_") {
		ctxlog.FromContext(ctx).Debug("Skipping sass partial.", "file", in.Rel)
		return nil, nil
	}

	c, err := s.transpiler()
	if err != nil {
		return nil, err
	}

	args := godartsass.Args{
		Source:                  string(in.Contents),
		IncludePaths:            s.IncludePaths,
		OutputStyle:             godartsass.OutputStyleExpanded,
		SourceSyntax:            sourceSyntax(in.Rel),
		EnableSourceMap:         true,
		SourceMapIncludeSources: true,
	}
	if in.Path != "" {
		if abs, err := filepath.Abs(in.Path); err == nil {
			args.URL = (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
		}
	}

	res, err := c.Execute(args)
	if err != nil {
		return nil, err
	}

	cssRel := replaceExt(in.Rel, ".css")
	mapRel := cssRel + ".map"
	css := strings.TrimRight(res.CSS, "\n") + fmt.Sprintf("\n\n/*# sourceMappingURL=%s */\n", path.Base(mapRel))

	return []*File{
		{Rel: cssRel, Contents: []byte(css)},
		{Rel: mapRel, Contents: []byte(res.SourceMap)},
	}, nil
}

func sourceSyntax(rel string) godartsass.SourceSyntax {
	switch path.Ext(rel) {
	case ".sass":
		return godartsass.SourceSyntaxSASS
	case ".css":
		return godartsass.SourceSyntaxCSS
	default:
		return godartsass.SourceSyntaxSCSS
	}
}

// Close stops the transpiler process if it was started.
func (s *Sass) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.compiler == nil {
		return nil
	}
	err := s.compiler.Close()
	s.compiler = nil
	return err
}
