package transform

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/svg"
)

var mediaTypes = map[string]string{
	".css": "text/css",
	".js":  "application/javascript",
	".svg": "image/svg+xml",
}

func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("application/javascript", js.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)
	return m
}

// Minify shrinks CSS or JavaScript files and writes them next to the
// original with a ".min" marker before the extension.
type Minify struct {
	ext string
	m   *minify.M
}

// NewMinify returns a minifier for files with the given extension (".css"
// or ".js").
func NewMinify(ext string) (*Minify, error) {
	if _, ok := mediaTypes[ext]; !ok {
		return nil, fmt.Errorf("no minifier for %q files", ext)
	}
	return &Minify{ext: ext, m: newMinifier()}, nil
}

// Name implements Transformer.
func (m *Minify) Name() string { return "minify" + m.ext }

// Transform implements Transformer. Inputs that are already minified or
// carry another extension produce no output.
func (m *Minify) Transform(_ context.Context, in *File) ([]*File, error) {
	if path.Ext(in.Rel) != m.ext || isMinified(in.Rel) {
		return nil, nil
	}
	out, err := m.m.Bytes(mediaTypes[m.ext], in.Contents)
	if err != nil {
		return nil, err
	}
	return []*File{{Rel: replaceExt(in.Rel, ".min"+m.ext), Contents: out}}, nil
}

func isMinified(rel string) bool {
	base := path.Base(rel)
	return strings.HasSuffix(strings.TrimSuffix(base, path.Ext(base)), ".min")
}
