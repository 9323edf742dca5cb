package transform

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

var esTargets = map[string]api.Target{
	"es5":    api.ES5,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

// ParseTarget maps a target name such as "es2015" to an esbuild target.
func ParseTarget(name string) (api.Target, error) {
	t, ok := esTargets[strings.ToLower(name)]
	if !ok {
		return api.DefaultTarget, fmt.Errorf("unknown esbuild target %q", name)
	}
	return t, nil
}

// ESBuild bundles each input file as its own entry point and emits the
// bundle plus an external source map.
type ESBuild struct {
	// OutDir is where the invoker writes outputs. Source map paths are made
	// relative to it.
	OutDir string
	// Outfile, when set, names every bundle instead of the input name.
	Outfile string
	Target  api.Target
	Minify  bool
}

// Name implements Transformer.
func (e *ESBuild) Name() string { return "esbuild" }

// Transform implements Transformer.
func (e *ESBuild) Transform(_ context.Context, in *File) ([]*File, error) {
	if in.Path == "" {
		return nil, errors.New("esbuild needs an on-disk entry point")
	}
	outDir, err := filepath.Abs(e.OutDir)
	if err != nil {
		return nil, err
	}
	entry, err := filepath.Abs(in.Path)
	if err != nil {
		return nil, err
	}

	outRel := replaceExt(in.Rel, ".js")
	if e.Outfile != "" {
		outRel = e.Outfile
	}

	result := api.Build(api.BuildOptions{
		EntryPoints:       []string{entry},
		Outfile:           filepath.Join(outDir, filepath.FromSlash(outRel)),
		Bundle:            true,
		Write:             false,
		Sourcemap:         api.SourceMapLinked,
		Target:            e.Target,
		MinifyWhitespace:  e.Minify,
		MinifyIdentifiers: e.Minify,
		MinifySyntax:      e.Minify,
		LogLevel:          api.LogLevelSilent,
		AbsWorkingDir:     filepath.Dir(entry),
	})
	if len(result.Errors) > 0 {
		msgs := api.FormatMessages(result.Errors, api.FormatMessagesOptions{Kind: api.ErrorMessage})
		return nil, errors.New(strings.TrimSpace(strings.Join(msgs, "\n")))
	}

	outputs := make([]*File, 0, len(result.OutputFiles))
	for _, of := range result.OutputFiles {
		rel, err := filepath.Rel(outDir, of.Path)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, &File{Rel: filepath.ToSlash(rel), Contents: of.Contents})
	}
	return outputs, nil
}
