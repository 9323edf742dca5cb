package hcl

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/euphroshub/minimalist-stack/internal/config"
	"github.com/euphroshub/minimalist-stack/internal/ctxlog"
	"github.com/euphroshub/minimalist-stack/internal/schema"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct {
	// Environ supplies the `env` variable. Defaults to os.Environ.
	Environ func() []string
}

// NewLoader creates a new HCL loader.
func NewLoader() *Loader {
	return &Loader{Environ: os.Environ}
}

var _ config.Loader = (*Loader)(nil)

// Load implements config.Loader.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline file: %w", err)
	}
	return l.LoadBytes(ctx, src, path)
}

// LoadBytes parses pipeline source held in memory. filename is only used in
// diagnostics.
func (l *Loader) LoadBytes(ctx context.Context, src []byte, filename string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Parsing pipeline file.", "file", filename)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var parsed schema.PipelineFile
	if diags := gohcl.DecodeBody(file.Body, l.evalContext(), &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	model := config.Default()
	if err := translate(&parsed, model); err != nil {
		return nil, fmt.Errorf("invalid pipeline file %s: %w", filename, err)
	}
	logger.Debug("Pipeline file translated into model.", "file", filename)
	return model, nil
}

// evalContext exposes the environment as `env.NAME` and a handful of
// string functions to pipeline expressions.
func (l *Loader) evalContext() *hcl.EvalContext {
	environ := os.Environ
	if l.Environ != nil {
		environ = l.Environ
	}
	vars := make(map[string]cty.Value)
	for _, kv := range environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !hclsyntax.ValidIdentifier(name) {
			continue
		}
		vars[name] = cty.StringVal(value)
	}
	env := cty.EmptyObjectVal
	if len(vars) > 0 {
		env = cty.ObjectVal(vars)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": env},
		Functions: map[string]function.Function{
			"lower":    stdlib.LowerFunc,
			"upper":    stdlib.UpperFunc,
			"format":   stdlib.FormatFunc,
			"join":     stdlib.JoinFunc,
			"concat":   stdlib.ConcatFunc,
			"coalesce": stdlib.CoalesceFunc,
		},
	}
}
