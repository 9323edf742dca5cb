// Package schema holds the HCL decoding structs of a pipeline file. Every
// attribute and block is optional; nil means "keep the default".
package schema

// PipelineFile is the top-level structure of a pipeline file.
type PipelineFile struct {
	OutputDir *string  `hcl:"output_dir,optional"`
	AssetsDir *string  `hcl:"assets_dir,optional"`
	Sources   *Sources `hcl:"sources,block"`
	Watch     *Watch   `hcl:"watch,block"`
	Server    *Server  `hcl:"server,block"`
	Sass      *Sass    `hcl:"sass,block"`
	ESBuild   *ESBuild `hcl:"esbuild,block"`
}

// Sources represents the `sources` block.
type Sources struct {
	Styles     []string `hcl:"styles,optional"`
	App        []string `hcl:"app,optional"`
	Components []string `hcl:"components,optional"`
	Templates  []string `hcl:"templates,optional"`
	Images     []string `hcl:"images,optional"`
	WebP       []string `hcl:"webp,optional"`
	SVG        []string `hcl:"svg,optional"`
}

// Watch represents the `watch` block.
type Watch struct {
	Debounce   *string  `hcl:"debounce,optional"`
	Templates  []string `hcl:"templates,optional"`
	Styles     []string `hcl:"styles,optional"`
	App        []string `hcl:"app,optional"`
	Components []string `hcl:"components,optional"`
}

// Server represents the `server` block.
type Server struct {
	Host       *string `hcl:"host,optional"`
	Port       *int    `hcl:"port,optional"`
	Index      *string `hcl:"index,optional"`
	ReloadPort *int    `hcl:"reload_port,optional"`
}

// Sass represents the `sass` block.
type Sass struct {
	Binary       *string  `hcl:"binary,optional"`
	IncludePaths []string `hcl:"include_paths,optional"`
}

// ESBuild represents the `esbuild` block.
type ESBuild struct {
	Target *string `hcl:"target,optional"`
}
