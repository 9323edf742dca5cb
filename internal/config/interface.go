package config

import "context"

// Loader is the interface for a format-specific pipeline file loader.
type Loader interface {
	// Load reads the pipeline file at path and overlays it on top of the
	// defaults.
	Load(ctx context.Context, path string) (*Model, error)
}
