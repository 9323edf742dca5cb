package transform

import "context"

// Copy passes files through unchanged.
type Copy struct{}

// Name implements Transformer.
func (Copy) Name() string { return "copy" }

// Transform implements Transformer.
func (Copy) Transform(_ context.Context, in *File) ([]*File, error) {
	return []*File{{Rel: in.Rel, Contents: in.Contents}}, nil
}
