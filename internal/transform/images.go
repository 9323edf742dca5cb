package transform

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"path"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/tdewolff/minify/v2"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// rasterExts lists the extensions the registered image decoders understand.
var rasterExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// ImageOptimize losslessly shrinks images: PNGs are re-encoded with the
// best compression level and SVGs are minified. The smaller of the original
// and the optimised bytes is kept; other files are copied as they are.
type ImageOptimize struct {
	m *minify.M
}

// NewImageOptimize returns an image optimiser.
func NewImageOptimize() *ImageOptimize {
	return &ImageOptimize{m: newMinifier()}
}

// Name implements Transformer.
func (o *ImageOptimize) Name() string { return "imagemin" }

// Transform implements Transformer.
func (o *ImageOptimize) Transform(_ context.Context, in *File) ([]*File, error) {
	var optimized []byte
	switch strings.ToLower(path.Ext(in.Rel)) {
	case ".png":
		img, err := png.Decode(bytes.NewReader(in.Contents))
		if err != nil {
			return nil, fmt.Errorf("decoding png: %w", err)
		}
		var buf bytes.Buffer
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encoding png: %w", err)
		}
		optimized = buf.Bytes()
	case ".svg":
		out, err := o.m.Bytes("image/svg+xml", in.Contents)
		if err != nil {
			return nil, fmt.Errorf("minifying svg: %w", err)
		}
		optimized = out
	}

	contents := in.Contents
	if optimized != nil && len(optimized) < len(contents) {
		contents = optimized
	}
	return []*File{{Rel: in.Rel, Contents: contents}}, nil
}

// WebP renders raster images as lossless WebP files. Non-raster inputs,
// such as SVG or ICO files, produce no output.
type WebP struct{}

// Name implements Transformer.
func (WebP) Name() string { return "webp" }

// Transform implements Transformer.
func (WebP) Transform(_ context.Context, in *File) ([]*File, error) {
	if !rasterExts[strings.ToLower(path.Ext(in.Rel))] {
		return nil, nil
	}
	img, format, err := image.Decode(bytes.NewReader(in.Contents))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	var buf bytes.Buffer
	if err := nativewebp.Encode(&buf, img, nil); err != nil {
		return nil, fmt.Errorf("encoding %s as webp: %w", format, err)
	}
	return []*File{{Rel: replaceExt(in.Rel, ".webp"), Contents: buf.Bytes()}}, nil
}
