// Package transform wraps single external file transformations (style
// compilation, bundling, minification, image optimisation, copying) behind
// one narrow contract, and provides the Invoker that applies a transformer
// to every file of a selector and writes the results under an output
// directory.
//
// The transformation algorithms themselves live in third-party libraries;
// this package only routes files in and out of them.
package transform
