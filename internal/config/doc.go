// Package config defines the format-agnostic model of a pipeline: where the
// sources live, where outputs go, which paths the watcher observes and how
// the dev server listens. Defaults reproduce the conventional project
// layout, so a project without a pipeline file builds as expected.
//
// Concrete file formats, such as HCL, are implemented in separate packages
// behind the Loader interface.
package config
