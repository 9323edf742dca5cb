// Package hcl provides the concrete HCL implementation of config.Loader.
// It parses a pipeline file, evaluates it with an `env` variable holding the
// process environment, and overlays the result on the default model.
package hcl
