// Package app wires a pipeline configuration, the task registry and its
// modules into a runnable App, and runs one named command to completion or,
// for serve and watch, until the context is canceled.
package app
