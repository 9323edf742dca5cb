// Package registry provides the central "glue" for the module system.
//
// The Registry maps the string names used on the command line (e.g. "styles",
// "build") to the task trees that implement them. Modules populate it during
// startup; leaf tasks are registered under a name and commands are registered
// as builders that compose those tasks once every module has registered.
//
// After population the registry is validated, so a command that refers to a
// missing task or forms a cycle fails at startup rather than mid-build.
package registry
