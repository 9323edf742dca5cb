// Package fsutil provides file system utility functions, most notably the
// glob-based file-set Selector that decides which source files a transform
// reads and which change events a watch binding reacts to.
//
// Patterns are slash-separated and relative to a root directory. A leading
// "!" turns a pattern into an exclusion, "**" spans any number of directories
// (including none) and "{a,b}" alternates. Every positive pattern has a
// static base directory, the part before its first wildcard segment, and
// outputs keep their path relative to that base.
package fsutil
