// Package watch implements the watch/reload loop used by the `watch` and
// `serve` commands.
//
// A Loop owns one fsnotify watcher covering the static base directories of
// every Binding. Each change is routed to the bindings whose selector
// matches it. Every binding is an independent state machine running in its
// own goroutine:
//
//	idle -> running -> reloading -> idle
//
// Changes are debounced per binding, and changes that arrive while the
// binding's task is running are coalesced into a single follow-up run. A
// failed run is logged and the binding returns to idle without reloading.
package watch
