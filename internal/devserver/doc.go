// Package devserver serves the build output during development and keeps
// connected browsers in sync with it.
//
// Two listeners are started. The static listener serves the output
// directory with caching disabled and injects a reload script into every
// HTML document. The reload listener hosts a socket.io endpoint, the script
// itself and a health check. The Hub broadcasts reload instructions to all
// connected browsers.
package devserver
