// Package task defines Task, the named unit of build work, and the two
// combinators used to compose tasks into an execution graph.
//
// A graph is a static tree: Series nodes run their children strictly in
// order and stop at the first failure, Parallel nodes start every child at
// once and fail, after all of them settled, with the joined errors of the
// branches that failed. Starting any task returns a Future; composites
// await their children's futures rather than threading callbacks.
//
// Tasks are never cancelled once started. The context passed to Start only
// stops a Series from starting further children, and carries the logger.
package task
