// Package capture extracts values out of a request (or, for the
// response_sent phase, its eventual response) and writes them into a
// named store for later retrieval by other resources.
//
// A capture names exactly one source: a path parameter, a query
// parameter, a header, a JSONPath expression against the body, an
// expr-lang expression, or a constant. The extracted value is written
// under a key (the capture's Name, or another capture's result when
// Key is set) into a store (StoreName, or another capture's result
// when Store is set). Concurrent captures targeting the same store and
// key are last-write-wins; the one that finishes writing last is the
// value a later read observes.
package capture
