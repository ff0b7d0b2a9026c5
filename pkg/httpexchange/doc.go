// Package httpexchange abstracts the request/response transport the
// engine runs against behind a small interface, and provides the one
// concrete net/http adapter (Exchange). The matching and capture
// packages still read *http.Request directly.
package httpexchange
