// Package response renders a resolved response body and simulates the
// configured latency before a matched resource's behaviour is
// transmitted back to the caller.
//
// Rendering resolves exactly one content source (an inline data
// string, a file on disk, or a named OpenAPI example), runs it through
// the template engine when the resource marks it as a template, and
// fills in headers and a content type. Templated file content is cached
// by resolved path so repeated requests against the same response file
// do not re-read it from disk; concurrent misses against the same
// path are coalesced so only one goroutine touches the filesystem.
// Non-templated files bypass the cache and are read on every request.
package response
