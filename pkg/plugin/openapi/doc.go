// Package openapi implements the OpenAPI-driven plugin: it parses an
// OpenAPI 3 document once at load time, synthesizes a ResourceConfig
// for every (path, method, status) operation that the document
// describes, and optionally validates inbound requests against the
// operation's declared schema before the matched resource runs.
package openapi
