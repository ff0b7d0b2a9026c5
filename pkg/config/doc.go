// Package config parses declarative YAML/JSON configuration documents
// into the PluginConfig tree the request-handling core consumes, and
// discovers those documents across one or more directories.
//
// The core never sees raw files: DirectoryLoader.Load walks a directory,
// parses every .yaml/.yml/.json document with LoadFromFile, validates it
// (rejecting malformed path templates, invalid JSONPath/XPath body
// matchers, and invalid capture nesting at load time rather than at
// request time), and groups the results by plugin name. Per-file
// failures are collected as LoadErrors rather than aborting the load, so
// one malformed document does not take down an otherwise-valid directory.
//
// Watcher polls tracked files for modification-time changes and emits
// WatchEvents the caller can act on by reloading and swapping in a new
// PluginManager.
package config
