// Package plugin defines the pluggable strategy that supplies routes
// and per-request behaviour for one family of endpoints, and a
// registration table of named plugin factories populated once at
// startup and read thereafter.
package plugin
