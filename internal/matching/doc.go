// Package matching implements the resource matcher described by the
// configuration model in pkg/config: scoring-based selection of the
// single best resource for an incoming request.
//
// A resource qualifies only if every constraint it declares holds:
// method, path template (literal and {name} segments), required query
// parameters, required headers, and an optional body matcher (literal
// equality, JSONPath, XPath, or regex). Qualifying resources are ranked
// by specificity score, with declaration order breaking ties among
// resources that score equally. Score constants are defined in
// scores.go.
package matching
