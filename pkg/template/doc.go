// Package template provides response body templating for mock responses.
// It supports variable substitution like {{now}}, {{uuid}}, {{request.body.field}}.
//
// # Built-in Variables
//
// Time-related:
//   - {{now}} - Current time in RFC3339 format
//   - {{timestamp}} - Current Unix timestamp
//
// Random values:
//   - {{uuid}} - Random UUID v4
//   - {{random}} - Random 8-character hex string
//   - {{random.string}} - Random 10-character alphanumeric string
//   - {{random.string(N)}} - Random N-character alphanumeric string
//   - {{random.int}} - Random integer 0-100
//   - {{random.int(min, max)}} - Random integer in range [min, max]
//   - {{random.float}} - Random float 0.0-1.0
//   - {{random.float(min, max)}} - Random float in range
//   - {{random.float(min, max, precision)}} - Random float with decimal precision
//
// # Request Variables
//
// Access request data with the {{request.*}} prefix:
//   - {{request.method}} - HTTP method
//   - {{request.path}} - Request path
//   - {{request.url}} - Full request URL
//   - {{request.rawBody}} - Raw request body
//   - {{request.body.field}} - Parsed JSON body field
//   - {{request.query.param}} - Query parameter value
//   - {{request.header.name}} - Request header value
//   - {{request.pathParam.name}} - Path parameter value
//
// # Functions
//
// Transform or provide fallback values:
//   - {{upper(value)}} or {{upper value}} - Convert to uppercase
//   - {{lower(value)}} or {{lower value}} - Convert to lowercase
//   - {{default(value, "fallback")}} or {{default value "fallback"}} - Use fallback if value is empty
//
// The default function resolves its first argument as a context path
// (request.*, uuid, now, timestamp, etc.) and returns the fallback string
// if the resolved value is empty.
//
// # Sequences
//
// Auto-incrementing counters:
//   - {{sequence("name")}} - Auto-incrementing counter starting at 1
//   - {{sequence("name", start)}} - Auto-incrementing counter starting at start
//
// Each named sequence is independent and persists for the lifetime of the
// engine instance.
//
// The response package's Renderer holds an Engine in its Templates field
// (see pkg/response): a templated response's body passes through Process
// before transmission.
package template
