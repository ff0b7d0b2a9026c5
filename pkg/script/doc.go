// Package script runs per-resource expr-lang scripts that compute a
// response Behaviour dynamically, instead of the static behaviour a
// resource's response block describes.
//
// A script is an expr-lang expression evaluated against a request
// environment (path params, query, headers, body, captured store
// values) plus two injected helpers: response(), which starts a fluent
// Behaviour builder, and logger, a *slog.Logger scoped to the script.
// A script must evaluate to the *Behaviour produced by the builder's
// Respond method:
//
//	response().WithStatusCode(201).WithData(`{"ok":true}`).Respond()
//
// Compiled programs are cached by script path so repeated requests
// against the same resource do not pay expr's compile cost again.
package script
