// Package hooks lets embedders observe and extend request handling
// without forking the engine: a listener sees the runtime context
// before it is built, the script result after it runs, and the
// template string just before it is transmitted.
package hooks
