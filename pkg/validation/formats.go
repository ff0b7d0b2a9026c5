package validation

import (
	"net"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"
)

// FormatFunc reports whether value conforms to a named string format
// (an OpenAPI "format" keyword, or a requestValidation field rule).
type FormatFunc func(value string) bool

// formatRegistry is the mutable set of named format checkers. It starts
// populated with the built-ins below; RegisterFormat adds to or
// overwrites entries at runtime, guarded by a mutex since validation
// can run concurrently across requests while a caller registers a
// format during startup.
type formatRegistry struct {
	mu    sync.RWMutex
	funcs map[string]FormatFunc
}

var formats = &formatRegistry{funcs: map[string]FormatFunc{
	"email":     isEmail,
	"uuid":      isUUID,
	"date":      isDate,
	"datetime":  isDateTime,
	"date-time": isDateTime,
	"uri":       isURI,
	"url":       isURI,
	"ipv4":      isIPv4,
	"ipv6":      isIPv6,
	"ip":        isIP,
	"hostname":  isHostname,
}}

func (r *formatRegistry) lookup(name string) (FormatFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.funcs[strings.ToLower(name)]
	return f, ok
}

func (r *formatRegistry) register(name string, fn FormatFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[strings.ToLower(name)] = fn
}

// ValidateFormat checks value against format. An unrecognized format
// name passes validation rather than failing it, since the format
// keyword is advisory in both OpenAPI and this project's field rules.
func ValidateFormat(format, value string) bool {
	fn, ok := formats.lookup(format)
	if !ok {
		return true
	}
	return fn(value)
}

// IsKnownFormat reports whether format has a registered checker.
func IsKnownFormat(format string) bool {
	_, ok := formats.lookup(format)
	return ok
}

// RegisterFormat installs fn as the checker for name, replacing any
// existing checker (built-in or previously registered) for that name.
func RegisterFormat(name string, fn FormatFunc) {
	formats.register(name, fn)
}

func isEmail(value string) bool {
	if _, err := mail.ParseAddress(value); err != nil {
		return false
	}
	at := strings.SplitN(value, "@", 2)
	return len(at) == 2 && strings.Contains(at[1], ".")
}

var uuidRE = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

func isUUID(value string) bool {
	return uuidRE.MatchString(value)
}

func isDate(value string) bool {
	_, err := time.Parse("2006-01-02", value)
	return err == nil
}

// dateTimeLayouts covers RFC 3339 plus the near-miss variants (missing
// timezone, space instead of "T") seen often enough in hand-written
// fixtures to be worth accepting.
var dateTimeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func isDateTime(value string) bool {
	for _, layout := range dateTimeLayouts {
		if _, err := time.Parse(layout, value); err == nil {
			return true
		}
	}
	return false
}

func isURI(value string) bool {
	u, err := url.Parse(value)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func isIPv4(value string) bool {
	ip := net.ParseIP(value)
	return ip != nil && ip.To4() != nil
}

func isIPv6(value string) bool {
	ip := net.ParseIP(value)
	return ip != nil && ip.To4() == nil
}

func isIP(value string) bool {
	return net.ParseIP(value) != nil
}

var hostnameRE = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

func isHostname(value string) bool {
	return len(value) <= 253 && hostnameRE.MatchString(value)
}

// formatGuesses is tried in order, most specific pattern first, so a
// UUID isn't misreported as a hostname and a bare IPv4 address isn't
// misreported as a date.
var formatGuesses = []struct {
	name  string
	check FormatFunc
}{
	{"uuid", isUUID},
	{"email", isEmail},
	{"ipv4", isIPv4},
	{"ipv6", isIPv6},
	{"date", isDate},
	{"datetime", isDateTime},
	{"uri", isURI},
}

// DetectFormat guesses which known format value conforms to, returning
// "" if none match. Validation itself does not call it.
func DetectFormat(value string) string {
	for _, g := range formatGuesses {
		if g.check(value) {
			return g.name
		}
	}
	if isHostname(value) && strings.Contains(value, ".") {
		return "hostname"
	}
	return ""
}
