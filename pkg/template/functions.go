package template

import (
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Time functions

func funcNow() string {
	return time.Now().Format(time.RFC3339)
}

func funcNowUnix() string {
	return strconv.FormatInt(time.Now().Unix(), 10)
}

func funcNowISO() string {
	return time.Now().Format("2006-01-02T15:04:05Z07:00")
}

func funcNowUnixMilli() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

// UUID functions

// funcUUID generates a random (version 4) UUID.
func funcUUID() string {
	return uuid.NewString()
}

// funcUUIDShort returns the first 8 hex characters of a UUID v4, handy
// for a short-lived correlation id in fixture data.
func funcUUIDShort() string {
	id := funcUUID()
	return strings.ReplaceAll(id, "-", "")[:8]
}

// Random functions

// funcRandomInt returns a random integer in [min, max] as a string.
func funcRandomInt(min, max int) string {
	if min > max {
		return ""
	}
	return strconv.Itoa(rand.Intn(max-min+1) + min)
}

// funcRandomFloat returns a random float in [0, 1) as a string.
func funcRandomFloat() string {
	return strconv.FormatFloat(rand.Float64(), 'f', 6, 64)
}

// funcRandomFloatRange returns a random float in [min, max] formatted with
// the given precision (number of decimal places). minStr/maxStr/precision
// are parsed leniently; a malformed argument falls back to a zero value
// rather than failing the whole template expression.
func funcRandomFloatRange(minStr, maxStr, precisionStr string) string {
	min, _ := strconv.ParseFloat(minStr, 64)
	max, _ := strconv.ParseFloat(maxStr, 64)
	precision := 2
	if precisionStr != "" {
		if p, err := strconv.Atoi(precisionStr); err == nil {
			precision = p
		}
	}
	if min > max {
		min, max = max, min
	}
	val := min + rand.Float64()*(max-min)
	return strconv.FormatFloat(val, 'f', precision, 64)
}

// funcRandomString returns a random alphanumeric string of the given length.
func funcRandomString(length int) string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	if length <= 0 {
		return ""
	}
	b := make([]byte, length)
	for i := range b {
		b[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(b)
}

// String functions

func funcUpper(s string) string { return strings.ToUpper(s) }
func funcLower(s string) string { return strings.ToLower(s) }
func funcTrim(s string) string  { return strings.TrimSpace(s) }
func funcLen(s string) string   { return strconv.Itoa(len(s)) }

// funcDefault returns value if non-empty, otherwise fallback.
func funcDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
