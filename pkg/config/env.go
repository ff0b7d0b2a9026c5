package config

import (
	"os"
	"strconv"
	"strings"
)

// EnvResponseFileCacheEntries and EnvFeatures name the environment
// variables the core reads at startup, independent of any CLI flag.
const (
	EnvResponseFileCacheEntries = "IMPOSTER_RESPONSE_FILE_CACHE_ENTRIES"
	EnvFeatures                 = "IMPOSTER_FEATURES"
)

// DefaultResponseFileCacheEntries is IMPOSTER_RESPONSE_FILE_CACHE_ENTRIES's
// default when unset or unparseable.
const DefaultResponseFileCacheEntries = 20

// FeatureSet is a set of named boolean toggles parsed from
// IMPOSTER_FEATURES, a csv of name=bool pairs such as
// "metrics=true,stores=false". A name absent from the set falls back to
// the caller-supplied default via Enabled.
type FeatureSet map[string]bool

// ParseFeatures parses a csv of name=bool pairs. Malformed entries
// (missing "=", or a value strconv.ParseBool can't read) are skipped
// rather than failing the whole parse, so one typo doesn't take every
// feature toggle down with it.
func ParseFeatures(csv string) FeatureSet {
	set := FeatureSet{}
	for _, pair := range strings.Split(csv, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		enabled, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			continue
		}
		set[strings.TrimSpace(name)] = enabled
	}
	return set
}

// Enabled reports whether name was explicitly toggled, falling back to
// def when the set says nothing about it.
func (f FeatureSet) Enabled(name string, def bool) bool {
	if f == nil {
		return def
	}
	if v, ok := f[name]; ok {
		return v
	}
	return def
}

// RuntimeConfig holds the core's environment-sourced tunables, named in
// the environment variable table above. Call sites needing a
// deterministic value for tests build one directly instead of going
// through FromEnv.
type RuntimeConfig struct {
	// ResponseFileCacheEntries bounds the response-file LRU cache.
	ResponseFileCacheEntries int

	// Features holds the parsed IMPOSTER_FEATURES toggles.
	Features FeatureSet
}

// DefaultRuntimeConfig returns the tunables' documented defaults.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		ResponseFileCacheEntries: DefaultResponseFileCacheEntries,
		Features:                 FeatureSet{},
	}
}

// RuntimeConfigFromEnv reads IMPOSTER_RESPONSE_FILE_CACHE_ENTRIES and
// IMPOSTER_FEATURES from the process environment, falling back to
// DefaultRuntimeConfig's values for anything unset or unparseable.
func RuntimeConfigFromEnv() RuntimeConfig {
	cfg := DefaultRuntimeConfig()
	if v := os.Getenv(EnvResponseFileCacheEntries); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ResponseFileCacheEntries = n
		}
	}
	if v := os.Getenv(EnvFeatures); v != "" {
		cfg.Features = ParseFeatures(v)
	}
	return cfg
}
