package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/beevik/etree"
	"github.com/ohler55/ojg/jp"
)

// ConfigError is raised during load; it is never a runtime concern of the
// request-handling core.
type ConfigError struct {
	Path    string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// Validate checks a parsed PluginConfig for malformed path templates,
// invalid JSONPath/XPath body matchers, and invalid nested capture
// declarations. All such problems must fail at load time, never at
// request time.
func Validate(cfg *PluginConfig) error {
	for i, res := range cfg.Resources {
		if res.Path == "" {
			return &ConfigError{Message: fmt.Sprintf("resource[%d]: path is required", i)}
		}
		if err := validatePathTemplate(res.Path); err != nil {
			return &ConfigError{Message: fmt.Sprintf("resource[%d]: %v", i, err)}
		}
		if res.Body != nil {
			if err := validateBodyMatcher(res.Body); err != nil {
				return &ConfigError{Message: fmt.Sprintf("resource[%d]: %v", i, err)}
			}
		}
		for j, cap := range res.Captures {
			if err := validateCapture(cap); err != nil {
				return &ConfigError{Message: fmt.Sprintf("resource[%d].captures[%d]: %v", i, j, err)}
			}
		}
	}
	return nil
}

// validatePathTemplate rejects templates with an unterminated or empty
// {name} segment.
func validatePathTemplate(path string) error {
	depth := 0
	var name strings.Builder
	for _, r := range path {
		switch r {
		case '{':
			if depth > 0 {
				return fmt.Errorf("nested '{' in path template %q", path)
			}
			depth++
			name.Reset()
		case '}':
			if depth == 0 {
				return fmt.Errorf("unmatched '}' in path template %q", path)
			}
			if name.Len() == 0 {
				return fmt.Errorf("empty path parameter name in template %q", path)
			}
			depth--
		default:
			if depth > 0 {
				name.WriteRune(r)
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("unterminated '{' in path template %q", path)
	}
	return nil
}

func validateBodyMatcher(m *BodyMatcher) error {
	set := 0
	if m.Equals != "" {
		set++
	}
	if m.JSONPath != "" {
		set++
		if _, err := jp.ParseString(m.JSONPath); err != nil {
			return fmt.Errorf("invalid JSONPath body matcher %q: %w", m.JSONPath, err)
		}
	}
	if m.XPath != "" {
		set++
		if _, err := etree.CompilePath(m.XPath); err != nil {
			return fmt.Errorf("invalid XPath body matcher %q: %w", m.XPath, err)
		}
	}
	if m.Regex != "" {
		set++
		if _, err := regexp.Compile(m.Regex); err != nil {
			return fmt.Errorf("invalid regex body matcher %q: %w", m.Regex, err)
		}
	}
	_ = set
	return nil
}

func validateCapture(c CaptureConfig) error {
	if c.Name == "" {
		return fmt.Errorf("capture name is required")
	}
	if c.JSONPath != "" {
		if _, err := jp.ParseString(c.JSONPath); err != nil {
			return fmt.Errorf("capture %q: invalid JSONPath %q: %w", c.Name, c.JSONPath, err)
		}
	}
	if c.Key != nil && c.Key.JSONPath != "" {
		if _, err := jp.ParseString(c.Key.JSONPath); err != nil {
			return fmt.Errorf("capture %q: invalid key JSONPath %q: %w", c.Name, c.Key.JSONPath, err)
		}
	}
	if c.Store != nil && c.Store.JSONPath != "" {
		if _, err := jp.ParseString(c.Store.JSONPath); err != nil {
			return fmt.Errorf("capture %q: invalid store JSONPath %q: %w", c.Name, c.Store.JSONPath, err)
		}
	}
	return nil
}
