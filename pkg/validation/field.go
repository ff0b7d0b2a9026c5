package validation

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ValidateField checks value against validator's constraints, returning
// every violation found rather than stopping at the first. A nil
// validator is trivially valid; a nil value fails only when the
// validator is Required, or has a Type and is not Nullable.
func ValidateField(field, location string, value interface{}, validator *FieldValidator) *Result {
	result := &Result{Valid: true}
	if validator == nil {
		return result
	}

	if value == nil {
		switch {
		case validator.Required:
			result.AddError(NewRequiredError(field, location))
		case !validator.Nullable && validator.Type != "":
			result.AddError(NewTypeError(field, location, validator.Type, nil))
		}
		return result
	}

	if validator.Type != "" {
		typeResult := checkJSONType(field, location, value, validator.Type)
		result.Merge(typeResult)
		if !typeResult.Valid {
			return result
		}
	}

	switch v := value.(type) {
	case string:
		checkStringConstraints(field, location, v, validator, result)
	case float64:
		checkNumberConstraints(field, location, v, validator, result)
	case int:
		checkNumberConstraints(field, location, float64(v), validator, result)
	case int64:
		checkNumberConstraints(field, location, float64(v), validator, result)
	case bool:
		// no constraint beyond the type check above
	case []interface{}:
		checkArrayConstraints(field, location, v, validator, result)
	case map[string]interface{}:
		checkObjectConstraints(field, location, v, validator, result)
	}

	if len(validator.Enum) > 0 {
		checkEnumConstraint(field, location, value, validator.Enum, result)
	}

	return result
}

// jsonTypeOf classifies value the way encoding/json would have decoded
// it: numbers as "number" regardless of Go int/float kind, maps and
// structs both as "object".
func jsonTypeOf(value interface{}) string {
	if value == nil {
		return "null"
	}
	switch value.(type) {
	case string:
		return "string"
	case float64, int, int64, float32, int32:
		return "number"
	case bool:
		return "boolean"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	}

	switch reflect.ValueOf(value).Kind() {
	case reflect.String:
		return "string"
	case reflect.Float32, reflect.Float64, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	default:
		return "unknown"
	}
}

func checkJSONType(field, location string, value interface{}, expectedType string) *Result {
	result := &Result{Valid: true}
	expected := strings.ToLower(expectedType)
	actual := jsonTypeOf(value)

	if expected == "integer" {
		if actual != "number" {
			result.AddError(NewTypeError(field, location, expectedType, value))
			return result
		}
		if num, ok := value.(float64); ok && num != float64(int64(num)) {
			result.AddError(NewTypeError(field, location, "integer", value))
		}
		return result
	}

	if actual != expected {
		result.AddError(NewTypeError(field, location, expectedType, value))
	}
	return result
}

// checkStringConstraints applies length, pattern, and format rules.
// MinLength/MaxLength count runes, not bytes: a multi-byte character
// (an accented letter, a CJK glyph, an emoji) counts as one unit of
// length, matching how a client would describe "how long" a string is.
func checkStringConstraints(field, location string, value string, validator *FieldValidator, result *Result) {
	runeLen := utf8.RuneCountInString(value)

	if validator.MinLength != nil && runeLen < *validator.MinLength {
		result.AddError(NewMinLengthError(field, location, *validator.MinLength, runeLen))
	}
	if validator.MaxLength != nil && runeLen > *validator.MaxLength {
		result.AddError(NewMaxLengthError(field, location, *validator.MaxLength, runeLen))
	}

	if validator.Pattern != "" {
		if matched, err := regexp.MatchString(validator.Pattern, value); err != nil || !matched {
			fieldErr := NewPatternError(field, location, validator.Pattern, value)
			if validator.Message != "" {
				fieldErr.Message = validator.Message
			}
			result.AddError(fieldErr)
		}
	}

	if validator.Format != "" && !ValidateFormat(validator.Format, value) {
		fieldErr := NewFormatError(field, location, validator.Format, value)
		if validator.Message != "" {
			fieldErr.Message = validator.Message
		}
		result.AddError(fieldErr)
	}
}

func checkNumberConstraints(field, location string, value float64, validator *FieldValidator, result *Result) {
	if validator.Min != nil && value < *validator.Min {
		result.AddError(NewMinError(field, location, *validator.Min, value))
	}
	if validator.Max != nil && value > *validator.Max {
		result.AddError(NewMaxError(field, location, *validator.Max, value))
	}
	if validator.ExclusiveMin != nil && value <= *validator.ExclusiveMin {
		result.AddError(&FieldError{
			Field: field, Location: location, Code: ErrCodeExclusiveMin,
			Message:  fmt.Sprintf("must be > %v", *validator.ExclusiveMin),
			Received: value, Expected: fmt.Sprintf("> %v", *validator.ExclusiveMin),
		})
	}
	if validator.ExclusiveMax != nil && value >= *validator.ExclusiveMax {
		result.AddError(&FieldError{
			Field: field, Location: location, Code: ErrCodeExclusiveMax,
			Message:  fmt.Sprintf("must be < %v", *validator.ExclusiveMax),
			Received: value, Expected: fmt.Sprintf("< %v", *validator.ExclusiveMax),
		})
	}
}

func checkArrayConstraints(field, location string, value []interface{}, validator *FieldValidator, result *Result) {
	if validator.MinItems != nil && len(value) < *validator.MinItems {
		result.AddError(NewMinItemsError(field, location, *validator.MinItems, len(value)))
	}
	if validator.MaxItems != nil && len(value) > *validator.MaxItems {
		result.AddError(NewMaxItemsError(field, location, *validator.MaxItems, len(value)))
	}

	if validator.UniqueItems && len(value) > 1 {
		if dup, item := firstDuplicate(value); dup {
			result.AddError(NewUniqueItemsError(field, location, item))
		}
	}

	if validator.Items != nil {
		for i, item := range value {
			result.Merge(ValidateField(fmt.Sprintf("%s[%d]", field, i), location, item, validator.Items))
		}
	}
}

func firstDuplicate(items []interface{}) (bool, interface{}) {
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		key, _ := json.Marshal(item)
		if seen[string(key)] {
			return true, item
		}
		seen[string(key)] = true
	}
	return false, nil
}

func checkObjectConstraints(field, location string, value map[string]interface{}, validator *FieldValidator, result *Result) {
	for propName, propValidator := range validator.Properties {
		propField := propName
		if field != "" {
			propField = field + "." + propName
		}

		propValue, exists := value[propName]
		if !exists {
			if propValidator.Required {
				result.AddError(NewRequiredError(propField, location))
			}
			continue
		}
		result.Merge(ValidateField(propField, location, propValue, propValidator))
	}
}

func checkEnumConstraint(field, location string, value interface{}, enum []interface{}, result *Result) {
	for _, allowed := range enum {
		if valuesEqual(value, allowed) {
			return
		}
	}
	result.AddError(NewEnumError(field, location, enum, value))
}

// valuesEqual compares a and b for equality, coercing numeric types
// (an int from Go code against a float64 decoded from JSON) before
// falling back to a JSON-encoded structural comparison.
func valuesEqual(a, b interface{}) bool {
	if a == b {
		return true
	}
	if aNum, aOK := toFloat64(a); aOK {
		if bNum, bOK := toFloat64(b); bOK {
			return aNum == bNum
		}
	}
	aJSON, _ := json.Marshal(a)
	bJSON, _ := json.Marshal(b)
	return string(aJSON) == string(bJSON)
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// ValidateRequired checks that every name in required is present in data.
func ValidateRequired(location string, data map[string]interface{}, required []string) *Result {
	result := &Result{Valid: true}
	for _, field := range required {
		if _, exists := data[field]; !exists {
			result.AddError(NewRequiredError(field, location))
		}
	}
	return result
}

// ValidateFields runs every entry in fields against the matching key
// in data, merging results across all fields rather than stopping at
// the first failure.
func ValidateFields(location string, data map[string]interface{}, fields map[string]*FieldValidator) *Result {
	result := &Result{Valid: true}
	for name, validator := range fields {
		value, exists := data[name]
		if !exists {
			if validator.Required {
				result.AddError(NewRequiredError(name, location))
			}
			continue
		}
		result.Merge(ValidateField(name, location, value, validator))
	}
	return result
}

// ValidateMap runs validators against a string-keyed map, for path
// parameters, query parameters, and headers, none of which decode
// through encoding/json.
func ValidateMap(location string, data map[string]string, validators map[string]*FieldValidator) *Result {
	result := &Result{Valid: true}
	for name, validator := range validators {
		value, exists := data[name]
		if !exists {
			if validator.Required {
				result.AddError(NewRequiredError(name, location))
			}
			continue
		}
		result.Merge(ValidateField(name, location, value, validator))
	}
	return result
}
