package openapi

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/ashgrove/mimic/pkg/config"
)

// synthesizeResources builds one config.ResourceConfig per declared
// response status of every operation in doc, in deterministic
// (path, method, status) order so repeated loads produce the same
// declaration order for the matcher's tie-break rule.
//
// Each resource's response names a synthesized example through
// ExampleName; the plugin resolves that name back to a body via its
// examples map when the response service renders it.
func synthesizeResources(doc *openapi3.T) ([]config.ResourceConfig, map[string]string) {
	var resources []config.ResourceConfig
	examples := make(map[string]string)

	paths := doc.Paths.Map()
	sortedPaths := make([]string, 0, len(paths))
	for p := range paths {
		sortedPaths = append(sortedPaths, p)
	}
	sort.Strings(sortedPaths)

	for _, path := range sortedPaths {
		item := paths[path]
		operations := item.Operations()

		methods := make([]string, 0, len(operations))
		for m := range operations {
			methods = append(methods, m)
		}
		sort.Strings(methods)

		for _, method := range methods {
			op := operations[method]
			if op.Responses == nil {
				continue
			}
			statuses := op.Responses.Map()
			codes := make([]string, 0, len(statuses))
			for code := range statuses {
				codes = append(codes, code)
			}
			sort.Strings(codes)

			for _, code := range codes {
				responseRef := statuses[code]
				if responseRef == nil || responseRef.Value == nil {
					continue
				}
				statusCode := statusCodeFor(code)
				exampleName := exampleName(op.OperationID, path, method, code)
				body, contentType := exampleBody(responseRef.Value)
				examples[exampleName] = body

				resources = append(resources, config.ResourceConfig{
					Method: method,
					Path:   openAPIPathToTemplate(path),
					Response: config.ResponseConfig{
						StatusCode:  statusCode,
						ExampleName: exampleName,
						ContentType: contentType,
					},
				})
			}
		}
	}

	return resources, examples
}

// openAPIPathToTemplate converts an OpenAPI path to the matcher's path
// template syntax. OpenAPI already uses {name} for path parameters, so
// this is the identity transform; it exists so a future divergence in
// either syntax has one place to adapt.
func openAPIPathToTemplate(path string) string {
	return path
}

func statusCodeFor(code string) int {
	if code == "default" {
		return 200
	}
	n, err := strconv.Atoi(code)
	if err != nil {
		return 200
	}
	return n
}

func exampleName(operationID, path, method, code string) string {
	if operationID != "" {
		return fmt.Sprintf("%s.%s", operationID, code)
	}
	return fmt.Sprintf("%s.%s.%s", strings.ToLower(method), path, code)
}

// exampleBody picks the first declared example from resp's content, or
// synthesizes one from its schema when no example is declared.
func exampleBody(resp *openapi3.Response) (string, string) {
	content := resp.Content
	mediaTypes := make([]string, 0, len(content))
	for mt := range content {
		mediaTypes = append(mediaTypes, mt)
	}
	sort.Strings(mediaTypes)

	for _, mt := range mediaTypes {
		media := content[mt]
		if media.Example != nil {
			return marshalExample(media.Example), mt
		}
		if len(media.Examples) > 0 {
			names := make([]string, 0, len(media.Examples))
			for name := range media.Examples {
				names = append(names, name)
			}
			sort.Strings(names)
			first := media.Examples[names[0]]
			if first != nil && first.Value != nil {
				return marshalExample(first.Value.Value), mt
			}
		}
		if media.Schema != nil && media.Schema.Value != nil {
			return marshalExample(synthesizeFromSchema(media.Schema.Value, 0)), mt
		}
	}
	return "", ""
}

func marshalExample(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// synthesizeFromSchema produces a minimal, schema-shaped placeholder
// value: property names and types are honoured, actual values are not
// meaningful. depth guards against self-referential schemas.
func synthesizeFromSchema(schema *openapi3.Schema, depth int) interface{} {
	if schema == nil || depth > 8 {
		return nil
	}
	if schema.Example != nil {
		return schema.Example
	}
	if len(schema.Enum) > 0 {
		return schema.Enum[0]
	}

	types := schema.Type
	switch {
	case types.Is("object") || (types == nil && len(schema.Properties) > 0):
		obj := make(map[string]interface{}, len(schema.Properties))
		names := make([]string, 0, len(schema.Properties))
		for name := range schema.Properties {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			prop := schema.Properties[name]
			if prop != nil && prop.Value != nil {
				obj[name] = synthesizeFromSchema(prop.Value, depth+1)
			}
		}
		return obj
	case types.Is("array"):
		if schema.Items != nil && schema.Items.Value != nil {
			return []interface{}{synthesizeFromSchema(schema.Items.Value, depth+1)}
		}
		return []interface{}{}
	case types.Is("integer"):
		return 0
	case types.Is("number"):
		return 0.0
	case types.Is("boolean"):
		return false
	case types.Is("string"):
		return "string"
	default:
		return nil
	}
}
