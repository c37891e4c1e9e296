package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

const (
	propertiesKey           = "properties"
	additionalPropertiesKey = "additionalProperties"
	typeKey                 = "type"
	requiredKey             = "required"
	itemsKey                = "items"
)

// generateJSONSchema reflects a Go type into a JSON Schema document suitable
// for strict structured outputs.
func generateJSONSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	reflected := reflector.Reflect(v)
	schemaObj, err := schemaToMap(reflected)
	if err != nil {
		panic(err)
	}
	ensureStrictCompliance(schemaObj)
	return schemaObj
}

func schemaToMap(s *jsonschema.Schema) (map[string]any, error) {
	b, err := s.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// ensureStrictCompliance rewrites a reflected schema in place to satisfy the
// backend's strict mode: every object closes additionalProperties and lists
// all of its properties as required, recursively.
func ensureStrictCompliance(s map[string]any) {
	if schemaType, ok := s[typeKey].(string); ok && schemaType == "object" {
		s[additionalPropertiesKey] = false

		if properties, ok := s[propertiesKey].(map[string]any); ok {
			var requiredFields []string
			for propName := range properties {
				requiredFields = append(requiredFields, propName)
			}
			if len(requiredFields) > 0 {
				s[requiredKey] = requiredFields
			}
		}
	}

	if properties, ok := s[propertiesKey].(map[string]any); ok {
		for _, prop := range properties {
			if propMap, ok := prop.(map[string]any); ok {
				ensureStrictCompliance(propMap)
			}
		}
	}

	if items, ok := s[itemsKey].(map[string]any); ok {
		ensureStrictCompliance(items)
	}

	if additionalProps, ok := s[additionalPropertiesKey].(map[string]any); ok {
		ensureStrictCompliance(additionalProps)
	}
}

// validateRequired checks a final document against the schema's required
// fields, recursively. The backend's strict mode is supposed to guarantee
// this; a violation must surface as a decode failure rather than a complete
// frame over a hollow object.
func validateRequired(s map[string]any, raw json.RawMessage) error {
	schemaType, _ := s[typeKey].(string)
	switch schemaType {
	case "object":
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return err
		}
		required, _ := s[requiredKey].([]string)
		for _, name := range required {
			if _, ok := fields[name]; !ok {
				return fmt.Errorf("missing required field %q", name)
			}
		}
		properties, _ := s[propertiesKey].(map[string]any)
		for name, prop := range properties {
			propSchema, ok := prop.(map[string]any)
			if !ok {
				continue
			}
			sub, ok := fields[name]
			if !ok {
				continue
			}
			if err := validateRequired(propSchema, sub); err != nil {
				return err
			}
		}
	case "array":
		items, ok := s[itemsKey].(map[string]any)
		if !ok {
			return nil
		}
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return err
		}
		for _, elem := range elems {
			if err := validateRequired(items, elem); err != nil {
				return err
			}
		}
	}
	return nil
}
