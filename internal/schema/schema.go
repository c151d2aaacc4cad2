// Package schema implements the small JSON-Schema subset used to describe
// form inputs. It is intentionally not a general-purpose JSON-Schema engine:
// forms declare a flat object with string/number/boolean properties, an
// optional enum per property, a required list, and an additionalProperties
// flag. Nothing else is supported.
package schema

import (
	"fmt"
	"sort"
	"strings"
)

// PropertyType is the closed set of supported property types.
type PropertyType string

const (
	TypeString  PropertyType = "string"
	TypeNumber  PropertyType = "number"
	TypeInteger PropertyType = "integer"
	TypeBoolean PropertyType = "boolean"
)

// Property describes a single named input field.
type Property struct {
	Type        PropertyType `json:"type"`
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Enum        []string     `json:"enum,omitempty"`
	EnumNames   []string     `json:"enumNames,omitempty"`
	Default     any          `json:"default,omitempty"`
	Format      string       `json:"format,omitempty"`
}

// Schema describes the expected response object for a form.
type Schema struct {
	Type       string              `json:"type"`
	Required   []string            `json:"required,omitempty"`
	Properties map[string]Property `json:"properties"`

	// AdditionalProperties follows JSON-Schema semantics: only an explicit
	// false rejects undeclared response keys.
	AdditionalProperties *bool `json:"additionalProperties,omitempty"`
}

// ValidationError aggregates every violation found in a single validation
// pass. The message always starts with "Validation failed" and names each
// offending field, so clients can locate problems by substring.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "Validation failed: " + strings.Join(e.Violations, "; ")
}

// Validate checks a candidate response against the schema. It does not
// fail fast: all violations are collected and returned together in one
// *ValidationError. The caller is responsible for rejecting non-object
// responses before calling Validate.
func (s Schema) Validate(response map[string]any) error {
	var violations []string

	for _, name := range s.Required {
		if _, ok := response[name]; !ok {
			violations = append(violations, fmt.Sprintf("missing required field %q", name))
		}
	}

	// Sorted for deterministic messages; Go map order is randomized.
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value, ok := response[name]
		if !ok {
			continue
		}
		prop := s.Properties[name]
		if v := checkValue(name, prop, value); v != "" {
			violations = append(violations, v)
		}
	}

	if s.AdditionalProperties != nil && !*s.AdditionalProperties {
		extras := make([]string, 0)
		for key := range response {
			if _, declared := s.Properties[key]; !declared {
				extras = append(extras, key)
			}
		}
		sort.Strings(extras)
		for _, key := range extras {
			violations = append(violations, fmt.Sprintf("unexpected field %q is not allowed", key))
		}
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// checkValue validates one supplied value against its declared property.
// Returns an empty string when the value is acceptable.
func checkValue(name string, prop Property, value any) string {
	switch prop.Type {
	case TypeString:
		str, ok := value.(string)
		if !ok {
			return fmt.Sprintf("field %q must be a string", name)
		}
		if len(prop.Enum) > 0 && !contains(prop.Enum, str) {
			return fmt.Sprintf("field %q must be one of: %s", name, strings.Join(prop.Enum, ", "))
		}
	case TypeNumber, TypeInteger:
		// JSON numbers decode to float64; accept native Go numerics too so
		// callers can build responses directly.
		switch value.(type) {
		case float64, float32, int, int32, int64:
		default:
			return fmt.Sprintf("field %q must be a number", name)
		}
	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Sprintf("field %q must be a boolean", name)
		}
	}
	return ""
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
