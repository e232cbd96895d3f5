package tools

import "github.com/google/jsonschema-go/jsonschema"

// Schema building helpers for adapters that declare constraints as literals.
// The jsonschema package models optional bounds as pointers; these keep the
// declarations readable.

// FloatPtr returns a pointer to v, for Minimum/Maximum bounds.
func FloatPtr(v float64) *float64 { return &v }

// IntPtr returns a pointer to v, for MinLength/MaxLength bounds.
func IntPtr(v int) *int { return &v }

// ObjectSchema builds an object schema from named property schemas.
// Unknown fields are rejected: the parameter bag is a closed contract.
func ObjectSchema(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:                 "object",
		Properties:           props,
		Required:             required,
		AdditionalProperties: &jsonschema.Schema{Not: &jsonschema.Schema{}},
	}
}
