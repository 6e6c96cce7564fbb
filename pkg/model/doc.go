// Package model defines the declarative form definition shared by the store,
// validator, step controller and submission gateway. A Definition lists its
// fields once and groups them into ordered Steps; Values carry the user's
// answers as a flat record keyed by field name and Errors carry the first
// failing validation message per field.
//
// Rules use canonical identifiers (RuleMinLength, RulePattern, ...) with
// string parameters so definitions stay stable when serialised to YAML or
// JSON. Conditional requirements reference sibling fields through the
// expression syntax understood by package condition.
package model
