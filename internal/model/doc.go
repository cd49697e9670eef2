// Package model compiles the definitions of a spec into typed models that
// can build and check instances at run time.
//
// Every definition becomes a Model. Object definitions are made of Fields,
// each with a Kind derived from the schema's type and format plus the
// constraints that apply to it (sizes, bounds, patterns, enums). Model.New
// instantiates a model from plain values, filling defaults and rejecting
// anything the definition does not allow. Violations are reported as
// *FieldError values naming the model and the offending field.
package model
