// Package config defines the format-agnostic settings model for the
// application, its defaults and validation, along with the Loader interface
// implemented by concrete settings file formats.
//
// The HCL implementation lives in the hcl package.
package config
