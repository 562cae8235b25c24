// Package hcl provides the concrete HCL implementation of config.Loader. It
// parses parasheet.hcl and overlays the attributes it finds onto the
// built-in settings.
package hcl
