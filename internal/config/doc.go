// Package config handles configuration loading, parsing, and validation.
// Settings come from an optional config.yaml and MODAPI_* environment
// variables, and are validated with struct tags before use.
package config
