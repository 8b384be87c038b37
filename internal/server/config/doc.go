// Package config defines the minidb server configuration.
//
// The configuration is loaded by internal/infra/confloader from, in
// increasing precedence: built-in defaults, MINIDB_ environment variables,
// a YAML file, and command line overrides. Struct tags name the koanf keys.
package config
