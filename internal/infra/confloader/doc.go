// Package confloader loads minidb configuration with koanf.
//
// Sources, lowest precedence first:
//
//  1. Values already present in the target struct (defaults)
//  2. Environment variables (MINIDB_ prefix, "__" between levels)
//  3. A YAML configuration file
//  4. Override maps, used for command line flags
//
// Watcher reports changes to the configuration file so callers can apply
// settings that are safe to change at runtime.
package confloader
