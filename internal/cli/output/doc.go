// Package output renders minidb-cli results as a table, JSON or YAML.
package output
