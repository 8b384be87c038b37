// Package command defines the minidb-cli commands with urfave/cli/v2.
//
//   - post, get, delete: typed key operations
//   - raw: send an arbitrary command line
//   - check: run the acceptance scenarios
//   - repl: interactive session
//   - stats: query the admin endpoint
package command
