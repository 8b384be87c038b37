package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/minidb-go/internal/cli/output"
	"github.com/yndnr/minidb-go/internal/client"
	"github.com/yndnr/minidb-go/internal/infra/buildinfo"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "minidb-cli",
		Usage:   "minidb line-protocol client",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			PostCommand(),
			GetCommand(),
			DeleteCommand(),
			RawCommand(),
			CheckCommand(),
			ReplCommand(),
			StatsCommand(),
		},
		Before: func(c *cli.Context) error {
			_, err := output.ParseFormat(c.String("output"))
			return err
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "addr",
			Aliases: []string{"a"},
			Usage:   "server address (host:port)",
			EnvVars: []string{"MINIDB_ADDR"},
			Value:   "127.0.0.1:1111",
		},
		&cli.StringFlag{
			Name:    "admin",
			Usage:   "admin HTTP address (host:port) for stats",
			EnvVars: []string{"MINIDB_ADMIN_ADDR"},
			Value:   "127.0.0.1:1112",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: table, json, yaml",
			Value:   string(output.FormatTable),
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "per-request timeout",
			Value: client.DefaultTimeout,
		},
	}
}

// GlobalFlags holds the flags available to all commands.
type GlobalFlags struct {
	Addr    string
	Admin   string
	Output  output.Format
	Timeout time.Duration
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) GlobalFlags {
	format, _ := output.ParseFormat(c.String("output"))
	return GlobalFlags{
		Addr:    c.String("addr"),
		Admin:   c.String("admin"),
		Output:  format,
		Timeout: c.Duration("timeout"),
	}
}

// connect dials the server named by the global flags.
func connect(c *cli.Context) (*client.Client, error) {
	flags := ParseGlobalFlags(c)
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if flags.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flags.Timeout)
		defer cancel()
	}
	return client.Dial(ctx, flags.Addr, client.WithTimeout(flags.Timeout))
}

// render writes plain in table mode and structured otherwise.
func render(c *cli.Context, plain any, structured any) error {
	format := ParseGlobalFlags(c).Output
	if format == output.FormatTable {
		return output.NewFormatter(format).Format(c.App.Writer, plain)
	}
	return output.NewFormatter(format).Format(c.App.Writer, structured)
}

func requireArgs(c *cli.Context, n int, usage string) error {
	if c.NArg() != n {
		return fmt.Errorf("usage: %s %s", c.Command.Name, usage)
	}
	return nil
}
