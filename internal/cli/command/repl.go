package command

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/minidb-go/internal/cli/repl"
)

// ReplCommand returns the interactive session command.
func ReplCommand() *cli.Command {
	return &cli.Command{
		Name:  "repl",
		Usage: "Start an interactive session",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "history",
				Usage: "history file (empty disables)",
				Value: repl.DefaultHistoryFile(),
			},
		},
		Action: func(c *cli.Context) error {
			cl, err := connect(c)
			if err != nil {
				return err
			}
			defer cl.Close()

			history := repl.NewHistory(c.String("history"))
			if err := history.Load(); err != nil {
				return err
			}
			defer history.Save()

			in := c.App.Reader
			if in == nil {
				in = os.Stdin
			}
			return repl.New(in, c.App.Writer, func(line string) (string, error) {
				r, err := cl.Do(line)
				if err != nil {
					return "", err
				}
				return r.String(), nil
			}, history).Run()
		},
	}
}
