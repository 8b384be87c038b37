package command

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/minidb-go/internal/client"
	"github.com/yndnr/minidb-go/internal/core/domain"
)

// replyView is the structured form of a reply.
type replyView struct {
	Command string `json:"command" yaml:"command"`
	Status  int    `json:"status" yaml:"status"`
	Value   string `json:"value,omitempty" yaml:"value,omitempty"`
}

// PostCommand returns the post command.
func PostCommand() *cli.Command {
	return &cli.Command{
		Name:      "post",
		Usage:     "Store a value",
		ArgsUsage: "KEY VALUE",
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 2, "KEY VALUE"); err != nil {
				return err
			}
			return typedCommand(c, "POST", c.Args().Get(0), c.Args().Get(1))
		},
	}
}

// GetCommand returns the get command.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Fetch a value",
		ArgsUsage: "KEY",
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 1, "KEY"); err != nil {
				return err
			}
			return typedCommand(c, "GET", c.Args().Get(0))
		},
	}
}

// DeleteCommand returns the delete command.
func DeleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"del"},
		Usage:     "Remove a key",
		ArgsUsage: "KEY",
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 1, "KEY"); err != nil {
				return err
			}
			return typedCommand(c, "DELETE", c.Args().Get(0))
		},
	}
}

// RawCommand returns the raw command, which sends its arguments joined by
// spaces as one line.
func RawCommand() *cli.Command {
	return &cli.Command{
		Name:      "raw",
		Usage:     "Send a raw command line",
		ArgsUsage: "WORD...",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("usage: raw WORD...")
			}
			_, err := send(c, strings.Join(c.Args().Slice(), " "))
			return err
		},
	}
}

func typedCommand(c *cli.Context, verb string, tokens ...string) error {
	for _, tok := range tokens {
		if !domain.ValidToken(tok) {
			return client.ErrInvalidToken
		}
	}
	r, err := send(c, verb+" "+strings.Join(tokens, " "))
	if err != nil {
		return err
	}
	switch r.Status {
	case domain.StatusOK:
		return nil
	case domain.StatusNotFound:
		return fmt.Errorf("%s: %w", tokens[0], domain.ErrKeyNotFound)
	default:
		return domain.ErrUnknownCommand
	}
}

// send issues line and prints the reply.
func send(c *cli.Context, line string) (client.Reply, error) {
	cl, err := connect(c)
	if err != nil {
		return client.Reply{}, err
	}
	defer cl.Close()

	r, err := cl.Do(line)
	if err != nil {
		return client.Reply{}, err
	}
	view := replyView{Command: line, Status: int(r.Status), Value: r.Value}
	return r, render(c, r.String(), view)
}
