package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/minidb-go/internal/cli/output"
	"github.com/yndnr/minidb-go/internal/client"
)

type checkReport []client.StepResult

func (r checkReport) Table() *output.Table {
	t := &output.Table{Headers: []string{"SCENARIO", "COMMAND", "WANT", "GOT", "RESULT"}}
	for _, s := range r {
		result := "pass"
		got := s.Got
		if !s.Passed {
			result = "FAIL"
		}
		if s.Error != "" {
			got = s.Error
		}
		t.AddRow(s.Scenario, s.Command, s.Want, got, result)
	}
	return t
}

// CheckCommand returns the check command. It writes to the live store,
// touching keys A, B and X.
func CheckCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Run the persistent and separate connection scenarios",
		Action: func(c *cli.Context) error {
			flags := ParseGlobalFlags(c)
			results, err := client.Check(c.Context, flags.Addr, client.WithTimeout(flags.Timeout))
			if rerr := render(c, checkReport(results), results); rerr != nil {
				return rerr
			}
			return err
		},
	}
}
