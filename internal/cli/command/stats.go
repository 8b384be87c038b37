package command

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/minidb-go/internal/cli/output"
	"github.com/yndnr/minidb-go/internal/server/adminserver"
)

type statsView adminserver.Stats

func (s statsView) Table() *output.Table {
	t := &output.Table{Headers: []string{"FIELD", "VALUE"}}
	t.AddRow("state", s.State)
	t.AddRow("keys", strconv.Itoa(s.Keys))
	t.AddRow("connections", strconv.Itoa(s.Connections))
	t.AddRow("version", s.Build.Version)
	t.AddRow("go", s.Build.GoVersion)
	return t
}

// StatsCommand returns the stats command.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show server statistics from the admin endpoint",
		Action: func(c *cli.Context) error {
			flags := ParseGlobalFlags(c)
			base := flags.Admin
			if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
				base = "http://" + base
			}

			req, err := http.NewRequestWithContext(c.Context, http.MethodGet, base+"/v1/stats", nil)
			if err != nil {
				return fmt.Errorf("create request: %w", err)
			}
			resp, err := (&http.Client{Timeout: flags.Timeout}).Do(req)
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("stats: unexpected status %s", resp.Status)
			}

			var st statsView
			if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
				return fmt.Errorf("decode stats: %w", err)
			}
			return render(c, st, st)
		},
	}
}
