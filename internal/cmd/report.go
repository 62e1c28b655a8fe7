package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ryhazerus/throttle/store"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "List the usage tallies stored in a ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := viper.GetString("ledger")
		if path == "" {
			return fmt.Errorf("--ledger is required")
		}

		s, err := store.NewSQLiteStore(path)
		if err != nil {
			return err
		}
		defer s.Close() // nolint:errcheck // best-effort cleanup

		entries, err := s.List(cmd.Context())
		if err != nil {
			return err
		}
		renderReport(cmd.OutOrStdout(), entries)
		return nil
	},
}

func renderReport(w io.Writer, entries []store.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "(no usage recorded)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Limiter", "Outcome", "Bucket", "Calls"})

	var total int64
	for _, e := range entries {
		name, outcome := splitLedgerKey(e.Key)
		t.AppendRow(table.Row{name, outcome, e.Bucket.Key, e.Count})
		total += e.Count
	}
	t.AppendFooter(table.Row{"", "", "Total", total})
	t.Render()
}

// splitLedgerKey separates "<limiter>/<outcome>" keys.
func splitLedgerKey(key string) (name, outcome string) {
	i := strings.LastIndex(key, "/")
	if i < 0 {
		return key, ""
	}
	return key[:i], key[i+1:]
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
