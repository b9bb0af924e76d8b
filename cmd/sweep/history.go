package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	core "github.com/3cpo-dev/sweep/internal/core"
)

// List past runs, or the hosts of one run
func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recently dispatched runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			cfg, err := core.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			store, err := core.NewStore(cfg.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer w.Flush()

			if len(args) == 1 {
				var id int64
				if _, err := fmt.Sscan(args[0], &id); err != nil {
					return fmt.Errorf("invalid run id %q", args[0])
				}
				hosts, err := store.RunHosts(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "HOST\tEXIT\tOUTPUT")
				for _, h := range hosts {
					code := "-"
					if h.ExitCode != nil {
						code = fmt.Sprint(*h.ExitCode)
					}
					fmt.Fprintf(w, "%s\t%s\t%s\n", h.Host, code, humanize.Bytes(uint64(len(h.Output))))
				}
				return nil
			}

			limit, _ := cmd.Flags().GetInt("limit")
			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "ID\tWHEN\tHOSTS\tSTATUS\tBACKEND\tTOOK\tCOMMAND")
			for _, r := range runs {
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\t%s\n",
					r.ID, humanize.Time(r.StartedAt), r.HostCount, r.Status, r.Backend,
					r.Duration.Round(time.Millisecond), truncate(r.Command, 60))
			}
			return nil
		},
	}
	cmd.Flags().IntP("limit", "n", 20, "number of runs to show")
	return cmd
}

// truncate shortens s to at most n runes on one line.
func truncate(s string, n int) string {
	r := []rune(strings.ReplaceAll(s, "\n", " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-3]) + "..."
}
