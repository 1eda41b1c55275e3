package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gatelock/gatelock/internal/config"
)

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List unlock records in the configured store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, nil)
			if err != nil {
				return err
			}

			inspector, closeStore, err := openInspector(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStore() //nolint:errcheck // best-effort close on exit

			records, err := inspector.Records(cmd.Context())
			if err != nil {
				return err
			}

			if len(records) == 0 {
				cmd.Println("no unlock records")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tUNLOCKED AT")
			for _, r := range records {
				when := "-"
				if !r.UnlockedAt.IsZero() {
					when = r.UnlockedAt.Format("2006-01-02 15:04:05")
				}
				fmt.Fprintf(w, "%s\t%s\n", r.Key, when)
			}
			return w.Flush()
		},
	}
}
