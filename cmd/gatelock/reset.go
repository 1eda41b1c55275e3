package main

import (
	"github.com/spf13/cobra"

	"github.com/gatelock/gatelock/internal/config"
	"github.com/gatelock/gatelock/internal/locker"
)

// NewResetCmd creates the reset subcommand. The workflow itself never
// deletes unlock records; this exists so developers can re-lock content
// while testing campaigns.
func NewResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <content-id>",
		Short: "Remove the unlock record for a content id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile, nil)
			if err != nil {
				return err
			}

			inspector, closeStore, err := openInspector(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStore() //nolint:errcheck // best-effort close on exit

			if err := inspector.Delete(cmd.Context(), locker.ContentID(args[0])); err != nil {
				return err
			}
			cmd.Printf("reset %s\n", args[0])
			return nil
		},
	}
}
