package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/mongolink/config"
)

var showCmd = &cobra.Command{
	Use:   "show [alias...]",
	Short: "Print resolved connection settings",
	Long: `Print the descriptors the configured settings resolve to, after
defaults are applied. Passwords are always redacted.`,
	RunE: runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	descs, err := fetchDescriptors(cfg.App)
	if err != nil {
		return err
	}
	descs, err = selectAliases(descs, args)
	if err != nil {
		return err
	}

	return getFormatter().FormatDescriptors(os.Stdout, descs)
}
