package main

import (
	"fmt"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sagarc03/mongolink"
	"github.com/sagarc03/mongolink/config"
	"github.com/sagarc03/mongolink/report"
	"github.com/sagarc03/mongolink/settings"
)

var tempdbCmd = &cobra.Command{
	Use:   "tempdb [alias]",
	Short: "Run a temporary database until interrupted",
	Long: `Start a throwaway mongod for an alias and keep it running until
SIGINT or SIGTERM. Test mode and TEMP_DB are switched on for this command.

The instance listens on the alias's configured port, or 27111 when the
port is unset or 27017. Its data directory is removed on exit unless
--preserve-temp-db is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTempDB,
}

func init() {
	tempdbCmd.Flags().String("mongod", "", "mongod binary for the process launcher (default: mongod)")
	tempdbCmd.Flags().String("image", "", "image for the container launcher (default: mongo:7)")
	tempdbCmd.Flags().Bool("server-log", false, "write mongod output to mongod.log in the data directory")
}

func runTempDB(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	app := maps.Clone(cfg.App)
	if app == nil {
		app = make(map[string]any)
	}
	app[strings.ToLower(mongolink.KeyTesting)] = true
	app[strings.ToLower(mongolink.KeyTempDB)] = true

	alias := settings.DefaultAlias
	if len(args) > 0 {
		alias = args[0]
	}

	descs, err := fetchDescriptors(app)
	if err != nil {
		return err
	}

	m, err := newManager(cfg, app)
	if err != nil {
		return fmt.Errorf("create manager: %w", err)
	}
	for _, d := range descs {
		m.Registry().Define(d)
	}
	if _, ok := m.Registry().Descriptor(alias); !ok {
		d, err := settings.Resolve(map[string]any{"alias": alias})
		if err != nil {
			return err
		}
		m.Registry().Define(d)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer closeManager(ctx, m)

	h, err := m.Get(ctx, alias)
	if err != nil {
		return err
	}

	inst, ok := m.TempInstance()
	if !ok {
		return fmt.Errorf("alias %q did not provision a temporary database", alias)
	}

	info := report.TempDBInfo{
		ID:       inst.ID,
		Launcher: inst.Launcher,
		URI:      inst.URI(),
		Port:     inst.Port,
		DataDir:  inst.DataDir,
		Preserve: inst.Preserve,
	}
	if err := getFormatter().FormatTempDB(os.Stdout, info); err != nil {
		return err
	}

	slog.Info("temporary database running, press Ctrl+C to stop", "alias", alias, "db", h.Name())
	<-ctx.Done()
	slog.Info("stopping temporary database", "alias", alias)

	return nil
}
