package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/mongolink/config"
	"github.com/sagarc03/mongolink/report"
)

var version = "dev"

var (
	jsonOutput bool
	quiet      bool
)

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "mongolink",
	Short:   "MongoDB connection lifecycle manager",
	Long: `mongolink resolves MongoDB connection settings into named aliases,
connects them lazily, and can provision throwaway mongod instances for tests.

Connection settings come from mongolink.yaml (app.mongodb_settings), the
MONGODB_* environment variables, and the connections file maintained by
'mongolink configure'.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFiles, _ := cmd.Flags().GetStringSlice("config")
		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return err
		}
		setupLogging(cfg)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringSlice("config", nil, "config file paths, later files override earlier (default: ./mongolink.yaml)")
	pf.String("log-level", "", "log level: debug, info, warn, error (env: MONGOLINK_LOG_LEVEL)")
	pf.String("connections", "", "connections file (default: ~/.mongolink/connections.yaml)")
	pf.Bool("testing", false, "enable test mode (env: TESTING)")
	pf.Bool("temp-db", false, "provision a temporary database in test mode (env: TEMP_DB)")
	pf.Bool("preserve-temp-db", false, "keep the temporary data directory on teardown (env: PRESERVE_TEMP_DB)")
	pf.String("temp-db-loc", "", "data directory for the temporary database (env: TEMP_DB_LOC)")
	pf.String("launcher", "", "temporary database launcher: process, container (env: TEMP_DB_LAUNCHER)")
	pf.Bool("no-share", false, "give every alias its own transport")
	pf.BoolVar(&jsonOutput, "json", false, "output as JSON")
	pf.BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(tempdbCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configureCmd)
}

func getFormatter() report.Formatter {
	return report.NewFormatter(jsonOutput, quiet)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
