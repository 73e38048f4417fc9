package main

import (
	"github.com/spf13/cobra"

	"github.com/tbourn/go-bloodlink-backend/internal/config"
	"github.com/tbourn/go-bloodlink-backend/internal/sysutil"
)

// globals are flag overrides applied on top of the environment.
type globals struct {
	dbPath   string
	logLevel string
	cfg      config.Config
}

// RootCommand creates and returns the root command. Without a subcommand it
// serves the API.
func RootCommand() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:           "bloodlink",
		Short:         "Blood donor matching and emergency notification service",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       sysutil.Version(),
	}
	rootCmd.PersistentFlags().StringVar(&g.dbPath, "db", "", "SQLite database path (overrides DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level (overrides LOG_LEVEL)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return g.initialize(cmd)
	}

	serveCmd := serveCommand(g)
	rootCmd.AddCommand(serveCmd, migrateCommand(g), matchCommand(g))
	rootCmd.RunE = serveCmd.RunE
	return rootCmd
}

// initialize loads configuration and sets up logging before any subcommand.
func (g *globals) initialize(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if g.dbPath != "" {
		cfg.DBPath = g.dbPath
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	g.cfg = cfg
	sysutil.SetupLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName)
	return nil
}
