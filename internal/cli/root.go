package cli

import (
	"context"

	"github.com/spf13/cobra"

	"katari/internal/config"
	"katari/internal/interfaces"
	"katari/internal/logging"
)

// rootState carries the configuration and logger built by the root
// PersistentPreRunE, so every subcommand RunE sees the same view.
type rootState struct {
	envFile   string
	logLevel  string
	logFormat string
	logFile   string

	cfg    *config.Config
	logger interfaces.Logger
}

func newRootCmd() (*cobra.Command, *rootState) {
	st := &rootState{}

	cmd := &cobra.Command{
		Use:   "katari",
		Short: "Capture BI dashboard reports and generate their documentation",
		Long: `Katari drives a real browser over a manifest of BI dashboard reports,
waits for each report to finish loading, captures a full-page screenshot
and cleaned HTML per dashboard page, and asks a generation model to write
a description of every report.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv(st.envFile)

			// Flags beat env, env beats defaults. A flag only applies
			// when the user actually set it.
			pf := cmd.Root().PersistentFlags()
			if pf.Changed("log-level") {
				cfg.Log.Level = st.logLevel
			}
			if pf.Changed("log-format") {
				cfg.Log.Format = st.logFormat
			}
			if pf.Changed("log-file") {
				cfg.Log.File = st.logFile
			}

			logger, err := logging.New(logging.Config{
				Level:  cfg.Log.Level,
				Format: cfg.Log.Format,
				File:   cfg.Log.File,
			})
			if err != nil {
				return err
			}
			st.cfg = cfg
			st.logger = logger
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&st.envFile, "env-file", ".env", "env file loaded before the process environment")
	pf.StringVar(&st.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	pf.StringVar(&st.logFormat, "log-format", "console", "log encoding: console or json")
	pf.StringVar(&st.logFile, "log-file", "", "also write JSON logs to this rotating file")
	cmd.SetVersionTemplate("katari {{.Version}}\n")

	cmd.AddCommand(
		newDescribeCmd(st),
		newAuthCmd(st),
		newCatalogCmd(st),
		newDemoCmd(st),
		newVersionCmd(),
	)
	return cmd, st
}

// Execute builds the command tree and runs it under ctx. Every call builds
// a fresh tree so flag state never leaks between invocations.
func Execute(ctx context.Context) error {
	cmd, st := newRootCmd()
	err := cmd.ExecuteContext(ctx)
	if st.logger != nil {
		logging.Sync(st.logger)
	}
	return err
}
