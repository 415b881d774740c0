package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"katari/internal/app"
	"katari/internal/config"
)

func newAuthCmd(st *rootState) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Log in to the BI application and save the session state",
		Long: `Auth acquires a browser session, running the interactive login flow in a
visible browser window when no saved state exists, then verifies the
session against the configured base URL. With --force the saved state is
discarded first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := st.cfg
			if cfg.Target.BaseURL == "" {
				return fmt.Errorf("%w: %s", config.ErrMissingKey, config.EnvBaseURL)
			}

			provider := app.NewSessionProvider(cfg, st.logger)
			session, err := provider.Acquire(ctx, force)
			if err != nil {
				return err
			}
			defer session.Close()

			// Prove the saved state actually works against the target.
			if err := session.Page().Navigate(ctx, cfg.Target.BaseURL); err != nil {
				return err
			}
			if err := session.Verify(ctx); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "session verified, auth state saved to %s\n", cfg.Session.StateFile)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "discard existing auth state and log in again")
	return cmd
}
