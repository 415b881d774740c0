package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"katari/internal/demosite"
)

func newDemoCmd(st *rootState) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Serve the built-in demo dashboard site",
		Long: `Demo serves a small fake BI application: a login form, dashboards whose
loading indicators clear after a delay, a three page dashboard with a
page-navigation control and a live dashboard that never settles. Point
LOOKER_BASE_URL at it to exercise a full run locally.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			site := demosite.New(st.logger)
			srv := site.HTTPServer(addr)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()

			fmt.Fprintf(cmd.OutOrStdout(), "demo site on http://localhost%s (any name and password log in)\n", addr)

			select {
			case <-cmd.Context().Done():
				shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutCtx)
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8089", "listen address")
	return cmd
}
