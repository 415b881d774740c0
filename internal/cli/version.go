package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is stamped at build time:
//
//	go build -ldflags "-X katari/internal/cli.Version=v1.2.3" ./cmd/katari
var Version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the katari version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "katari", Version)
		},
	}
}
