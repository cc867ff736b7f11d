package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewVersionCommand prints the build identity.
func NewVersionCommand(info VersionInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the Vesta version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("vesta %s (%s)\n", info.Version, info.Commit)
		},
	}
}
