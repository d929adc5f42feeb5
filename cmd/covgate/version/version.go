package version

import (
	"fmt"

	"github.com/meza/coverage-gate/internal/constants"
	"github.com/meza/coverage-gate/internal/environment"
	"github.com/meza/coverage-gate/internal/i18n"
	"github.com/spf13/cobra"
)

func Command() *cobra.Command {
	versionCmd := &cobra.Command{
		Use: "version",
		Short: i18n.T("cmd.version.short", i18n.Vars{"appName": constants.AppName}),
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), environment.AppVersion())
		},
	}

	return versionCmd
}
