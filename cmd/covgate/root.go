package covgate

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/meza/coverage-gate/cmd/covgate/check"
	initCmd "github.com/meza/coverage-gate/cmd/covgate/init"
	"github.com/meza/coverage-gate/cmd/covgate/version"
	"github.com/meza/coverage-gate/internal/constants"
	"github.com/meza/coverage-gate/internal/environment"
	"github.com/meza/coverage-gate/internal/i18n"
	"github.com/meza/coverage-gate/internal/perf"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func Command() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           constants.CommandName,
		Short:         i18n.T("app.description"),
		Version:       environment.AppVersion(),
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			enabled, err := cmd.Flags().GetBool("perf")
			if err != nil {
				return err
			}
			return perf.Init(perf.Config{Enabled: enabled})
		},
	}
	cobra.MousetrapHelpText = ""

	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.PersistentFlags().StringP("config", "c", "", i18n.T("flag.config"))
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, i18n.T("flag.quiet"))
	rootCmd.PersistentFlags().Bool("debug", false, i18n.T("flag.debug"))
	rootCmd.PersistentFlags().Bool("perf", false, i18n.T("flag.perf"))
	rootCmd.PersistentFlags().String("perf-out-dir", "", i18n.T("flag.perf_out_dir"))

	rootCmd.AddCommand(check.Command())
	rootCmd.AddCommand(initCmd.Command())
	rootCmd.AddCommand(version.Command())

	translateDefaultHelpFacilities(rootCmd)
	fixFlagUsageAlignment(rootCmd)

	return rootCmd
}

func translateDefaultHelpFacilities(rootCmd *cobra.Command) {
	subcommands := rootCmd.Commands()
	allCommands := make([]*cobra.Command, 0, len(subcommands)+1)
	allCommands = append(allCommands, rootCmd)
	allCommands = append(allCommands, subcommands...)

	for _, cmd := range allCommands {
		cmd.InitDefaultHelpFlag()
		cmd.Flags().Lookup("help").Usage = i18n.T("cmd.help.template", i18n.Vars{"command": cmd.Name()})
	}

	rootCmd.InitDefaultHelpCmd()
	helpCmd, _, e := rootCmd.Find([]string{"help"})
	if e != nil {
		return
	}

	helpCmd.Short = i18n.T("cmd.help.usage.short")
	helpCmd.Long = i18n.T("cmd.help.usage.long", i18n.Vars{"appName": rootCmd.Name()})
	helpCmd.Run = func(c *cobra.Command, args []string) {
		cmd, _, e := c.Root().Find(args)
		if cmd == nil || e != nil {
			c.PrintErrln(i18n.T("cmd.help.error", i18n.Vars{"topic": fmt.Sprintf("%#q", args)}) + "\n")
			cobra.CheckErr(c.Root().Usage())
			return
		}
		cmd.InitDefaultHelpFlag()
		cmd.InitDefaultVersionFlag()
		cobra.CheckErr(cmd.Help())
	}
}

func fixFlagUsageAlignment(rootCmd *cobra.Command) {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		width = 80
	}
	usageTemplate := rootCmd.UsageTemplate()
	usageTemplate = strings.ReplaceAll(usageTemplate, ".FlagUsages", fmt.Sprintf(".FlagUsagesWrapped %d", width))
	rootCmd.SetUsageTemplate(usageTemplate)
}

// Execute runs the CLI with args and, when --perf was given, exports the
// recorded spans after the command finishes regardless of its result.
func Execute(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) error {
	cmd := Command()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	executed, err := cmd.ExecuteContextC(ctx)
	if dropped := perf.DroppedSpans(); dropped > 0 {
		_, _ = fmt.Fprintf(stderr, "perf buffer full, %d spans not exported\n", dropped)
	}
	if exportErr := exportPerf(afero.NewOsFs(), executed); exportErr != nil {
		_, _ = fmt.Fprintf(stderr, "perf export failed: %v\n", exportErr)
	}
	return err
}

func exportPerf(fs afero.Fs, executed *cobra.Command) error {
	if executed == nil || !perf.Enabled() {
		return nil
	}
	defer perf.Reset()

	spans, err := perf.GetSpans()
	if err != nil {
		return err
	}

	baseDir, outDir := perfDirs(executed)
	_, err = perf.ExportToFile(fs, outDir, baseDir, spans)
	return err
}

// perfDirs anchors the export next to the config file when one was given,
// otherwise in the working directory. A relative --perf-out-dir is resolved
// against that base.
func perfDirs(cmd *cobra.Command) (string, string) {
	baseDir, err := os.Getwd()
	if err != nil {
		baseDir = "."
	}
	if configPath, _ := cmd.Flags().GetString("config"); configPath != "" {
		if abs, err := filepath.Abs(configPath); err == nil {
			baseDir = filepath.Dir(abs)
		}
	}

	outDir, _ := cmd.Flags().GetString("perf-out-dir")
	switch {
	case outDir == "":
		outDir = baseDir
	case !filepath.IsAbs(outDir):
		outDir = filepath.Join(baseDir, outDir)
	}
	return baseDir, outDir
}
