package init

import (
	"context"
	"os"
	"path/filepath"

	"github.com/meza/coverage-gate/internal/config"
	"github.com/meza/coverage-gate/internal/constants"
	"github.com/meza/coverage-gate/internal/i18n"
	"github.com/meza/coverage-gate/internal/logger"
	"github.com/meza/coverage-gate/internal/perf"
	"github.com/meza/coverage-gate/internal/telemetry"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
)

type initOptions struct {
	ConfigPath string
	Force      bool
}

type initDeps struct {
	fs        afero.Fs
	logger    *logger.Logger
	workDir   string
	telemetry func(telemetry.CommandTelemetry)
}

func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: i18n.T("cmd.init.short"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ctx, span := perf.StartSpan(cmd.Context(), "app.command.init")
			defer func() {
				span.SetAttributes(attribute.Bool("success", err == nil))
				span.End()
			}()

			configPath, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			quiet, err := cmd.Flags().GetBool("quiet")
			if err != nil {
				return err
			}
			debug, err := cmd.Flags().GetBool("debug")
			if err != nil {
				return err
			}

			workDir, err := os.Getwd()
			if err != nil {
				workDir = "."
			}

			deps := initDeps{
				fs:        afero.NewOsFs(),
				logger:    logger.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), quiet, debug),
				workDir:   workDir,
				telemetry: telemetry.RecordCommand,
			}

			_, err = runInit(ctx, initOptions{ConfigPath: configPath, Force: force}, deps)
			if err != nil {
				cmd.SilenceUsage = true
			}
			exitCode := 0
			if err != nil {
				exitCode = 1
			}
			deps.telemetry(telemetry.CommandTelemetry{
				Command:  "init",
				Success:  err == nil,
				ExitCode: exitCode,
				Error:    err,
				Extra:    map[string]interface{}{"force": force},
			})
			return err
		},
	}

	cmd.Flags().Bool("force", false, i18n.T("cmd.init.flag.force"))
	return cmd
}

// runInit writes the scaffold to the --config path, or to covgate.yaml in the
// working directory when none is given.
func runInit(ctx context.Context, opts initOptions, deps initDeps) (string, error) {
	path := opts.ConfigPath
	if path == "" {
		path = filepath.Join(deps.workDir, constants.DefaultConfigFile)
	}

	if _, err := config.WriteDefault(ctx, deps.fs, path, opts.Force); err != nil {
		return "", err
	}

	deps.logger.Success(i18n.T("cmd.init.created", i18n.Vars{"path": path}))
	return path, nil
}
