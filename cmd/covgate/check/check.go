package check

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/meza/coverage-gate/internal/config"
	"github.com/meza/coverage-gate/internal/coverage"
	"github.com/meza/coverage-gate/internal/environment"
	"github.com/meza/coverage-gate/internal/i18n"
	"github.com/meza/coverage-gate/internal/logger"
	"github.com/meza/coverage-gate/internal/outputs"
	"github.com/meza/coverage-gate/internal/perf"
	"github.com/meza/coverage-gate/internal/telemetry"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
)

const (
	exitThresholdFailure = 1
	exitCheckError       = 2
)

type checkOptions struct {
	ConfigPath string
	Quiet      bool
	Debug      bool
	JSON       bool
	Overrides  overrides
}

// overrides holds only the flags the user actually set. Nil fields leave the
// loaded configuration alone.
type overrides struct {
	Report         *string
	Class          *int
	Method         *int
	Block          *int
	Line           *int
	FailOnError    *bool
	OutputVariable *string
	OutputFile     *string
	StrictFormat   *bool
}

func (flags overrides) apply(settings *config.Settings) {
	if flags.Report != nil {
		settings.ReportPath = *flags.Report
	}
	if flags.Class != nil {
		settings.Thresholds.Class = *flags.Class
	}
	if flags.Method != nil {
		settings.Thresholds.Method = *flags.Method
	}
	if flags.Block != nil {
		settings.Thresholds.Block = *flags.Block
	}
	if flags.Line != nil {
		settings.Thresholds.Line = *flags.Line
	}
	if flags.FailOnError != nil {
		settings.FailOnError = *flags.FailOnError
	}
	if flags.OutputVariable != nil {
		settings.OutputVariable = *flags.OutputVariable
	}
	if flags.OutputFile != nil {
		settings.OutputFile = *flags.OutputFile
	}
	if flags.StrictFormat != nil {
		settings.StrictFormat = *flags.StrictFormat
	}
}

type checkDeps struct {
	fs        afero.Fs
	logger    *logger.Logger
	out       io.Writer
	workDir   string
	now       func() time.Time
	newStore  func(afero.Fs, string) outputs.Store
	telemetry func(telemetry.CommandTelemetry)
}

// exitCodeError carries the process exit code for a check that did not pass.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit code %d", e.code)
	}
	return e.err.Error()
}

func (e *exitCodeError) Unwrap() error {
	return e.err
}

func (e *exitCodeError) ExitCode() int {
	return e.code
}

type checkRunner func(context.Context, *cobra.Command, checkOptions, checkDeps) (checkResult, error)

type checkResult struct {
	Status   coverage.Status
	ExitCode int
	Settings config.Settings
}

func Command() *cobra.Command {
	return commandWithRunner(runCheck)
}

func commandWithRunner(runner checkRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "check [report]",
		Aliases: []string{"c"},
		Short:   i18n.T("cmd.check.short"),
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, span := perf.StartSpan(cmd.Context(), "app.command.check")

			opts, err := optionsFromFlags(cmd, args)
			if err != nil {
				span.SetAttributes(attribute.Bool("success", false))
				span.End()
				return err
			}

			out := cmd.OutOrStdout()
			if opts.JSON {
				out = cmd.ErrOrStderr()
			}

			workDir, err := os.Getwd()
			if err != nil {
				workDir = "."
			}

			deps := checkDeps{
				fs:      afero.NewOsFs(),
				logger:  logger.New(out, cmd.ErrOrStderr(), opts.Quiet, opts.Debug),
				out:     cmd.OutOrStdout(),
				workDir: workDir,
				now:     time.Now,
				newStore: func(fs afero.Fs, path string) outputs.Store {
					return outputs.NewFileStore(fs, path)
				},
				telemetry: telemetry.RecordCommand,
			}

			result, err := runner(ctx, cmd, opts, deps)

			span.SetAttributes(
				attribute.Bool("success", err == nil),
				attribute.String("status", string(result.Status)),
				attribute.Int("exit_code", result.ExitCode),
			)
			span.End()

			if err != nil {
				cmd.SilenceUsage = true
				var exitErr *exitCodeError
				if errors.As(err, &exitErr) {
					cmd.SilenceErrors = true
				}
			}

			deps.telemetry(telemetry.CommandTelemetry{
				Command:  "check",
				Success:  err == nil && result.Status == coverage.StatusPassed,
				ExitCode: result.ExitCode,
				Error:    err,
				Extra: map[string]interface{}{
					"status":       string(result.Status),
					"failOnError":  result.Settings.FailOnError,
					"strictFormat": result.Settings.StrictFormat,
					"json":         opts.JSON,
				},
			})

			return err
		},
	}

	flags := cmd.Flags()
	flags.StringP("report", "r", "", i18n.T("cmd.check.flag.report"))
	flags.Int("class-threshold", 0, i18n.T("cmd.check.flag.class"))
	flags.Int("method-threshold", 0, i18n.T("cmd.check.flag.method"))
	flags.Int("block-threshold", 0, i18n.T("cmd.check.flag.block"))
	flags.Int("line-threshold", 0, i18n.T("cmd.check.flag.line"))
	flags.Bool("fail-on-error", false, i18n.T("cmd.check.flag.fail_on_error"))
	flags.String("output-variable", "", i18n.T("cmd.check.flag.output_variable"))
	flags.String("output-file", "", i18n.T("cmd.check.flag.output_file"))
	flags.Bool("strict-format", false, i18n.T("cmd.check.flag.strict_format"))
	flags.Bool("json", false, i18n.T("cmd.check.flag.json"))

	return cmd
}

func optionsFromFlags(cmd *cobra.Command, args []string) (checkOptions, error) {
	var opts checkOptions
	var err error

	if opts.ConfigPath, err = cmd.Flags().GetString("config"); err != nil {
		return opts, err
	}
	if opts.Quiet, err = cmd.Flags().GetBool("quiet"); err != nil {
		return opts, err
	}
	if opts.Debug, err = cmd.Flags().GetBool("debug"); err != nil {
		return opts, err
	}
	if opts.JSON, err = cmd.Flags().GetBool("json"); err != nil {
		return opts, err
	}

	o := &opts.Overrides
	if o.Report, err = changedString(cmd, "report"); err != nil {
		return opts, err
	}
	if len(args) > 0 {
		o.Report = &args[0]
	}
	if o.Class, err = changedInt(cmd, "class-threshold"); err != nil {
		return opts, err
	}
	if o.Method, err = changedInt(cmd, "method-threshold"); err != nil {
		return opts, err
	}
	if o.Block, err = changedInt(cmd, "block-threshold"); err != nil {
		return opts, err
	}
	if o.Line, err = changedInt(cmd, "line-threshold"); err != nil {
		return opts, err
	}
	if o.FailOnError, err = changedBool(cmd, "fail-on-error"); err != nil {
		return opts, err
	}
	if o.OutputVariable, err = changedString(cmd, "output-variable"); err != nil {
		return opts, err
	}
	if o.OutputFile, err = changedString(cmd, "output-file"); err != nil {
		return opts, err
	}
	if o.StrictFormat, err = changedBool(cmd, "strict-format"); err != nil {
		return opts, err
	}
	return opts, nil
}

func changedString(cmd *cobra.Command, name string) (*string, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}
	value, err := cmd.Flags().GetString(name)
	return &value, err
}

func changedInt(cmd *cobra.Command, name string) (*int, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}
	value, err := cmd.Flags().GetInt(name)
	return &value, err
}

func changedBool(cmd *cobra.Command, name string) (*bool, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}
	value, err := cmd.Flags().GetBool(name)
	return &value, err
}

func runCheck(ctx context.Context, _ *cobra.Command, opts checkOptions, deps checkDeps) (checkResult, error) {
	deps.logger.Log(i18n.T("cmd.check.started"), false)

	settings, err := config.Load(ctx, deps.fs, opts.ConfigPath, deps.workDir)
	if err != nil {
		return checkResult{Status: coverage.StatusError, ExitCode: exitCheckError}, &exitCodeError{code: exitCheckError, err: err}
	}
	opts.Overrides.apply(&settings)
	result := checkResult{Settings: settings}

	if err := settings.Validate(); err != nil {
		result.Status = coverage.StatusError
		result.ExitCode = exitCheckError
		return result, &exitCodeError{code: exitCheckError, err: err}
	}

	checker := coverage.NewChecker(deps.fs, deps.logger, coverage.WithStrictFormat(settings.StrictFormat))
	outcome := checker.Check(ctx, settings.ReportPath, settings.Thresholds)
	result.Status = outcome.Status

	if opts.JSON {
		if err := writeReport(deps.out, newCheckReport(settings, outcome, deps.now())); err != nil {
			return result, err
		}
	}

	if !outcome.Passed() && settings.FailOnError {
		if outcome.Failed() {
			result.ExitCode = exitThresholdFailure
			return result, &exitCodeError{
				code: exitThresholdFailure,
				err:  fmt.Errorf("Code coverage failed: %s%s", coverage.LineSeparator, outcome.Message),
			}
		}
		result.ExitCode = exitCheckError
		return result, &exitCodeError{code: exitCheckError, err: outcome.Err}
	}

	if !outcome.Passed() {
		record(ctx, settings, outcome, deps)
	}

	switch {
	case outcome.Passed():
		deps.logger.Success(i18n.T("cmd.check.passed"))
	case outcome.Failed():
		deps.logger.Failure(i18n.T("cmd.check.failed") + coverage.LineSeparator + strings.TrimRight(outcome.Message, "\r\n"))
	default:
		deps.logger.Error(outcome.Message)
	}

	deps.logger.Log(i18n.T("cmd.check.done"), false)
	return result, nil
}

// record stores the outcome message under the configured output variable.
// Problems are reported but never change the exit code.
func record(ctx context.Context, settings config.Settings, outcome coverage.Outcome, deps checkDeps) {
	name := settings.OutputVariable
	store := deps.newStore(deps.fs, settings.ResolveOutputFile())

	written, err := store.SetNew(ctx, name, outcome.Message)
	switch {
	case err != nil:
		deps.logger.Error(i18n.T("cmd.check.record_failed", i18n.Vars{"name": name, "error": err.Error()}))
	case written:
		deps.logger.Log(i18n.T("cmd.check.recorded", i18n.Vars{"name": name}), false)
	default:
		deps.logger.Log(i18n.T("cmd.check.already_recorded", i18n.Vars{"name": name}), true)
	}
}

type metricReport struct {
	Name     string `json:"name"`
	Required int    `json:"required"`
	Actual   int    `json:"actual"`
	Text     string `json:"text"`
	Passed   bool   `json:"passed"`
}

type checkReport struct {
	Status      coverage.Status `json:"status"`
	Report      string          `json:"report"`
	Metrics     []metricReport  `json:"metrics"`
	Message     string          `json:"message,omitempty"`
	Version     string          `json:"version"`
	GeneratedAt time.Time       `json:"generated_at"`
}

func newCheckReport(settings config.Settings, outcome coverage.Outcome, now time.Time) checkReport {
	report := checkReport{
		Status:      outcome.Status,
		Report:      settings.ReportPath,
		Metrics:     []metricReport{},
		Message:     outcome.Message,
		Version:     environment.AppVersion(),
		GeneratedAt: now.UTC(),
	}
	if outcome.Errored() {
		return report
	}

	for _, metric := range coverage.Metrics() {
		actual := outcome.Result.Get(metric)
		required := settings.Thresholds.For(metric)
		report.Metrics = append(report.Metrics, metricReport{
			Name:     metric.String(),
			Required: required,
			Actual:   actual.Value,
			Text:     actual.Text,
			Passed:   actual.Value >= required,
		})
	}
	return report
}

func writeReport(out io.Writer, report checkReport) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
