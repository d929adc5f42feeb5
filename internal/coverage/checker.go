package coverage

import (
	"context"
	"fmt"
	"os"

	"github.com/meza/coverage-gate/internal/perf"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
)

// Logger receives the checker's diagnostics. *logger.Logger satisfies it.
type Logger interface {
	Log(message string, forceShow bool)
	Debug(message string)
}

type nopLogger struct{}

func (nopLogger) Log(string, bool) {}
func (nopLogger) Debug(string)     {}

type Option func(*Checker)

// WithStrictFormat turns a missing or short data line into an error outcome
// instead of treating every actual value as zero.
func WithStrictFormat(strict bool) Option {
	return func(checker *Checker) {
		checker.strictFormat = strict
	}
}

// Checker holds no per-call state and may be shared between goroutines.
type Checker struct {
	fs           afero.Fs
	logger       Logger
	strictFormat bool
}

func NewChecker(fs afero.Fs, logger Logger, opts ...Option) *Checker {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = nopLogger{}
	}
	checker := &Checker{fs: fs, logger: logger}
	for _, opt := range opts {
		opt(checker)
	}
	return checker
}

func (checker *Checker) Check(ctx context.Context, reportPath string, thresholds ThresholdConfig) Outcome {
	if reportPath == "" {
		return errored(&ConfigurationError{Field: "report", Message: "Requires full path to coverage report."})
	}

	line, err := checker.readDataLine(ctx, reportPath)
	var result Result
	switch {
	case errors.Is(err, ErrDataLineMissing):
		err = &FormatError{Line: line, Err: err}
	case err != nil:
		return errored(err)
	default:
		checker.logger.Debug(fmt.Sprintf("coverage data line: %q", line))
		result, err = ParseLine(line)
	}

	if err != nil {
		var formatErr *FormatError
		if !errors.As(err, &formatErr) || !formatErr.Recoverable() || checker.strictFormat {
			return errored(err)
		}
		checker.logger.Log(formatErr.Error(), true)
		result = Result{}
	}

	return Evaluate(result, thresholds)
}

// Evaluate compares every metric against its threshold. A metric fails only
// when its actual value is strictly below the threshold.
func Evaluate(result Result, thresholds ThresholdConfig) Outcome {
	failures := make([]Failure, 0, len(Metrics()))
	for _, metric := range Metrics() {
		actual := result.Get(metric)
		required := thresholds.For(metric)
		if actual.Value < required {
			failures = append(failures, Failure{Metric: metric, Required: required, Actual: actual})
		}
	}

	if len(failures) == 0 {
		return passed(result)
	}
	return failed(result, failures)
}

func (checker *Checker) readDataLine(ctx context.Context, reportPath string) (string, error) {
	_, span := perf.StartSpan(ctx, "io.report.read", attribute.String("path", reportPath))
	defer span.End()

	file, err := checker.fs.Open(reportPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", &ReportNotFoundError{Path: reportPath, Err: err}
		}
		return "", &ReportReadError{Path: reportPath, Err: err}
	}
	defer func() {
		_ = file.Close() // #nosec G104 -- read-only handle, nothing to flush.
	}()

	line, err := FindDataLine(file)
	if err != nil && !errors.Is(err, ErrDataLineMissing) {
		return "", &ReportReadError{Path: reportPath, Err: err}
	}
	span.SetAttributes(attribute.Bool("header_found", err == nil))
	return line, err
}
