package coverage

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const reportPath = "/build/emma/coverage.txt"

type logEntry struct {
	message   string
	forceShow bool
	debug     bool
}

type recordingLogger struct {
	entries []logEntry
}

func (l *recordingLogger) Log(message string, forceShow bool) {
	l.entries = append(l.entries, logEntry{message: message, forceShow: forceShow})
}

func (l *recordingLogger) Debug(message string) {
	l.entries = append(l.entries, logEntry{message: message, debug: true})
}

type countingFs struct {
	afero.Fs
	opens int
}

func (fs *countingFs) Open(name string) (afero.File, error) {
	fs.opens++
	return fs.Fs.Open(name)
}

func (fs *countingFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	fs.opens++
	return fs.Fs.OpenFile(name, flag, perm)
}

type brokenFile struct {
	afero.File
}

func (brokenFile) Read([]byte) (int, error) {
	return 0, errors.New("input/output error")
}

type brokenReadFs struct {
	afero.Fs
}

func (fs brokenReadFs) Open(name string) (afero.File, error) {
	file, err := fs.Fs.Open(name)
	if err != nil {
		return nil, err
	}
	return brokenFile{File: file}, nil
}

type permissionFs struct {
	afero.Fs
}

func (permissionFs) Open(name string) (afero.File, error) {
	return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
}

func reportFs(t *testing.T, contents string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, reportPath, []byte(contents), 0o644))
	return fs
}

func TestCheckEmptyReportPathNeverTouchesTheFilesystem(t *testing.T) {
	fs := &countingFs{Fs: afero.NewMemMapFs()}
	checker := NewChecker(fs, nil)

	outcome := checker.Check(context.Background(), "", ThresholdConfig{})

	assert.True(t, outcome.Errored())
	assert.Equal(t, "Requires full path to coverage report.", outcome.Message)
	var configErr *ConfigurationError
	assert.ErrorAs(t, outcome.Err, &configErr)
	assert.Equal(t, 0, fs.opens)
}

func TestCheckThresholds(t *testing.T) {
	tests := []struct {
		name       string
		thresholds ThresholdConfig
		status     Status
		failed     []Metric
	}{
		{
			name:   "zero thresholds always pass",
			status: StatusPassed,
		},
		{
			name:       "thresholds equal to actuals pass",
			thresholds: ThresholdConfig{Class: 28, Method: 22, Block: 20, Line: 18},
			status:     StatusPassed,
		},
		{
			name:       "one point above class fails only class",
			thresholds: ThresholdConfig{Class: 29, Method: 22, Block: 20, Line: 18},
			status:     StatusFailed,
			failed:     []Metric{Class},
		},
		{
			name:       "unreachable thresholds fail every metric in order",
			thresholds: ThresholdConfig{Class: 101, Method: 101, Block: 101, Line: 101},
			status:     StatusFailed,
			failed:     []Metric{Class, Method, Block, Line},
		},
		{
			name:       "independent failures",
			thresholds: ThresholdConfig{Method: 50, Line: 19},
			status:     StatusFailed,
			failed:     []Metric{Method, Line},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewChecker(reportFs(t, sampleReport), nil)

			outcome := checker.Check(context.Background(), reportPath, tt.thresholds)

			require.Equal(t, tt.status, outcome.Status)
			assert.NoError(t, outcome.Err)
			assert.Equal(t, 28, outcome.Result.Class.Value)

			var failed []Metric
			for _, failure := range outcome.Failures {
				failed = append(failed, failure.Metric)
			}
			assert.Equal(t, tt.failed, failed)
			if tt.status == StatusPassed {
				assert.Empty(t, outcome.Message)
			}
		})
	}
}

func TestCheckFailureMessage(t *testing.T) {
	checker := NewChecker(reportFs(t, sampleReport), nil)

	outcome := checker.Check(context.Background(), reportPath, ThresholdConfig{Class: 29, Method: 22, Block: 20, Line: 18})

	require.True(t, outcome.Failed())
	assert.Equal(t, "   Failed class coverage threshold.  Required: 29, actual: 28% (52/184)"+LineSeparator, outcome.Message)
}

func TestCheckFailureMessageListsEveryMetric(t *testing.T) {
	checker := NewChecker(reportFs(t, sampleReport), nil)

	outcome := checker.Check(context.Background(), reportPath, ThresholdConfig{Class: 101, Method: 101, Block: 101, Line: 101})

	require.True(t, outcome.Failed())
	expected := "   Failed class coverage threshold.  Required: 101, actual: 28% (52/184)" + LineSeparator +
		"   Failed method coverage threshold. Required: 101, actual: 22% (378/1720)" + LineSeparator +
		"   Failed block coverage threshold.  Required: 101, actual: 20% (7700/38446)" + LineSeparator +
		"   Failed line coverage threshold.   Required: 101, actual: 18% (1382.5/7553)" + LineSeparator
	assert.Equal(t, expected, outcome.Message)
	snaps.MatchSnapshot(t, outcome.Failures[1].String())
}

func TestCheckReportNotFound(t *testing.T) {
	checker := NewChecker(afero.NewMemMapFs(), nil)

	outcome := checker.Check(context.Background(), reportPath, ThresholdConfig{})

	require.True(t, outcome.Errored())
	var notFound *ReportNotFoundError
	require.ErrorAs(t, outcome.Err, &notFound)
	assert.Equal(t, reportPath, notFound.Path)
	assert.Equal(t, "Coverage results file not found "+reportPath+": file does not exist", outcome.Message)
}

func TestCheckReportUnreadable(t *testing.T) {
	t.Run("read fails", func(t *testing.T) {
		checker := NewChecker(brokenReadFs{Fs: reportFs(t, sampleReport)}, nil)

		outcome := checker.Check(context.Background(), reportPath, ThresholdConfig{})

		require.True(t, outcome.Errored())
		var readErr *ReportReadError
		require.ErrorAs(t, outcome.Err, &readErr)
		assert.Equal(t, "Error reading coverage file "+reportPath+": input/output error", outcome.Message)
	})

	t.Run("open denied", func(t *testing.T) {
		checker := NewChecker(permissionFs{Fs: reportFs(t, sampleReport)}, nil)

		outcome := checker.Check(context.Background(), reportPath, ThresholdConfig{})

		require.True(t, outcome.Errored())
		var readErr *ReportReadError
		require.ErrorAs(t, outcome.Err, &readErr)
		assert.ErrorIs(t, outcome.Err, os.ErrPermission)
		assert.Equal(t, "Error reading coverage file "+reportPath+": permission denied", outcome.Message)
	})
}

func TestCheckMissingDataLineFallsBackToZero(t *testing.T) {
	tests := map[string]string{
		"no header":  "OVERALL COVERAGE SUMMARY:\nnothing to see\n",
		"short line": "[class, %]\t[method, %]\n0%! 0%! 0%! 0%!\n",
	}

	for name, report := range tests {
		t.Run(name, func(t *testing.T) {
			log := &recordingLogger{}
			checker := NewChecker(reportFs(t, report), log)

			outcome := checker.Check(context.Background(), reportPath, ThresholdConfig{Class: 1})

			require.True(t, outcome.Failed())
			assert.Equal(t, Result{}, outcome.Result)
			require.Len(t, outcome.Failures, 1)
			assert.Equal(t, "   Failed class coverage threshold.  Required: 1, actual: "+LineSeparator, outcome.Message)

			var warned bool
			for _, entry := range log.entries {
				if !entry.debug && entry.forceShow {
					warned = true
					assert.Contains(t, entry.message, "Invalid line read from report file. Has the format changed?")
				}
			}
			assert.True(t, warned)
		})
	}
}

func TestCheckMissingDataLinePassesZeroThresholds(t *testing.T) {
	checker := NewChecker(reportFs(t, "no summary here\n"), nil)

	outcome := checker.Check(context.Background(), reportPath, ThresholdConfig{})

	assert.True(t, outcome.Passed())
}

func TestCheckStrictFormat(t *testing.T) {
	checker := NewChecker(reportFs(t, "[class, %]\n0%! 0%!\n"), nil, WithStrictFormat(true))

	outcome := checker.Check(context.Background(), reportPath, ThresholdConfig{})

	require.True(t, outcome.Errored())
	var formatErr *FormatError
	require.ErrorAs(t, outcome.Err, &formatErr)
	assert.ErrorIs(t, outcome.Err, ErrDataLineTooShort)
	assert.Equal(t, "Invalid line read from report file. Has the format changed? 0%! 0%!", outcome.Message)
}

func TestCheckMalformedSegmentIsAlwaysAnError(t *testing.T) {
	report := "[class, %]\nabc (52/184)! 22% (378/1720)! 20% (7700/38446)! 18% (1382.5/7553)! all classes\n"
	log := &recordingLogger{}
	checker := NewChecker(reportFs(t, report), log)

	outcome := checker.Check(context.Background(), reportPath, ThresholdConfig{})

	require.True(t, outcome.Errored())
	assert.ErrorIs(t, outcome.Err, ErrMalformedSegment)
	for _, entry := range log.entries {
		assert.True(t, entry.debug, "unexpected log %q", entry.message)
	}
}

func TestCheckLogsDataLineAtDebug(t *testing.T) {
	log := &recordingLogger{}
	checker := NewChecker(reportFs(t, sampleReport), log)

	checker.Check(context.Background(), reportPath, ThresholdConfig{})

	require.Len(t, log.entries, 1)
	assert.True(t, log.entries[0].debug)
	assert.Contains(t, log.entries[0].message, sampleDataLine)
}

func TestEvaluateUsesStrictLessThan(t *testing.T) {
	result := Result{
		Class:  Percentage{Value: 50, Text: "50% (1/2)"},
		Method: Percentage{Value: 50, Text: "50% (1/2)"},
		Block:  Percentage{Value: 50, Text: "50% (1/2)"},
		Line:   Percentage{Value: 49, Text: "49% (49/100)"},
	}

	outcome := Evaluate(result, ThresholdConfig{Class: 50, Method: 50, Block: 50, Line: 50})

	require.True(t, outcome.Failed())
	require.Len(t, outcome.Failures, 1)
	assert.Equal(t, Failure{Metric: Line, Required: 50, Actual: result.Line}, outcome.Failures[0])
}

func TestNewCheckerDefaults(t *testing.T) {
	checker := NewChecker(nil, nil)

	assert.NotNil(t, checker.fs)
	assert.NotNil(t, checker.logger)
	assert.False(t, checker.strictFormat)
}
