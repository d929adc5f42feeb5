package config

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/meza/coverage-gate/internal/coverage"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithoutConfigFileUsesDefaults(t *testing.T) {
	fs := afero.NewMemMapFs()

	settings, err := Load(context.Background(), fs, "", "/work")
	require.NoError(t, err)

	assert.Equal(t, Settings{}, settings)
}

func TestLoadReadsDiscoveredYAML(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, filepath.Join("/work", "covgate.yaml"), []byte(`
report: build/coverage.txt
thresholds:
  class: 28
  method: 22
  block: 20
  line: 18
fail_on_error: true
output_variable: coverage_failed
strict_format: true
`), 0o644))

	settings, err := Load(context.Background(), fs, "", "/work")
	require.NoError(t, err)

	assert.Equal(t, "build/coverage.txt", settings.ReportPath)
	assert.Equal(t, coverage.ThresholdConfig{Class: 28, Method: 22, Block: 20, Line: 18}, settings.Thresholds)
	assert.True(t, settings.FailOnError)
	assert.True(t, settings.StrictFormat)
	assert.Equal(t, "coverage_failed", settings.OutputVariable)
	assert.Equal(t, filepath.Join("/work", "covgate.yaml"), settings.Source)
}

func TestDiscoverHonoursCandidateOrder(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/work/covgate.json", []byte(`{}`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/work/.covgate.yml", []byte(`report: x`), 0o644))

	assert.Equal(t, filepath.Join("/work", ".covgate.yml"), Discover(fs, "/work"))
	assert.Equal(t, "", Discover(fs, "/elsewhere"))
}

func TestLoadReadsExplicitTOMLAndJSON(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/cfg/gate.toml", []byte("report = \"a.txt\"\n[thresholds]\nline = 40\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/cfg/gate.json", []byte(`{"report":"b.txt","thresholds":{"method":55}}`), 0o644))

	tomlSettings, err := Load(context.Background(), fs, "/cfg/gate.toml", "/work")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", tomlSettings.ReportPath)
	assert.Equal(t, 40, tomlSettings.Thresholds.Line)

	jsonSettings, err := Load(context.Background(), fs, "/cfg/gate.json", "/work")
	require.NoError(t, err)
	assert.Equal(t, "b.txt", jsonSettings.ReportPath)
	assert.Equal(t, 55, jsonSettings.Thresholds.Method)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := Load(context.Background(), fs, "/nope/covgate.yaml", "/work")

	var notFound *ConfigFileNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "/nope/covgate.yaml", notFound.Path)
	assert.Equal(t, "Configuration file not found: /nope/covgate.yaml", err.Error())
}

func TestLoadInvalidFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/work/covgate.yaml", []byte("report: [unterminated"), 0o644))

	_, err := Load(context.Background(), fs, "", "/work")

	var invalid *ConfigFileInvalidError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, filepath.Join("/work", "covgate.yaml"), invalid.Path)
	assert.Contains(t, err.Error(), "Configuration file is invalid")
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/work/covgate.yaml", []byte("report: from-file.txt\nthresholds:\n  class: 10\n"), 0o644))
	t.Setenv("COVGATE_REPORT", "from-env.txt")
	t.Setenv("COVGATE_THRESHOLDS_CLASS", "75")
	t.Setenv("COVGATE_FAIL_ON_ERROR", "true")

	settings, err := Load(context.Background(), fs, "", "/work")
	require.NoError(t, err)

	assert.Equal(t, "from-env.txt", settings.ReportPath)
	assert.Equal(t, 75, settings.Thresholds.Class)
	assert.True(t, settings.FailOnError)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		field    string
		message  string
	}{
		{
			name:     "report path is checked first",
			settings: Settings{},
			field:    "report",
			message:  MissingReportMessage,
		},
		{
			name:     "output variable required when recording",
			settings: Settings{ReportPath: "coverage.txt"},
			field:    "output_variable",
			message:  MissingOutputVariableMessage,
		},
		{
			name:     "output variable required with fail on error",
			settings: Settings{ReportPath: "coverage.txt", FailOnError: true},
			field:    "output_variable",
			message:  MissingOutputVariableMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.settings.Validate()

			var configErr *coverage.ConfigurationError
			require.ErrorAs(t, err, &configErr)
			assert.Equal(t, tt.field, configErr.Field)
			assert.Equal(t, tt.message, err.Error())
		})
	}

	t.Run("complete settings", func(t *testing.T) {
		assert.NoError(t, Settings{ReportPath: "coverage.txt", OutputVariable: "failed"}.Validate())
	})
}

func TestResolveOutputFile(t *testing.T) {
	t.Setenv("GITHUB_OUTPUT", "/runner/output")

	assert.Equal(t, "/custom/out", Settings{OutputFile: "/custom/out"}.ResolveOutputFile())
	assert.Equal(t, "/runner/output", Settings{}.ResolveOutputFile())
}
