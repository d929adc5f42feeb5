// Package config loads covgate settings from a config file and COVGATE_ environment variables.
package config

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/meza/coverage-gate/internal/constants"
	"github.com/meza/coverage-gate/internal/coverage"
	"github.com/meza/coverage-gate/internal/environment"
	"github.com/meza/coverage-gate/internal/perf"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"
)

const (
	MissingReportMessage         = "Requires full path to coverage report."
	MissingOutputVariableMessage = "Requires 'output-variable' to be set."
)

// Candidates are tried in order when no explicit config path is given.
var Candidates = []string{
	"covgate.yaml",
	"covgate.yml",
	".covgate.yaml",
	".covgate.yml",
	"covgate.toml",
	"covgate.json",
}

type Settings struct {
	ReportPath     string                   `mapstructure:"report" yaml:"report"`
	Thresholds     coverage.ThresholdConfig `mapstructure:"thresholds" yaml:"thresholds"`
	FailOnError    bool                     `mapstructure:"fail_on_error" yaml:"fail_on_error"`
	OutputVariable string                   `mapstructure:"output_variable" yaml:"output_variable"`
	OutputFile     string                   `mapstructure:"output_file" yaml:"output_file,omitempty"`
	StrictFormat   bool                     `mapstructure:"strict_format" yaml:"strict_format"`

	// Source is the file the settings were read from, empty when none was found.
	Source string `mapstructure:"-" yaml:"-"`
}

// Discover returns the first candidate config file present in workDir.
func Discover(fs afero.Fs, workDir string) string {
	for _, name := range Candidates {
		candidate := filepath.Join(workDir, name)
		if exists, err := afero.Exists(fs, candidate); err == nil && exists {
			return candidate
		}
	}
	return ""
}

// Load reads settings from path, or from a discovered config file when path is
// empty. A missing discovered file is not an error; a missing explicit one is.
// COVGATE_ environment variables override file values.
func Load(ctx context.Context, fs afero.Fs, path string, workDir string) (Settings, error) {
	explicit := path != ""
	if !explicit {
		path = Discover(fs, workDir)
	}

	_, span := perf.StartSpan(ctx, "io.config.read",
		attribute.String("config_path", path),
		attribute.Bool("explicit", explicit),
	)
	defer span.End()

	v := viper.New()
	v.SetFs(fs)
	setDefaults(v)
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		exists, err := afero.Exists(fs, path)
		if err != nil {
			return Settings{}, errors.Wrap(err, "failed to stat configuration file")
		}
		if !exists {
			return Settings{}, &ConfigFileNotFoundError{Path: path}
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, &ConfigFileInvalidError{Path: path, Err: err}
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return Settings{}, &ConfigFileInvalidError{Path: path, Err: err}
	}
	settings.Source = path
	return settings, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("report", "")
	v.SetDefault("thresholds.class", 0)
	v.SetDefault("thresholds.method", 0)
	v.SetDefault("thresholds.block", 0)
	v.SetDefault("thresholds.line", 0)
	v.SetDefault("fail_on_error", false)
	v.SetDefault("output_variable", "")
	v.SetDefault("output_file", "")
	v.SetDefault("strict_format", false)
}

// Validate checks the settings the checker cannot run without. The report path
// is checked first, then the output variable.
func (settings Settings) Validate() error {
	if settings.ReportPath == "" {
		return &coverage.ConfigurationError{Field: "report", Message: MissingReportMessage}
	}
	if settings.OutputVariable == "" {
		return &coverage.ConfigurationError{Field: "output_variable", Message: MissingOutputVariableMessage}
	}
	return nil
}

// ResolveOutputFile prefers the configured output file and falls back to $GITHUB_OUTPUT.
func (settings Settings) ResolveOutputFile() string {
	if settings.OutputFile != "" {
		return settings.OutputFile
	}
	return environment.GitHubOutputPath()
}
