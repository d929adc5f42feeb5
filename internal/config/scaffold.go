package config

import (
	"context"
	"os"

	"github.com/meza/coverage-gate/internal/coverage"
	"github.com/meza/coverage-gate/internal/perf"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"
)

const defaultFileMode os.FileMode = 0o644

const scaffoldHeader = "# covgate configuration. Environment variables prefixed with COVGATE_ override these values.\n"

// DefaultSettings is what `covgate init` writes.
func DefaultSettings() Settings {
	return Settings{
		ReportPath: "build/reports/emma/coverage.txt",
		Thresholds: coverage.ThresholdConfig{
			Class:  28,
			Method: 22,
			Block:  20,
			Line:   18,
		},
		OutputVariable: "coverage_failed",
	}
}

// WriteDefault writes DefaultSettings as YAML to path. An existing file is only
// replaced when force is set.
func WriteDefault(ctx context.Context, fs afero.Fs, path string, force bool) (Settings, error) {
	_, span := perf.StartSpan(ctx, "io.config.write", attribute.String("config_path", path), attribute.Bool("force", force))
	defer span.End()

	exists, err := afero.Exists(fs, path)
	if err != nil {
		return Settings{}, errors.Wrap(err, "failed to stat configuration file")
	}
	if exists && !force {
		return Settings{}, &ConfigFileExistsError{Path: path}
	}

	settings := DefaultSettings()
	body, err := yaml.Marshal(settings)
	if err != nil {
		return Settings{}, errors.Wrap(err, "failed to encode configuration")
	}

	data := append([]byte(scaffoldHeader), body...)
	if err := writeFileAtomic(fs, path, data); err != nil {
		return Settings{}, err
	}
	settings.Source = path
	return settings, nil
}

// writeFileAtomic writes to a sibling temp file and renames it over the target
// so readers never observe a half-written config.
func writeFileAtomic(fs afero.Fs, targetPath string, data []byte) error {
	tempPath := targetPath + ".covgate.tmp"
	if err := afero.WriteFile(fs, tempPath, data, defaultFileMode); err != nil {
		return errors.Wrapf(err, "failed to write temp file %s", tempPath)
	}
	if err := fs.Rename(tempPath, targetPath); err != nil {
		if removeErr := fs.Remove(tempPath); removeErr != nil && !os.IsNotExist(removeErr) {
			return errors.Wrapf(err, "failed to replace %s (temp file %s left behind: %v)", targetPath, tempPath, removeErr)
		}
		return errors.Wrapf(err, "failed to replace %s", targetPath)
	}
	return nil
}
