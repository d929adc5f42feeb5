package perf

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

const defaultExportFilename = "covgate-perf.json"

// ExportToFile writes the spans as JSON to <outDir>/covgate-perf.json. Absolute
// paths in path-like attributes are rewritten relative to baseDir so the file
// stays portable between machines.
//
// The export is a diagnostic artifact; callers treat a returned error as non-fatal.
func ExportToFile(fs afero.Fs, outDir string, baseDir string, spans []SpanSnapshot) (string, error) {
	if outDir == "" {
		outDir = "."
	}

	normalized := make([]SpanSnapshot, 0, len(spans))
	for _, span := range spans {
		span.Attributes = normalizeAttributes(span.Attributes, baseDir)
		normalized = append(normalized, span)
	}

	if err := fs.MkdirAll(outDir, 0o755); err != nil {
		return "", errors.Wrap(err, "create perf output directory")
	}

	path := filepath.Join(outDir, defaultExportFilename)
	data, err := json.MarshalIndent(normalized, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encode perf spans")
	}

	return path, afero.WriteFile(fs, path, data, 0o644)
}

func normalizeAttributes(attrs map[string]interface{}, baseDir string) map[string]interface{} {
	if len(attrs) == 0 {
		return attrs
	}

	normalized := make(map[string]interface{}, len(attrs))
	for key, value := range attrs {
		normalized[key] = normalizeValue(key, value, baseDir)
	}
	return normalized
}

func normalizeValue(key string, value interface{}, baseDir string) interface{} {
	stringValue, ok := value.(string)
	if !ok || !looksLikePathKey(key) {
		return value
	}

	if baseDir != "" && filepath.IsAbs(stringValue) {
		if rel, err := filepath.Rel(baseDir, stringValue); err == nil {
			return exportPath(rel)
		}
	}
	return exportPath(stringValue)
}

func looksLikePathKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	return key == "path" || strings.HasSuffix(key, "_path")
}

func exportPath(value string) string {
	cleaned := filepath.Clean(value)
	if cleaned == "." {
		return cleaned
	}
	return filepath.ToSlash(strings.TrimPrefix(cleaned, "./"))
}
