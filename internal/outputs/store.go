// Package outputs records named values for later build steps in a GitHub
// Actions style output file.
package outputs

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/meza/coverage-gate/internal/perf"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
)

var ErrNoOutputFile = errors.New("no output file configured")

const delimiterPrefix = "COVGATE_"

var newDelimiter = func() string {
	return delimiterPrefix + uuid.NewString()
}

// Store sets build variables. SetNew never replaces a value that is already
// present and reports whether it wrote anything.
type Store interface {
	SetNew(ctx context.Context, name string, value string) (bool, error)
}

type FileStore struct {
	fs   afero.Fs
	path string
}

func NewFileStore(fs afero.Fs, path string) *FileStore {
	return &FileStore{fs: fs, path: path}
}

func (store *FileStore) Path() string {
	return store.path
}

func (store *FileStore) SetNew(ctx context.Context, name string, value string) (bool, error) {
	if store.path == "" {
		return false, ErrNoOutputFile
	}
	if strings.TrimSpace(name) == "" || strings.ContainsAny(name, "=\r\n") {
		return false, errors.Errorf("invalid output name %q", name)
	}

	_, span := perf.StartSpan(ctx, "io.outputs.write", attribute.String("output_path", store.path), attribute.String("name", name))
	defer span.End()

	present, err := store.has(name)
	if err != nil {
		return false, err
	}
	span.SetAttributes(attribute.Bool("already_set", present))
	if present {
		return false, nil
	}

	delimiter := newDelimiter()
	if strings.Contains(value, delimiter) {
		return false, errors.Errorf("output value for %q contains its delimiter", name)
	}

	file, err := store.fs.OpenFile(store.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return false, errors.Wrapf(err, "failed to open output file %s", store.path)
	}
	defer func() {
		_ = file.Close()
	}()

	if _, err := fmt.Fprintf(file, "%s<<%s\n%s\n%s\n", name, delimiter, strings.TrimRight(value, "\r\n"), delimiter); err != nil {
		return false, errors.Wrapf(err, "failed to write output %s", name)
	}
	return true, nil
}

// Lookup returns the value recorded for name, if any. Both `name=value` and
// heredoc entries are understood.
func (store *FileStore) Lookup(name string) (string, bool, error) {
	data, err := afero.ReadFile(store.fs, store.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, errors.Wrapf(err, "failed to read output file %s", store.path)
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		key, delimiter, heredoc := strings.Cut(line, "<<")
		if !heredoc || strings.Contains(key, "=") {
			if value, ok := strings.CutPrefix(line, name+"="); ok {
				return value, true, nil
			}
			continue
		}
		// Heredoc bodies belong to their own entry, even when they look like assignments.
		var body []string
		for scanner.Scan() {
			if scanner.Text() == delimiter {
				break
			}
			body = append(body, scanner.Text())
		}
		if key == name {
			return strings.Join(body, "\n"), true, nil
		}
	}
	return "", false, scanner.Err()
}

func (store *FileStore) has(name string) (bool, error) {
	_, ok, err := store.Lookup(name)
	return ok, err
}
