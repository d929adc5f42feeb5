package coverage

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
)

var (
	ErrDataLineMissing  = errors.New("no data line follows the [class, %] header")
	ErrDataLineTooShort = errors.New("data line is too short")
	ErrMalformedSegment = errors.New("malformed coverage column")
)

// ConfigurationError reports a missing required setting. It is raised before
// any file is touched.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

type ReportNotFoundError struct {
	Path string
	Err  error
}

func (e *ReportNotFoundError) Error() string {
	return fmt.Sprintf("Coverage results file not found %s: %s", e.Path, systemMessage(e.Err))
}

func (e *ReportNotFoundError) Unwrap() error {
	return e.Err
}

type ReportReadError struct {
	Path string
	Err  error
}

func (e *ReportReadError) Error() string {
	return fmt.Sprintf("Error reading coverage file %s: %s", e.Path, systemMessage(e.Err))
}

func (e *ReportReadError) Unwrap() error {
	return e.Err
}

// FormatError means the data line could not be read as four percentage columns.
type FormatError struct {
	Line string
	Err  error
}

func (e *FormatError) Error() string {
	return "Invalid line read from report file. Has the format changed? " + e.Line
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Recoverable reports whether the zero-value fallback applies. Only a missing
// or short data line qualifies; a malformed column never does.
func (e *FormatError) Recoverable() bool {
	return errors.Is(e.Err, ErrDataLineMissing) || errors.Is(e.Err, ErrDataLineTooShort)
}

// systemMessage strips the operation and path that *os.PathError prepends,
// leaving only the OS reason.
func systemMessage(err error) string {
	if err == nil {
		return ""
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) && pathErr.Err != nil {
		return pathErr.Err.Error()
	}
	return err.Error()
}
