package coverage

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// HeaderMarker starts the line that precedes the overall coverage figures.
const HeaderMarker = "[class, %]"

const (
	minDataLineLength = 30
	columnSeparator   = "!"
	maxLineLength     = 1024 * 1024
)

// FindDataLine returns the line that immediately follows the first line
// starting with HeaderMarker. Reading stops as soon as it is captured.
func FindDataLine(reader io.Reader) (string, error) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	for scanner.Scan() {
		if !strings.HasPrefix(scanner.Text(), HeaderMarker) {
			continue
		}
		if scanner.Scan() {
			return scanner.Text(), nil
		}
		break
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", ErrDataLineMissing
}

// ParseLine reads the class, method, block and line percentages from a data
// line such as:
//
//	28% (52/184)! 22% (378/1720)! 20% (7700/38446)! 18% (1382.5/7553)! all classes
func ParseLine(line string) (Result, error) {
	if len(line) <= minDataLineLength {
		return Result{}, &FormatError{Line: line, Err: ErrDataLineTooShort}
	}

	columns := strings.Split(line, columnSeparator)
	metrics := Metrics()
	if len(columns) < len(metrics) {
		return Result{}, &FormatError{
			Line: line,
			Err:  errors.Wrapf(ErrMalformedSegment, "found %d columns, want %d", len(columns), len(metrics)),
		}
	}

	var result Result
	for _, metric := range metrics {
		percentage, err := parseColumn(columns[metric])
		if err != nil {
			return Result{}, &FormatError{Line: line, Err: errors.Wrapf(err, "%s column", metric)}
		}
		result.set(metric, percentage)
	}
	return result, nil
}

func parseColumn(column string) (Percentage, error) {
	text := strings.TrimSpace(column)
	idx := strings.Index(text, "%")
	if idx == -1 {
		return Percentage{}, errors.Wrapf(ErrMalformedSegment, "no percent sign in %q", text)
	}

	value, err := strconv.Atoi(strings.TrimSpace(text[:idx]))
	if err != nil {
		return Percentage{}, errors.Wrapf(ErrMalformedSegment, "%q is not a whole percentage", text[:idx])
	}
	return Percentage{Value: value, Text: text}, nil
}
