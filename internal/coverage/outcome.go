package coverage

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusPassed Status = "PASSED"
	StatusFailed Status = "FAILED"
	StatusError  Status = "ERROR"
)

// Failure describes a metric whose actual value is below its threshold.
type Failure struct {
	Metric   Metric
	Required int
	Actual   Percentage
}

// String renders the failure the way the aggregate message lists it, without the line separator.
// The padding keeps the "Required:" column aligned across metrics.
func (failure Failure) String() string {
	padding := strings.Repeat(" ", 7-len(failure.Metric.String()))
	return fmt.Sprintf("   Failed %s coverage threshold.%sRequired: %d, actual: %s", failure.Metric, padding, failure.Required, failure.Actual.Text)
}

// Outcome is the terminal result of a single Check call.
type Outcome struct {
	Status   Status
	Message  string
	Err      error
	Result   Result
	Failures []Failure
}

func (outcome Outcome) Passed() bool {
	return outcome.Status == StatusPassed
}

func (outcome Outcome) Failed() bool {
	return outcome.Status == StatusFailed
}

func (outcome Outcome) Errored() bool {
	return outcome.Status == StatusError
}

func passed(result Result) Outcome {
	return Outcome{Status: StatusPassed, Result: result}
}

func failed(result Result, failures []Failure) Outcome {
	return Outcome{
		Status:   StatusFailed,
		Message:  FailureMessage(failures),
		Result:   result,
		Failures: failures,
	}
}

func errored(err error) Outcome {
	return Outcome{Status: StatusError, Message: err.Error(), Err: err}
}

// FailureMessage joins the failures into the aggregate message, each line
// terminated by the platform line separator.
func FailureMessage(failures []Failure) string {
	var sb strings.Builder
	for _, failure := range failures {
		sb.WriteString(failure.String())
		sb.WriteString(LineSeparator)
	}
	return sb.String()
}
