// Package coverage reads EMMA text summary reports and checks them against minimum thresholds.
package coverage

type Metric int

const (
	Class Metric = iota
	Method
	Block
	Line
)

var metricNames = [...]string{"class", "method", "block", "line"}

func (metric Metric) String() string {
	if metric < Class || metric > Line {
		return "unknown"
	}
	return metricNames[metric]
}

// Metrics returns every metric in report column order.
func Metrics() []Metric {
	return []Metric{Class, Method, Block, Line}
}

// ThresholdConfig holds the minimum accepted percentage for each metric.
type ThresholdConfig struct {
	Class  int `json:"class" mapstructure:"class" yaml:"class"`
	Method int `json:"method" mapstructure:"method" yaml:"method"`
	Block  int `json:"block" mapstructure:"block" yaml:"block"`
	Line   int `json:"line" mapstructure:"line" yaml:"line"`
}

func (thresholds ThresholdConfig) For(metric Metric) int {
	switch metric {
	case Class:
		return thresholds.Class
	case Method:
		return thresholds.Method
	case Block:
		return thresholds.Block
	case Line:
		return thresholds.Line
	default:
		return 0
	}
}

// Percentage is one parsed report column. Text keeps the trimmed column as it
// appeared in the report, e.g. "28% (52/184)".
type Percentage struct {
	Value int    `json:"value"`
	Text  string `json:"text"`
}

type Result struct {
	Class  Percentage `json:"class"`
	Method Percentage `json:"method"`
	Block  Percentage `json:"block"`
	Line   Percentage `json:"line"`
}

func (result Result) Get(metric Metric) Percentage {
	switch metric {
	case Class:
		return result.Class
	case Method:
		return result.Method
	case Block:
		return result.Block
	case Line:
		return result.Line
	default:
		return Percentage{}
	}
}

func (result *Result) set(metric Metric, percentage Percentage) {
	switch metric {
	case Class:
		result.Class = percentage
	case Method:
		result.Method = percentage
	case Block:
		result.Block = percentage
	case Line:
		result.Line = percentage
	}
}
