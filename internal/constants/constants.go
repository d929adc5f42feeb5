// Package constants defines shared constant values.
package constants

// AppName is the project identifier used in logs and metadata.
const AppName = "coverage-gate"

// CommandName is the primary CLI command name.
const CommandName = "covgate"

// DefaultConfigFile is the name `covgate init` writes.
const DefaultConfigFile = "covgate.yaml"

// EnvPrefix namespaces environment overrides, e.g. COVGATE_THRESHOLDS_LINE.
const EnvPrefix = "COVGATE"
