// Package environment reads runtime environment configuration.
package environment

import (
	"os"
	"strings"
)

var (
	posthogAPIKeyDefault = "REPL_POSTHOG_API_KEY" // #nosec G101 -- build-time placeholder replaced in release builds.
	appVersion           = "REPL_VERSION"
)

func PosthogAPIKey() string {
	key, present := os.LookupEnv("COVGATE_POSTHOG_API_KEY")
	if present {
		return key
	}

	return posthogAPIKeyDefault
}

// TelemetryDisabled honours DO_NOT_TRACK and COVGATE_NO_TELEMETRY, and treats
// an unreplaced build placeholder as "no key".
func TelemetryDisabled() bool {
	if isTruthy(os.Getenv("DO_NOT_TRACK")) || isTruthy(os.Getenv("COVGATE_NO_TELEMETRY")) {
		return true
	}
	key := PosthogAPIKey()
	return key == "" || strings.HasPrefix(key, "REPL_")
}

// GitHubOutputPath is the step output file GitHub Actions provides, or "".
func GitHubOutputPath() string {
	return os.Getenv("GITHUB_OUTPUT")
}

func AppVersion() string {
	return appVersion
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
