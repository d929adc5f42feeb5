// Package telemetry sends anonymous command usage events. It is disabled
// unless a release key is compiled in, and honours DO_NOT_TRACK.
package telemetry

import (
	"io"
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/google/uuid"
	"github.com/meza/coverage-gate/internal/constants"
	"github.com/meza/coverage-gate/internal/environment"
	"github.com/posthog/posthog-go"
)

const endpoint = "https://eu.i.posthog.com"

type Client interface {
	io.Closer
	Enqueue(posthog.Message) error
}

type CommandTelemetry struct {
	Command  string
	Success  bool
	ExitCode int
	Error    error
	Extra    map[string]interface{}
}

var (
	clientBuilder = func(apiKey string) (Client, error) {
		return posthog.NewWithConfig(apiKey, posthog.Config{Endpoint: endpoint})
	}
	machineIDProvider = func() (string, error) {
		return machineid.ProtectedID(constants.AppName)
	}
	runID = uuid.NewString()
)

// RecordCommand sends one event for a finished command. Delivery problems are
// ignored; telemetry never changes a command's result.
func RecordCommand(command CommandTelemetry) {
	if command.Command == "" || environment.TelemetryDisabled() {
		return
	}

	client, err := clientBuilder(environment.PosthogAPIKey())
	if err != nil || client == nil {
		return
	}
	defer func() {
		_ = client.Close()
	}()

	_ = client.Enqueue(posthog.Capture{
		DistinctId: distinctID(),
		Event:      command.Command,
		Properties: properties(command),
	})
}

func properties(command CommandTelemetry) posthog.Properties {
	props := posthog.Properties{
		"type":     "command",
		"success":  command.Success,
		"exitCode": command.ExitCode,
		"runId":    runID,
		"version":  environment.AppVersion(),
	}
	if command.Error != nil {
		props["error"] = command.Error.Error()
	}
	if command.Extra != nil {
		props["extra"] = command.Extra
	}
	return props
}

func distinctID() string {
	if id, ok := os.LookupEnv("COVGATE_MACHINE_ID"); ok && id != "" {
		return id
	}
	if id, err := machineIDProvider(); err == nil && id != "" {
		return id
	}
	return runID
}
