package version

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersion(t *testing.T) {
	t.Setenv("COVGATE_TEST", "true")
	command := Command()

	assert.Equal(t, "version", command.Use)
	assert.Equal(t, "cmd.version.short map[appName:coverage-gate]", command.Short)
}

func TestVersionOutput(t *testing.T) {
	t.Setenv("COVGATE_TEST", "true")
	out := &bytes.Buffer{}
	command := Command()
	command.SetOut(out)
	command.SetArgs([]string{})

	assert.NoError(t, command.Execute())
	assert.Equal(t, "REPL_VERSION\n", out.String())
}
