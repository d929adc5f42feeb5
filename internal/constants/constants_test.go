package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstants(t *testing.T) {
	assert.Equal(t, "coverage-gate", AppName)
	assert.Equal(t, "covgate", CommandName)
	assert.Equal(t, "covgate.yaml", DefaultConfigFile)
	assert.Equal(t, "COVGATE", EnvPrefix)
}
