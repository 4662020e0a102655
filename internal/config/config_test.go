package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSplitCSV(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitCSV("a,b,c"))
	assert.Equal(t, []string{"a", "b"}, splitCSV("a, b ,"))
	assert.Nil(t, splitCSV(""))
}

func TestEnvIntFallsBackToDefault(t *testing.T) {
	t.Setenv("TEST_ENV_INT_UNSET", "")
	assert.Equal(t, 7, envInt("TEST_ENV_INT_UNSET_MISSING", 7))

	t.Setenv("TEST_ENV_INT", "42")
	assert.Equal(t, 42, envInt("TEST_ENV_INT", 7))

	t.Setenv("TEST_ENV_INT_BAD", "not-a-number")
	assert.Equal(t, 7, envInt("TEST_ENV_INT_BAD", 7))
}

func TestEnvDurationFallsBackToDefault(t *testing.T) {
	assert.Equal(t, 3*time.Second, envDuration("TEST_ENV_DURATION_MISSING", 3*time.Second))

	t.Setenv("TEST_ENV_DURATION", "10s")
	assert.Equal(t, 10*time.Second, envDuration("TEST_ENV_DURATION", time.Second))

	t.Setenv("TEST_ENV_DURATION_BAD", "nonsense")
	assert.Equal(t, time.Second, envDuration("TEST_ENV_DURATION_BAD", time.Second))
}
