package power

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/medtimer/internal/infra/config"
)

func TestCommandInhibitor_AcquireRelease(t *testing.T) {
	inh, err := NewCommandInhibitor([]string{"sleep", "60"}, time.Minute)
	require.NoError(t, err)

	require.NoError(t, inh.Acquire())
	assert.True(t, inh.Held())

	// Second acquire keeps the same process.
	require.NoError(t, inh.Acquire())
	assert.True(t, inh.Held())

	inh.Release()
	assert.False(t, inh.Held())

	// Releasing again is a no-op.
	inh.Release()
}

func TestCommandInhibitor_MaxHold(t *testing.T) {
	inh, err := NewCommandInhibitor([]string{"sleep", "60"}, 50*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, inh.Acquire())
	assert.Eventually(t, func() bool { return !inh.Held() }, 5*time.Second, 10*time.Millisecond)

	// Re-acquiring after expiry starts a new helper.
	require.NoError(t, inh.Acquire())
	inh.Release()
}

func TestNewCommandInhibitor_Errors(t *testing.T) {
	_, err := NewCommandInhibitor(nil, time.Minute)
	assert.Error(t, err)

	_, err = NewCommandInhibitor([]string{"no-such-inhibitor-binary"}, time.Minute)
	assert.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	inh, err := NewFromConfig(&config.Config{Power: config.PowerConfig{Inhibitor: "none"}})
	require.NoError(t, err)
	assert.IsType(t, Nop{}, inh)

	inh, err = NewFromConfig(&config.Config{Power: config.PowerConfig{
		Inhibitor:      "command",
		Command:        []string{"sleep", "1"},
		MaxHoldMinutes: 1,
	}})
	require.NoError(t, err)
	assert.IsType(t, &CommandInhibitor{}, inh)
}
