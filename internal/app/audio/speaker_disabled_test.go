//go:build !speaker

package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/medtimer/internal/infra/config"
)

func TestNewBackendFromConfig_SpeakerNotBuiltIn(t *testing.T) {
	b, err := NewBackendFromConfig(config.AudioConfig{Backend: "speaker"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSpeakerUnavailable)
	assert.Nil(t, b)
}
