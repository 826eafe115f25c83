package preferences

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/medtimer/internal/domain/meditation"
)

func TestYAMLStore_MissingFileReturnsFallback(t *testing.T) {
	s := NewYAMLStore(filepath.Join(t.TempDir(), "preferences.yaml"))

	got, err := s.Load(meditation.DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, meditation.DefaultSettings(), got)
}

func TestYAMLStore_SaveThenLoad(t *testing.T) {
	s := NewYAMLStore(filepath.Join(t.TempDir(), "nested", "preferences.yaml"))
	want := meditation.Settings{
		CountdownSeconds: 5,
		IntervalUnit:     12,
		NumIntervals:     3,
		WhiteNoiseVolume: 0.25,
		Debug:            true,
	}

	require.NoError(t, s.Save(want))

	got, err := s.Load(meditation.DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestYAMLStore_PartialFileKeepsFallbackAndClamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.yaml")
	require.NoError(t, os.WriteFile(path, []byte("num_intervals: 40\nwhite_noise_volume: 0.5\n"), 0o644))

	got, err := NewYAMLStore(path).Load(meditation.DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, 10, got.CountdownSeconds)
	assert.Equal(t, 7, got.IntervalUnit)
	assert.Equal(t, 10, got.NumIntervals)
	assert.Equal(t, 0.5, got.WhiteNoiseVolume)
}

func TestYAMLStore_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.yaml")
	require.NoError(t, os.WriteFile(path, []byte("countdown_seconds: [1,"), 0o644))

	got, err := NewYAMLStore(path).Load(meditation.DefaultSettings())
	require.Error(t, err)
	assert.Equal(t, meditation.DefaultSettings(), got)
}

func TestYAMLStore_EmptyPathDisablesPersistence(t *testing.T) {
	s := NewYAMLStore("")

	require.NoError(t, s.Save(meditation.Settings{CountdownSeconds: 3}))
	got, err := s.Load(meditation.DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, meditation.DefaultSettings(), got)
}
