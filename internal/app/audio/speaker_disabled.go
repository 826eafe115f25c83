//go:build !speaker

package audio

func newSpeakerBackend(SpeakerBackendConfig, Files) (Backend, error) {
	return nil, ErrSpeakerUnavailable
}
