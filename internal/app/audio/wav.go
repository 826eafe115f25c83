package audio

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2/wav"
)

// wavDuration reads a WAV header and returns the clip length.
func wavDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "failed to open clip")
	}
	streamer, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return 0, errors.Wrap(err, "failed to decode wav")
	}
	defer streamer.Close()
	return format.SampleRate.D(streamer.Len()), nil
}
