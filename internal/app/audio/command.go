package audio

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// CommandBackendConfig configures the external-player backend.
// Args may contain {file}, {volume} (0..1), {volume_percent} (0..100) and
// {volume_pulse} (0..65536).
type CommandBackendConfig struct {
	Program string   `yaml:"program" mapstructure:"program" default:"paplay" validate:"required"`
	Args    []string `yaml:"args" mapstructure:"args"`
}

var defaultCommandArgs = []string{"--volume={volume_pulse}", "{file}"}

// CommandBackend plays each sound by running an external player process.
// Volume is fixed per process, so SetVolume takes effect on the next
// ambience pass.
type CommandBackend struct {
	config    CommandBackendConfig
	files     Files
	durations map[Sound]time.Duration
}

// NewCommandBackend creates a backend that shells out to config.Program.
func NewCommandBackend(config CommandBackendConfig, files Files) (*CommandBackend, error) {
	if _, err := exec.LookPath(config.Program); err != nil {
		return nil, errors.Wrapf(err, "audio player %q not found", config.Program)
	}
	if len(config.Args) == 0 {
		config.Args = defaultCommandArgs
	}

	durations := make(map[Sound]time.Duration)
	if files.Ambience != "" {
		d, err := wavDuration(files.Ambience)
		if err != nil {
			return nil, err
		}
		durations[SoundAmbience] = d
	}

	return &CommandBackend{config: config, files: files, durations: durations}, nil
}

func (b *CommandBackend) Play(sound Sound, volume float64) (Handle, error) {
	file := b.files.Path(sound)
	if file == "" {
		return nil, errors.Newf("no file configured for %s", sound)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, b.config.Program, expandArgs(b.config.Args, file, volume)...)
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, errors.Wrapf(err, "failed to start %s", b.config.Program)
	}

	h := &processHandle{cancel: cancel, done: make(chan struct{})}
	go func() {
		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			zlog.Warn().Err(err).Msgf("audio: %s exited with error for %s", b.config.Program, sound)
		}
		cancel()
		close(h.done)
	}()
	return h, nil
}

func (b *CommandBackend) Duration(sound Sound) (time.Duration, error) {
	if d, ok := b.durations[sound]; ok {
		return d, nil
	}
	file := b.files.Path(sound)
	if file == "" {
		return 0, errors.Newf("no file configured for %s", sound)
	}
	return wavDuration(file)
}

func (b *CommandBackend) Close() error {
	return nil
}

func expandArgs(args []string, file string, volume float64) []string {
	r := strings.NewReplacer(
		"{file}", file,
		"{volume}", strconv.FormatFloat(volume, 'f', 2, 64),
		"{volume_percent}", strconv.Itoa(int(volume*100+0.5)),
		// PulseAudio scale: 65536 is 100%.
		"{volume_pulse}", strconv.Itoa(int(volume*65536+0.5)),
	)
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = r.Replace(a)
	}
	return out
}

// processHandle is a running player process.
type processHandle struct {
	once   sync.Once
	cancel context.CancelFunc
	done   chan struct{}
}

func (h *processHandle) Stop() {
	h.once.Do(h.cancel)
}

func (h *processHandle) SetVolume(float64) {}

func (h *processHandle) Done() <-chan struct{} {
	return h.done
}
