// Package power keeps the host awake while a meditation run is active.
package power

import (
	"context"
	"os/exec"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/medtimer/internal/infra/config"
)

// Inhibitor is the wake-lock equivalent. Acquire and Release are idempotent.
type Inhibitor interface {
	Acquire() error
	Release()
}

// NewFromConfig creates the configured inhibitor.
func NewFromConfig(cfg *config.Config) (Inhibitor, error) {
	switch cfg.Power.Inhibitor {
	case "none":
		return Nop{}, nil
	case "command":
		return NewCommandInhibitor(cfg.InhibitCommand(), cfg.MaxHold())
	default:
		return nil, errors.Newf("unsupported inhibitor: %s", cfg.Power.Inhibitor)
	}
}

// Nop never inhibits anything.
type Nop struct{}

func (Nop) Acquire() error { return nil }
func (Nop) Release()       {}

// CommandInhibitor holds a helper process (systemd-inhibit, caffeinate, ...)
// for as long as the lock is held, at most maxHold.
type CommandInhibitor struct {
	mu      sync.Mutex
	argv    []string
	maxHold time.Duration
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewCommandInhibitor validates that argv[0] exists.
func NewCommandInhibitor(argv []string, maxHold time.Duration) (*CommandInhibitor, error) {
	if len(argv) == 0 {
		return nil, errors.New("inhibitor command is empty")
	}
	if _, err := exec.LookPath(argv[0]); err != nil {
		return nil, errors.Wrapf(err, "inhibitor %q not found", argv[0])
	}
	return &CommandInhibitor{argv: argv, maxHold: maxHold}, nil
}

func (i *CommandInhibitor) Acquire() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.cancel != nil {
		select {
		case <-i.done:
			// Expired or exited; start a fresh one.
			i.cancel()
			i.cancel = nil
		default:
			return nil
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), i.maxHold)
	cmd := exec.CommandContext(ctx, i.argv[0], i.argv[1:]...)
	if err := cmd.Start(); err != nil {
		cancel()
		return errors.Wrapf(err, "failed to start %s", i.argv[0])
	}

	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		if ctx.Err() == context.DeadlineExceeded {
			zlog.Warn().Msgf("power: inhibitor released after max hold of %v", i.maxHold)
		}
		close(done)
	}()

	i.cancel = cancel
	i.done = done
	zlog.Debug().Msgf("power: inhibitor acquired: pid=%d", cmd.Process.Pid)
	return nil
}

func (i *CommandInhibitor) Release() {
	i.mu.Lock()
	cancel, done := i.cancel, i.done
	i.cancel = nil
	i.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	zlog.Debug().Msg("power: inhibitor released")
}

// Held reports whether the helper process is running.
func (i *CommandInhibitor) Held() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.cancel == nil {
		return false
	}
	select {
	case <-i.done:
		return false
	default:
		return true
	}
}
