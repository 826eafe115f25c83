package timer

import "time"

// Clock abstracts time so tests can drive the engine. Since must measure
// monotonic time; Now is used both as an anchor and as the wall-clock
// session start.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
	NewTicker(d time.Duration) Ticker
}

// Ticker is the subset of time.Ticker the engine uses.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// SystemClock uses the time package. time.Now carries a monotonic reading,
// so Since is immune to wall-clock adjustments.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) Since(t time.Time) time.Duration { return time.Since(t) }

func (SystemClock) NewTicker(d time.Duration) Ticker {
	return systemTicker{time.NewTicker(d)}
}

type systemTicker struct {
	t *time.Ticker
}

func (s systemTicker) C() <-chan time.Time { return s.t.C }

func (s systemTicker) Stop() { s.t.Stop() }
