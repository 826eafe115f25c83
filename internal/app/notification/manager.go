// Package notification fans timer events out to stream subscribers.
//
// Every subscriber owns a bounded queue drained by its own goroutine, so
// Broadcast never waits on a stream. Sequence numbers are stamped under the
// manager lock; a subscription that starts with an initial state event sees
// that event first and only events stamped after it.
package notification

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	medtimerv1 "github.com/osa030/medtimer/internal/api/medtimerv1"
)

const (
	// sendTimeout bounds a single stream send.
	sendTimeout = 500 * time.Millisecond
	// queueSize is the number of undelivered events a subscriber may lag.
	queueSize = 64
)

var (
	// ErrSendTimeout ends a subscription whose stream did not accept an
	// event within sendTimeout.
	ErrSendTimeout = errors.New("notification: send timed out")
	// ErrQueueFull ends a subscription that fell queueSize events behind.
	ErrQueueFull = errors.New("notification: subscriber queue full")
)

// Stream receives events for one subscriber. Send is never called
// concurrently for the same stream.
type Stream interface {
	Send(*medtimerv1.Event) error
}

// Subscription is a registered stream.
type Subscription struct {
	id     string
	stream Stream
	queue  chan *medtimerv1.Event

	done chan struct{}
	once sync.Once
	err  error
}

// ID returns the subscription id.
func (s *Subscription) ID() string {
	return s.id
}

// Done is closed once the subscription has ended.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err reports why the subscription ended. It is nil while the subscription
// is live and after Unsubscribe or Close.
func (s *Subscription) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

func (s *Subscription) end(err error) {
	s.once.Do(func() {
		s.err = err
		close(s.done)
	})
}

func (s *Subscription) deliver(m *Manager) {
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.queue:
			if err := s.send(ev); err != nil {
				zlog.Warn().Err(err).Msgf("notification: dropping subscriber: id=%s seq=%d", s.id, ev.SequenceNo)
				m.remove(s.id, err)
				return
			}
		}
	}
}

func (s *Subscription) send(ev *medtimerv1.Event) error {
	result := make(chan error, 1)
	go func() {
		result <- s.stream.Send(ev)
	}()

	timer := time.NewTimer(sendTimeout)
	defer timer.Stop()

	select {
	case err := <-result:
		return err
	case <-timer.C:
		return ErrSendTimeout
	}
}

// Manager tracks subscriptions and broadcasts events to them.
type Manager struct {
	mu     sync.Mutex
	subs   map[string]*Subscription
	seq    uint64
	closed bool
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{
		subs: make(map[string]*Subscription),
	}
}

// Subscribe registers stream for events broadcast from now on.
func (m *Manager) Subscribe(stream Stream) *Subscription {
	return m.SubscribeWithInitial(stream, nil)
}

// SubscribeWithInitial registers stream and queues the event built by
// initial as its first delivery. initial runs under the manager lock, so no
// broadcast can be stamped between the snapshot and the registration; it
// must not call back into the manager.
func (m *Manager) SubscribeWithInitial(stream Stream, initial func() *medtimerv1.Event) *Subscription {
	sub := &Subscription{
		id:     uuid.New().String(),
		stream: stream,
		queue:  make(chan *medtimerv1.Event, queueSize),
		done:   make(chan struct{}),
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		sub.end(nil)
		return sub
	}
	if initial != nil {
		if ev := initial(); ev != nil {
			m.seq++
			ev.SequenceNo = m.seq
			sub.queue <- ev
		}
	}
	m.subs[sub.id] = sub
	total := len(m.subs)
	m.mu.Unlock()

	zlog.Debug().Msgf("notification: subscribed: id=%s total=%d", sub.id, total)
	go sub.deliver(m)
	return sub
}

// Unsubscribe ends a subscription. Unknown ids are ignored.
func (m *Manager) Unsubscribe(id string) {
	m.remove(id, nil)
}

func (m *Manager) remove(id string, err error) {
	m.mu.Lock()
	sub, ok := m.subs[id]
	delete(m.subs, id)
	total := len(m.subs)
	m.mu.Unlock()

	if ok {
		sub.end(err)
		zlog.Debug().Msgf("notification: unsubscribed: id=%s total=%d", id, total)
	}
}

// Broadcast stamps event with the next sequence number and queues it for
// every subscriber. A subscriber whose queue is full is dropped.
func (m *Manager) Broadcast(event *medtimerv1.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	event.SequenceNo = m.seq

	for id, sub := range m.subs {
		select {
		case sub.queue <- event:
		default:
			zlog.Warn().Msgf("notification: dropping subscriber: id=%s seq=%d: queue full", id, event.SequenceNo)
			delete(m.subs, id)
			sub.end(ErrQueueFull)
		}
	}
}

// SubscriberCount returns the number of live subscriptions.
func (m *Manager) SubscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// Close ends every subscription. Later subscriptions end immediately.
func (m *Manager) Close() {
	m.mu.Lock()
	subs := m.subs
	m.subs = make(map[string]*Subscription)
	m.closed = true
	m.mu.Unlock()

	for _, sub := range subs {
		sub.end(nil)
	}
}
