// Package notice holds the transient success/error messages shown to the user.
package notice

import (
	"sync"
	"time"
)

// DefaultTTL is how long a notice stays visible
const DefaultTTL = 3 * time.Second

// HistorySize is how many past notices a Board keeps.
const HistorySize = 100

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

type Notice struct {
	ID      uint64
	Kind    Kind
	Message string
	At      time.Time
}

// Listener is told about every notice shown and every notice dismissed.
type Listener func(n Notice, visible bool)

// Notifier is the raising side of a Board, used by the view-models.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Board shows at most one notice at a time. A new notice replaces the visible one and
// restarts the dismiss timer.
type Board struct {
	mu        sync.Mutex
	ttl       time.Duration
	seq       uint64
	current   *Notice
	timer     *time.Timer
	history   []Notice
	listeners []Listener
	closed    bool
}

func NewBoard(ttl time.Duration) *Board {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Board{ttl: ttl}
}

func (b *Board) Success(msg string) { b.show(KindSuccess, msg) }

func (b *Board) Error(msg string) { b.show(KindError, msg) }

// Subscribe registers l. Listeners run on the goroutine that raised or dismissed the notice.
func (b *Board) Subscribe(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

// Current returns the visible notice, if any.
func (b *Board) Current() (Notice, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return Notice{}, false
	}
	return *b.current, true
}

// History returns the last HistorySize notices, oldest first.
func (b *Board) History() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Notice(nil), b.history...)
}

// Last returns the most recently raised notice even if it was dismissed already.
func (b *Board) Last() (Notice, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.history) == 0 {
		return Notice{}, false
	}
	return b.history[len(b.history)-1], true
}

func (b *Board) show(kind Kind, msg string) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.seq++
	n := Notice{ID: b.seq, Kind: kind, Message: msg, At: time.Now()}
	b.current = &n
	if len(b.history) == HistorySize {
		b.history = append(b.history[:0], b.history[1:]...)
	}
	b.history = append(b.history, n)
	if b.timer != nil {
		b.timer.Stop()
	}
	id := n.ID
	b.timer = time.AfterFunc(b.ttl, func() { b.dismiss(id) })
	listeners := append([]Listener(nil), b.listeners...)
	b.mu.Unlock()

	for _, l := range listeners {
		l(n, true)
	}
}

// dismiss clears the notice only if it is still the one the timer was armed for.
func (b *Board) dismiss(id uint64) {
	b.mu.Lock()
	if b.current == nil || b.current.ID != id {
		b.mu.Unlock()
		return
	}
	n := *b.current
	b.current = nil
	b.timer = nil
	listeners := append([]Listener(nil), b.listeners...)
	b.mu.Unlock()

	for _, l := range listeners {
		l(n, false)
	}
}

// Close stops the pending timer; later notices are dropped.
func (b *Board) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.current = nil
}
