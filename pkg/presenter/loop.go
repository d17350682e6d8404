// Package presenter provides single-threaded render surfaces for the
// status text.
package presenter

import (
	"errors"
	"sync"
)

// ErrClosed is returned by Do after the loop has been closed.
var ErrClosed = errors.New("presentation loop closed")

// Loop runs functions one at a time on a dedicated goroutine.
type Loop struct {
	tasks chan func()
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

// NewLoop starts a loop.
func NewLoop() *Loop {
	l := &Loop{
		tasks: make(chan func()),
		done:  make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.done)
	for fn := range l.tasks {
		fn()
	}
}

// Do runs fn on the loop goroutine and waits for it to return.
func (l *Loop) Do(fn func()) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return ErrClosed
	}

	finished := make(chan struct{})
	l.tasks <- func() {
		defer close(finished)
		fn()
	}
	<-finished
	return nil
}

// Closed reports whether Close has been called.
func (l *Loop) Closed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.closed
}

// Close stops the loop after in-flight calls return.
func (l *Loop) Close() {
	l.once.Do(func() {
		l.mu.Lock()
		l.closed = true
		close(l.tasks)
		l.mu.Unlock()
		<-l.done
	})
}
