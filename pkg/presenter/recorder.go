package presenter

import (
	"sync"
	"time"
)

// Recorder remembers the last rendered text.
type Recorder struct {
	mu      sync.RWMutex
	text    string
	renders int
	at      time.Time
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Render(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.text = text
	r.renders++
	r.at = time.Now()
}

func (r *Recorder) Available() bool { return true }

// Last returns the last text and when it was rendered. ok is false before
// the first render.
func (r *Recorder) Last() (text string, at time.Time, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.text, r.at, r.renders > 0
}

// Renders returns the number of renders so far.
func (r *Recorder) Renders() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.renders
}
