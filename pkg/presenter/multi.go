package presenter

import "github.com/rmax-ai/graphbar/pkg/engine"

// Multi renders to several presenters in order, skipping unavailable ones.
type Multi []engine.Presenter

func (m Multi) Render(text string) {
	for _, p := range m {
		if p.Available() {
			p.Render(text)
		}
	}
}

// Available reports whether any presenter is available.
func (m Multi) Available() bool {
	for _, p := range m {
		if p.Available() {
			return true
		}
	}
	return false
}
