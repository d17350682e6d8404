package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// Presenter runs a status bar program and renders into it. Updates are
// applied on the program's event loop.
type Presenter struct {
	program *tea.Program
	exited  chan struct{}

	mu    sync.Mutex
	final Model
	err   error
	once  sync.Once
}

// NewPresenter creates a presenter around a fresh Model.
func NewPresenter(opts ...tea.ProgramOption) *Presenter {
	return &Presenter{
		program: tea.NewProgram(NewModel(), opts...),
		exited:  make(chan struct{}),
	}
}

// Run runs the program until the user quits or Quit is called.
func (p *Presenter) Run() error {
	final, err := p.program.Run()

	p.mu.Lock()
	if m, ok := final.(Model); ok {
		p.final = m
	}
	p.err = err
	p.mu.Unlock()

	p.once.Do(func() { close(p.exited) })
	return err
}

// Render hands text to the program and waits until the model applied it
// or the program exited.
func (p *Presenter) Render(text string) {
	msg := renderMsg{text: text, done: make(chan struct{})}
	go p.program.Send(msg)

	select {
	case <-msg.done:
	case <-p.exited:
	}
}

// Available reports whether the program is still running.
func (p *Presenter) Available() bool {
	select {
	case <-p.exited:
		return false
	default:
		return true
	}
}

// Done is closed when the program has exited.
func (p *Presenter) Done() <-chan struct{} {
	return p.exited
}

// Quit asks the program to exit.
func (p *Presenter) Quit() {
	p.program.Quit()
}

// Final returns the model the program ended with.
func (p *Presenter) Final() (Model, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.final, p.err
}
