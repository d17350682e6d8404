package engine

// Presenter renders status text on a single-threaded surface.
type Presenter interface {
	// Render displays text. It runs the update on the presenter's own
	// execution context and returns once the text has been consumed.
	Render(text string)

	// Available reports whether the surface still exists.
	Available() bool
}
