package engine

import "errors"

var (
	// ErrBindingConflict is returned when a provider registers while another is bound.
	ErrBindingConflict = errors.New("connection provider already bound")
	// ErrProviderCreation wraps failures to obtain a connection from a provider.
	ErrProviderCreation = errors.New("failed to create connection")
	// ErrQueryExecution wraps failures of the aggregate query.
	ErrQueryExecution = errors.New("error while counting nodes and rels")
	// ErrAlreadyRunning is returned when starting a running component.
	ErrAlreadyRunning = errors.New("already running")
	// ErrStopped is returned when starting a component that was stopped.
	ErrStopped = errors.New("stopped")
)
