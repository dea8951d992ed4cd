package facade

import "errors"

var (
	// ErrNotReady is returned when a call needs the live client and no
	// client has been created yet.
	ErrNotReady = errors.New("discord client not ready")

	// ErrConfigFrozen is returned by configuration setters once the client exists.
	ErrConfigFrozen = errors.New("configuration is frozen after login")

	// ErrLoginInProgress is returned by Login while another Login is building the client.
	ErrLoginInProgress = errors.New("login already in progress")

	// ErrNoBuilder is returned by Login when the facade was created without a Builder.
	ErrNoBuilder = errors.New("no client builder configured")
)
