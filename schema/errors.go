package schema

import "errors"

var (
	// ErrAbandoned indicates the user left the login flow without finishing it.
	ErrAbandoned = errors.New("login abandoned")
	// ErrProtocol indicates the login endpoint answered with an unrecognised shape.
	ErrProtocol = errors.New("unexpected login response")
	// ErrTransport indicates the login request or its response body could not be exchanged.
	ErrTransport = errors.New("login transport failed")
	// ErrPersistence indicates the session could not be stored.
	ErrPersistence = errors.New("session persistence failed")
	// ErrBusy indicates a login submission is already in flight.
	ErrBusy = errors.New("login already in progress")
	// ErrEmptyEmail indicates the email field was left empty.
	ErrEmptyEmail = errors.New("email is required")
	// ErrEmptyPassword indicates the password field was left empty.
	ErrEmptyPassword = errors.New("password is required")
)
