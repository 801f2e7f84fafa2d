package domain

import "errors"

var (
	// ErrProtocolParse means the remote markup did not have the expected shape
	ErrProtocolParse = errors.New("unexpected response from guessing service")

	ErrSessionClosed     = errors.New("session is closed")
	ErrSessionNotStarted = errors.New("session not started")
	ErrSessionStarted    = errors.New("session already started")

	ErrAdmissionRejected = errors.New("too many active calls")
	ErrTransportLost     = errors.New("call transport lost")
)

// ErrNotFound is returned by lookups of unknown or expired keys
var ErrNotFound = errors.New("not found")
