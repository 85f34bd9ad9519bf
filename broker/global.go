package broker

import (
	"errors"
)

var (
	// ErrProtocolViolation closes a connection that sent a frame its state
	// does not allow, e,g. publish before register.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrTooManyConnections is logged when max_connections rejects a conn.
	ErrTooManyConnections = errors.New("too many connections")

	ErrClientClosed = errors.New("client conn closed")
)
