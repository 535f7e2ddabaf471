package errors

import "fmt"

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")

	// Handshake and inbound payloads
	ErrInvalidHandshake = fmt.Errorf("handshake requires session id, participant id and display name")
	ErrInvalidPayload   = fmt.Errorf("invalid payload")
	ErrUnknownEvent     = fmt.Errorf("unknown event")
	ErrSessionMismatch  = fmt.Errorf("event targets another session")
	ErrEmptyMessage     = fmt.Errorf("message body is empty")
	ErrUnknownKind      = fmt.Errorf("unknown message kind")

	// Delivery
	ErrSinkFull   = fmt.Errorf("connection buffer is full")
	ErrSinkClosed = fmt.Errorf("connection is closed")

	// Persistence
	ErrAppendFailed    = fmt.Errorf("failed to record chat message")
	ErrUserNotFound    = fmt.Errorf("user not found")
	ErrInvalidCursor   = fmt.Errorf("invalid cursor")
	ErrUnknownDriver   = fmt.Errorf("unknown storage driver")
	ErrEmptySearchTerm = fmt.Errorf("search term is empty")

	// Identity
	ErrInvalidToken = fmt.Errorf("invalid or expired token")
)
