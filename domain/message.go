// Package domain contains core concepts of the collaboration system.
// This file defines ChatMessage records and related rules.
// Messages are immutable once recorded by the persistence layer.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type MessageKind string

const (
	KindText   MessageKind = "text"
	KindCode   MessageKind = "code"
	KindSystem MessageKind = "system"
)

// ParseKind applies the default kind and rejects anything outside text, code and system.
func ParseKind(raw string) (MessageKind, bool) {
	switch MessageKind(raw) {
	case "":
		return KindText, true
	case KindText, KindCode, KindSystem:
		return MessageKind(raw), true
	default:
		return "", false
	}
}

// Sender is the display metadata resolved by the persistence layer at write time.
type Sender struct {
	Username string  `json:"username"`
	Avatar   *string `json:"avatar"`
}

// ChatMessage is a recorded chat event.
// ID and CreatedAt are assigned by the persistence layer, never by the client.
type ChatMessage struct {
	ID        uuid.UUID     `json:"id"`
	SessionID SessionID     `json:"sessionId"`
	UserID    ParticipantID `json:"userId"`
	Message   string        `json:"message"`
	Kind      MessageKind   `json:"kind"`
	CreatedAt time.Time     `json:"createdAt"`
	User      Sender        `json:"user"`
}

// Profile is what the persistence layer knows about a user.
type Profile struct {
	ID       ParticipantID
	Username string
	Avatar   *string
}
