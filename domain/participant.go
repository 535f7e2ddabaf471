// Package domain contains core concepts of the collaboration system.
// This file defines Session and Participant entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

type SessionID string

type ParticipantID string

// Participant is one user's single logical presence within a session.
// A participant id is unique inside a session: the latest join replaces the previous entry.
type Participant struct {
	ID          ParticipantID
	DisplayName string
}

// RosterEntry is the only participant view that leaves the process.
type RosterEntry struct {
	ID          ParticipantID `json:"id"`
	DisplayName string        `json:"displayName"`
}

func (p Participant) ToRosterEntry() RosterEntry {
	return RosterEntry{ID: p.ID, DisplayName: p.DisplayName}
}

// Session is a read-only snapshot of a collaboration room.
type Session struct {
	ID           SessionID
	Code         string
	Participants []Participant
}

// Handshake carries the identity supplied by a client when it opens a connection.
// It is trusted as-is: the identity provider sits upstream. Values are never
// trimmed, a blank display name is still a display name.
type Handshake struct {
	SessionID     SessionID     `validate:"required"`
	ParticipantID ParticipantID `validate:"required"`
	DisplayName   string        `validate:"required"`
}

// SessionSummary is the read-only listing view of an active session.
type SessionSummary struct {
	ID           SessionID `json:"id"`
	Participants int       `json:"participants"`
	CodeLength   int       `json:"codeLength"`
}

func (s Session) Summary() SessionSummary {
	return SessionSummary{ID: s.ID, Participants: len(s.Participants), CodeLength: len(s.Code)}
}
