package event

import (
	"collab-lab/domain"
)

type Name string

const (
	CodeSnapshotName   Name = "code-snapshot"
	CodeBroadcastName  Name = "code-broadcast"
	RosterUpdateName   Name = "roster-update"
	ChatBroadcastName  Name = "chat-broadcast"
	OperationErrorName Name = "operation-error"
)

// Event is an outbound event addressed to one or more connections.
// Payload is the value written on the wire under the event name.
type Event interface {
	Name() Name
	Payload() any
}

// CodeSnapshot is sent once to a participant right after it joins.
type CodeSnapshot struct {
	Code string
}

func (CodeSnapshot) Name() Name     { return CodeSnapshotName }
func (e CodeSnapshot) Payload() any { return e.Code }

// CodeBroadcast carries a new buffer to every participant but its author.
type CodeBroadcast struct {
	Code string
}

func (CodeBroadcast) Name() Name     { return CodeBroadcastName }
func (e CodeBroadcast) Payload() any { return e.Code }

// RosterUpdate lists the participants currently registered in a session.
type RosterUpdate struct {
	Participants []domain.RosterEntry
}

func (RosterUpdate) Name() Name { return RosterUpdateName }

func (e RosterUpdate) Payload() any {
	if e.Participants == nil {
		return []domain.RosterEntry{}
	}
	return e.Participants
}

// ChatBroadcast carries a recorded message to the whole room, sender included.
type ChatBroadcast struct {
	Message domain.ChatMessage
}

func (ChatBroadcast) Name() Name     { return ChatBroadcastName }
func (e ChatBroadcast) Payload() any { return e.Message }

type OperationErrorPayload struct {
	Message string `json:"message"`
}

// OperationError is only ever sent to the connection that caused it.
type OperationError struct {
	Message string
}

func (OperationError) Name() Name { return OperationErrorName }

func (e OperationError) Payload() any {
	return OperationErrorPayload{Message: e.Message}
}
