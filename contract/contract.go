//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"collab-lab/domain"
	"collab-lab/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is the connection handle of one connected client.
// Consume must never block: delivery is fire-and-forget.
type EventSink interface {
	ConnectionID() string
	Consume(ctx context.Context, e event.Event) error
}

// Member is a registered participant together with its connection handle.
type Member struct {
	domain.Participant
	Sink EventSink
}

type IRegistry interface {
	EnsureSession(sessionID domain.SessionID) domain.Session
	GetSession(sessionID domain.SessionID) (domain.Session, bool)
	RemoveSession(sessionID domain.SessionID)
	SetCode(sessionID domain.SessionID, code string)
	AddParticipant(sessionID domain.SessionID, participantID domain.ParticipantID, displayName string, sink EventSink)
	RemoveParticipant(sessionID domain.SessionID, participantID domain.ParticipantID) bool
	GetParticipant(sessionID domain.SessionID, participantID domain.ParticipantID) (Member, bool)
	ListParticipants(sessionID domain.SessionID) []Member
	Sessions() []domain.Session
}

type IDispatcher interface {
	ToRoom(ctx context.Context, sessionID domain.SessionID, e event.Event)
	ToRoomExceptSender(ctx context.Context, sessionID domain.SessionID, sender EventSink, e event.Event)
	ToSender(ctx context.Context, sink EventSink, e event.Event)
}

// IMessageLog records a chat message before it may be broadcast.
type IMessageLog interface {
	Append(ctx context.Context, sessionID domain.SessionID, senderID domain.ParticipantID,
		body string, kind domain.MessageKind) (domain.ChatMessage, error)
}

// IGateway is the entry point of the transport layer into the event loop.
type IGateway interface {
	Connect(ctx context.Context, handshake domain.Handshake, sink EventSink) error
	Submit(ctx context.Context, connectionID string, inbound domain.Inbound) error
	Disconnect(ctx context.Context, connectionID string) error
}
