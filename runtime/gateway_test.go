package runtime

import (
	"bytes"
	"collab-lab/domain"
	"collab-lab/domain/event"
	"collab-lab/errors"
	"collab-lab/mocks"
	"collab-lab/observability"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)

type recordingSink struct {
	id     string
	mu     sync.Mutex
	events []event.Event
}

func newRecordingSink() *recordingSink {
	return &recordingSink{id: uuid.NewString()}
}

func (s *recordingSink) ConnectionID() string {
	return s.id
}

func (s *recordingSink) Consume(_ context.Context, e event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) named(name event.Name) []event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Filter(s.events, func(e event.Event, _ int) bool { return e.Name() == name })
}

func (s *recordingSink) last(name event.Name) event.Event {
	events := s.named(name)
	if len(events) == 0 {
		return nil
	}
	return events[len(events)-1]
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type gatewayFixture struct {
	ctx        context.Context
	gateway    *Gateway
	registry   *Registry
	messageLog *mocks.MockIMessageLog
	probe      *recordingSink
}

// newGatewayFixture starts a gateway with a probe connection joined to its own session.
// The probe is used as a barrier: once it got an answer, every earlier request was handled.
func newGatewayFixture(t *testing.T) *gatewayFixture {
	return newGatewayFixtureWithLog(t, logs.GetLoggerFromLevel(slog.LevelDebug))
}

func newGatewayFixtureWithLog(t *testing.T, log *slog.Logger) *gatewayFixture {
	ctrl := gomock.NewController(t)
	registry := NewRegistry()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	messageLog := mocks.NewMockIMessageLog(ctrl)
	gateway := NewGateway(log, registry, NewDispatcher(log, registry, metrics), messageLog, metrics, 64, 0)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = gateway.Run(ctx) }()

	f := &gatewayFixture{ctx: ctx, gateway: gateway, registry: registry, messageLog: messageLog}
	f.probe = f.join(t, "probe", "probe", "Probe")
	return f
}

func (f *gatewayFixture) join(t *testing.T, sessionID domain.SessionID, participantID domain.ParticipantID,
	displayName string) *recordingSink {
	sink := newRecordingSink()
	require.NoError(t, f.gateway.Connect(f.ctx, domain.Handshake{
		SessionID:     sessionID,
		ParticipantID: participantID,
		DisplayName:   displayName,
	}, sink))
	require.Eventually(t, func() bool {
		return len(sink.named(event.CodeSnapshotName)) == 1
	}, waitFor, tick)
	return sink
}

func (f *gatewayFixture) flush(t *testing.T) {
	count := len(f.probe.named(event.CodeSnapshotName))
	require.NoError(t, f.gateway.Submit(f.ctx, f.probe.id, domain.RequestInitialState{}))
	require.Eventually(t, func() bool {
		return len(f.probe.named(event.CodeSnapshotName)) == count+1
	}, waitFor, tick)
}

func rosterOf(e event.Event) []domain.RosterEntry {
	return e.(event.RosterUpdate).Participants
}

func TestGateway_Join_Sends_Snapshot_And_Roster(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture(t)

	// Given Alice is alone in a session with some code
	alice := f.join(t, "s1", "alice", "Alice")
	req.NoError(f.gateway.Submit(f.ctx, alice.id, domain.CodeChange{SessionID: "s1", Code: "print(1)"}))

	// When Bob joins
	bob := f.join(t, "s1", "bob", "Bob")
	f.flush(t)

	// Then Bob receives the current buffer
	req.Equal(event.CodeSnapshot{Code: "print(1)"}, bob.last(event.CodeSnapshotName))

	// And both receive the full roster
	expected := []domain.RosterEntry{{ID: "alice", DisplayName: "Alice"}, {ID: "bob", DisplayName: "Bob"}}
	req.Equal(expected, rosterOf(alice.last(event.RosterUpdateName)))
	req.Equal(expected, rosterOf(bob.last(event.RosterUpdateName)))
}

func TestGateway_Join_Creates_Session_With_Empty_Buffer(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture(t)

	// When the first participant joins an unknown session
	alice := f.join(t, "fresh", "alice", "Alice")

	// Then the session exists with an empty buffer
	req.Equal(event.CodeSnapshot{Code: ""}, alice.last(event.CodeSnapshotName))
	session, ok := f.registry.GetSession("fresh")
	req.True(ok)
	req.Len(session.Participants, 1)
}

func TestGateway_Rejected_Handshake_Stays_Inert(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture(t)
	sink := newRecordingSink()

	// Given a handshake without display name
	req.NoError(f.gateway.Connect(f.ctx, domain.Handshake{SessionID: "s1", ParticipantID: "alice"}, sink))

	// When the connection still sends a code change
	req.NoError(f.gateway.Submit(f.ctx, sink.id, domain.CodeChange{SessionID: "s1", Code: "x"}))
	f.flush(t)

	// Then no session was created and nothing was sent back
	_, ok := f.registry.GetSession("s1")
	req.False(ok)
	req.Empty(sink.named(event.CodeSnapshotName))
	req.Empty(sink.named(event.RosterUpdateName))
}

func TestGateway_CodeChange_Excludes_Sender(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture(t)
	alice := f.join(t, "s1", "alice", "Alice")
	bob := f.join(t, "s1", "bob", "Bob")
	carol := f.join(t, "s1", "carol", "Carol")

	// When Alice edits the buffer
	req.NoError(f.gateway.Submit(f.ctx, alice.id, domain.CodeChange{SessionID: "s1", Code: "let a = 1"}))
	f.flush(t)

	// Then every other participant receives the new buffer
	req.Equal(event.CodeBroadcast{Code: "let a = 1"}, bob.last(event.CodeBroadcastName))
	req.Equal(event.CodeBroadcast{Code: "let a = 1"}, carol.last(event.CodeBroadcastName))

	// And the author doesn't
	req.Empty(alice.named(event.CodeBroadcastName))

	// And the registry holds the last write
	session, _ := f.registry.GetSession("s1")
	req.Equal("let a = 1", session.Code)
}

func TestGateway_CodeChange_Last_Writer_Wins(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture(t)
	alice := f.join(t, "s1", "alice", "Alice")
	bob := f.join(t, "s1", "bob", "Bob")

	// When both edit in turn
	req.NoError(f.gateway.Submit(f.ctx, alice.id, domain.CodeChange{SessionID: "s1", Code: "A"}))
	req.NoError(f.gateway.Submit(f.ctx, bob.id, domain.CodeChange{SessionID: "s1", Code: "B"}))
	f.flush(t)

	// Then the last one processed is the buffer
	session, _ := f.registry.GetSession("s1")
	req.Equal("B", session.Code)

	// And a late joiner sees it
	carol := f.join(t, "s1", "carol", "Carol")
	req.Equal(event.CodeSnapshot{Code: "B"}, carol.last(event.CodeSnapshotName))
}

func TestGateway_CodeChange_Empty_Code_Is_Valid(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture(t)
	alice := f.join(t, "s1", "alice", "Alice")
	bob := f.join(t, "s1", "bob", "Bob")
	req.NoError(f.gateway.Submit(f.ctx, alice.id, domain.CodeChange{SessionID: "s1", Code: "x"}))

	// When Alice clears the buffer
	req.NoError(f.gateway.Submit(f.ctx, alice.id, domain.CodeChange{SessionID: "s1", Code: ""}))
	f.flush(t)

	// Then the empty buffer is broadcast
	req.Len(bob.named(event.CodeBroadcastName), 2)
	req.Equal(event.CodeBroadcast{Code: ""}, bob.last(event.CodeBroadcastName))
}

func TestGateway_CodeChange_Malformed_Is_Dropped(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture(t)
	alice := f.join(t, "s1", "alice", "Alice")
	bob := f.join(t, "s1", "bob", "Bob")
	f.join(t, "s2", "eve", "Eve")

	// When Alice sends an edit without session id, then one for another session
	req.NoError(f.gateway.Submit(f.ctx, alice.id, domain.CodeChange{Code: "x"}))
	req.NoError(f.gateway.Submit(f.ctx, alice.id, domain.CodeChange{SessionID: "s2", Code: "y"}))
	f.flush(t)

	// Then nothing is broadcast and no buffer changed
	req.Empty(bob.named(event.CodeBroadcastName))
	req.Empty(alice.named(event.OperationErrorName))
	s1, _ := f.registry.GetSession("s1")
	s2, _ := f.registry.GetSession("s2")
	req.Empty(s1.Code)
	req.Empty(s2.Code)
}

func TestGateway_Chat_Is_Recorded_Then_Broadcast_To_Room(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture(t)
	alice := f.join(t, "s1", "alice", "Alice")
	bob := f.join(t, "s1", "bob", "Bob")
	eve := f.join(t, "s2", "eve", "Eve")

	stored := domain.ChatMessage{
		ID:        uuid.New(),
		SessionID: "s1",
		UserID:    "alice",
		Message:   "hi",
		Kind:      domain.KindText,
		CreatedAt: time.Now().UTC(),
		User:      domain.Sender{Username: "Alice"},
	}

	// Given the persistence layer accepts the message
	f.messageLog.EXPECT().
		Append(gomock.Any(), domain.SessionID("s1"), domain.ParticipantID("alice"), "hi", domain.KindText).
		Return(stored, nil).
		Times(1)

	// When Alice posts a chat message without kind
	req.NoError(f.gateway.Submit(f.ctx, alice.id, domain.PostChatMessage{Message: "hi"}))

	// Then the whole room receives the stored record, sender included
	req.Eventually(func() bool {
		return len(alice.named(event.ChatBroadcastName)) == 1 && len(bob.named(event.ChatBroadcastName)) == 1
	}, waitFor, tick)
	req.Equal(event.ChatBroadcast{Message: stored}, bob.last(event.ChatBroadcastName))

	// And nothing leaks to another session
	f.flush(t)
	req.Empty(eve.named(event.ChatBroadcastName))
}

func TestGateway_Chat_Failure_Notifies_Sender_Only(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture(t)
	alice := f.join(t, "s1", "alice", "Alice")
	bob := f.join(t, "s1", "bob", "Bob")

	// Given the persistence layer fails
	f.messageLog.EXPECT().
		Append(gomock.Any(), domain.SessionID("s1"), domain.ParticipantID("alice"), "hi", domain.KindCode).
		Return(domain.ChatMessage{}, errors.ErrAppendFailed).
		Times(1)

	// When Alice posts a message
	req.NoError(f.gateway.Submit(f.ctx, alice.id, domain.PostChatMessage{Message: "hi", Kind: "code"}))

	// Then she receives exactly one operation error
	req.Eventually(func() bool {
		return len(alice.named(event.OperationErrorName)) == 1
	}, waitFor, tick)
	req.Equal(event.OperationError{Message: "Failed to send message."}, alice.last(event.OperationErrorName))

	// And nobody receives a broadcast
	f.flush(t)
	req.Empty(alice.named(event.ChatBroadcastName))
	req.Empty(bob.named(event.ChatBroadcastName))
	req.Empty(bob.named(event.OperationErrorName))
}

func TestGateway_Chat_Invalid_Is_Not_Recorded(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture(t)
	alice := f.join(t, "s1", "alice", "Alice")

	// Given the persistence layer must not be reached
	f.messageLog.EXPECT().Append(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	// When Alice posts an empty message, then one with an unknown kind
	req.NoError(f.gateway.Submit(f.ctx, alice.id, domain.PostChatMessage{Message: ""}))
	req.NoError(f.gateway.Submit(f.ctx, alice.id, domain.PostChatMessage{Message: "hi", Kind: "video"}))
	f.flush(t)

	// Then she is told twice
	req.Len(alice.named(event.OperationErrorName), 2)
	req.Empty(alice.named(event.ChatBroadcastName))
}

func TestGateway_Identity_Is_Registered_As_Sent(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture(t)

	// When a participant joins with padded identity values
	sink := f.join(t, "s1", " alice", "  ")

	// Then they are registered untouched
	member, ok := f.registry.GetParticipant("s1", " alice")
	req.True(ok)
	req.Equal("  ", member.DisplayName)
	req.Equal([]domain.RosterEntry{{ID: " alice", DisplayName: "  "}}, rosterOf(sink.last(event.RosterUpdateName)))
	_, ok = f.registry.GetParticipant("s1", "alice")
	req.False(ok)
}

func TestGateway_Chat_Whitespace_Body_Is_Recorded(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture(t)
	alice := f.join(t, "s1", "alice", "Alice")
	bob := f.join(t, "s1", "bob", "Bob")
	stored := domain.ChatMessage{ID: uuid.New(), SessionID: "s1", UserID: "alice", Message: "  ", Kind: domain.KindText}

	// Given the persistence layer receives the body as sent
	f.messageLog.EXPECT().
		Append(gomock.Any(), domain.SessionID("s1"), domain.ParticipantID("alice"), "  ", domain.KindText).
		Return(stored, nil).
		Times(1)

	// When Alice posts a message made of spaces
	req.NoError(f.gateway.Submit(f.ctx, alice.id, domain.PostChatMessage{Message: "  "}))

	// Then it is broadcast like any other message
	req.Eventually(func() bool {
		return len(bob.named(event.ChatBroadcastName)) == 1
	}, waitFor, tick)
	req.Equal(event.ChatBroadcast{Message: stored}, bob.last(event.ChatBroadcastName))
	req.Empty(alice.named(event.OperationErrorName))
}

func TestGateway_Chat_Keeps_Order_Of_One_Connection(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture(t)
	alice := f.join(t, "s1", "alice", "Alice")
	bob := f.join(t, "s1", "bob", "Bob")
	release := make(chan struct{})
	record := func(_ context.Context, sessionID domain.SessionID, senderID domain.ParticipantID,
		body string, kind domain.MessageKind) (domain.ChatMessage, error) {
		return domain.ChatMessage{ID: uuid.New(), SessionID: sessionID, UserID: senderID, Message: body, Kind: kind}, nil
	}

	// Given the first append of Alice is slow
	gomock.InOrder(
		f.messageLog.EXPECT().
			Append(gomock.Any(), domain.SessionID("s1"), domain.ParticipantID("alice"), "first", domain.KindText).
			DoAndReturn(func(ctx context.Context, sessionID domain.SessionID, senderID domain.ParticipantID,
				body string, kind domain.MessageKind) (domain.ChatMessage, error) {
				<-release
				return record(ctx, sessionID, senderID, body, kind)
			}),
		f.messageLog.EXPECT().
			Append(gomock.Any(), domain.SessionID("s1"), domain.ParticipantID("alice"), "second", domain.KindText).
			DoAndReturn(record),
	)
	f.messageLog.EXPECT().
		Append(gomock.Any(), domain.SessionID("s1"), domain.ParticipantID("bob"), "meanwhile", domain.KindText).
		DoAndReturn(record)

	// When Alice posts twice and Bob posts while her first append is in flight
	req.NoError(f.gateway.Submit(f.ctx, alice.id, domain.PostChatMessage{Message: "first"}))
	req.NoError(f.gateway.Submit(f.ctx, alice.id, domain.PostChatMessage{Message: "second"}))
	req.NoError(f.gateway.Submit(f.ctx, bob.id, domain.PostChatMessage{Message: "meanwhile"}))

	// Then Bob isn't held back by Alice
	req.Eventually(func() bool {
		return len(alice.named(event.ChatBroadcastName)) == 1
	}, waitFor, tick)
	f.flush(t)
	req.Len(alice.named(event.ChatBroadcastName), 1)

	// And Alice's messages come out in the order she sent them
	close(release)
	req.Eventually(func() bool {
		return len(bob.named(event.ChatBroadcastName)) == 3
	}, waitFor, tick)
	bodies := lo.Map(bob.named(event.ChatBroadcastName), func(e event.Event, _ int) string {
		return e.(event.ChatBroadcast).Message.Message
	})
	req.Equal([]string{"meanwhile", "first", "second"}, bodies)
}

func TestGateway_Chat_Broadcast_Skipped_When_Session_Is_Gone(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture(t)
	alice := f.join(t, "s1", "alice", "Alice")
	release := make(chan struct{})
	appended := make(chan struct{})

	// Given a slow persistence layer
	f.messageLog.EXPECT().
		Append(gomock.Any(), domain.SessionID("s1"), domain.ParticipantID("alice"), "bye", domain.KindText).
		DoAndReturn(func(_ context.Context, sessionID domain.SessionID, senderID domain.ParticipantID,
			body string, kind domain.MessageKind) (domain.ChatMessage, error) {
			<-release
			defer close(appended)
			return domain.ChatMessage{ID: uuid.New(), SessionID: sessionID, UserID: senderID, Message: body, Kind: kind}, nil
		}).
		Times(1)

	// When Alice posts and leaves while the append is in flight
	req.NoError(f.gateway.Submit(f.ctx, alice.id, domain.PostChatMessage{Message: "bye"}))
	req.NoError(f.gateway.Disconnect(f.ctx, alice.id))
	f.flush(t)

	// Then the session is torn down without waiting for the append
	_, ok := f.registry.GetSession("s1")
	req.False(ok)

	// And the late result is dropped without broadcast
	close(release)
	<-appended
	f.flush(t)
	req.Never(func() bool {
		return len(alice.named(event.ChatBroadcastName)) > 0
	}, 100*time.Millisecond, tick)
}

func TestGateway_Queued_Chat_Is_Recorded_After_Disconnect(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture(t)
	alice := f.join(t, "s1", "alice", "Alice")
	bob := f.join(t, "s1", "bob", "Bob")
	release := make(chan struct{})
	recorded := make(chan string, 2)
	record := func(_ context.Context, sessionID domain.SessionID, senderID domain.ParticipantID,
		body string, kind domain.MessageKind) (domain.ChatMessage, error) {
		recorded <- body
		return domain.ChatMessage{ID: uuid.New(), SessionID: sessionID, UserID: senderID, Message: body, Kind: kind}, nil
	}

	// Given Alice has a message in flight and another one queued
	gomock.InOrder(
		f.messageLog.EXPECT().
			Append(gomock.Any(), domain.SessionID("s1"), domain.ParticipantID("alice"), "one", domain.KindText).
			DoAndReturn(func(ctx context.Context, sessionID domain.SessionID, senderID domain.ParticipantID,
				body string, kind domain.MessageKind) (domain.ChatMessage, error) {
				<-release
				return record(ctx, sessionID, senderID, body, kind)
			}),
		f.messageLog.EXPECT().
			Append(gomock.Any(), domain.SessionID("s1"), domain.ParticipantID("alice"), "two", domain.KindText).
			DoAndReturn(record),
	)
	req.NoError(f.gateway.Submit(f.ctx, alice.id, domain.PostChatMessage{Message: "one"}))
	req.NoError(f.gateway.Submit(f.ctx, alice.id, domain.PostChatMessage{Message: "two"}))

	// When she leaves before they are recorded
	req.NoError(f.gateway.Disconnect(f.ctx, alice.id))
	f.flush(t)
	close(release)

	// Then both are still recorded in order and broadcast to the room
	req.Equal("one", <-recorded)
	req.Equal("two", <-recorded)
	req.Eventually(func() bool {
		return len(bob.named(event.ChatBroadcastName)) == 2
	}, waitFor, tick)
}

func TestGateway_Disconnect_Updates_Roster_And_Removes_Empty_Session(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture(t)
	alice := f.join(t, "s1", "alice", "Alice")
	bob := f.join(t, "s1", "bob", "Bob")

	// When Alice leaves
	req.NoError(f.gateway.Disconnect(f.ctx, alice.id))
	f.flush(t)

	// Then Bob receives the reduced roster
	req.Equal([]domain.RosterEntry{{ID: "bob", DisplayName: "Bob"}}, rosterOf(bob.last(event.RosterUpdateName)))

	// When Bob leaves too
	req.NoError(f.gateway.Disconnect(f.ctx, bob.id))
	f.flush(t)

	// Then the session is gone
	_, ok := f.registry.GetSession("s1")
	req.False(ok)

	// And a new join starts from scratch
	carol := f.join(t, "s1", "carol", "Carol")
	req.Equal(event.CodeSnapshot{Code: ""}, carol.last(event.CodeSnapshotName))
}

func TestGateway_Superseded_Connection_Leaves_Silently(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture(t)
	first := f.join(t, "s1", "alice", "Alice")
	bob := f.join(t, "s1", "bob", "Bob")

	// Given Alice joins again from a second tab
	second := f.join(t, "s1", "alice", "Alice")
	f.flush(t)
	rosterCount := len(bob.named(event.RosterUpdateName))

	// When the first tab closes
	req.NoError(f.gateway.Disconnect(f.ctx, first.id))
	f.flush(t)

	// Then Alice is still registered through the second tab
	member, ok := f.registry.GetParticipant("s1", "alice")
	req.True(ok)
	req.Equal(second.id, member.Sink.ConnectionID())
	req.Len(bob.named(event.RosterUpdateName), rosterCount)

	// And the first tab can no longer edit
	req.NoError(f.gateway.Submit(f.ctx, first.id, domain.CodeChange{SessionID: "s1", Code: "stale"}))
	f.flush(t)
	session, _ := f.registry.GetSession("s1")
	req.Empty(session.Code)
}

func TestGateway_Superseded_Connection_Leaves_After_Teardown(t *testing.T) {
	req := require.New(t)
	var buf lockedBuffer
	f := newGatewayFixtureWithLog(t, slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	first := f.join(t, "s1", "alice", "Alice")
	second := f.join(t, "s1", "alice", "Alice")

	// Given the second tab left and took the session down with it
	req.NoError(f.gateway.Disconnect(f.ctx, second.id))
	f.flush(t)
	_, ok := f.registry.GetSession("s1")
	req.False(ok)

	// When the first tab closes
	req.NoError(f.gateway.Disconnect(f.ctx, first.id))
	f.flush(t)

	// Then it is reported as leaving a removed session, not as superseded
	req.Contains(buf.String(), "Connection left a session already torn down")
	req.NotContains(buf.String(), "Superseded connection left")
	_, ok = f.registry.GetSession("s1")
	req.False(ok)
}

func TestGateway_Events_Before_Join_Are_Ignored(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture(t)
	bob := f.join(t, "s1", "bob", "Bob")

	// When an unknown connection sends events
	req.NoError(f.gateway.Submit(f.ctx, "unknown", domain.CodeChange{SessionID: "s1", Code: "x"}))
	req.NoError(f.gateway.Disconnect(f.ctx, "unknown"))
	f.flush(t)

	// Then nothing happens
	req.Empty(bob.named(event.CodeBroadcastName))
	session, _ := f.registry.GetSession("s1")
	req.Empty(session.Code)
}

func TestGateway_RequestInitialState_Answers_Sender_Only(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture(t)
	alice := f.join(t, "s1", "alice", "Alice")
	bob := f.join(t, "s1", "bob", "Bob")
	req.NoError(f.gateway.Submit(f.ctx, bob.id, domain.CodeChange{SessionID: "s1", Code: "fn()"}))
	f.flush(t)
	bobRosters := len(bob.named(event.RosterUpdateName))

	// When Alice asks for the state again
	req.NoError(f.gateway.Submit(f.ctx, alice.id, domain.RequestInitialState{}))
	f.flush(t)

	// Then she gets the buffer and roster
	req.Equal(event.CodeSnapshot{Code: "fn()"}, alice.last(event.CodeSnapshotName))
	req.Len(rosterOf(alice.last(event.RosterUpdateName)), 2)

	// And Bob gets nothing new
	req.Len(bob.named(event.RosterUpdateName), bobRosters)
}
