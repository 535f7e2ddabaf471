// Package runtime holds the in-memory state of live sessions and the event loop
// that mutates it. It contains no transport or storage code.
package runtime

import (
	"collab-lab/contract"
	"collab-lab/domain"
	"collab-lab/domain/event"
	"collab-lab/errors"
	"collab-lab/observability"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

const (
	failedToSendMessage = "Failed to send message."
	invalidChatMessage  = "Invalid chat message."
)

var (
	_ contract.Worker   = (*Gateway)(nil)
	_ contract.IGateway = (*Gateway)(nil)
)

// Gateway routes connection lifecycle and inbound events into a single event loop.
//
// Every request is handled to completion, in arrival order, by the goroutine running Run.
// That goroutine is the only writer of the registry. The chat append is the one call
// that leaves the loop: it runs on its own goroutine and its outcome comes back as a
// new request, so other events keep flowing while the persistence layer is slow.
// Appends of a single connection are queued and run one after the other.
type Gateway struct {
	log           *slog.Logger
	registry      contract.IRegistry
	dispatcher    contract.IDispatcher
	messageLog    contract.IMessageLog
	metrics       *observability.Metrics
	validate      *validator.Validate
	appendTimeout time.Duration
	inbox         chan request
	conns         map[string]*connection
	// chats holds the pending appends per connection, the head is in flight.
	// It outlives the connection so that queued messages are still recorded.
	chats map[string][]pendingChat
}

func NewGateway(log *slog.Logger, registry contract.IRegistry, dispatcher contract.IDispatcher,
	messageLog contract.IMessageLog, metrics *observability.Metrics,
	bufferSize int, appendTimeout time.Duration) *Gateway {
	return &Gateway{
		log:           log,
		registry:      registry,
		dispatcher:    dispatcher,
		messageLog:    messageLog,
		metrics:       metrics,
		validate:      validator.New(),
		appendTimeout: appendTimeout,
		inbox:         make(chan request, bufferSize),
		conns:         make(map[string]*connection),
		chats:         make(map[string][]pendingChat),
	}
}

// Connect registers a new connection. The handshake is validated by the loop:
// a connection with a missing identity field stays open but inert.
func (g *Gateway) Connect(ctx context.Context, handshake domain.Handshake, sink contract.EventSink) error {
	return g.enqueue(ctx, connectRequest{handshake: handshake, sink: sink})
}

// Submit queues an inbound event of an already connected client.
func (g *Gateway) Submit(ctx context.Context, connectionID string, inbound domain.Inbound) error {
	return g.enqueue(ctx, inboundRequest{connID: connectionID, inbound: inbound})
}

// Disconnect queues the terminal event of a connection (client close or network drop).
func (g *Gateway) Disconnect(ctx context.Context, connectionID string) error {
	return g.enqueue(ctx, disconnectRequest{connID: connectionID})
}

func (g *Gateway) enqueue(ctx context.Context, r request) error {
	select {
	case g.inbox <- r:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Inbox exposes the request queue for capacity sampling only.
func (g *Gateway) Inbox() any {
	return g.inbox
}

// Run is the event loop. It never returns an error for a single bad event:
// failures are contained at the connection boundary.
func (g *Gateway) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			g.log.Debug("Stopping gateway")
			return ctx.Err()
		case r := <-g.inbox:
			g.handle(ctx, r)
		}
	}
}

func (g *Gateway) handle(ctx context.Context, r request) {
	switch req := r.(type) {
	case connectRequest:
		g.handleConnect(ctx, req)
	case inboundRequest:
		g.handleInbound(ctx, req)
	case disconnectRequest:
		g.handleDisconnect(ctx, req)
	case chatAppended:
		g.handleChatAppended(ctx, req)
	default:
		g.log.Error("Unknown request", "type", fmt.Sprintf("%T", r))
	}
}

func (g *Gateway) handleConnect(ctx context.Context, req connectRequest) {
	connID := req.connectionID()
	if _, ok := g.conns[connID]; ok {
		g.log.Warn("Connection already registered", "connection_id", connID)
		return
	}
	conn := &connection{id: connID, sink: req.sink, state: stateConnecting}
	g.conns[connID] = conn
	g.metrics.ActiveConnections.Inc()

	handshake := req.handshake
	if err := g.validate.Struct(handshake); err != nil {
		conn.state = stateRejected
		g.metrics.RejectedHandshakes.Inc()
		g.log.Info("Handshake rejected",
			"connection_id", connID,
			"error", fmt.Errorf("%w: %v", errors.ErrInvalidHandshake, err))
		return
	}

	if previous, ok := g.registry.GetParticipant(handshake.SessionID, handshake.ParticipantID); ok {
		g.log.Warn("Participant joined again, previous connection superseded",
			"session_id", handshake.SessionID,
			"participant_id", handshake.ParticipantID,
			"previous_connection_id", previous.Sink.ConnectionID(),
			"connection_id", connID)
	}

	conn.join(handshake)
	session := g.registry.EnsureSession(handshake.SessionID)
	g.registry.AddParticipant(handshake.SessionID, handshake.ParticipantID, handshake.DisplayName, req.sink)
	g.refreshSessionGauge()

	g.log.Info(fmt.Sprintf("%s joined session %s", handshake.DisplayName, handshake.SessionID),
		"participant_id", handshake.ParticipantID,
		"connection_id", connID)

	g.dispatcher.ToSender(ctx, req.sink, event.CodeSnapshot{Code: session.Code})
	g.broadcastRoster(ctx, handshake.SessionID)
}

func (g *Gateway) handleInbound(ctx context.Context, req inboundRequest) {
	conn, ok := g.conns[req.connID]
	if !ok || !conn.joined() {
		g.log.Debug("Event ignored, connection not joined",
			"connection_id", req.connID,
			"event", req.inbound.InboundName())
		return
	}
	g.metrics.InboundEvents.WithLabelValues(req.inbound.InboundName()).Inc()

	switch in := req.inbound.(type) {
	case domain.CodeChange:
		g.handleCodeChange(ctx, conn, in)
	case domain.PostChatMessage:
		g.handleChatMessage(ctx, conn, in)
	case domain.RequestInitialState:
		g.handleRequestInitialState(ctx, conn)
	default:
		g.log.Warn("Unsupported inbound event",
			"connection_id", conn.id,
			"event", req.inbound.InboundName())
	}
}

// handleCodeChange applies the last-writer-wins policy: no ordering vector, no merge.
// A malformed edit is dropped without telling the client.
func (g *Gateway) handleCodeChange(ctx context.Context, conn *connection, in domain.CodeChange) {
	if err := g.validate.Struct(in); err != nil {
		g.log.Warn("Malformed code change dropped",
			"connection_id", conn.id,
			"error", fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err))
		return
	}
	if in.SessionID != conn.sessionID {
		g.log.Warn("Code change dropped",
			"connection_id", conn.id,
			"session_id", conn.sessionID,
			"target_session_id", in.SessionID,
			"error", errors.ErrSessionMismatch)
		return
	}
	if _, ok := g.registry.GetSession(in.SessionID); !ok {
		g.log.Debug("Code change for a session already torn down", "session_id", in.SessionID)
		return
	}
	g.registry.SetCode(in.SessionID, in.Code)
	g.dispatcher.ToRoomExceptSender(ctx, in.SessionID, conn.sink, event.CodeBroadcast{Code: in.Code})
}

func (g *Gateway) handleChatMessage(ctx context.Context, conn *connection, in domain.PostChatMessage) {
	kind, ok := domain.ParseKind(in.Kind)
	switch {
	case conn.sessionID == "" || conn.participantID == "":
		g.rejectChat(ctx, conn, errors.ErrInvalidHandshake)
		return
	case in.Message == "":
		g.rejectChat(ctx, conn, errors.ErrEmptyMessage)
		return
	case !ok:
		g.rejectChat(ctx, conn, fmt.Errorf("%w: %q", errors.ErrUnknownKind, in.Kind))
		return
	}

	queue := append(g.chats[conn.id], pendingChat{
		sink:      conn.sink,
		sessionID: conn.sessionID,
		senderID:  conn.participantID,
		body:      in.Message,
		kind:      kind,
	})
	g.chats[conn.id] = queue
	if len(queue) == 1 {
		g.startAppend(ctx, conn.id, queue[0])
	}
}

// startAppend runs the persistence call outside the loop, the loop resumes with chatAppended.
func (g *Gateway) startAppend(ctx context.Context, connID string, chat pendingChat) {
	pending := chatAppended{connID: connID, sink: chat.sink, sessionID: chat.sessionID}
	go g.appendChat(ctx, pending, chat.senderID, chat.body, chat.kind)
}

// nextChat pops the append that just completed and starts the following one, if any.
func (g *Gateway) nextChat(ctx context.Context, connID string) {
	queue := g.chats[connID]
	if len(queue) <= 1 {
		delete(g.chats, connID)
		return
	}
	queue = queue[1:]
	g.chats[connID] = queue
	g.startAppend(ctx, connID, queue[0])
}

func (g *Gateway) rejectChat(ctx context.Context, conn *connection, err error) {
	g.log.Warn("Invalid chat message",
		"connection_id", conn.id,
		"session_id", conn.sessionID,
		"error", err)
	g.dispatcher.ToSender(ctx, conn.sink, event.OperationError{Message: invalidChatMessage})
}

func (g *Gateway) appendChat(ctx context.Context, result chatAppended, senderID domain.ParticipantID,
	body string, kind domain.MessageKind) {
	appendCtx := ctx
	if g.appendTimeout > 0 {
		var cancel context.CancelFunc
		appendCtx, cancel = context.WithTimeout(ctx, g.appendTimeout)
		defer cancel()
	}

	start := time.Now()
	result.message, result.err = g.messageLog.Append(appendCtx, result.sessionID, senderID, body, kind)
	g.metrics.AppendDuration.Observe(time.Since(start).Seconds())

	select {
	case g.inbox <- result:
	case <-ctx.Done():
	}
}

// handleChatAppended broadcasts a recorded message, only if its session survived the append.
func (g *Gateway) handleChatAppended(ctx context.Context, res chatAppended) {
	g.nextChat(ctx, res.connID)
	if res.err != nil {
		g.metrics.AppendFailures.Inc()
		g.log.Error("Failed to record chat message",
			"connection_id", res.connID,
			"session_id", res.sessionID,
			"error", res.err)
		g.dispatcher.ToSender(ctx, res.sink, event.OperationError{Message: failedToSendMessage})
		return
	}
	if _, ok := g.registry.GetSession(res.sessionID); !ok {
		g.log.Info("Chat message recorded but session is gone, broadcast skipped",
			"session_id", res.sessionID,
			"message_id", res.message.ID)
		return
	}
	g.dispatcher.ToRoom(ctx, res.sessionID, event.ChatBroadcast{Message: res.message})
}

func (g *Gateway) handleRequestInitialState(ctx context.Context, conn *connection) {
	session, ok := g.registry.GetSession(conn.sessionID)
	if !ok {
		return
	}
	g.dispatcher.ToSender(ctx, conn.sink, event.CodeSnapshot{Code: session.Code})
	g.dispatcher.ToSender(ctx, conn.sink, event.RosterUpdate{Participants: toRoster(session.Participants)})
}

// handleDisconnect removes the participant, then tears the session down if nobody is left.
// A superseded connection leaves without touching the entry that replaced it.
func (g *Gateway) handleDisconnect(ctx context.Context, req disconnectRequest) {
	conn, ok := g.conns[req.connID]
	if !ok {
		return
	}
	delete(g.conns, req.connID)
	g.metrics.ActiveConnections.Dec()

	wasJoined := conn.joined()
	conn.state = stateLeft
	if !wasJoined {
		return
	}

	member, ok := g.registry.GetParticipant(conn.sessionID, conn.participantID)
	if !ok {
		g.log.Info("Connection left a session already torn down",
			"session_id", conn.sessionID,
			"participant_id", conn.participantID,
			"connection_id", conn.id)
		return
	}
	if member.Sink.ConnectionID() != conn.id {
		g.log.Info("Superseded connection left",
			"session_id", conn.sessionID,
			"participant_id", conn.participantID,
			"connection_id", conn.id)
		return
	}

	g.log.Info(fmt.Sprintf("%s left session %s", conn.displayName, conn.sessionID),
		"participant_id", conn.participantID,
		"connection_id", conn.id)

	if empty := g.registry.RemoveParticipant(conn.sessionID, conn.participantID); empty {
		g.registry.RemoveSession(conn.sessionID)
		g.refreshSessionGauge()
		g.log.Info(fmt.Sprintf("Session %s is now empty and removed", conn.sessionID))
		return
	}
	g.broadcastRoster(ctx, conn.sessionID)
}

func (g *Gateway) broadcastRoster(ctx context.Context, sessionID domain.SessionID) {
	session, ok := g.registry.GetSession(sessionID)
	if !ok {
		return
	}
	g.dispatcher.ToRoom(ctx, sessionID, event.RosterUpdate{Participants: toRoster(session.Participants)})
}

func (g *Gateway) refreshSessionGauge() {
	g.metrics.ActiveSessions.Set(float64(len(g.registry.Sessions())))
}

func toRoster(participants []domain.Participant) []domain.RosterEntry {
	return lo.Map(participants, func(p domain.Participant, _ int) domain.RosterEntry {
		return p.ToRosterEntry()
	})
}
