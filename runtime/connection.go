package runtime

import (
	"collab-lab/contract"
	"collab-lab/domain"
)

type connectionState int

const (
	stateConnecting connectionState = iota
	stateJoined
	stateRejected
	stateLeft
)

func (s connectionState) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateJoined:
		return "joined"
	case stateRejected:
		return "rejected"
	case stateLeft:
		return "left"
	default:
		return "unknown"
	}
}

// connection is the gateway's view of one client.
// Only a joined connection has its events processed; rejected and left are terminal.
type connection struct {
	id            string
	sink          contract.EventSink
	state         connectionState
	sessionID     domain.SessionID
	participantID domain.ParticipantID
	displayName   string
}

func (c *connection) join(h domain.Handshake) {
	c.state = stateJoined
	c.sessionID = h.SessionID
	c.participantID = h.ParticipantID
	c.displayName = h.DisplayName
}

func (c *connection) joined() bool {
	return c.state == stateJoined
}

// Requests handled by the event loop. Exactly one goroutine consumes them.
type request interface {
	connectionID() string
}

type connectRequest struct {
	handshake domain.Handshake
	sink      contract.EventSink
}

func (r connectRequest) connectionID() string { return r.sink.ConnectionID() }

type inboundRequest struct {
	connID  string
	inbound domain.Inbound
}

func (r inboundRequest) connectionID() string { return r.connID }

type disconnectRequest struct {
	connID string
}

func (r disconnectRequest) connectionID() string { return r.connID }

// pendingChat is a chat message waiting for its turn to be recorded.
// The appends of one connection run one at a time, in arrival order.
type pendingChat struct {
	sink      contract.EventSink
	sessionID domain.SessionID
	senderID  domain.ParticipantID
	body      string
	kind      domain.MessageKind
}

// chatAppended is fed back into the loop once the persistence call returns.
type chatAppended struct {
	connID    string
	sink      contract.EventSink
	sessionID domain.SessionID
	message   domain.ChatMessage
	err       error
}

func (r chatAppended) connectionID() string { return r.connID }
