package domain

const (
	CodeChangeName          = "code-change"
	ChatMessageName         = "chat-message"
	RequestInitialStateName = "request-initial-state"
)

// Inbound is an event received from a connected client.
// Every field is untrusted until validated by the gateway.
type Inbound interface {
	InboundName() string
}

// CodeChange replaces the whole buffer of a session (last writer wins).
type CodeChange struct {
	SessionID SessionID `validate:"required"`
	Code      string
}

func (CodeChange) InboundName() string { return CodeChangeName }

// PostChatMessage asks for a chat message to be recorded and echoed to the room.
type PostChatMessage struct {
	Message string
	Kind    string
}

func (PostChatMessage) InboundName() string { return ChatMessageName }

// RequestInitialState asks for the current buffer and roster to be sent again.
type RequestInitialState struct{}

func (RequestInitialState) InboundName() string { return RequestInitialStateName }
