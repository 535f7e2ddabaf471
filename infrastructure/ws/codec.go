package ws

import (
	"collab-lab/domain"
	"collab-lab/domain/event"
	"collab-lab/errors"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/samber/lo"
)

// Frame is the envelope of every message exchanged on the socket.
type Frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type outboundFrame struct {
	Event   event.Name `json:"event"`
	Payload any        `json:"payload"`
}

// Field aliases keep older clients, which talk about collaborations and users, working.
type codeChangePayload struct {
	SessionID       string  `json:"sessionId"`
	CollaborationID string  `json:"collaborationId"`
	Code            *string `json:"code"`
}

type chatMessagePayload struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
	Type    string `json:"type"`
}

// DecodeInbound turns a text frame into an inbound event.
// A chat message with an unreadable payload is still returned, empty, so that its
// sender gets an operation error from the gateway.
func DecodeInbound(data []byte) (domain.Inbound, error) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}

	switch frame.Event {
	case domain.CodeChangeName:
		var payload codeChangePayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
		}
		if payload.Code == nil {
			return nil, fmt.Errorf("%w: code is missing", errors.ErrInvalidPayload)
		}
		return domain.CodeChange{
			SessionID: domain.SessionID(lo.CoalesceOrEmpty(payload.SessionID, payload.CollaborationID)),
			Code:      *payload.Code,
		}, nil
	case domain.ChatMessageName:
		var payload chatMessagePayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			return domain.PostChatMessage{}, nil
		}
		return domain.PostChatMessage{
			Message: payload.Message,
			Kind:    lo.CoalesceOrEmpty(payload.Kind, payload.Type),
		}, nil
	case domain.RequestInitialStateName:
		return domain.RequestInitialState{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEvent, frame.Event)
	}
}

func EncodeEvent(e event.Event) ([]byte, error) {
	return json.Marshal(outboundFrame{Event: e.Name(), Payload: e.Payload()})
}

// ParseHandshake reads the identity from the upgrade query string.
func ParseHandshake(query url.Values) domain.Handshake {
	return domain.Handshake{
		SessionID:     domain.SessionID(lo.CoalesceOrEmpty(query.Get("sessionId"), query.Get("collaborationId"))),
		ParticipantID: domain.ParticipantID(lo.CoalesceOrEmpty(query.Get("participantId"), query.Get("userId"))),
		DisplayName:   lo.CoalesceOrEmpty(query.Get("displayName"), query.Get("username")),
	}
}
