//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"collab-lab/domain"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// MessagePrefix starts the key of every chat message.
const MessagePrefix = "msg:"

// IMessageRepository is the durable chat log of every session.
// Records are never updated nor deleted.
type IMessageRepository interface {
	AppendChatMessage(ctx context.Context, sessionID domain.SessionID, senderID domain.ParticipantID,
		body string, kind domain.MessageKind) (domain.ChatMessage, error)
	GetMessages(ctx context.Context, sessionID domain.SessionID, cursor *string) ([]domain.ChatMessage, *string, error)
}

var _ IMessageRepository = MessageRepository{}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// diskMessage is the badger value of a chat message.
// The sender display fields are resolved once, at write time.
type diskMessage struct {
	ID        string  `json:"id"`
	SessionID string  `json:"session_id"`
	UserID    string  `json:"user_id"`
	Message   string  `json:"message"`
	Kind      string  `json:"kind"`
	At        int64   `json:"at"`
	Username  string  `json:"username"`
	Avatar    *string `json:"avatar,omitempty"`
}

// AppendChatMessage assigns an id and a timestamp, resolves the sender profile and stores the message.
// The key is formatted as "msg:{session}:{timestamp_padded}:{uuid}":
//  1. the session id is base64 encoded so that one id is never the prefix of another.
//  2. the 19-digit zero padding keeps the lexicographical order chronological.
//  3. the uuid breaks ties between messages stored at the same nanosecond.
func (m MessageRepository) AppendChatMessage(ctx context.Context, sessionID domain.SessionID,
	senderID domain.ParticipantID, body string, kind domain.MessageKind) (domain.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return domain.ChatMessage{}, err
	}

	message := domain.ChatMessage{
		ID:        uuid.New(),
		SessionID: sessionID,
		UserID:    senderID,
		Message:   body,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}

	err := m.db.Update(func(txn *badger.Txn) error {
		profile, found, err := getProfile(txn, senderID)
		if err != nil {
			return err
		}
		// Without a profile the sender is displayed under its id
		message.User = domain.Sender{Username: string(senderID)}
		if found {
			message.User = domain.Sender{Username: profile.Username, Avatar: profile.Avatar}
		}

		bytes, err := json.Marshal(fromChatMessage(message))
		if err != nil {
			return err
		}
		return txn.Set(messageKey(message), bytes)
	})
	if err != nil {
		return domain.ChatMessage{}, err
	}
	return message, nil
}

// GetMessages returns a page of messages of a session, newest first.
// The returned cursor is nil once the oldest message has been read.
func (m MessageRepository) GetMessages(ctx context.Context, sessionID domain.SessionID,
	cursor *string) ([]domain.ChatMessage, *string, error) {
	if cursor != nil {
		if _, _, err := DecodeCursor(*cursor); err != nil {
			return nil, nil, err
		}
	}

	var byteMessages [][]byte
	var lastKey string
	hasMore := false
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := SessionPrefix(sessionID)
		prefix := []byte(prefixStr)
		prefixLen := len(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		// In reverse mode, seek lands on the greatest key lower or equal to seekKey
		var seekKey []byte
		switch cursor {
		case nil:
			seekKey = append([]byte(prefixStr), []byte(strings.Repeat("9", cursorDigits)+";")...)
		default:
			seekKey = append([]byte(prefixStr), []byte(*cursor)...)
		}
		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) && string(it.Item().Key()[prefixLen:]) == *cursor {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if m.limitMessages != nil && len(byteMessages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", *m.limitMessages))
				hasMore = true
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[prefixLen:])
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			byteMessages = append(byteMessages, value)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	messages := make([]domain.ChatMessage, 0, len(byteMessages))
	for _, b := range byteMessages {
		message, err := DecodeMessage(b)
		if err != nil {
			return nil, nil, err
		}
		messages = append(messages, message)
	}
	if !hasMore {
		return messages, nil, nil
	}
	return messages, &lastKey, nil
}

// SessionPrefix is the key prefix of the messages of one session.
func SessionPrefix(sessionID domain.SessionID) string {
	return MessagePrefix + base64.RawURLEncoding.EncodeToString([]byte(sessionID)) + ":"
}

func messageKey(message domain.ChatMessage) []byte {
	return []byte(SessionPrefix(message.SessionID) + EncodeCursor(message.CreatedAt, message.ID))
}

func fromChatMessage(message domain.ChatMessage) diskMessage {
	return diskMessage{
		ID:        message.ID.String(),
		SessionID: string(message.SessionID),
		UserID:    string(message.UserID),
		Message:   message.Message,
		Kind:      string(message.Kind),
		At:        message.CreatedAt.UnixNano(),
		Username:  message.User.Username,
		Avatar:    message.User.Avatar,
	}
}

func toChatMessage(disk diskMessage) (domain.ChatMessage, error) {
	parsedID, err := uuid.Parse(disk.ID)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	return domain.ChatMessage{
		ID:        parsedID,
		SessionID: domain.SessionID(disk.SessionID),
		UserID:    domain.ParticipantID(disk.UserID),
		Message:   disk.Message,
		Kind:      domain.MessageKind(disk.Kind),
		CreatedAt: time.Unix(0, disk.At).UTC(),
		User:      domain.Sender{Username: disk.Username, Avatar: disk.Avatar},
	}, nil
}

// DecodeMessage reads a raw badger value, for offline tooling.
func DecodeMessage(val []byte) (domain.ChatMessage, error) {
	var disk diskMessage
	if err := json.Unmarshal(val, &disk); err != nil {
		return domain.ChatMessage{}, err
	}
	return toChatMessage(disk)
}
