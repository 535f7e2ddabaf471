//go:generate go run go.uber.org/mock/mockgen -source=index.go -destination=../mocks/mock_message_index.go -package=mocks
package repositories

import (
	"collab-lab/domain"
	"collab-lab/errors"
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/blugelabs/bluge/search"
	"github.com/google/uuid"
)

const (
	fieldSessionID = "session_id"
	fieldUserID    = "user_id"
	fieldMessage   = "message"
	fieldKind      = "kind"
	fieldCreatedAt = "created_at"
	fieldUsername  = "username"
	fieldAvatar    = "avatar"
	idField        = "_id"
)

// IMessageIndex is the full text index of recorded chat messages.
// The index stores every field, a search never reads the message log back.
type IMessageIndex interface {
	Index(ctx context.Context, message domain.ChatMessage) error
	Search(ctx context.Context, sessionID domain.SessionID, term string, limit int) ([]domain.ChatMessage, error)
}

var _ IMessageIndex = (*MessageIndex)(nil)

type MessageIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewMessageIndex(writer *bluge.Writer, log *slog.Logger) *MessageIndex {
	return &MessageIndex{writer: writer, log: log}
}

func (i *MessageIndex) Index(ctx context.Context, message domain.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewKeywordField(fieldSessionID, string(message.SessionID)).StoreValue()).
		AddField(bluge.NewKeywordField(fieldUserID, string(message.UserID)).StoreValue()).
		AddField(bluge.NewTextField(fieldMessage, message.Message).StoreValue()).
		AddField(bluge.NewKeywordField(fieldKind, string(message.Kind)).StoreValue()).
		AddField(bluge.NewDateTimeField(fieldCreatedAt, message.CreatedAt).StoreValue().Sortable()).
		AddField(bluge.NewKeywordField(fieldUsername, message.User.Username).StoreValue())
	if message.User.Avatar != nil {
		doc.AddField(bluge.NewStoredOnlyField(fieldAvatar, []byte(*message.User.Avatar)))
	}
	return i.writer.Update(doc.ID(), doc)
}

// Search matches the term against the message bodies of one session, most recent first.
func (i *MessageIndex) Search(ctx context.Context, sessionID domain.SessionID, term string,
	limit int) ([]domain.ChatMessage, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, errors.ErrEmptySearchTerm
	}

	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			i.log.Warn("Failed to close index reader", "error", err)
		}
	}()

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewTermQuery(string(sessionID)).SetField(fieldSessionID)).
		AddMust(bluge.NewMatchQuery(term).SetField(fieldMessage))
	request := bluge.NewTopNSearch(limit, query).SortBy([]string{"-" + fieldCreatedAt})

	matches, err := reader.Search(ctx, request)
	if err != nil {
		return nil, err
	}

	var messages []domain.ChatMessage
	match, err := matches.Next()
	for err == nil && match != nil {
		message, visitErr := toIndexedMessage(match)
		if visitErr != nil {
			return nil, visitErr
		}
		messages = append(messages, message)
		match, err = matches.Next()
	}
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func toIndexedMessage(match *search.DocumentMatch) (domain.ChatMessage, error) {
	var message domain.ChatMessage
	var parseErr error
	err := match.VisitStoredFields(func(field string, value []byte) bool {
		switch field {
		case idField:
			message.ID, parseErr = uuid.ParseBytes(value)
		case fieldSessionID:
			message.SessionID = domain.SessionID(value)
		case fieldUserID:
			message.UserID = domain.ParticipantID(value)
		case fieldMessage:
			message.Message = string(value)
		case fieldKind:
			message.Kind = domain.MessageKind(value)
		case fieldCreatedAt:
			var at time.Time
			at, parseErr = bluge.DecodeDateTime(value)
			message.CreatedAt = at.UTC()
		case fieldUsername:
			message.User.Username = string(value)
		case fieldAvatar:
			avatar := string(value)
			message.User.Avatar = &avatar
		}
		return parseErr == nil
	})
	if err != nil {
		return domain.ChatMessage{}, err
	}
	return message, parseErr
}
