package sink

import (
	"collab-lab/contract"
	"collab-lab/domain"
	"collab-lab/errors"
	"collab-lab/moderation"
	"collab-lab/repositories"
	"context"
	"fmt"
	"log/slog"
)

var _ contract.IMessageLog = (*MessageLog)(nil)

// MessageLog records chat messages before they are broadcast.
// Text bodies go through the moderator when one is set. The search index is
// fed after the write and an indexing failure doesn't fail the append.
type MessageLog struct {
	log        *slog.Logger
	repository repositories.IMessageRepository
	index      repositories.IMessageIndex
	moderator  *moderation.Moderator
}

func NewMessageLog(log *slog.Logger, repository repositories.IMessageRepository,
	index repositories.IMessageIndex, moderator *moderation.Moderator) *MessageLog {
	return &MessageLog{log: log, repository: repository, index: index, moderator: moderator}
}

func (l *MessageLog) Append(ctx context.Context, sessionID domain.SessionID, senderID domain.ParticipantID,
	body string, kind domain.MessageKind) (domain.ChatMessage, error) {
	if l.moderator != nil && kind == domain.KindText {
		censored, words := l.moderator.Censor(body)
		if len(words) > 0 {
			l.log.Info("Chat message censored",
				"session_id", sessionID,
				"participant_id", senderID,
				"words", len(words),
				"lang", l.moderator.Language(body))
		}
		body = censored
	}

	message, err := l.repository.AppendChatMessage(ctx, sessionID, senderID, body, kind)
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("%w: %v", errors.ErrAppendFailed, err)
	}

	if l.index != nil {
		if err := l.index.Index(ctx, message); err != nil {
			l.log.Warn("Chat message recorded but not indexed",
				"session_id", sessionID,
				"message_id", message.ID,
				"error", err)
		}
	}
	return message, nil
}
