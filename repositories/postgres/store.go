// Package postgres is the relational alternative to the badger chat log.
package postgres

import (
	"collab-lab/domain"
	"collab-lab/errors"
	"collab-lab/repositories"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// psq is the PostgreSQL statement builder with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var messageColumns = []string{
	"m.id", "m.session_id", "m.user_id", "m.message", "m.kind", "m.created_at",
	"COALESCE(u.username, m.user_id)", "u.avatar",
}

// appendQuery inserts the message and resolves the sender in the same round trip.
const appendQuery = `
	WITH m AS (
		INSERT INTO chat_messages (id, session_id, user_id, message, kind, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, session_id, user_id, message, kind, created_at
	)
	SELECT m.id, m.session_id, m.user_id, m.message, m.kind, m.created_at,
	       COALESCE(u.username, m.user_id), u.avatar
	FROM m LEFT JOIN users u ON u.id = m.user_id
`

var (
	_ repositories.IMessageRepository = (*Store)(nil)
	_ repositories.IUserRepository    = (*Store)(nil)
)

type Store struct {
	db            *sql.DB
	log           *slog.Logger
	limitMessages *int
}

func NewStore(db *sql.DB, log *slog.Logger, limitMessages *int) *Store {
	return &Store{db: db, log: log, limitMessages: limitMessages}
}

// Open connects to the database and checks it is reachable.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return db, nil
}

// AppendChatMessage stores the message with an id and a timestamp assigned here,
// so that cursors built from them are stable.
func (s *Store) AppendChatMessage(ctx context.Context, sessionID domain.SessionID, senderID domain.ParticipantID,
	body string, kind domain.MessageKind) (domain.ChatMessage, error) {
	createdAt := time.Now().UTC().Truncate(time.Microsecond)
	row := s.db.QueryRowContext(ctx, appendQuery,
		uuid.New(), string(sessionID), string(senderID), body, string(kind), createdAt)

	message, err := scanMessage(row)
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("inserting chat message: %w", err)
	}
	return message, nil
}

// GetMessages returns a page of messages of a session, newest first.
// The sender display fields are the ones of the profile at read time.
func (s *Store) GetMessages(ctx context.Context, sessionID domain.SessionID,
	cursor *string) ([]domain.ChatMessage, *string, error) {
	qb := psq.Select(messageColumns...).
		From("chat_messages m").
		LeftJoin("users u ON u.id = m.user_id").
		Where(sq.Eq{"m.session_id": string(sessionID)}).
		OrderBy("m.created_at DESC", "m.id DESC")

	if cursor != nil {
		at, id, err := repositories.DecodeCursor(*cursor)
		if err != nil {
			return nil, nil, err
		}
		qb = qb.Where(sq.Expr("(m.created_at, m.id) < (?, ?)", at, id))
	}
	if s.limitMessages != nil {
		// One extra row tells whether another page exists
		qb = qb.Limit(uint64(*s.limitMessages + 1))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, nil, fmt.Errorf("building messages query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("querying messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var messages []domain.ChatMessage
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterating message rows: %w", err)
	}

	if s.limitMessages == nil || len(messages) <= *s.limitMessages {
		return messages, nil, nil
	}
	s.log.Debug(fmt.Sprintf("Maximum of %d message reached", *s.limitMessages))
	messages = messages[:*s.limitMessages]
	last := messages[len(messages)-1]
	next := repositories.EncodeCursor(last.CreatedAt, last.ID)
	return messages, &next, nil
}

// PutUser creates or replaces a profile.
func (s *Store) PutUser(ctx context.Context, profile domain.Profile) error {
	query, args, err := psq.Insert("users").
		Columns("id", "username", "avatar").
		Values(string(profile.ID), profile.Username, profile.Avatar).
		Suffix("ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username, avatar = EXCLUDED.avatar, updated_at = now()").
		ToSql()
	if err != nil {
		return fmt.Errorf("building user upsert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, userID domain.ParticipantID) (domain.Profile, error) {
	query, args, err := psq.Select("id", "username", "avatar").
		From("users").
		Where(sq.Eq{"id": string(userID)}).
		ToSql()
	if err != nil {
		return domain.Profile{}, fmt.Errorf("building user query: %w", err)
	}

	var profile domain.Profile
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&profile.ID, &profile.Username, &profile.Avatar)
	if err == sql.ErrNoRows {
		return domain.Profile{}, errors.ErrUserNotFound
	}
	if err != nil {
		return domain.Profile{}, fmt.Errorf("querying user: %w", err)
	}
	return profile, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner) (domain.ChatMessage, error) {
	var message domain.ChatMessage
	err := row.Scan(
		&message.ID,
		&message.SessionID,
		&message.UserID,
		&message.Message,
		&message.Kind,
		&message.CreatedAt,
		&message.User.Username,
		&message.User.Avatar,
	)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	message.CreatedAt = message.CreatedAt.UTC()
	return message, nil
}
