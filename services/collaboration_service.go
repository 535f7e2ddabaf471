//go:generate go run go.uber.org/mock/mockgen -source=collaboration_service.go -destination=../mocks/mock_collaboration_service.go -package=mocks
package services

import (
	"collab-lab/contract"
	"collab-lab/domain"
	"collab-lab/repositories"
	"context"

	"github.com/samber/lo"
)

const defaultSearchLimit = 50

// ICollaborationService is the read side of the server exposed over HTTP.
// It never mutates live sessions: only the gateway event loop does.
type ICollaborationService interface {
	ListSessions() []domain.SessionSummary
	GetMessages(ctx context.Context, sessionID domain.SessionID, cursor *string) ([]domain.ChatMessage, *string, error)
	SearchMessages(ctx context.Context, sessionID domain.SessionID, term string) ([]domain.ChatMessage, error)
	PutUser(ctx context.Context, profile domain.Profile) error
}

var _ ICollaborationService = (*CollaborationService)(nil)

type CollaborationService struct {
	registry    contract.IRegistry
	messages    repositories.IMessageRepository
	users       repositories.IUserRepository
	index       repositories.IMessageIndex
	searchLimit int
}

func NewCollaborationService(registry contract.IRegistry, messages repositories.IMessageRepository,
	users repositories.IUserRepository, index repositories.IMessageIndex, searchLimit int) *CollaborationService {
	return &CollaborationService{
		registry:    registry,
		messages:    messages,
		users:       users,
		index:       index,
		searchLimit: lo.Ternary(searchLimit > 0, searchLimit, defaultSearchLimit),
	}
}

func (s *CollaborationService) ListSessions() []domain.SessionSummary {
	return lo.Map(s.registry.Sessions(), func(session domain.Session, _ int) domain.SessionSummary {
		return session.Summary()
	})
}

func (s *CollaborationService) GetMessages(ctx context.Context, sessionID domain.SessionID,
	cursor *string) ([]domain.ChatMessage, *string, error) {
	messages, next, err := s.messages.GetMessages(ctx, sessionID, cursor)
	if err != nil {
		return nil, nil, err
	}
	return lo.Ternary(messages == nil, []domain.ChatMessage{}, messages), next, nil
}

func (s *CollaborationService) SearchMessages(ctx context.Context, sessionID domain.SessionID,
	term string) ([]domain.ChatMessage, error) {
	messages, err := s.index.Search(ctx, sessionID, term, s.searchLimit)
	if err != nil {
		return nil, err
	}
	return lo.Ternary(messages == nil, []domain.ChatMessage{}, messages), nil
}

// PutUser stores the display profile used to resolve the sender of later messages.
func (s *CollaborationService) PutUser(ctx context.Context, profile domain.Profile) error {
	return s.users.PutUser(ctx, profile)
}
