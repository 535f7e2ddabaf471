package runtime

import (
	"cmp"
	"collab-lab/contract"
	"collab-lab/domain"
	"slices"
	"sync"

	"github.com/samber/lo"
)

var _ contract.IRegistry = (*Registry)(nil)

type session struct {
	code    string
	members map[domain.ParticipantID]contract.Member
}

// Registry is the process-wide directory of active collaboration sessions.
// Each session nests its own participant directory keyed by participant id.
//
// All mutations are issued by the gateway event loop. The lock only exists so that
// read-only observers (HTTP listing, metrics) can take consistent snapshots.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[domain.SessionID]*session),
	}
}

// EnsureSession returns the existing session or creates it with an empty buffer.
// Calling it on an existing session has no side effect.
func (r *Registry) EnsureSession(sessionID domain.SessionID) domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		s = &session{members: make(map[domain.ParticipantID]contract.Member)}
		r.sessions[sessionID] = s
	}
	return snapshot(sessionID, s)
}

func (r *Registry) GetSession(sessionID domain.SessionID) (domain.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return domain.Session{}, false
	}
	return snapshot(sessionID, s), true
}

// RemoveSession deletes the session. Unknown ids are ignored.
func (r *Registry) RemoveSession(sessionID domain.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}

// SetCode replaces the buffer of a session.
// It is a no-op when the session is gone, an edit may race the teardown of its room.
func (r *Registry) SetCode(sessionID domain.SessionID, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[sessionID]; ok {
		s.code = code
	}
}

// AddParticipant inserts or overwrites the entry of a participant.
// The most recent connection wins, the previous handle is no longer addressed.
func (r *Registry) AddParticipant(sessionID domain.SessionID, participantID domain.ParticipantID,
	displayName string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	s.members[participantID] = contract.Member{
		Participant: domain.Participant{ID: participantID, DisplayName: displayName},
		Sink:        sink,
	}
}

// RemoveParticipant deletes the participant and reports whether the session is now empty.
// An unknown session is reported as empty.
func (r *Registry) RemoveParticipant(sessionID domain.SessionID, participantID domain.ParticipantID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return true
	}
	delete(s.members, participantID)
	return len(s.members) == 0
}

func (r *Registry) GetParticipant(sessionID domain.SessionID, participantID domain.ParticipantID) (contract.Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return contract.Member{}, false
	}
	m, ok := s.members[participantID]
	return m, ok
}

// ListParticipants returns every registered participant with its connection handle.
// Returns nil if the session doesn't exist.
func (r *Registry) ListParticipants(sessionID domain.SessionID) []contract.Member {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return nil
	}
	return sortedMembers(s)
}

// Sessions returns a snapshot of all active sessions, ordered by id.
func (r *Registry) Sessions() []domain.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]domain.Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		res = append(res, snapshot(id, s))
	}
	slices.SortFunc(res, func(a, b domain.Session) int { return cmp.Compare(a.ID, b.ID) })
	return res
}

func snapshot(id domain.SessionID, s *session) domain.Session {
	return domain.Session{
		ID:   id,
		Code: s.code,
		Participants: lo.Map(sortedMembers(s), func(m contract.Member, _ int) domain.Participant {
			return m.Participant
		}),
	}
}

func sortedMembers(s *session) []contract.Member {
	members := lo.Values(s.members)
	slices.SortFunc(members, func(a, b contract.Member) int { return cmp.Compare(a.ID, b.ID) })
	return members
}
