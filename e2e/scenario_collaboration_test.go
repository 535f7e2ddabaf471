package e2e

import (
	"collab-lab/domain"
	"collab-lab/domain/event"
	"net/http"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type testCollaborationSuite struct {
	BaseWsSuite
}

func TestCollaborationSuite(t *testing.T) {
	suite.Run(t, &testCollaborationSuite{})
}

func (s *testCollaborationSuite) TestPairProgrammingSession() {
	sessionID := "e2e-" + uuid.NewString()
	var roster []domain.RosterEntry
	var code string

	s.Header("Step 1: Alice opens the session")
	alice := s.Join(sessionID, "alice", "Alice")
	defer alice.Close()
	alice.Expect(event.CodeSnapshotName, &code)
	s.Require().Empty(code)
	alice.Expect(event.RosterUpdateName, &roster)
	s.Require().Equal([]domain.RosterEntry{{ID: "alice", DisplayName: "Alice"}}, roster)

	s.Header("Step 2: Bob joins and both see the roster")
	bob := s.Join(sessionID, "bob", "Bob")
	defer bob.Close()
	bob.Expect(event.CodeSnapshotName, &code)
	bob.Expect(event.RosterUpdateName, &roster)
	s.Require().Len(roster, 2)
	alice.Expect(event.RosterUpdateName, &roster)
	s.Require().Equal([]domain.RosterEntry{
		{ID: "alice", DisplayName: "Alice"},
		{ID: "bob", DisplayName: "Bob"},
	}, roster)

	s.Header("Step 3: Alice edits the code, Bob receives it")
	alice.Send(domain.CodeChangeName, map[string]string{"sessionId": sessionID, "code": "func main() {}"})
	bob.Expect(event.CodeBroadcastName, &code)
	s.Require().Equal("func main() {}", code)

	// Alice gets no echo: the next frame she reads is the snapshot she asks for
	alice.Send(domain.RequestInitialStateName, nil)
	frame := alice.Next()
	s.Require().Equal(event.CodeSnapshotName, frame.Event)
	alice.Expect(event.RosterUpdateName, nil)

	s.Header("Step 4: Bob chats, the message is recorded then broadcast to both")
	bob.Send(domain.ChatMessageName, map[string]string{"message": "looks good, you idiot"})
	var received domain.ChatMessage
	alice.Expect(event.ChatBroadcastName, &received)
	s.Require().Equal("looks good, you *****", received.Message)
	s.Require().Equal(domain.ParticipantID("bob"), received.UserID)
	s.Require().Equal("bob", received.User.Username)
	s.Require().Equal(domain.KindText, received.Kind)
	bob.Expect(event.ChatBroadcastName, &received)

	s.Header("Step 5: An empty chat message is refused to its sender only")
	bob.Send(domain.ChatMessageName, map[string]string{"message": ""})
	var failure event.OperationErrorPayload
	bob.Expect(event.OperationErrorName, &failure)
	s.Require().Equal("Invalid chat message.", failure.Message)

	s.Header("Step 6: History and search expose the recorded message")
	var page struct {
		Messages   []domain.ChatMessage `json:"messages"`
		NextCursor *string              `json:"nextCursor"`
	}
	s.Require().Equal(http.StatusOK, s.GetJSON("/api/sessions/"+url.PathEscape(sessionID)+"/messages", &page))
	s.Require().Len(page.Messages, 1)
	s.Require().Equal(received.ID, page.Messages[0].ID)
	s.Require().Nil(page.NextCursor)

	var found []domain.ChatMessage
	s.Require().Equal(http.StatusOK,
		s.GetJSON("/api/sessions/"+url.PathEscape(sessionID)+"/messages/search?q=good", &found))
	s.Require().Len(found, 1)
	s.Require().Equal(received.ID, found[0].ID)

	s.Header("Step 7: Bob leaves, Alice sees him go")
	bob.Close()
	alice.Expect(event.RosterUpdateName, &roster)
	s.Require().Equal([]domain.RosterEntry{{ID: "alice", DisplayName: "Alice"}}, roster)

	var sessions []domain.SessionSummary
	s.Require().Equal(http.StatusOK, s.GetJSON("/api/sessions", &sessions))
	summary, ok := lo.Find(sessions, func(summary domain.SessionSummary) bool {
		return summary.ID == domain.SessionID(sessionID)
	})
	s.Require().True(ok)
	s.Require().Equal(1, summary.Participants)
	s.Require().Equal(len("func main() {}"), summary.CodeLength)
}
