package e2e

import (
	"collab-lab/domain/event"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

const frameTimeout = 5 * time.Second

type BaseWsSuite struct {
	suite.Suite
	Config Config
	server *inProcessServer
}

// SetupSuite loads the environment configuration and starts a server when none is targeted
func (s *BaseWsSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	if s.Config.ServerURL == "" {
		s.server, err = startInProcessServer()
		s.Require().NoError(err)
		s.Config.ServerURL = s.server.URL()
	}
}

func (s *BaseWsSuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
}

// Frame is a decoded outbound frame.
type Frame struct {
	Event   event.Name      `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Client is one participant connected over WebSocket.
type Client struct {
	t     *testing.T
	name  string
	conn  *websocket.Conn
	debug bool
}

// Header prints a colorized step header in the logs
func (s *BaseWsSuite) Header(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// Join opens a connection with the given identity.
func (s *BaseWsSuite) Join(sessionID, participantID, displayName string) *Client {
	query := url.Values{}
	query.Set("sessionId", sessionID)
	query.Set("participantId", participantID)
	query.Set("displayName", displayName)
	endpoint := "ws" + strings.TrimPrefix(s.Config.ServerURL, "http") + "/ws?" + query.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
	s.Require().NoError(err, "Failed to connect to "+endpoint)

	client := &Client{t: s.T(), name: displayName, conn: conn, debug: s.Config.DebugJSON}
	return client
}

// GetJSON decodes the body of a GET on the REST API
func (s *BaseWsSuite) GetJSON(path string, out any) int {
	resp, err := http.Get(s.Config.ServerURL + path)
	s.Require().NoError(err)
	defer func() { _ = resp.Body.Close() }()
	if out != nil && resp.StatusCode == http.StatusOK {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (c *Client) Send(name string, payload any) {
	c.t.Helper()
	frame := map[string]any{"event": name}
	if payload != nil {
		frame["payload"] = payload
	}
	if err := c.conn.WriteJSON(frame); err != nil {
		c.t.Fatalf("%s failed to send %s: %v", c.name, name, err)
	}
}

// Next returns the next frame, whatever its event.
func (c *Client) Next() Frame {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(frameTimeout))
	var frame Frame
	if err := c.conn.ReadJSON(&frame); err != nil {
		c.t.Fatalf("%s failed to read a frame: %v", c.name, err)
	}
	if c.debug {
		c.t.Logf("%s <- %s %s", c.name, frame.Event, string(frame.Payload))
	}
	return frame
}

// Expect skips frames until one with the given event arrives and decodes its payload.
func (c *Client) Expect(name event.Name, payload any) {
	c.t.Helper()
	for {
		frame := c.Next()
		if frame.Event != name {
			continue
		}
		if payload != nil {
			if err := json.Unmarshal(frame.Payload, payload); err != nil {
				c.t.Fatalf("%s received an unreadable %s: %v", c.name, name, err)
			}
		}
		return
	}
}

func (c *Client) Close() {
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = c.conn.Close()
}
