// Package integration drives a fully wired server over real HTTP.
package integration

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/hearthquest/app"
	"github.com/kasuganosora/hearthquest/config"
	"github.com/kasuganosora/hearthquest/game/quest"
	mw "github.com/kasuganosora/hearthquest/middleware"
	"github.com/kasuganosora/hearthquest/model"
	"github.com/kasuganosora/hearthquest/testutil"
)

const (
	secret   = "integration-test-secret"
	AdminKey = "integration-admin-key"
)

// TestServer wraps a real HTTP server with every subsystem wired the way
// the serve command wires them.
type TestServer struct {
	App    *app.App
	Server *httptest.Server
	URL    string
	Home   *testutil.Household
}

// NewTestServer creates a migrated server with one seeded household whose
// child plays a mage.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Server.Debug = true
	cfg.Server.AdminKey = AdminKey
	cfg.Server.EventsKeepAlive = time.Hour
	cfg.Database.SQLitePath = filepath.Join(t.TempDir(), "integration.db")
	cfg.Security.JWTSecret = secret
	cfg.Security.RateLimitRPS = 1000
	cfg.Security.RateLimitBurst = 2000

	a, err := app.New(cfg, testutil.NopLogger())
	require.NoError(t, err)
	require.NoError(t, a.Migrate())
	a.ScheduleTasks()

	server := httptest.NewServer(a.Router())
	ts := &TestServer{
		App:    a,
		Server: server,
		URL:    server.URL,
		Home:   testutil.SeedHousehold(t, a.DB, "UTC", model.ClassMage),
	}
	t.Cleanup(ts.Close)
	return ts
}

// Close shuts down the HTTP server and the app.
func (ts *TestServer) Close() {
	ts.Server.Close()
	ts.App.Close()
}

// --- Auth helpers ---

// Token issues a JWT for actor.
func (ts *TestServer) Token(t *testing.T, actor quest.Actor) string {
	t.Helper()
	tok, err := mw.GenerateToken(actor, secret, time.Hour)
	require.NoError(t, err)
	return tok
}

// Guardian returns a token for the household's guardian.
func (ts *TestServer) Guardian(t *testing.T) string {
	return ts.Token(t, quest.Actor{UserID: ts.Home.Guardian.UserID, FamilyID: ts.Home.Family.ID, Role: model.RoleGuardian})
}

// Child returns a token for the household's child.
func (ts *TestServer) Child(t *testing.T) string {
	return ts.Token(t, quest.Actor{UserID: ts.Home.Child.UserID, FamilyID: ts.Home.Family.ID, Role: model.RoleMember})
}

// --- HTTP helpers ---

// Post sends an empty-bodied POST with optional Bearer token and extra
// header pairs.
func (ts *TestServer) Post(t *testing.T, path, token string, headers ...string) *http.Response {
	t.Helper()
	return ts.do(t, http.MethodPost, path, token, headers...)
}

// Get sends a GET request with optional Bearer token.
func (ts *TestServer) Get(t *testing.T, path, token string, headers ...string) *http.Response {
	t.Helper()
	return ts.do(t, http.MethodGet, path, token, headers...)
}

func (ts *TestServer) do(t *testing.T, method, path, token string, headers ...string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, bytes.NewReader(nil))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// ReadJSON reads and decodes a JSON response body into the given target.
func ReadJSON(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target), "body: %s", string(data))
}

// Expect asserts the status code and decodes the body as an object.
func Expect(t *testing.T, resp *http.Response, status int) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	ReadJSON(t, resp, &body)
	require.Equal(t, status, resp.StatusCode, "body: %v", body)
	return body
}

// --- Event stream client ---

// EventClient reads the family event stream.
type EventClient struct {
	resp   *http.Response
	events chan quest.Event
	closed atomic.Bool
}

// ConnectEvents opens /api/events with token and waits for the connected
// frame, so transitions made afterwards are guaranteed to be delivered.
func (ts *TestServer) ConnectEvents(t *testing.T, token string) *EventClient {
	t.Helper()
	resp, err := http.Get(ts.URL + "/api/events?token=" + token)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ec := &EventClient{resp: resp, events: make(chan quest.Event, 64)}
	rd := bufio.NewReader(resp.Body)
	name, _, err := readFrame(rd)
	require.NoError(t, err)
	require.Equal(t, "connected", name)

	go ec.readLoop(rd)
	t.Cleanup(ec.Close)
	return ec
}

func (ec *EventClient) readLoop(rd *bufio.Reader) {
	defer close(ec.events)
	for {
		name, data, err := readFrame(rd)
		if err != nil {
			return
		}
		if name == "" {
			continue
		}
		var ev quest.Event
		if json.Unmarshal([]byte(data), &ev) == nil {
			ec.events <- ev
		}
	}
}

// readFrame parses one SSE frame. Comment-only frames return an empty name.
func readFrame(rd *bufio.Reader) (name, data string, err error) {
	for {
		line, err := rd.ReadString('\n')
		if err != nil {
			return "", "", err
		}
		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			return name, data, nil
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

// Next returns the next event or fails the test after timeout.
func (ec *EventClient) Next(t *testing.T, timeout time.Duration) quest.Event {
	t.Helper()
	select {
	case ev, ok := <-ec.events:
		require.True(t, ok, "event stream closed")
		return ev
	case <-time.After(timeout):
		t.Fatal("timeout waiting for event")
		return quest.Event{}
	}
}

// Close ends the stream.
func (ec *EventClient) Close() {
	if ec.closed.CompareAndSwap(false, true) {
		ec.resp.Body.Close()
	}
}

// QuestPath returns the REST path of a quest action.
func QuestPath(id, action string) string {
	if action == "" {
		return fmt.Sprintf("/api/quests/%s", id)
	}
	return fmt.Sprintf("/api/quests/%s/%s", id, action)
}
