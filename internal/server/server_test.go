package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"

	"bankline/internal/app"
	"bankline/internal/config"
	"bankline/internal/db"
	"bankline/internal/migrate"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Close() { s.close() }

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	a, err := app.New(conn, config.Default())
	if err != nil {
		t.Fatalf("build app: %v", err)
	}
	handler, err := New(Config{App: a, BasePath: "/v0", Auth: AuthConfig{JWTSecret: "test-secret"}})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	ts := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, token string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func login(t *testing.T, ts *testServer) string {
	t.Helper()
	creds := map[string]string{"username": "demo", "password": "hunter2"}
	resp, _ := doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/auth/register", creds, "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, want 201", resp.StatusCode)
	}
	resp, body := doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/auth/login", creds, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, body %s", resp.StatusCode, body)
	}
	var out LoginResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if out.Token == "" {
		t.Fatal("empty token")
	}
	return out.Token
}

func TestHealthIsOpen(t *testing.T) {
	ts := newTestServer(t)
	resp, body := doJSON(t, ts.client, http.MethodGet, ts.URL+"/v0/health", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
}

func TestRegisterConflict(t *testing.T) {
	ts := newTestServer(t)
	creds := map[string]string{"username": "demo", "password": "hunter2"}
	resp, _ := doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/auth/register", creds, "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first register status = %d, want 201", resp.StatusCode)
	}
	resp, body := doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/auth/register", creds, "")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second register status = %d, body %s", resp.StatusCode, body)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ts := newTestServer(t)
	_ = login(t, ts)
	bad := map[string]string{"username": "demo", "password": "wrong"}
	resp, body := doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/auth/login", bad, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
}

func TestChatRequiresAuth(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/chat", map[string]string{"message": "hi"}, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	resp, _ = doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/chat", map[string]string{"message": "hi"}, "garbage-token")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad token status = %d, want 401", resp.StatusCode)
	}
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts)
	resp, body := doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/chat", map[string]string{"message": "   "}, token)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
}

func TestChatConversation(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts)

	resp, body := doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/chat",
		map[string]string{"message": "transfer $100 from savings to checking"}, token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	var out ChatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.SessionID == "" {
		t.Fatal("empty session id")
	}
	if !strings.HasPrefix(out.Reply, "Transferred $100.00") {
		t.Fatalf("reply = %q", out.Reply)
	}
	if out.NLU.Intent != "transfer_money" {
		t.Fatalf("nlu intent = %s", out.NLU.Intent)
	}

	// Continue in the same session: slot-filling spans requests.
	resp, body = doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/chat",
		map[string]string{"session_id": out.SessionID, "message": "transfer money"}, token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Reply != "How much would you like to transfer?" {
		t.Fatalf("reply = %q", out.Reply)
	}
	if len(out.Needed) != 3 {
		t.Fatalf("needed = %v, want 3 slots", out.Needed)
	}
}

func TestResetEndpoint(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts)

	resp, body := doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/chat",
		map[string]string{"session_id": "s1", "message": "transfer money"}, token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat status = %d, body %s", resp.StatusCode, body)
	}

	resp, body = doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/reset",
		map[string]string{"session_id": "s1"}, token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reset status = %d, body %s", resp.StatusCode, body)
	}

	// The pending transfer is gone; gibberish now falls through.
	resp, body = doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/chat",
		map[string]string{"session_id": "s1", "message": "qwerty asdf"}, token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat status = %d, body %s", resp.StatusCode, body)
	}
	var out ChatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(out.Reply, "Sorry, I didn't catch that.") {
		t.Fatalf("reply = %q", out.Reply)
	}

	resp, _ = doJSON(t, ts.client, http.MethodPost, ts.URL+"/v0/reset", map[string]string{}, token)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("reset without session status = %d, want 400", resp.StatusCode)
	}
}
