package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"matchplay/internal/game"
	"matchplay/internal/game/rps"
	"matchplay/internal/session"
	"matchplay/internal/storage"
)

// --- Test environment ---

type testEnv struct {
	ts  *httptest.Server
	mgr *session.Manager
	hub *Hub
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return setupTestEnvTimeouts(t, time.Minute, time.Minute)
}

func setupTestEnvTimeouts(t *testing.T, roundTimeout, matchTimeout time.Duration) *testEnv {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	reg := game.NewRegistry()
	reg.Register(rps.Rules{})

	hub := NewHub()
	mgr := session.NewManager(reg, store, hub, session.Defaults{
		RuleSet:       "rps",
		BestOf:        3,
		RoundTimeout:  roundTimeout,
		MatchTimeout:  matchTimeout,
		TimeoutPolicy: session.PolicyAutoAward,
	})

	srv := New(reg, mgr, hub)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, mgr: mgr, hub: hub}
}

// --- REST helpers ---

// doJSON issues a request with the identity header set and returns the
// response. Callers own closing the body.
func doJSON(t *testing.T, ts *httptest.Server, method, path, userID string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeView(t *testing.T, resp *http.Response) session.View {
	t.Helper()
	defer resp.Body.Close()
	var v session.View
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	return v
}

func decodeError(t *testing.T, resp *http.Response) errorResponse {
	t.Helper()
	defer resp.Body.Close()
	var e errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return e
}

func startGameViaAPI(t *testing.T, ts *httptest.Server, conv, initiator, participant string) session.View {
	t.Helper()
	resp := doJSON(t, ts, "POST", "/api/conversations/"+conv+"/games", initiator,
		map[string]string{"participantId": participant})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	return decodeView(t, resp)
}

func submitViaAPI(t *testing.T, ts *httptest.Server, gameID, userID string, choice game.Choice) session.View {
	t.Helper()
	resp := doJSON(t, ts, "POST", "/api/games/"+gameID+"/choice", userID,
		map[string]game.Choice{"choice": choice})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 submitting %s as %s, got %d", choice, userID, resp.StatusCode)
	}
	return decodeView(t, resp)
}
