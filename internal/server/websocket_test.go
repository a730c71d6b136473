package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"matchplay/internal/game"
	"matchplay/internal/game/rps"
	"matchplay/internal/session"
)

func wsURL(tsURL, conv string) string {
	return strings.Replace(tsURL, "http", "ws", 1) + "/api/conversations/" + conv + "/events"
}

func dialEvents(t *testing.T, ctx context.Context, tsURL, conv, userID string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, wsURL(tsURL, conv), &websocket.DialOptions{
		HTTPHeader: http.Header{"X-User-ID": []string{userID}},
	})
	if err != nil {
		t.Fatalf("dial events: %v", err)
	}
	return conn
}

func readState(t *testing.T, ctx context.Context, conn *websocket.Conn) statePayload {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if msg.Type != "state" {
		t.Fatalf("expected state message, got %s", msg.Type)
	}
	var sp statePayload
	if err := json.Unmarshal(msg.Payload, &sp); err != nil {
		t.Fatalf("unmarshal state payload: %v", err)
	}
	return sp
}

func TestEventStreamDeliversRedactedViews(t *testing.T) {
	env := setupTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	view := startGameViaAPI(t, env.ts, "conv1", "alice", "bob")

	// a subscriber connecting mid-game gets the current state up front
	conn := dialEvents(t, ctx, env.ts.URL, "conv1", "bob")
	defer conn.Close(websocket.StatusNormalClosure, "")

	initial := readState(t, ctx, conn)
	if initial.Game.ID != view.ID {
		t.Fatalf("expected initial snapshot for %s, got %s", view.ID, initial.Game.ID)
	}

	// alice's submission is pushed, with her choice withheld from bob
	submitViaAPI(t, env.ts, view.ID, "alice", rps.Rock)
	sp := readState(t, ctx, conn)
	r := sp.Game.Rounds[0]
	if r.Player1Choice != "" {
		t.Fatal("event stream leaked the opponent's open-round choice")
	}
	if !r.Player1HasChosen {
		t.Fatal("expected opponent-has-chosen flag in pushed state")
	}

	// resolution reveals both choices and the round winner
	submitViaAPI(t, env.ts, view.ID, "bob", rps.Scissors)
	sp = readState(t, ctx, conn)
	r = sp.Game.Rounds[0]
	if r.Player1Choice != rps.Rock || r.Player2Choice != rps.Scissors {
		t.Fatalf("expected resolved choices in pushed state, got %+v", r)
	}
	if r.Winner != game.OutcomePlayer1 {
		t.Fatalf("expected player1 round win, got %s", r.Winner)
	}
}

func TestEventStreamTerminalTransition(t *testing.T) {
	env := setupTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	view := startGameViaAPI(t, env.ts, "conv1", "alice", "bob")
	conn := dialEvents(t, ctx, env.ts.URL, "conv1", "alice")
	defer conn.Close(websocket.StatusNormalClosure, "")
	readState(t, ctx, conn) // initial snapshot

	resp := doJSON(t, env.ts, "POST", "/api/games/"+view.ID+"/forfeit", "alice", nil)
	resp.Body.Close()

	sp := readState(t, ctx, conn)
	if sp.Game.State != session.StateForfeited || sp.Game.WinnerID != "bob" {
		t.Fatalf("expected forfeit push, got %+v", sp.Game)
	}
	hasState := false
	for _, f := range sp.ChangedFields {
		if f == "state" {
			hasState = true
		}
	}
	if !hasState {
		t.Fatalf("expected state in changed fields, got %v", sp.ChangedFields)
	}
}

func TestEventStreamRequiresIdentity(t *testing.T) {
	env := setupTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, wsURL(env.ts.URL, "conv1"), nil)
	if err == nil {
		t.Fatal("expected dial to fail without identity")
	}
	if resp != nil && resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
