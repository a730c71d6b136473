package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"

	"nhooyr.io/websocket"

	"matchplay/internal/session"
)

// WSMessage is the JSON envelope for WebSocket messages.
type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type statePayload struct {
	ChangedFields []string     `json:"changedFields,omitempty"`
	Game          session.View `json:"game"`
}

// subscriber is one open event stream for one user in one conversation.
type subscriber struct {
	userID string
	events chan session.Event
}

// Hub fans committed state-change events out to conversation
// subscribers. It implements session.Notifier; delivery never blocks the
// engine, slow consumers lose events and resync from the snapshot on the
// next one.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*subscriber]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*subscriber]struct{})}
}

// Notify delivers an event to every subscriber of its conversation.
func (h *Hub) Notify(e session.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[e.ConversationID] {
		select {
		case sub.events <- e:
		default:
			// drop; the next event carries a full snapshot anyway
		}
	}
}

func (h *Hub) subscribe(conversationID, userID string) *subscriber {
	sub := &subscriber{
		userID: userID,
		events: make(chan session.Event, 16),
	}
	h.mu.Lock()
	if h.subs[conversationID] == nil {
		h.subs[conversationID] = make(map[*subscriber]struct{})
	}
	h.subs[conversationID][sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) unsubscribe(conversationID string, sub *subscriber) {
	h.mu.Lock()
	if subs, ok := h.subs[conversationID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.subs, conversationID)
		}
	}
	h.mu.Unlock()
}

// handleEvents streams state-change events for one conversation. Each
// event is redacted for the subscribing user before delivery, so a
// modified client still never sees the opponent's open-round choice.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conversationID := r.PathValue("id")
	uid := userID(r)
	if uid == "" {
		uid = strings.TrimSpace(r.URL.Query().Get("user"))
	}
	if uid == "" {
		http.Error(w, "user identity required", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // allow any origin for dev
	})
	if err != nil {
		log.Printf("websocket accept: %v", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// no client->server messages on this stream
	ctx := conn.CloseRead(r.Context())

	sub := s.hub.subscribe(conversationID, uid)
	defer s.hub.unsubscribe(conversationID, sub)

	// reconnecting clients get the current state up front
	if id, ok := s.manager.ActiveSession(conversationID); ok {
		if view, err := s.manager.GetState(id, uid); err == nil {
			if err := writeWSState(ctx, conn, nil, view); err != nil {
				return
			}
		}
	}

	for {
		select {
		case e := <-sub.events:
			view := session.Redact(e.Snapshot, sub.userID)
			if err := writeWSState(ctx, conn, e.ChangedFields, view); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func writeWSState(ctx context.Context, conn *websocket.Conn, changed []string, view session.View) error {
	payload, _ := json.Marshal(statePayload{ChangedFields: changed, Game: view})
	msg, _ := json.Marshal(WSMessage{Type: "state", Payload: payload})
	return conn.Write(ctx, websocket.MessageText, msg)
}
