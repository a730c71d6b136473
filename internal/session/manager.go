package session

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"matchplay/internal/game"
	"matchplay/internal/storage"
)

// Defaults are the per-session settings used when StartOptions leaves
// them unset.
type Defaults struct {
	RuleSet       string
	BestOf        int
	RoundTimeout  time.Duration
	MatchTimeout  time.Duration
	TimeoutPolicy TimeoutPolicy
}

// StartOptions are the caller-supplied overrides for one game.
type StartOptions struct {
	RuleSet       string
	BestOf        int
	RoundTimeout  time.Duration
	MatchTimeout  time.Duration
	TimeoutPolicy TimeoutPolicy
}

// Manager is the session registry: it enforces at most one in-progress
// game per conversation, routes commands to controllers, archives
// terminal sessions, and evicts them after a retention window.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Controller
	active   map[string]string // conversationID -> in-progress session id

	registry *game.Registry
	store    *storage.Store
	notify   Notifier
	defaults Defaults
}

// NewManager creates a session manager. notify may be nil.
func NewManager(registry *game.Registry, store *storage.Store, notify Notifier, defaults Defaults) *Manager {
	if notify == nil {
		notify = NotifierFunc(func(Event) {})
	}
	return &Manager{
		sessions: make(map[string]*Controller),
		active:   make(map[string]string),
		registry: registry,
		store:    store,
		notify:   notify,
		defaults: defaults,
	}
}

// Start creates a new session for the conversation, opens round 1, and
// starts both timers. Fails with ErrAlreadyInProgress if the conversation
// already has a live game.
func (m *Manager) Start(conversationID, initiatorID, participantID string, opts StartOptions) (View, error) {
	if conversationID == "" || initiatorID == "" || participantID == "" || initiatorID == participantID {
		return View{}, ErrInvalidParticipants
	}
	cfg, err := m.sessionConfig(opts)
	if err != nil {
		return View{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.active[conversationID]; exists {
		return View{}, ErrAlreadyInProgress
	}

	id := uuid.NewString()
	sess := newSession(id, conversationID, initiatorID, participantID, cfg, time.Now())
	ctrl := newController(sess, cfg, m.notify, m.archive)
	m.sessions[id] = ctrl
	m.active[conversationID] = id
	log.Printf("session %s: started in conversation %s (%s vs %s, best of %d)",
		id, conversationID, initiatorID, participantID, cfg.BestOf)
	return Redact(ctrl.Snapshot(), initiatorID), nil
}

func (m *Manager) sessionConfig(opts StartOptions) (Config, error) {
	d := m.defaults
	if opts.RuleSet == "" {
		opts.RuleSet = d.RuleSet
	}
	rules, ok := m.registry.Get(opts.RuleSet)
	if !ok {
		return Config{}, ErrUnknownRules
	}
	cfg := Config{
		Rules:         rules,
		BestOf:        opts.BestOf,
		RoundTimeout:  opts.RoundTimeout,
		MatchTimeout:  opts.MatchTimeout,
		TimeoutPolicy: opts.TimeoutPolicy,
	}
	if cfg.BestOf == 0 {
		cfg.BestOf = d.BestOf
	}
	if cfg.BestOf < 1 {
		return Config{}, ErrInvalidBestOf
	}
	if cfg.RoundTimeout <= 0 {
		cfg.RoundTimeout = d.RoundTimeout
	}
	if cfg.MatchTimeout <= 0 {
		cfg.MatchTimeout = d.MatchTimeout
	}
	if cfg.TimeoutPolicy == "" {
		cfg.TimeoutPolicy = d.TimeoutPolicy
	}
	switch cfg.TimeoutPolicy {
	case PolicyAutoAward, PolicyDraw:
	default:
		return Config{}, ErrInvalidPolicy
	}
	return cfg, nil
}

func (m *Manager) get(sessionID string) (*Controller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ctrl, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return ctrl, nil
}

// SubmitChoice records a player's choice for the current round.
func (m *Manager) SubmitChoice(sessionID, userID string, choice game.Choice) error {
	ctrl, err := m.get(sessionID)
	if err != nil {
		return err
	}
	return ctrl.SubmitChoice(userID, choice)
}

// Forfeit concedes the match on behalf of userID.
func (m *Manager) Forfeit(sessionID, userID string) error {
	ctrl, err := m.get(sessionID)
	if err != nil {
		return err
	}
	return ctrl.Forfeit(userID)
}

// GetState returns the redacted view of a session for the requesting
// user. Non-participants get a view with both open-round choices hidden.
func (m *Manager) GetState(sessionID, userID string) (View, error) {
	ctrl, err := m.get(sessionID)
	if err != nil {
		return View{}, err
	}
	return Redact(ctrl.Snapshot(), userID), nil
}

// ActiveSession returns the id of the conversation's in-progress game.
func (m *Manager) ActiveSession(conversationID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.active[conversationID]
	return id, ok
}

// History returns the conversation's archived games, newest first.
func (m *Manager) History(conversationID string, limit int) ([]View, error) {
	rows, err := m.store.ListGames(conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	views := make([]View, 0, len(rows))
	for _, row := range rows {
		var sess Session
		if err := json.Unmarshal([]byte(row.SessionJSON), &sess); err != nil {
			log.Printf("session %s: corrupt archive entry: %v", row.ID, err)
			continue
		}
		// terminal sessions have nothing left to redact
		views = append(views, Redact(&sess, ""))
	}
	return views, nil
}

// archive runs on the controller goroutine after a terminal transition:
// persist the final state and free the conversation for a new game. The
// controller itself stays resident until the cleanup loop evicts it, so
// clients can still fetch the final result.
func (m *Manager) archive(snap *Session) {
	data, err := json.Marshal(snap)
	if err != nil {
		log.Printf("session %s: marshal archive: %v", snap.ID, err)
	} else if err := m.store.SaveGame(storage.GameRow{
		ID:             snap.ID,
		ConversationID: snap.ConversationID,
		State:          string(snap.State),
		WinnerID:       snap.WinnerID,
		SessionJSON:    string(data),
		CreatedAt:      snap.CreatedAt,
		CompletedAt:    snap.CompletedAt,
	}); err != nil {
		log.Printf("session %s: save archive: %v", snap.ID, err)
	}

	m.mu.Lock()
	if m.active[snap.ConversationID] == snap.ID {
		delete(m.active, snap.ConversationID)
	}
	m.mu.Unlock()
	log.Printf("session %s: %s (winner %q)", snap.ID, snap.State, snap.WinnerID)
}

// CleanupLoop evicts terminal sessions after the retention window.
func (m *Manager) CleanupLoop(interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		m.cleanup(retention)
	}
}

func (m *Manager) cleanup(retention time.Duration) {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, ctrl := range m.sessions {
		snap := ctrl.Snapshot()
		if snap.State.Terminal() && now.Sub(snap.CompletedAt) > retention {
			delete(m.sessions, id)
		}
	}
}
