package session

import (
	"maps"
	"slices"
	"time"

	"matchplay/internal/game"
)

// State represents the session lifecycle.
type State string

const (
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateForfeited  State = "forfeited"
	StateAbandoned  State = "abandoned"
)

// Terminal reports whether no further commands can mutate the session.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateForfeited || s == StateAbandoned
}

// TimeoutPolicy controls how a round that times out with exactly one
// submitted choice is resolved.
type TimeoutPolicy string

const (
	// PolicyAutoAward gives the round to the player who submitted.
	PolicyAutoAward TimeoutPolicy = "auto-award"
	// PolicyDraw resolves the round as a draw regardless of submissions.
	PolicyDraw TimeoutPolicy = "draw"
)

// Round is one exchange of simultaneous choices. Choices, once set, are
// never overwritten; Winner is set exactly once, either when both choices
// are in or when the round timer force-resolves it.
type Round struct {
	Number        int          `json:"number"`
	Player1Choice game.Choice  `json:"player1Choice,omitempty"`
	Player2Choice game.Choice  `json:"player2Choice,omitempty"`
	Winner        game.Outcome `json:"winner,omitempty"`
	TimedOut      bool         `json:"timedOut,omitempty"`
	OpenedAt      time.Time    `json:"openedAt"`
	ResolvedAt    time.Time    `json:"resolvedAt,omitzero"`
}

// Resolved reports whether the round has an outcome.
func (r *Round) Resolved() bool { return r.Winner != "" }

// Config holds per-session settings, all overridable at start.
type Config struct {
	Rules         game.Rules
	BestOf        int
	RoundTimeout  time.Duration
	MatchTimeout  time.Duration
	TimeoutPolicy TimeoutPolicy
}

// Session is the full state of one match. It is owned by a single
// Controller goroutine; everyone else sees immutable snapshots.
//
// Player 1 is the initiator, player 2 the invited participant.
type Session struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversationId"`
	InitiatorID    string         `json:"initiatorId"`
	ParticipantID  string         `json:"participantId"`
	RuleSet        string         `json:"ruleSet"`
	BestOf         int            `json:"bestOf"`
	State          State          `json:"state"`
	CurrentRound   int            `json:"currentRound"`
	Rounds         []Round        `json:"rounds"`
	Score          map[string]int `json:"score"`
	WinnerID       string         `json:"winnerId,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	LastActivityAt time.Time      `json:"lastActivityAt"`
	CompletedAt    time.Time      `json:"completedAt,omitzero"`
	RoundDeadline  time.Time      `json:"roundDeadline,omitzero"`
	MatchDeadline  time.Time      `json:"matchDeadline,omitzero"`

	// consecutive rounds that timed out with zero submissions
	idleRounds int
}

func newSession(id, conversationID, initiatorID, participantID string, cfg Config, now time.Time) *Session {
	s := &Session{
		ID:             id,
		ConversationID: conversationID,
		InitiatorID:    initiatorID,
		ParticipantID:  participantID,
		RuleSet:        cfg.Rules.Info().Name,
		BestOf:         cfg.BestOf,
		State:          StateInProgress,
		CreatedAt:      now,
		LastActivityAt: now,
		MatchDeadline:  now.Add(cfg.MatchTimeout),
		Score: map[string]int{
			initiatorID:   0,
			participantID: 0,
		},
	}
	s.openRound(now, cfg.RoundTimeout)
	return s
}

// playerNum returns 1 for the initiator, 2 for the participant, 0 otherwise.
func (s *Session) playerNum(userID string) int {
	switch userID {
	case s.InitiatorID:
		return 1
	case s.ParticipantID:
		return 2
	}
	return 0
}

func (s *Session) playerID(num int) string {
	if num == 1 {
		return s.InitiatorID
	}
	return s.ParticipantID
}

func (s *Session) round() *Round {
	return &s.Rounds[len(s.Rounds)-1]
}

func (s *Session) openRound(now time.Time, timeout time.Duration) {
	s.CurrentRound++
	s.Rounds = append(s.Rounds, Round{
		Number:   s.CurrentRound,
		OpenedAt: now,
	})
	s.RoundDeadline = now.Add(timeout)
}

// choiceOf returns the given player's choice in a round ("" if absent).
func (r *Round) choiceOf(num int) game.Choice {
	if num == 1 {
		return r.Player1Choice
	}
	return r.Player2Choice
}

func (r *Round) setChoice(num int, c game.Choice) {
	if num == 1 {
		r.Player1Choice = c
	} else {
		r.Player2Choice = c
	}
}

func (r *Round) submissions() int {
	n := 0
	if r.Player1Choice != "" {
		n++
	}
	if r.Player2Choice != "" {
		n++
	}
	return n
}

// threshold is the score needed to win the match outright.
func (s *Session) threshold() int {
	return s.BestOf/2 + 1
}

// decidedRounds counts resolved rounds that produced a winner. Draws do
// not consume the best-of budget: the match is first-to-threshold, not
// fixed-length.
func (s *Session) decidedRounds() int {
	n := 0
	for i := range s.Rounds {
		w := s.Rounds[i].Winner
		if w == game.OutcomePlayer1 || w == game.OutcomePlayer2 {
			n++
		}
	}
	return n
}

// RecomputeScore rebuilds the per-player tally from the round history.
// The cached Score must always equal this; the controller checks for
// drift after every resolution.
func (s *Session) RecomputeScore() map[string]int {
	score := map[string]int{
		s.InitiatorID:   0,
		s.ParticipantID: 0,
	}
	for i := range s.Rounds {
		switch s.Rounds[i].Winner {
		case game.OutcomePlayer1:
			score[s.InitiatorID]++
		case game.OutcomePlayer2:
			score[s.ParticipantID]++
		}
	}
	return score
}

// Clone returns a deep copy safe to hand out as a snapshot.
func (s *Session) Clone() *Session {
	c := *s
	c.Rounds = slices.Clone(s.Rounds)
	c.Score = maps.Clone(s.Score)
	return &c
}
