package session

import (
	"time"

	"matchplay/internal/game"
)

// RoundView is a Round as one requester may see it. For the current open
// round the opponent's choice is withheld and replaced with a flag; once
// the round resolves both choices are visible to everyone.
type RoundView struct {
	Number            int          `json:"number"`
	Player1Choice     game.Choice  `json:"player1Choice,omitempty"`
	Player2Choice     game.Choice  `json:"player2Choice,omitempty"`
	Player1HasChosen  bool         `json:"player1HasChosen"`
	Player2HasChosen  bool         `json:"player2HasChosen"`
	Winner            game.Outcome `json:"winner,omitempty"`
	WinnerID          string       `json:"winnerId,omitempty"`
	TimedOut          bool         `json:"timedOut,omitempty"`
	OpenedAt          time.Time    `json:"openedAt"`
	ResolvedAt        time.Time    `json:"resolvedAt,omitzero"`
}

// View is the redacted projection of a Session returned to requesters.
type View struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversationId"`
	InitiatorID    string         `json:"initiatorId"`
	ParticipantID  string         `json:"participantId"`
	RuleSet        string         `json:"ruleSet"`
	BestOf         int            `json:"bestOf"`
	State          State          `json:"state"`
	CurrentRound   int            `json:"currentRound"`
	Rounds         []RoundView    `json:"rounds"`
	Score          map[string]int `json:"score"`
	WinnerID       string         `json:"winnerId,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	LastActivityAt time.Time      `json:"lastActivityAt"`
	CompletedAt    time.Time      `json:"completedAt,omitzero"`
	RoundDeadline  time.Time      `json:"roundDeadline,omitzero"`
	MatchDeadline  time.Time      `json:"matchDeadline,omitzero"`
}

// Redact builds the view of s that userID is allowed to observe. For the
// current unresolved round, a participant sees only their own choice; a
// non-participant observer sees neither. This is the property that keeps
// a client from learning the opponent's move before committing its own.
func Redact(s *Session, userID string) View {
	v := View{
		ID:             s.ID,
		ConversationID: s.ConversationID,
		InitiatorID:    s.InitiatorID,
		ParticipantID:  s.ParticipantID,
		RuleSet:        s.RuleSet,
		BestOf:         s.BestOf,
		State:          s.State,
		CurrentRound:   s.CurrentRound,
		Rounds:         make([]RoundView, len(s.Rounds)),
		Score:          s.Score,
		WinnerID:       s.WinnerID,
		CreatedAt:      s.CreatedAt,
		LastActivityAt: s.LastActivityAt,
		CompletedAt:    s.CompletedAt,
		RoundDeadline:  s.RoundDeadline,
		MatchDeadline:  s.MatchDeadline,
	}
	num := s.playerNum(userID)
	for i := range s.Rounds {
		r := &s.Rounds[i]
		rv := RoundView{
			Number:           r.Number,
			Player1HasChosen: r.Player1Choice != "",
			Player2HasChosen: r.Player2Choice != "",
			Winner:           r.Winner,
			TimedOut:         r.TimedOut,
			OpenedAt:         r.OpenedAt,
			ResolvedAt:       r.ResolvedAt,
		}
		if r.Resolved() {
			rv.Player1Choice = r.Player1Choice
			rv.Player2Choice = r.Player2Choice
		} else {
			// open round: each participant sees only their own choice
			if num == 1 {
				rv.Player1Choice = r.Player1Choice
			}
			if num == 2 {
				rv.Player2Choice = r.Player2Choice
			}
		}
		switch r.Winner {
		case game.OutcomePlayer1:
			rv.WinnerID = s.InitiatorID
		case game.OutcomePlayer2:
			rv.WinnerID = s.ParticipantID
		}
		v.Rounds[i] = rv
	}
	return v
}
