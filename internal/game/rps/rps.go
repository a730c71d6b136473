// Package rps implements the rock-paper-scissors rule table.
package rps

import "matchplay/internal/game"

// Rules implements game.Rules.
type Rules struct{}

const (
	Rock     game.Choice = "rock"
	Paper    game.Choice = "paper"
	Scissors game.Choice = "scissors"
)

// beats maps each choice to the choice it defeats.
var beats = map[game.Choice]game.Choice{
	Rock:     Scissors,
	Scissors: Paper,
	Paper:    Rock,
}

func (Rules) Info() game.RuleInfo {
	return game.RuleInfo{
		Name:    "rps",
		Choices: []game.Choice{Rock, Paper, Scissors},
	}
}

func (Rules) Valid(c game.Choice) bool {
	_, ok := beats[c]
	return ok
}

func (Rules) Resolve(a, b game.Choice) game.Outcome {
	switch {
	case a == b:
		return game.OutcomeDraw
	case beats[a] == b:
		return game.OutcomePlayer1
	default:
		return game.OutcomePlayer2
	}
}
