package rps

import (
	"testing"

	"matchplay/internal/game"
)

func TestResolveRules(t *testing.T) {
	r := Rules{}
	cases := []struct {
		a, b game.Choice
		want game.Outcome
	}{
		{Rock, Scissors, game.OutcomePlayer1},
		{Scissors, Paper, game.OutcomePlayer1},
		{Paper, Rock, game.OutcomePlayer1},
		{Scissors, Rock, game.OutcomePlayer2},
		{Paper, Scissors, game.OutcomePlayer2},
		{Rock, Paper, game.OutcomePlayer2},
		{Rock, Rock, game.OutcomeDraw},
		{Paper, Paper, game.OutcomeDraw},
		{Scissors, Scissors, game.OutcomeDraw},
	}
	for _, c := range cases {
		if got := r.Resolve(c.a, c.b); got != c.want {
			t.Errorf("Resolve(%s, %s) = %s, want %s", c.a, c.b, got, c.want)
		}
	}
}

// Resolve must be antisymmetric: swapping the players swaps the winner.
func TestResolveAntisymmetric(t *testing.T) {
	r := Rules{}
	choices := r.Info().Choices
	for _, a := range choices {
		for _, b := range choices {
			got := r.Resolve(a, b)
			swapped := r.Resolve(b, a)
			if game.Opposite(got) != swapped {
				t.Errorf("Resolve(%s, %s) = %s but Resolve(%s, %s) = %s", a, b, got, b, a, swapped)
			}
			if a != b && got == game.OutcomeDraw {
				t.Errorf("Resolve(%s, %s) = draw for distinct choices", a, b)
			}
		}
	}
}

func TestValid(t *testing.T) {
	r := Rules{}
	for _, c := range r.Info().Choices {
		if !r.Valid(c) {
			t.Errorf("expected %s to be valid", c)
		}
	}
	for _, c := range []game.Choice{"", "lizard", "ROCK"} {
		if r.Valid(c) {
			t.Errorf("expected %q to be invalid", c)
		}
	}
}
