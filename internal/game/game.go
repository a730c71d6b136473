package game

// Choice is one player's submitted move, e.g. "rock".
type Choice string

// Outcome is the result of resolving two choices against each other.
type Outcome string

const (
	OutcomePlayer1 Outcome = "player1"
	OutcomePlayer2 Outcome = "player2"
	OutcomeDraw    Outcome = "draw"
)

// RuleInfo describes a rule set for the API.
type RuleInfo struct {
	Name    string   `json:"name"`
	Choices []Choice `json:"choices"`
}

// Rules is the single injection point for the game type being played.
// The session engine is otherwise game-agnostic: it only ever asks a
// rule set whether a choice is legal and which of two choices wins.
type Rules interface {
	Info() RuleInfo
	Valid(c Choice) bool
	// Resolve maps player 1's and player 2's choices to an outcome.
	// It must be pure and antisymmetric: Resolve(a, b) == OutcomePlayer1
	// exactly when Resolve(b, a) == OutcomePlayer2, and Resolve(a, a)
	// is always OutcomeDraw.
	Resolve(a, b Choice) Outcome
}

// Opposite flips an outcome's winner. Draws stay draws.
func Opposite(o Outcome) Outcome {
	switch o {
	case OutcomePlayer1:
		return OutcomePlayer2
	case OutcomePlayer2:
		return OutcomePlayer1
	default:
		return o
	}
}
