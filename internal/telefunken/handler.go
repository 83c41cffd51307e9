package telefunken

type MoveType string

const (
	// A whole turn: new melds, meld modifications, then a discard.
	MovePlay MoveType = "play"

	// Out-of-turn chip buy of the top discard.
	MoveBuyCard MoveType = "buy_card"
)
