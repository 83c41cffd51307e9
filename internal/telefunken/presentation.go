package telefunken

import "telefunken-server/internal/game"

// ClientState is one player's view of the game: their own cards, card
// counts for everyone else, and the shared table.
type ClientState struct {
	Name            string              `json:"name"`
	Hand            []game.Card         `json:"hand"`
	DeckCount       int                 `json:"deckCount"`
	DiscardCount    int                 `json:"discardCount"`
	DiscardTopCard  *game.Card          `json:"discardTopCard"` // Pointer so we can send nil when pile is empty
	Players         []OtherPlayerState  `json:"players"`
	Melds           map[PlayerID][]Meld `json:"melds"`
	Deal            int                 `json:"deal"`
	DealConstraint  DealConstraint      `json:"dealConstraint"`
	Compliant       bool                `json:"compliant"`
	CurrentDealTurn int                 `json:"currentDealTurn"`
	PlayerTurn      PlayerID            `json:"playerTurn"`
	PlayerOrder     []PlayerID          `json:"playerOrder"`
	Chips           map[PlayerID]int    `json:"playerChips"`
	Scores          map[PlayerID]int    `json:"scores"`
	BoughtThisRound bool                `json:"boughtThisRound"`
	CanMeldThisTurn bool                `json:"canMeldThisTurn"`
	State           GameState           `json:"state"`
}

type OtherPlayerState struct {
	Id         PlayerID `json:"id"`
	Name       string   `json:"name"`
	HandLength int      `json:"handLength"`
	Chips      int      `json:"chips"`
}

func (g *Game) GetClientState(playerId PlayerID) *ClientState {
	player := g.Players[playerId]

	otherStates := []OtherPlayerState{}
	melds := make(map[PlayerID][]Meld, len(g.Players))
	chips := make(map[PlayerID]int, len(g.Players))
	scores := make(map[PlayerID]int, len(g.Players))
	for id, p := range g.Players {
		melds[p.Id] = p.Melds
		chips[p.Id] = p.Chips
		scores[p.Id] = p.Score
		if id != playerId {
			otherStates = append(otherStates, OtherPlayerState{
				Id:         p.Id,
				Name:       p.Name,
				HandLength: len(p.Hand),
				Chips:      p.Chips,
			})
		}
	}

	// Use a pointer so an empty pile serializes as nil instead of card 0
	var topCard *game.Card
	if len(g.DiscardPile) > 0 {
		card := g.DiscardPile[len(g.DiscardPile)-1]
		topCard = &card
	}

	var dealConstraint DealConstraint
	compliant := false
	if g.Deal < NumDeals {
		dealConstraint = DealConstraintFor(g.Deal)
		compliant = player.Compliance[g.Deal]
	}

	deckCount := 0
	if g.Deck != nil {
		deckCount = g.Deck.Count()
	}

	return &ClientState{
		Name:            player.Name,
		Hand:            player.Hand,
		DeckCount:       deckCount,
		DiscardCount:    len(g.DiscardPile),
		DiscardTopCard:  topCard,
		Players:         otherStates,
		Melds:           melds,
		Deal:            g.Deal,
		DealConstraint:  dealConstraint,
		Compliant:       compliant,
		CurrentDealTurn: g.CurrentDealTurn,
		PlayerTurn:      g.PlayerTurn,
		PlayerOrder:     g.PlayerOrder,
		Chips:           chips,
		Scores:          scores,
		BoughtThisRound: player.BoughtThisRound,
		CanMeldThisTurn: !g.isFirstDealTurn(),
		State:           g.State,
	}
}
