package telefunken

import (
	"errors"
	"fmt"
	"slices"

	"telefunken-server/internal/game"
)

type PlayerID = int
type MeldID = int

type GameState string

const (
	StateWaitingForPlayers GameState = "waiting_for_players"
	StateInProgress        GameState = "in_progress"
	StateFinished          GameState = "finished"
)

const (
	deckCount     = 2
	cardsPerDeal  = 11
	startingChips = 7
)

type Player struct {
	Id    PlayerID    `json:"id"`
	Name  string      `json:"name"`
	Hand  []game.Card `json:"hand"`
	Melds []Meld      `json:"melds"`
	Chips int         `json:"chips"`
	Score int         `json:"score"`
	// Compliance[deal] records whether the player has laid that deal's
	// contract; once set, further melds that deal are unconstrained.
	Compliance      []bool `json:"dealConstraintCompliance"`
	BoughtThisRound bool   `json:"boughtThisRound"`
}

type DealResult struct {
	Deal   int   `json:"deal"`
	Scores []int `json:"scores"` // indexed by player id, penalty points for the deal
}

type Game struct {
	Id              string       `json:"id"`
	Players         []*Player    `json:"players"`
	State           GameState    `json:"state"`
	Deal            int          `json:"deal"`
	PlayerTurn      PlayerID     `json:"playerTurn"`
	PlayerOrder     []PlayerID   `json:"playerOrder"`
	CurrentDealTurn int          `json:"currentDealTurn"`
	Deck            *game.Deck   `json:"deck"`
	DiscardPile     []game.Card  `json:"discardPile"`
	DealResults     []DealResult `json:"dealsEndState"`
}

func NewGame(id string, playerNames []string) Game {
	players := make([]*Player, 0, len(playerNames))
	order := make([]PlayerID, 0, len(playerNames))
	for i, name := range playerNames {
		players = append(players, &Player{
			Id:         i,
			Name:       name,
			Hand:       make([]game.Card, 0),
			Melds:      make([]Meld, 0),
			Chips:      startingChips,
			Compliance: make([]bool, NumDeals),
		})
		order = append(order, i)
	}

	return Game{
		Id:          id,
		Players:     players,
		State:       StateWaitingForPlayers,
		PlayerOrder: order,
		DiscardPile: make([]game.Card, 0),
		DealResults: make([]DealResult, 0),
	}
}

// Start shuffles up the first deal and opens play.
func (g *Game) Start() {
	g.State = StateInProgress
	g.startDeal()
}

func (g *Game) startDeal() {
	deck := game.NewDeck(deckCount)
	deck.Shuffle()
	g.Deck = deck
	g.DiscardPile = make([]game.Card, 0)

	for _, p := range g.Players {
		p.Hand = make([]game.Card, 0, cardsPerDeal)
		p.Melds = make([]Meld, 0)
		p.BoughtThisRound = false
	}

	for range cardsPerDeal {
		for _, p := range g.Players {
			p.Hand = append(p.Hand, g.Deck.Draw(1)...)
		}
	}

	// Flip the starter discard
	g.DiscardPile = append(g.DiscardPile, g.Deck.Draw(1)...)

	g.CurrentDealTurn = 0
	// The opening player rotates with the deal
	g.PlayerTurn = g.PlayerOrder[g.Deal%len(g.PlayerOrder)]
	g.startTurn()
}

// startTurn draws the turn player's card and resets their buy allowance.
func (g *Game) startTurn() {
	p := g.Players[g.PlayerTurn]
	p.BoughtThisRound = false
	p.Hand = append(p.Hand, g.drawFromDeck(1)...)
}

// drawFromDeck refills the deck from the discard pile (all but the top
// card) when it runs dry mid-deal.
func (g *Game) drawFromDeck(n int) []game.Card {
	if g.Deck.Count() < n && len(g.DiscardPile) > 1 {
		top := g.DiscardPile[len(g.DiscardPile)-1]
		g.Deck.Cards = append(g.Deck.Cards, g.DiscardPile[:len(g.DiscardPile)-1]...)
		g.DiscardPile = []game.Card{top}
		g.Deck.Shuffle()
	}
	if g.Deck.Count() < n {
		n = g.Deck.Count()
	}
	return g.Deck.Draw(n)
}

type Move struct {
	PlayerId      PlayerID           `json:"playerId"`
	Type          MoveType           `json:"type"`
	Melds         []Meld             `json:"melds,omitempty"`
	Modifications []MeldModification `json:"modifications,omitempty"`
	Discard       *game.Card         `json:"discard,omitempty"`
}

type MoveResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func (g *Game) ExecuteMove(move Move) MoveResponse {
	var err error
	switch move.Type {
	case MovePlay:
		err = g.Play(move.PlayerId, move.Melds, move.Modifications, move.Discard)
	case MoveBuyCard:
		err = g.BuyCard(move.PlayerId)
	default:
		err = fmt.Errorf("INVALID_MOVE: Unknown move type '%s'", move.Type)
	}

	if err != nil {
		return MoveResponse{Success: false, Message: err.Error()}
	}
	return MoveResponse{Success: true}
}

// Play applies a whole turn: new melds, meld modifications, then the
// discard. Everything is validated against staged copies first; the game
// only mutates when the entire move is legal.
func (g *Game) Play(playerId PlayerID, melds []Meld, modifications []MeldModification, discard *game.Card) error {
	if g.State != StateInProgress {
		return errors.New("GAME_NOT_IN_PROGRESS: No deal is being played")
	}
	if playerId < 0 || playerId >= len(g.Players) {
		return errors.New("INVALID_PLAYER: Player id out of bounds")
	}
	if g.PlayerTurn != playerId {
		return errors.New("NOT_YOUR_TURN: Wait for your turn to play")
	}
	if discard == nil {
		return errors.New("DISCARD_REQUIRED: A turn ends by discarding a card")
	}

	player := g.Players[playerId]

	// Staged state; committed only if the whole move validates.
	hand := slices.Clone(player.Hand)
	stagedMelds := make(map[PlayerID][]Meld, len(g.Players))
	for _, p := range g.Players {
		stagedMelds[p.Id] = slices.Clone(p.Melds)
	}
	compliant := player.Compliance[g.Deal]

	if len(melds) > 0 {
		if g.isFirstDealTurn() {
			return errors.New("FIRST_TURN: Cannot meld on the first turn of a deal")
		}

		for _, meld := range melds {
			var ok bool
			if hand, ok = removeCards(hand, meld); !ok {
				return errors.New("CARD_NOT_IN_HAND: Melded cards must come from your hand")
			}
		}

		constraint := NoConstraint
		if !compliant {
			dealConstraint := DealConstraintFor(g.Deal)
			switch DoMeldsSatisfyDealConstraint(melds, dealConstraint) {
			case MeldInvalidNumberOfMelds:
				return fmt.Errorf("INVALID_MELD_COUNT: This deal requires exactly %d melds", dealConstraint.Size)
			case MeldInvalidCombination:
				return errors.New("INVALID_COMBINATION: A proposed meld does not satisfy the deal contract")
			}
			constraint = dealConstraint.CombinationConstraint
			compliant = true
		}

		for _, meld := range melds {
			arranged := IsValidCombination(meld, constraint)
			if len(arranged) == 0 {
				return errors.New("INVALID_COMBINATION: A proposed meld is not a valid set or run")
			}
			stagedMelds[playerId] = append(stagedMelds[playerId], arranged)
		}
	}

	for _, mod := range modifications {
		if !compliant {
			return errors.New("NOT_COMPLIANT: Lay the deal contract before modifying melds")
		}
		if mod.MeldPlayerId < 0 || mod.MeldPlayerId >= len(g.Players) {
			return errors.New("INVALID_MELD_PLAYER: Meld owner out of bounds")
		}
		target := stagedMelds[mod.MeldPlayerId]
		if mod.MeldId < 0 || mod.MeldId >= len(target) {
			return errors.New("INVALID_MELD_ID: Meld id out of bounds")
		}

		switch mod.Kind {
		case ModReplacement:
			if mod.MeldPlayerId != playerId {
				return errors.New("INVALID_REPLACEMENT: Cannot replace cards in another player's meld")
			}
			var ok bool
			if hand, ok = removeCards(hand, []game.Card{mod.HandToMeld}); !ok {
				return errors.New("CARD_NOT_IN_HAND: Replacement card must come from your hand")
			}
			arranged := IsValidReplacement(target[mod.MeldId], mod.HandToMeld, mod.MeldToHand)
			if len(arranged) == 0 {
				return errors.New("INVALID_COMBINATION: Replacement breaks the meld")
			}
			target[mod.MeldId] = arranged
			hand = append(hand, mod.MeldToHand)

		case ModExtension:
			var ok bool
			if hand, ok = removeCards(hand, mod.Cards); !ok {
				return errors.New("CARD_NOT_IN_HAND: Extension cards must come from your hand")
			}
			arranged := IsValidExtension(target[mod.MeldId], mod.Cards)
			if len(arranged) == 0 {
				return errors.New("INVALID_COMBINATION: Extension breaks the meld")
			}
			target[mod.MeldId] = arranged

		default:
			return fmt.Errorf("INVALID_MODIFICATION: Unknown modification kind '%s'", mod.Kind)
		}
	}

	var ok bool
	if hand, ok = removeCards(hand, []game.Card{*discard}); !ok {
		return errors.New("CARD_NOT_IN_HAND: Cannot discard a card you don't hold")
	}

	// Commit
	player.Hand = hand
	player.Compliance[g.Deal] = compliant
	for _, p := range g.Players {
		p.Melds = stagedMelds[p.Id]
	}
	g.DiscardPile = append(g.DiscardPile, *discard)

	if len(player.Hand) == 0 {
		g.endDeal()
		return nil
	}

	g.CurrentDealTurn++
	g.PlayerTurn = g.nextPlayer()
	g.startTurn()
	return nil
}

// BuyCard lets an out-of-turn player spend a chip to take the top discard,
// plus a penalty card from the deck.
func (g *Game) BuyCard(playerId PlayerID) error {
	if g.State != StateInProgress {
		return errors.New("GAME_NOT_IN_PROGRESS: No deal is being played")
	}
	if playerId < 0 || playerId >= len(g.Players) {
		return errors.New("INVALID_PLAYER: Player id out of bounds")
	}
	if playerId == g.PlayerTurn {
		return errors.New("CANNOT_BUY: The discard is free on your own turn")
	}

	player := g.Players[playerId]
	if player.Chips <= 0 {
		return errors.New("NO_CHIPS: No chips left to buy with")
	}
	if player.BoughtThisRound {
		return errors.New("ALREADY_BOUGHT: Only one buy per round")
	}
	if len(g.DiscardPile) == 0 {
		return errors.New("EMPTY_DISCARD: Nothing to buy")
	}

	top := g.DiscardPile[len(g.DiscardPile)-1]
	g.DiscardPile = g.DiscardPile[:len(g.DiscardPile)-1]

	player.Hand = append(player.Hand, top)
	player.Hand = append(player.Hand, g.drawFromDeck(1)...)
	player.Chips--
	player.BoughtThisRound = true

	return nil
}

// endDeal scores every hand, then moves to the next deal or finishes.
func (g *Game) endDeal() {
	result := DealResult{Deal: g.Deal, Scores: make([]int, len(g.Players))}
	for _, p := range g.Players {
		for _, card := range p.Hand {
			result.Scores[p.Id] += card.Value()
		}
		p.Score += result.Scores[p.Id]
	}
	g.DealResults = append(g.DealResults, result)

	g.Deal++
	if g.Deal >= NumDeals {
		g.State = StateFinished
		return
	}
	g.startDeal()
}

func (g *Game) nextPlayer() PlayerID {
	index := slices.Index(g.PlayerOrder, g.PlayerTurn)
	return g.PlayerOrder[(index+1)%len(g.PlayerOrder)]
}

// removeCards removes one occurrence of each target from cards. Duplicate
// values across decks are interchangeable, so any matching copy counts.
func removeCards(cards []game.Card, targets []game.Card) ([]game.Card, bool) {
	out := slices.Clone(cards)
	for _, target := range targets {
		i := slices.Index(out, target)
		if i == -1 {
			return cards, false
		}
		out = slices.Delete(out, i, i+1)
	}
	return out, true
}
