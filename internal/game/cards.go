package game

import (
	"fmt"
	"math/rand"
)

// CardsPerDeck is the wire-compatible deck modulus: 52 ranked cards plus
// two jokers. Card integers from clients are interpreted mod this value,
// so it must never change.
const CardsPerDeck = 54

// Card identifies a single card as an integer in [0, 54*decks).
// With multiple decks in play, two physical cards that share the same
// index mod 54 are indistinguishable. That aliasing is intentional; cards
// have no identity beyond their integer value.
type Card int

func (c Card) indexInDeck() int {
	i := int(c) % CardsPerDeck
	if i < 0 {
		i += CardsPerDeck
	}
	return i
}

func (c Card) IsJoker() bool {
	return c.indexInDeck() > 51
}

type Suit int

const (
	Clubs Suit = iota
	Hearts
	Diamond
	Spade
	SuitJoker
)

var suitString = map[Suit]string{
	Clubs:     "♣",
	Hearts:    "♥",
	Diamond:   "♦",
	Spade:     "♠",
	SuitJoker: "Joker",
}

func (s Suit) String() string {
	return suitString[s]
}

// Suit returns SuitJoker for jokers. It panics on a card whose suit index
// falls outside the four suits, which cannot happen for well-formed values;
// callers are expected to pass only cards produced by NewDeck or NewCard.
func (c Card) Suit() Suit {
	if c.IsJoker() {
		return SuitJoker
	}

	suitId := c.indexInDeck() / 13
	if suitId < int(Clubs) || suitId > int(Spade) {
		panic(fmt.Sprintf("card number is invalid: %d", c))
	}
	return Suit(suitId)
}

type Rank int

const (
	Ace Rank = iota + 1
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
)

var rankString = map[Rank]string{
	Ace:   "A",
	Two:   "2",
	Three: "3",
	Four:  "4",
	Five:  "5",
	Six:   "6",
	Seven: "7",
	Eight: "8",
	Nine:  "9",
	Ten:   "10",
	Jack:  "J",
	Queen: "Q",
	King:  "K",
}

func (r Rank) String() string {
	return rankString[r]
}

// Rank panics for jokers, which have no rank. Callers must check IsJoker
// first; passing a joker here is a programming error, not a game input.
func (c Card) Rank() Rank {
	if c.IsJoker() {
		panic(fmt.Sprintf("card number is invalid for retrieving rank: %d", c))
	}
	return Rank(c.indexInDeck()%13 + 1)
}

// Value is the scoring weight of a card left in hand at the end of a deal.
func (c Card) Value() int {
	if c.IsJoker() {
		return 20
	}

	switch r := c.Rank(); {
	case r == Ace:
		return 15
	case r == Two:
		return 20
	case r >= Ten:
		return 10
	default:
		return int(r)
	}
}

func (c Card) String() string {
	if c.IsJoker() {
		return "Joker"
	}
	return fmt.Sprintf("%s%s", c.Rank(), c.Suit())
}

// NewCard builds the first-deck card value for a suit and rank.
func NewCard(suit Suit, rank Rank) Card {
	return Card(int(suit)*13 + int(rank) - 1)
}

// The two joker slots of the first deck.
const (
	JokerA Card = 52
	JokerB Card = 53
)

type Deck struct {
	Cards []Card `json:"cards"`
}

// NewDeck builds count concatenated 54-card decks, unshuffled.
func NewDeck(count int) *Deck {
	cards := make([]Card, 0, count*CardsPerDeck)
	for i := range count * CardsPerDeck {
		cards = append(cards, Card(i))
	}
	return &Deck{cards}
}

func (deck Deck) Count() int {
	return len(deck.Cards)
}

func (deck *Deck) Draw(i int) (cards []Card) {
	for range i {
		card := deck.Cards[len(deck.Cards)-1]
		cards = append(cards, card)
		deck.Cards = deck.Cards[:len(deck.Cards)-1]
	}
	return
}

func (d *Deck) Shuffle() {
	rand.Shuffle(d.Count(), func(i, j int) {
		d.Cards[i], d.Cards[j] = d.Cards[j], d.Cards[i]
	})
}
