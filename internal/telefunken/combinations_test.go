package telefunken_test

import (
	"slices"
	"testing"

	"telefunken-server/internal/game"
	"telefunken-server/internal/telefunken"
)

func card(suit game.Suit, rank game.Rank) game.Card {
	return game.NewCard(suit, rank)
}

func TestIsValidCombination(t *testing.T) {
	tests := []struct {
		name       string
		cards      []game.Card
		constraint telefunken.CombinationConstraint
		want       []game.Card // nil means invalid
	}{
		{
			name:       "set of aces",
			cards:      []game.Card{card(game.Clubs, game.Ace), card(game.Hearts, game.Ace), card(game.Diamond, game.Ace)},
			constraint: telefunken.NoConstraint,
			want:       []game.Card{card(game.Clubs, game.Ace), card(game.Hearts, game.Ace), card(game.Diamond, game.Ace)},
		},
		{
			name:       "set of four",
			cards:      []game.Card{card(game.Spade, game.Nine), card(game.Clubs, game.Nine), card(game.Hearts, game.Nine), card(game.Diamond, game.Nine)},
			constraint: telefunken.NoConstraint,
			want:       []game.Card{card(game.Spade, game.Nine), card(game.Clubs, game.Nine), card(game.Hearts, game.Nine), card(game.Diamond, game.Nine)},
		},
		{
			name:       "duplicate card from a second deck still passes the set check",
			cards:      []game.Card{card(game.Clubs, game.Three), card(game.Clubs, game.Three) + 54, card(game.Hearts, game.Three)},
			constraint: telefunken.NoConstraint,
			want:       []game.Card{card(game.Clubs, game.Three), card(game.Clubs, game.Three) + 54, card(game.Hearts, game.Three)},
		},
		{
			name:       "mixed ranks",
			cards:      []game.Card{card(game.Clubs, game.Ace), card(game.Hearts, game.Ace), card(game.Diamond, game.Three)},
			constraint: telefunken.NoConstraint,
			want:       nil,
		},
		{
			name:       "too few cards",
			cards:      []game.Card{card(game.Clubs, game.Ace), card(game.Hearts, game.Ace)},
			constraint: telefunken.NoConstraint,
			want:       nil,
		},
		{
			name: "too many cards",
			cards: []game.Card{
				card(game.Clubs, game.Ace), card(game.Clubs, game.Two), card(game.Clubs, game.Three),
				card(game.Clubs, game.Four), card(game.Clubs, game.Five), card(game.Clubs, game.Six),
				card(game.Clubs, game.Seven),
			},
			constraint: telefunken.NoConstraint,
			want:       nil,
		},
		{
			name:       "size constraint mismatch",
			cards:      []game.Card{card(game.Clubs, game.Ace), card(game.Hearts, game.Ace), card(game.Diamond, game.Ace)},
			constraint: telefunken.CombinationConstraint{SizeConstraint: 4},
			want:       nil,
		},
		{
			name:       "run sorted on return",
			cards:      []game.Card{card(game.Spade, game.Six), card(game.Spade, game.Four), card(game.Spade, game.Five)},
			constraint: telefunken.NoConstraint,
			want:       []game.Card{card(game.Spade, game.Four), card(game.Spade, game.Five), card(game.Spade, game.Six)},
		},
		{
			name:       "run with suit mismatch",
			cards:      []game.Card{card(game.Spade, game.Four), card(game.Hearts, game.Five), card(game.Spade, game.Six)},
			constraint: telefunken.NoConstraint,
			want:       nil,
		},
		{
			name:       "set with joker appended",
			cards:      []game.Card{card(game.Clubs, game.Ace), card(game.Hearts, game.Ace), game.JokerA},
			constraint: telefunken.NoConstraint,
			want:       []game.Card{card(game.Clubs, game.Ace), card(game.Hearts, game.Ace), game.JokerA},
		},
		{
			name:       "set of kings prepends the joker",
			cards:      []game.Card{card(game.Clubs, game.King), card(game.Hearts, game.King), game.JokerA},
			constraint: telefunken.NoConstraint,
			want:       []game.Card{game.JokerA, card(game.Clubs, game.King), card(game.Hearts, game.King)},
		},
		{
			name:       "jack queen run appends the joker",
			cards:      []game.Card{card(game.Hearts, game.Jack), card(game.Hearts, game.Queen), game.JokerA},
			constraint: telefunken.NoConstraint,
			want:       []game.Card{card(game.Hearts, game.Jack), card(game.Hearts, game.Queen), game.JokerA},
		},
		{
			name:       "queen king run prepends the joker",
			cards:      []game.Card{card(game.Hearts, game.Queen), card(game.Hearts, game.King), game.JokerA},
			constraint: telefunken.NoConstraint,
			want:       []game.Card{game.JokerA, card(game.Hearts, game.Queen), card(game.Hearts, game.King)},
		},
		{
			name:       "joker fills the run gap",
			cards:      []game.Card{card(game.Spade, game.Four), card(game.Spade, game.Five), card(game.Spade, game.Seven), game.JokerA},
			constraint: telefunken.NoConstraint,
			want:       []game.Card{card(game.Spade, game.Four), card(game.Spade, game.Five), game.JokerA, card(game.Spade, game.Seven)},
		},
		{
			name:       "two gaps reject the joker",
			cards:      []game.Card{card(game.Spade, game.Three), card(game.Spade, game.Five), card(game.Spade, game.Seven), game.JokerA},
			constraint: telefunken.NoConstraint,
			want:       nil,
		},
		{
			name:       "two jokers reject",
			cards:      []game.Card{card(game.Spade, game.Four), card(game.Spade, game.Five), game.JokerA, game.JokerB},
			constraint: telefunken.NoConstraint,
			want:       nil,
		},
		{
			name:       "joker with mixed suits rejects",
			cards:      []game.Card{card(game.Spade, game.Four), card(game.Hearts, game.Six), card(game.Spade, game.Seven), game.JokerA},
			constraint: telefunken.NoConstraint,
			want:       nil,
		},
		{
			name:       "same-suit two fills its own run gap",
			cards:      []game.Card{card(game.Clubs, game.Three), card(game.Clubs, game.Five), card(game.Clubs, game.Two)},
			constraint: telefunken.NoConstraint,
			want:       []game.Card{card(game.Clubs, game.Three), card(game.Clubs, game.Two), card(game.Clubs, game.Five)},
		},
		{
			name:       "off-suit two acts as wild in a run",
			cards:      []game.Card{card(game.Clubs, game.Three), card(game.Clubs, game.Five), card(game.Diamond, game.Two)},
			constraint: telefunken.NoConstraint,
			want:       []game.Card{card(game.Clubs, game.Three), card(game.Diamond, game.Two), card(game.Clubs, game.Five)},
		},
		{
			name:       "two completes a set",
			cards:      []game.Card{card(game.Clubs, game.Nine), card(game.Hearts, game.Nine), card(game.Diamond, game.Two)},
			constraint: telefunken.NoConstraint,
			want:       []game.Card{card(game.Clubs, game.Nine), card(game.Hearts, game.Nine), card(game.Diamond, game.Two)},
		},
		{
			// The first two candidate leaves a mixed-suit remainder, which
			// rejects the combination outright even though the second two
			// would have worked.
			name:       "first failing two candidate rejects outright",
			cards:      []game.Card{card(game.Clubs, game.Two), card(game.Hearts, game.Two), card(game.Clubs, game.Three), card(game.Clubs, game.Five)},
			constraint: telefunken.NoConstraint,
			want:       nil,
		},
		{
			name:       "four natural twos are a valid pure set",
			cards:      []game.Card{card(game.Clubs, game.Two), card(game.Hearts, game.Two), card(game.Diamond, game.Two), card(game.Spade, game.Two)},
			constraint: telefunken.CombinationConstraint{SizeConstraint: telefunken.NoSizeConstraint, Pure: true},
			want:       []game.Card{card(game.Clubs, game.Two), card(game.Hearts, game.Two), card(game.Diamond, game.Two), card(game.Spade, game.Two)},
		},
		{
			name:       "pure constraint rejects jokers",
			cards:      []game.Card{card(game.Clubs, game.Ace), card(game.Hearts, game.Ace), game.JokerA},
			constraint: telefunken.CombinationConstraint{SizeConstraint: telefunken.NoSizeConstraint, Pure: true},
			want:       nil,
		},
		{
			name:       "pure constraint rejects a wild two",
			cards:      []game.Card{card(game.Clubs, game.Three), card(game.Clubs, game.Five), card(game.Diamond, game.Two)},
			constraint: telefunken.CombinationConstraint{SizeConstraint: telefunken.NoSizeConstraint, Pure: true},
			want:       nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := slices.Clone(tt.cards)
			got := telefunken.IsValidCombination(tt.cards, tt.constraint)

			if !slices.Equal(tt.cards, input) {
				t.Errorf("Input mutated: %v became %v", input, tt.cards)
			}

			if tt.want == nil {
				if len(got) != 0 {
					t.Errorf("Expected invalid, got %v", got)
				}
				return
			}

			if !slices.Equal([]game.Card(got), tt.want) {
				t.Errorf("Got %v, want %v", got, tt.want)
			}
		})
	}
}

// Feeding a successful arrangement back in must succeed with the same
// arrangement.
func TestIsValidCombinationIdempotent(t *testing.T) {
	inputs := [][]game.Card{
		{card(game.Clubs, game.Ace), card(game.Hearts, game.Ace), card(game.Diamond, game.Ace)},
		{card(game.Clubs, game.King), card(game.Hearts, game.King), game.JokerA},
		{card(game.Spade, game.Four), card(game.Spade, game.Five), card(game.Spade, game.Seven), game.JokerA},
		{card(game.Clubs, game.Three), card(game.Clubs, game.Five), card(game.Diamond, game.Two)},
		{card(game.Hearts, game.Queen), card(game.Hearts, game.King), game.JokerA},
	}

	for _, cards := range inputs {
		first := telefunken.IsValidCombination(cards, telefunken.NoConstraint)
		if len(first) == 0 {
			t.Fatalf("Expected %v to be valid", cards)
		}
		second := telefunken.IsValidCombination(first, telefunken.NoConstraint)
		if !slices.Equal([]game.Card(first), []game.Card(second)) {
			t.Errorf("Re-validation changed the arrangement: %v became %v", first, second)
		}
	}
}

func TestDoMeldsSatisfyDealConstraint(t *testing.T) {
	validRun := telefunken.Meld{card(game.Spade, game.Four), card(game.Spade, game.Five), card(game.Spade, game.Six)}
	validSet := telefunken.Meld{card(game.Clubs, game.Nine), card(game.Hearts, game.Nine), card(game.Diamond, game.Nine)}
	fourCards := telefunken.Meld{card(game.Clubs, game.Ten), card(game.Hearts, game.Ten), card(game.Diamond, game.Ten), card(game.Spade, game.Ten)}
	invalid := telefunken.Meld{card(game.Clubs, game.Four), card(game.Hearts, game.Nine), card(game.Diamond, game.King)}

	twoMeldsOfThree := telefunken.DealConstraint{
		CombinationConstraint: telefunken.CombinationConstraint{SizeConstraint: 3},
		Size:                  2,
	}

	tests := []struct {
		name       string
		melds      []telefunken.Meld
		constraint telefunken.DealConstraint
		want       telefunken.CanMeldStatus
	}{
		{
			name:       "contract satisfied",
			melds:      []telefunken.Meld{validRun, validSet},
			constraint: twoMeldsOfThree,
			want:       telefunken.MeldSuccess,
		},
		{
			name:       "wrong meld count",
			melds:      []telefunken.Meld{validRun},
			constraint: twoMeldsOfThree,
			want:       telefunken.MeldInvalidNumberOfMelds,
		},
		{
			name:       "last meld invalid rejects the batch",
			melds:      []telefunken.Meld{validRun, invalid},
			constraint: twoMeldsOfThree,
			want:       telefunken.MeldInvalidCombination,
		},
		{
			// Four cards is a fine combination but not a fine contract meld
			name:       "meld size against combination constraint",
			melds:      []telefunken.Meld{validRun, fourCards},
			constraint: twoMeldsOfThree,
			want:       telefunken.MeldInvalidCombination,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := telefunken.DoMeldsSatisfyDealConstraint(tt.melds, tt.constraint)
			if got != tt.want {
				t.Errorf("Got %v, want %v", got, tt.want)
			}
		})
	}
}
