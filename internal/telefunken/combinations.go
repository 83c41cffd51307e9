package telefunken

import (
	"slices"

	"telefunken-server/internal/game"
)

// Meld is a group of cards laid on the table. A validated meld is stored in
// display order: sorted by rank with the wild card spliced into its slot.
type Meld []game.Card

const (
	// NoSizeConstraint disables the exact-size requirement of a
	// CombinationConstraint.
	NoSizeConstraint = -1

	MinMeldSize = 3
	MaxMeldSize = 6
)

// CombinationConstraint narrows what IsValidCombination accepts. Pure
// forbids any wild card, joker or two.
type CombinationConstraint struct {
	SizeConstraint int  `json:"sizeConstraint"`
	Pure           bool `json:"pure"`
}

// NoConstraint is the default: any size from MinMeldSize to MaxMeldSize,
// wilds allowed.
var NoConstraint = CombinationConstraint{SizeConstraint: NoSizeConstraint}

func rankCompare(ca, cb game.Card) int {
	if ca.IsJoker() {
		return 1
	}
	if cb.IsJoker() {
		return -1
	}
	return int(ca.Rank()) - int(cb.Rank())
}

// Set and run checks do not consider the amount of cards; the caller is
// responsible for that.
func isValidSet(cards []game.Card) bool {
	r := cards[0].Rank()
	for _, card := range cards {
		if card.Rank() != r {
			return false
		}
	}
	return true
}

func isValidRun(rankSortedCards []game.Card) bool {
	if !areCardsSameSuit(rankSortedCards) {
		return false
	}

	for i := 1; i < len(rankSortedCards); i++ {
		// Cards must be consecutive
		if rankSortedCards[i].Rank()-rankSortedCards[i-1].Rank() != 1 {
			return false
		}
	}
	return true
}

func areCardsSameSuit(cards []game.Card) bool {
	s := cards[0].Suit()
	for _, card := range cards {
		if card.Suit() != s {
			return false
		}
	}
	return true
}

type runGap struct {
	valid bool
	pos   int
}

// findGap locates the single rank gap a wild card can fill in a rank-sorted,
// same-suit sequence. A gap of exactly 2 between neighbours is fillable;
// more than one of them, a duplicate rank, or a wider gap makes the
// sequence unusable. No gap at all is reported as valid with pos 0.
func findGap(rankSortedCards []game.Card) runGap {
	rg := runGap{valid: true}
	gapFound := false

	for i := 1; i < len(rankSortedCards); i++ {
		gap := int(rankSortedCards[i].Rank()) - int(rankSortedCards[i-1].Rank())

		if gap <= 0 || gap > 2 {
			rg.valid = false
			break
		}
		if gap == 2 {
			if gapFound {
				rg.valid = false
				break
			}
			gapFound = true
			rg.pos = i
		}
	}

	return rg
}

// placeWildInPureMeld appends the wild card, unless the last card is a King,
// in which case the wild goes in front to keep a King-high run in order.
func placeWildInPureMeld(validPureMeld Meld, wild game.Card) Meld {
	lastCard := validPureMeld[len(validPureMeld)-1]
	if lastCard.Rank() == game.King {
		return append(Meld{wild}, validPureMeld...)
	}
	return append(slices.Clone(validPureMeld), wild)
}

func placeWildInGap(cards Meld, wild game.Card, gap runGap) Meld {
	placed := make(Meld, 0, len(cards)+1)
	placed = append(placed, cards[:gap.pos]...)
	placed = append(placed, wild)
	return append(placed, cards[gap.pos:]...)
}

// IsValidCombination decides whether cards form a legal set or run under
// the given constraint, and returns the cards in display order with any
// wild card placed in its slot. An invalid combination yields an empty
// meld; callers test len > 0 for success. The input is never mutated.
func IsValidCombination(cards []game.Card, constraint CombinationConstraint) Meld {
	if constraint.SizeConstraint != NoSizeConstraint && len(cards) != constraint.SizeConstraint {
		return nil
	} else if len(cards) < MinMeldSize || len(cards) > MaxMeldSize {
		return nil
	}

	var jokers, combNoJokers Meld
	for _, c := range cards {
		if c.IsJoker() {
			jokers = append(jokers, c)
		} else {
			combNoJokers = append(combNoJokers, c)
		}
	}

	// No more than one joker can be in a combination
	if len(jokers) > 1 {
		return nil
	}

	// Most evaluations need the cards sorted by rank, so sort once here.
	// Stable, so equal ranks keep their hand order.
	slices.SortStableFunc(combNoJokers, rankCompare)

	if constraint.Pure && len(jokers) > 0 {
		return nil
	}

	// Check if the combination is valid as a pure one first; if it is, it
	// stays valid with the joker included.
	if isValidSet(combNoJokers) {
		if len(jokers) == 0 {
			return combNoJokers
		}
		return placeWildInPureMeld(combNoJokers, jokers[0])
	}
	if isValidRun(combNoJokers) {
		if len(jokers) == 0 {
			return combNoJokers
		}
		return placeWildInPureMeld(combNoJokers, jokers[0])
	}

	if constraint.Pure {
		return nil
	}

	if len(jokers) > 0 {
		// Sets with a joker are also valid without it, so they were caught
		// above; only runs are left. Runs need a single suit.
		if !areCardsSameSuit(combNoJokers) {
			return nil
		}

		if gap := findGap(combNoJokers); gap.valid {
			return placeWildInGap(combNoJokers, jokers[0], gap)
		}
		return nil
	}

	// No jokers, but a two may stand in as the wild card.
	for i, c := range combNoJokers {
		if c.Rank() != game.Two {
			continue
		}

		cp := slices.Concat(combNoJokers[:i], combNoJokers[i+1:])
		if isValidSet(cp) {
			return placeWildInPureMeld(cp, c)
		}
		// A mixed-suit remainder rejects the whole combination; later two
		// candidates are not tried.
		if !areCardsSameSuit(cp) {
			return nil
		}
		if gap := findGap(cp); gap.valid {
			return placeWildInGap(cp, c, gap)
		}
	}
	return nil
}
