package telefunken

import (
	"slices"

	"telefunken-server/internal/game"
)

// IsValidExtension re-validates a meld with extra cards appended. There is
// no incremental check: the combined set must stand on its own, which also
// caps extensions at MaxMeldSize.
func IsValidExtension(meld Meld, extensionCards []game.Card) Meld {
	return IsValidCombination(slices.Concat(meld, Meld(extensionCards)), NoConstraint)
}

// IsValidReplacement swaps a hand card into a meld for one of the meld's
// cards and re-validates the result. Returns the new arrangement, or an
// empty meld if meldToHand is absent or the swap breaks the combination.
// The input meld is untouched; the caller applies the swap only on success.
func IsValidReplacement(meld Meld, handToMeld, meldToHand game.Card) Meld {
	next := make(Meld, 0, len(meld))
	removed := false
	for _, c := range meld {
		if !removed && c == meldToHand {
			removed = true
			continue
		}
		next = append(next, c)
	}
	if !removed {
		return nil
	}

	next = append(next, handToMeld)
	return IsValidCombination(next, NoConstraint)
}

// ModificationKind discriminates the two ways a laid meld can change.
type ModificationKind string

const (
	ModReplacement ModificationKind = "replacement"
	ModExtension   ModificationKind = "extension"
)

// MeldModification targets the meld at (MeldPlayerId, MeldId). A
// replacement moves HandToMeld into the meld and MeldToHand back to the
// hand; an extension appends Cards from the hand.
type MeldModification struct {
	MeldPlayerId PlayerID         `json:"meldPlayerId"`
	MeldId       MeldID           `json:"meldId"`
	Kind         ModificationKind `json:"kind"`

	// Replacement fields
	HandToMeld game.Card `json:"handToMeld,omitempty"`
	MeldToHand game.Card `json:"meldToHand,omitempty"`

	// Extension field
	Cards []game.Card `json:"cards,omitempty"`
}

// CanPlayerMeld gates a fresh meld on the turn context: no melding at all
// on a player's first turn of a deal. Past that it is a plain combination
// check with no constraint.
func (g *Game) CanPlayerMeld(meld Meld) Meld {
	if g.isFirstDealTurn() {
		return nil
	}
	return IsValidCombination(meld, NoConstraint)
}

// During the first rotation of a deal, every player is on their first turn.
func (g *Game) isFirstDealTurn() bool {
	return g.CurrentDealTurn < len(g.PlayerOrder)
}
