package telefunken

// CanMeldStatus reports whether a proposed batch of melds may be laid.
type CanMeldStatus int

const (
	MeldInvalid CanMeldStatus = iota
	MeldSuccess
	MeldInvalidNumberOfMelds
	MeldInvalidCombination
)

var canMeldStatusString = map[CanMeldStatus]string{
	MeldInvalid:              "Invalid",
	MeldSuccess:              "Success",
	MeldInvalidNumberOfMelds: "InvalidNumberOfMelds",
	MeldInvalidCombination:   "InvalidCombination",
}

func (s CanMeldStatus) String() string {
	return canMeldStatusString[s]
}

// DealConstraint is the contract of one deal: exactly Size melds, each
// satisfying the combination constraint.
type DealConstraint struct {
	CombinationConstraint CombinationConstraint `json:"combinationConstraint"`
	Size                  int                   `json:"size"`
}

// The seven-deal progression: N sets of exactly M cards each.
var dealConstraints = []DealConstraint{
	{CombinationConstraint{SizeConstraint: 3, Pure: false}, 1},
	{CombinationConstraint{SizeConstraint: 3, Pure: false}, 2},
	{CombinationConstraint{SizeConstraint: 4, Pure: false}, 1},
	{CombinationConstraint{SizeConstraint: 4, Pure: false}, 2},
	{CombinationConstraint{SizeConstraint: 5, Pure: false}, 1},
	{CombinationConstraint{SizeConstraint: 5, Pure: false}, 2},
	{CombinationConstraint{SizeConstraint: 6, Pure: false}, 1},
}

// NumDeals is how many deals make a full game.
var NumDeals = len(dealConstraints)

// DealConstraintFor returns the contract for a zero-based deal index.
func DealConstraintFor(deal int) DealConstraint {
	return dealConstraints[deal]
}

// DoMeldsSatisfyDealConstraint checks a proposed batch of melds against a
// deal's contract. The batch is atomic: either every meld validates and the
// count matches, or the whole batch is rejected.
func DoMeldsSatisfyDealConstraint(melds []Meld, dealConstraint DealConstraint) CanMeldStatus {
	if dealConstraint.Size != len(melds) {
		return MeldInvalidNumberOfMelds
	}

	for _, meld := range melds {
		if len(IsValidCombination(meld, dealConstraint.CombinationConstraint)) == 0 {
			return MeldInvalidCombination
		}
	}

	return MeldSuccess
}
