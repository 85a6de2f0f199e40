package schema

import "time"

type Guess struct {
	ID             uint      `gorm:"primarykey"`
	GameID         *uint     `gorm:"index"`
	Game           *Game     `gorm:"foreignKey:GameID"`
	GuesserID      *uint     `gorm:"index"`
	Guesser        *User     `gorm:"foreignKey:GuesserID"`
	SelectedCardID *uint
	SelectedCard   *WordCard `gorm:"foreignKey:SelectedCardID;constraint:OnDelete:SET NULL;"`
	GuessIsInSet   bool
	GuessedAt      time.Time `gorm:"index"`
	RatingChange   int
}

// IsCorrect reports whether a guess was right: saying "in set" is correct
// exactly when the selected card is not the odd one out.
func IsCorrect(guessIsInSet, selectedIsOddOneOut bool) bool {
	return guessIsInSet == !selectedIsOddOneOut
}

// Correct derives correctness against the game's odd one out. A guess whose
// card was deleted has no verdict.
func (g *Guess) Correct(oddOneOutID uint) (bool, bool) {
	if g.SelectedCardID == nil {
		return false, false
	}
	return IsCorrect(g.GuessIsInSet, *g.SelectedCardID == oddOneOutID), true
}
