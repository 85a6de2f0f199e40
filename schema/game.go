package schema

import (
	"strings"
	"time"
)

// Game is a single clue on a CardSet. Rows are hard deleted, guesses keep
// their history with a NULL game.
type Game struct {
	ID              uint `gorm:"primarykey"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CardSetID       uint     `gorm:"notnull;uniqueIndex:idx_card_set_clue"`
	CardSet         CardSet  `gorm:"foreignKey:CardSetID"`
	Clue            string   `gorm:"notnull"`
	ClueKey         string   `gorm:"notnull;uniqueIndex:idx_card_set_clue"`
	OddOneOutID     uint     `gorm:"notnull"`
	OddOneOut       WordCard `gorm:"foreignKey:OddOneOutID"`
	CachedGameScore float64
	ClueGivers      []GameClueGiver `gorm:"constraint:OnDelete:CASCADE;"`
	Guesses         []Guess         `gorm:"constraint:OnDelete:SET NULL;"`
}

// GameClueGiver links a clue-giver to a game, one row per submission merged
// into the game.
type GameClueGiver struct {
	GameID  uint `gorm:"primaryKey"`
	UserID  uint `gorm:"primaryKey;index"`
	GivenAt time.Time
	Game    Game `gorm:"foreignKey:GameID"`
}

// ClueKey is the case-insensitive identity of a clue within a CardSet.
func ClueKey(clue string) string {
	return strings.ToLower(strings.TrimSpace(clue))
}

func (g *Game) HasClueGiver(userID uint) bool {
	for _, c := range g.ClueGivers {
		if c.UserID == userID {
			return true
		}
	}
	return false
}
