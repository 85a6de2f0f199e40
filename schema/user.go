package schema

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Email       *string `gorm:"uniqueIndex"`
	Password    []byte  `json:"-"`
	DisplayName string
	IsGuest     bool

	GuessRating      int     `gorm:"notnull;default:1000"`
	CachedClueRating float64 `gorm:"notnull;default:1000"`
	ClueRatingDirty  bool

	GuessEnergy          int
	ClueEnergy           int
	LastGuessEnergyRegen time.Time
	LastClueEnergyRegen  time.Time
	LastRatingDecay      *time.Time

	CurrentGameID     *uint
	CurrentCardID     *uint
	AssignedCardSetID *uint

	SourceIP          string     `json:"-"`
	SpamCooldownUntil *time.Time `json:"-"`

	CreatedGames []GameClueGiver `json:"-"`
	Guesses      []Guess         `gorm:"foreignKey:GuesserID;constraint:OnDelete:SET NULL;" json:"-"`
}
