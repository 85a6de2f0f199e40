package containers

import (
	"fmt"
	"io"
	"time"

	"github.com/BoltKey/OddOneOut-sub000/utils"
)

type Guess struct {
	GuessIsInSet *bool
}

func ParseGuess(data io.Reader) (*Guess, error) {
	guess := &Guess{}
	if err := utils.Parse(data, guess); err != nil {
		return nil, err
	}
	if guess.GuessIsInSet == nil {
		return nil, fmt.Errorf("guessIsInSet is required")
	}
	return guess, nil
}

type Clue struct {
	CardSetID   uint
	OddOneOutID uint
	Clue        string
}

func ParseClue(data io.Reader) (*Clue, error) {
	clue := &Clue{}
	if err := utils.Parse(data, clue); err != nil {
		return nil, err
	}
	if clue.CardSetID == 0 || clue.OddOneOutID == 0 {
		return nil, fmt.Errorf("cardSetId and oddOneOutId are required")
	}
	return clue, nil
}

type Card struct {
	ID   uint
	Word string
}

type Energy struct {
	Energy    int
	NextRegen *time.Time
}

type Error struct {
	Error   string     `json:"error"`
	RetryAt *time.Time `json:"retryAt,omitempty"`
}
