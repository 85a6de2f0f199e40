// Package config holds the runtime settings and the game rules snapshot.
// Everything here is read once at startup and never mutated afterwards.
package config

import (
	"errors"
	"fmt"
	"time"
)

type Config struct {
	Bind        string
	Port        int
	DatabaseURL string
	RedisURL    string
	TokenSecret string
	TokenTTL    time.Duration
	WordList    string
	Verbose     bool

	// LeaderboardRefresh is a cron schedule; empty disables the job.
	LeaderboardRefresh string

	Rules Rules
}

// Rules are the game tunables.
type Rules struct {
	MaxGuessEnergy     int
	MaxClueEnergy      int
	GuessRegenInterval time.Duration
	ClueRegenInterval  time.Duration

	PivotRating   int
	MinRating     int
	InitialRating int

	InSetCorrect     int
	InSetWrong       int
	OddOneOutCorrect int
	OddOneOutWrong   int

	OddOneOutChance            float64
	ExperienceCap              int
	FallbackAverageSuccessCoef float64

	ClueRatingWindow     int
	ClueScoreDecayPerDay float64

	DecayGraceDays int
	DecayPerDay    int

	SpamMaxGuesses int
	SpamWindow     time.Duration
	SpamCooldown   time.Duration

	CardSetSize        int
	NewCardSetChance   float64
	MaxGamesPerCardSet int

	HistoryLimit    int
	LeaderboardSize int
}

func DefaultRules() Rules {
	return Rules{
		MaxGuessEnergy:     30,
		MaxClueEnergy:      10,
		GuessRegenInterval: 2 * time.Minute,
		ClueRegenInterval:  10 * time.Minute,

		PivotRating:   1000,
		MinRating:     100,
		InitialRating: 1000,

		InSetCorrect:     10,
		InSetWrong:       -20,
		OddOneOutCorrect: 20,
		OddOneOutWrong:   -50,

		OddOneOutChance:            0.4,
		ExperienceCap:              300,
		FallbackAverageSuccessCoef: 80,

		ClueRatingWindow:     100,
		ClueScoreDecayPerDay: 0,

		DecayGraceDays: 14,
		DecayPerDay:    2,

		SpamMaxGuesses: 20,
		SpamWindow:     time.Minute,
		SpamCooldown:   5 * time.Minute,

		CardSetSize:        5,
		NewCardSetChance:   0.5,
		MaxGamesPerCardSet: 20,

		HistoryLimit:    50,
		LeaderboardSize: 20,
	}
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.DatabaseURL == "" {
		return errors.New("a database url is required (--database-url)")
	}
	if c.TokenSecret == "" {
		return errors.New("a token secret is required (--token-secret)")
	}
	return c.Rules.Validate()
}

func (r Rules) Validate() error {
	switch {
	case r.MaxGuessEnergy < 1 || r.MaxClueEnergy < 1:
		return errors.New("energy maxima must be positive")
	case r.GuessRegenInterval <= 0 || r.ClueRegenInterval <= 0:
		return errors.New("regen intervals must be positive")
	case r.MinRating < 1 || r.PivotRating < r.MinRating:
		return fmt.Errorf("pivot rating %d must be at least the minimum rating %d", r.PivotRating, r.MinRating)
	case r.InitialRating < r.MinRating:
		return fmt.Errorf("initial rating %d is below the minimum rating %d", r.InitialRating, r.MinRating)
	case r.InSetCorrect <= 0 || r.OddOneOutCorrect <= 0:
		return errors.New("rewards must be positive")
	case r.InSetWrong >= 0 || r.OddOneOutWrong >= 0:
		return errors.New("penalties must be negative")
	case r.OddOneOutChance < 0 || r.OddOneOutChance > 1:
		return fmt.Errorf("odd one out chance %v is not a probability", r.OddOneOutChance)
	case r.NewCardSetChance < 0 || r.NewCardSetChance > 1:
		return fmt.Errorf("new card set chance %v is not a probability", r.NewCardSetChance)
	case r.ExperienceCap < 1:
		return errors.New("experience cap must be positive")
	case r.CardSetSize < 2:
		return fmt.Errorf("card set size %d leaves no in-set card", r.CardSetSize)
	case r.ClueRatingWindow < 1 || r.HistoryLimit < 1 || r.LeaderboardSize < 1:
		return errors.New("window sizes must be positive")
	case r.ClueScoreDecayPerDay < 0 || r.DecayPerDay < 0 || r.DecayGraceDays < 0:
		return errors.New("decay settings must not be negative")
	case r.SpamMaxGuesses < 1 || r.SpamWindow <= 0 || r.SpamCooldown < 0:
		return errors.New("invalid spam thresholds")
	}
	return nil
}
