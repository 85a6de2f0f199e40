// Package scoring measures how well calibrated a clue is, from the guesses
// made on it relative to the other clues on the same card set.
package scoring

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/BoltKey/OddOneOut-sub000/schema"
)

// MinGuesses is the number of guesses below which a game has no signal.
const MinGuesses = 2

// UnknownSiblingCoef stands in for a sibling game without a success coefficient.
const UnknownSiblingCoef = 100

// Laplace smoothing of the per card success rate.
const smoothing = 0.1

type CardTally struct {
	CardID  uint
	Correct int
	Total   int
}

// Tally counts correct and total guesses for every card of the set, cards
// nobody guessed included. Guesses on cards outside the set are dropped.
func Tally(cardIDs []uint, oddOneOutID uint, guesses []schema.Guess) []CardTally {
	tallies := make([]CardTally, len(cardIDs))
	index := make(map[uint]int, len(cardIDs))
	for i, id := range cardIDs {
		tallies[i].CardID = id
		index[id] = i
	}

	for i := range guesses {
		g := &guesses[i]
		correct, ok := g.Correct(oddOneOutID)
		if !ok {
			continue
		}
		j, ok := index[*g.SelectedCardID]
		if !ok {
			continue
		}
		tallies[j].Total++
		if correct {
			tallies[j].Correct++
		}
	}
	return tallies
}

// SuccessCoef is the geometric mean of the smoothed per card success rates
// scaled to 0..100. Cards without guesses count as a rate of 1. It reports
// false when fewer than MinGuesses guesses were tallied.
func SuccessCoef(tallies []CardTally) (int, bool) {
	total := 0
	rates := make([]float64, len(tallies))
	for i, t := range tallies {
		total += t.Total
		rates[i] = (smoothing + float64(t.Correct)) / (smoothing + float64(t.Total))
	}
	if total < MinGuesses || len(rates) == 0 {
		return 0, false
	}
	return int(math.Round(stat.GeometricMean(rates, nil) * 100)), true
}

// Coef is a possibly unknown success coefficient.
type Coef struct {
	Value int
	Known bool
}

// GameScore compares a game's coefficient with the average of its siblings.
// Unknown games score 0; with no siblings fallbackAverage is the baseline.
func GameScore(own Coef, siblings []Coef, fallbackAverage float64) float64 {
	if !own.Known {
		return 0
	}
	if len(siblings) == 0 {
		return float64(own.Value) - fallbackAverage
	}

	values := make([]float64, len(siblings))
	for i, s := range siblings {
		values[i] = UnknownSiblingCoef
		if s.Known {
			values[i] = float64(s.Value)
		}
	}
	return float64(own.Value) - stat.Mean(values, nil)
}

// GameCoef tallies g.Guesses against the card set.
func GameCoef(cardIDs []uint, g *schema.Game) Coef {
	v, ok := SuccessCoef(Tally(cardIDs, g.OddOneOutID, g.Guesses))
	return Coef{Value: v, Known: ok}
}

// ScoreCardSet scores every game of one card set against the others. Games
// must have their guesses loaded.
func ScoreCardSet(cardIDs []uint, games []schema.Game, fallbackAverage float64) map[uint]float64 {
	coefs := make([]Coef, len(games))
	for i := range games {
		coefs[i] = GameCoef(cardIDs, &games[i])
	}

	scores := make(map[uint]float64, len(games))
	for i := range games {
		siblings := make([]Coef, 0, len(games)-1)
		for j, c := range coefs {
			if j != i {
				siblings = append(siblings, c)
			}
		}
		scores[games[i].ID] = GameScore(coefs[i], siblings, fallbackAverage)
	}
	return scores
}

// Contribution is one created game's share of a clue rating.
type Contribution struct {
	Score   float64
	GivenAt time.Time
}

// BaseClueRating is the clue rating of a player without games.
const BaseClueRating = 1000

// ClueRating sums the contributions on top of the base rating. Each one
// loses decayPerDay of its weight per day of age, never going negative.
func ClueRating(contributions []Contribution, now time.Time, decayPerDay float64) float64 {
	rating := float64(BaseClueRating)
	for _, c := range contributions {
		weight := 1.0
		if decayPerDay > 0 {
			ageDays := math.Max(0, now.Sub(c.GivenAt).Hours()/24)
			weight = math.Max(0, 1-ageDays*decayPerDay)
		}
		rating += c.Score * weight
	}
	return rating
}
