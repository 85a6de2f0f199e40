// Package game holds the pure rules of a round: which card a guesser sees,
// how candidate games are weighted and what a guess is worth.
package game

import (
	"errors"
	"fmt"
	"math"

	"github.com/BoltKey/OddOneOut-sub000/config"
	"github.com/BoltKey/OddOneOut-sub000/schema"
	"github.com/BoltKey/OddOneOut-sub000/utils"
)

// Rand is the subset of *math/rand.Rand the rules draw from.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

var (
	ErrNoInSetCards     = errors.New("card set has no in-set cards")
	ErrOddOneOutMissing = errors.New("odd one out is not part of the card set")
)

// SelectCard returns the odd one out with probability oddOneOutChance and a
// uniformly random in-set card otherwise. g.CardSet.WordCards must be loaded.
func SelectCard(rng Rand, g *schema.Game, oddOneOutChance float64) (*schema.WordCard, error) {
	var oddOneOut *schema.WordCard
	inSet := make([]*schema.WordCard, 0, len(g.CardSet.WordCards))
	for i := range g.CardSet.WordCards {
		card := &g.CardSet.WordCards[i]
		if card.ID == g.OddOneOutID {
			oddOneOut = card
			continue
		}
		inSet = append(inSet, card)
	}

	if oddOneOut == nil {
		return nil, fmt.Errorf("game %d: %w", g.ID, ErrOddOneOutMissing)
	}
	if len(inSet) == 0 {
		return nil, fmt.Errorf("game %d: %w", g.ID, ErrNoInSetCards)
	}

	if rng.Float64() < oddOneOutChance {
		return oddOneOut, nil
	}
	return inSet[rng.Intn(len(inSet))], nil
}

// Experience caps the guess count that steers assignment.
func Experience(totalGuesses, cap int) int {
	return utils.Clamp(totalGuesses, 0, cap)
}

// Weight is the relative chance of a candidate game. Newcomers are steered
// to well guessed games with decent scores, veterans to under guessed ones.
func Weight(guesses int, score float64, experience int) float64 {
	n := float64(guesses)
	exp := float64(experience)

	targetGuesses := 200 * math.Exp(-0.008*exp)
	guessComponent := math.Exp(-math.Pow(n-targetGuesses, 2) / 5000)
	weight := guessComponent * (score + 20) / 120
	correction := 0.002*exp -
		(30-score)*n*(20-exp)*0.0000003 -
		exp*n*0.00001 -
		(200-exp)*0.001

	return math.Max(0.001, weight+correction)
}

// Outcome classifies a resolved guess for the reward table.
type Outcome struct {
	OddOneOutTarget bool
	Correct         bool
}

// Resolve derives the outcome of a guess on card against oddOneOutID.
func Resolve(cardID, oddOneOutID uint, guessIsInSet bool) Outcome {
	target := cardID == oddOneOutID
	return Outcome{
		OddOneOutTarget: target,
		Correct:         schema.IsCorrect(guessIsInSet, target),
	}
}

// RatingDelta is the unscaled reward or penalty for an outcome.
func RatingDelta(o Outcome, r config.Rules) int {
	switch {
	case !o.OddOneOutTarget && o.Correct:
		return r.InSetCorrect
	case !o.OddOneOutTarget:
		return r.InSetWrong
	case o.Correct:
		return r.OddOneOutCorrect
	default:
		return r.OddOneOutWrong
	}
}
