package play

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BoltKey/OddOneOut-sub000/database"
	"github.com/BoltKey/OddOneOut-sub000/game"
	"github.com/BoltKey/OddOneOut-sub000/ledger"
	"github.com/BoltKey/OddOneOut-sub000/metrics"
	"github.com/BoltKey/OddOneOut-sub000/schema"
)

// Assignment is what a guesser is shown: a clue and one card.
type Assignment struct {
	GameID         uint
	Clue           string
	Card           schema.WordCard
	GuessEnergy    int
	NextGuessRegen *time.Time
}

// AssignGame hands the user a game to guess on. An existing assignment is
// returned as is and costs nothing; a new one costs one guess energy.
func (s *Service) AssignGame(ctx context.Context, userID uint) (*Assignment, error) {
	now := s.now()

	var a *Assignment
	outcome := "assigned"
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.lockAndRefresh(tx, userID, now)
		if err != nil {
			return err
		}

		if user.CurrentGameID != nil {
			a, err = s.resumeGame(tx, user)
			if err != nil || a != nil {
				outcome = "resumed"
				return err
			}
		}

		if user.SpamCooldownUntil != nil && user.SpamCooldownUntil.After(now) {
			until := *user.SpamCooldownUntil
			return exhausted(ErrSpamCooldown, &until)
		}
		if err := s.spend(tx, user, ledger.GuessEnergy); err != nil {
			return err
		}

		candidates, err := database.EligibleGames(tx, user)
		if err != nil {
			return err
		}
		total, err := database.CountGuesses(tx, user.ID)
		if err != nil {
			return err
		}
		experience := game.Experience(total, s.rules.ExperienceCap)

		weights := make([]float64, len(candidates))
		for i, c := range candidates {
			weights[i] = game.Weight(c.GuessCount, c.CachedGameScore, experience)
		}
		i, ok := game.PickWeighted(s.rng, weights)
		if !ok {
			return exhausted(ErrNoGames, nil)
		}

		g, err := database.GetGame(tx, candidates[i].GameID)
		if err != nil {
			return err
		}
		a, err = s.deal(tx, user, g)
		return err
	})
	if err != nil {
		metrics.Assignment(metrics.KindGame, assignmentFailure(err))
		return nil, err
	}
	metrics.Assignment(metrics.KindGame, outcome)
	return a, nil
}

// resumeGame returns the user's sticky assignment. A game deleted in the
// meantime is dropped and nil is returned so a new one can be dealt.
func (s *Service) resumeGame(tx *gorm.DB, user *schema.User) (*Assignment, error) {
	g, err := database.GetGame(tx, *user.CurrentGameID)
	if database.IsNotFound(err) {
		s.logger.Info("assigned game vanished", zap.Uint("user", user.ID), zap.Uint("game", *user.CurrentGameID))
		user.CurrentGameID, user.CurrentCardID = nil, nil
		return nil, database.SetCurrentGame(tx, user.ID, nil, nil)
	}
	if err != nil {
		return nil, err
	}

	if user.CurrentCardID == nil || !g.CardSet.Contains(*user.CurrentCardID) {
		return s.deal(tx, user, g)
	}
	for _, card := range g.CardSet.WordCards {
		if card.ID == *user.CurrentCardID {
			return s.assignment(user, g, card), nil
		}
	}
	return nil, corrupt(fmt.Errorf("card %d not in game %d", *user.CurrentCardID, g.ID))
}

// deal draws a card from g and makes it the user's current assignment.
func (s *Service) deal(tx *gorm.DB, user *schema.User, g *schema.Game) (*Assignment, error) {
	card, err := game.SelectCard(s.rng, g, s.rules.OddOneOutChance)
	if err != nil {
		return nil, corrupt(err)
	}
	if err := database.SetCurrentGame(tx, user.ID, &g.ID, &card.ID); err != nil {
		return nil, err
	}
	user.CurrentGameID, user.CurrentCardID = &g.ID, &card.ID
	return s.assignment(user, g, *card), nil
}

func (s *Service) assignment(user *schema.User, g *schema.Game, card schema.WordCard) *Assignment {
	return &Assignment{
		GameID:         g.ID,
		Clue:           g.Clue,
		Card:           card,
		GuessEnergy:    user.GuessEnergy,
		NextGuessRegen: ledger.NextRegenOf(user, s.rules, ledger.GuessEnergy),
	}
}

func assignmentFailure(err error) string {
	switch {
	case errors.Is(err, ErrNoEnergy):
		return "no_energy"
	case errors.Is(err, ErrNoGames):
		return "no_games"
	case errors.Is(err, ErrNoWordCards):
		return "no_word_cards"
	case errors.Is(err, ErrSpamCooldown):
		return "cooldown"
	}
	return "error"
}

// GuessResult reports how a guess was judged.
type GuessResult struct {
	GameID          uint
	Card            schema.WordCard
	OddOneOut       schema.WordCard
	GuessIsInSet    bool
	ActualInSet     bool
	Correct         bool
	RatingChange    int
	GuessRating     int
	SpamCooldownEnd *time.Time
}

// SubmitGuess resolves the user's current assignment. The assignment is
// claimed first, so a repeated submit finds nothing to resolve.
func (s *Service) SubmitGuess(ctx context.Context, userID uint, guessIsInSet bool) (*GuessResult, error) {
	now := s.now()
	db := s.db.WithContext(ctx)

	var (
		res       *GuessResult
		cardSetID uint
		user      *schema.User
		broken    error
	)
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		user, err = s.lockAndRefresh(tx, userID, now)
		if err != nil {
			return err
		}
		if user.CurrentGameID == nil || user.CurrentCardID == nil {
			return wrongState(ErrNoAssignment)
		}
		gameID, cardID := *user.CurrentGameID, *user.CurrentCardID

		claimed, err := database.ClaimAssignment(tx, user.ID, cardID)
		if err != nil {
			return err
		}
		if !claimed {
			return wrongState(ErrNoAssignment)
		}
		user.CurrentGameID, user.CurrentCardID = nil, nil

		g, err := database.GetGame(tx, gameID)
		if database.IsNotFound(err) {
			broken = wrongState(ErrGameNotFound)
			return nil
		}
		if err != nil {
			return err
		}
		card, ok := cardOf(g, cardID)
		if !ok {
			broken = corrupt(fmt.Errorf("card %d not in game %d", cardID, g.ID))
			return nil
		}

		outcome := game.Resolve(cardID, g.OddOneOutID, guessIsInSet)
		rating, applied := ledger.AdjustGuessRating(user.GuessRating, game.RatingDelta(outcome, s.rules), s.rules)

		guess := &schema.Guess{
			GameID:         &g.ID,
			GuesserID:      &user.ID,
			SelectedCardID: &cardID,
			GuessIsInSet:   guessIsInSet,
			GuessedAt:      now,
			RatingChange:   applied,
		}
		if err := database.AddGuess(tx, guess); err != nil {
			return err
		}
		if err := database.UpdateGuessRating(tx, user.ID, rating); err != nil {
			return err
		}
		user.GuessRating = rating

		cooldown, err := s.checkSpam(tx, user, now)
		if err != nil {
			return err
		}

		cardSetID = g.CardSetID
		res = &GuessResult{
			GameID:          g.ID,
			Card:            card,
			OddOneOut:       g.OddOneOut,
			GuessIsInSet:    guessIsInSet,
			ActualInSet:     !outcome.OddOneOutTarget,
			Correct:         outcome.Correct,
			RatingChange:    applied,
			GuessRating:     rating,
			SpamCooldownEnd: cooldown,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if broken != nil {
		s.logger.Warn("assignment could not be resolved", zap.Uint("user", userID), zap.Error(broken))
		return nil, broken
	}

	metrics.Guess(!res.ActualInSet, res.Correct)
	s.rescore(ctx, cardSetID)
	s.recordRatings(ctx, user)
	return res, nil
}

func cardOf(g *schema.Game, cardID uint) (schema.WordCard, bool) {
	for _, c := range g.CardSet.WordCards {
		if c.ID == cardID {
			return c, true
		}
	}
	return schema.WordCard{}, false
}

// checkSpam puts the user on cooldown after too many guesses in the window.
func (s *Service) checkSpam(tx *gorm.DB, user *schema.User, now time.Time) (*time.Time, error) {
	if s.rules.SpamMaxGuesses <= 0 {
		return nil, nil
	}
	n, err := database.CountGuessesSince(tx, user.ID, now.Add(-s.rules.SpamWindow))
	if err != nil {
		return nil, err
	}
	if n <= s.rules.SpamMaxGuesses {
		return nil, nil
	}

	until := now.Add(s.rules.SpamCooldown)
	if err := database.SetSpamCooldown(tx, user.ID, &until); err != nil {
		return nil, err
	}
	user.SpamCooldownUntil = &until
	s.logger.Info("spam cooldown", zap.Uint("user", user.ID), zap.Int("guesses", n), zap.Time("until", until))
	return &until, nil
}

// rescore refreshes the cached scores of a card set. Failures are logged
// and counted, the guess that triggered it stays recorded.
func (s *Service) rescore(ctx context.Context, cardSetID uint) {
	_, err := database.RecalculateCardSet(s.db.WithContext(ctx), cardSetID, s.rules.FallbackAverageSuccessCoef)
	if err != nil {
		metrics.RecalculationFailed()
		s.logger.Error("rescoring card set", zap.Uint("cardSet", cardSetID), zap.Error(err))
	}
}
