package play

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BoltKey/OddOneOut-sub000/database"
	"github.com/BoltKey/OddOneOut-sub000/ledger"
	"github.com/BoltKey/OddOneOut-sub000/metrics"
	"github.com/BoltKey/OddOneOut-sub000/schema"
	"github.com/BoltKey/OddOneOut-sub000/words"
)

// CardSetAssignment is the set a clue-giver writes a clue for.
type CardSetAssignment struct {
	CardSetID     uint
	Cards         []schema.WordCard
	ClueEnergy    int
	NextClueRegen *time.Time
}

// AssignCardSet deals the user a card set to give a clue for. An existing
// assignment is returned as is; a new one costs one clue energy and is either
// an open card set or a freshly drawn one.
func (s *Service) AssignCardSet(ctx context.Context, userID uint) (*CardSetAssignment, error) {
	now := s.now()

	var a *CardSetAssignment
	outcome := "assigned"
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.lockAndRefresh(tx, userID, now)
		if err != nil {
			return err
		}

		if user.AssignedCardSetID != nil {
			set, err := database.GetCardSet(tx, *user.AssignedCardSetID)
			switch {
			case err == nil:
				outcome = "resumed"
				a = s.cardSetAssignment(user, set)
				return nil
			case !database.IsNotFound(err):
				return err
			}
			user.AssignedCardSetID = nil
		}

		if err := s.spend(tx, user, ledger.ClueEnergy); err != nil {
			return err
		}

		set, err := s.openCardSet(tx, user)
		if err != nil {
			return err
		}
		if set == nil {
			cards, ok, err := database.PickWordCards(tx, s.rng, s.rules.CardSetSize)
			if err != nil {
				return err
			}
			if !ok {
				return exhausted(ErrNoWordCards, nil)
			}
			if set, err = database.CreateCardSet(tx, cards); err != nil {
				return err
			}
			s.logger.Debug("dealt new card set", zap.Uint("cardSet", set.ID), zap.Uint("user", user.ID))
		}

		if err := database.SetAssignedCardSet(tx, user.ID, &set.ID); err != nil {
			return err
		}
		user.AssignedCardSetID = &set.ID
		a = s.cardSetAssignment(user, set)
		return nil
	})
	if err != nil {
		metrics.Assignment(metrics.KindCardSet, assignmentFailure(err))
		return nil, err
	}
	metrics.Assignment(metrics.KindCardSet, outcome)
	return a, nil
}

// openCardSet picks an existing card set the user may clue, nil when a new
// one should be drawn.
func (s *Service) openCardSet(tx *gorm.DB, user *schema.User) (*schema.CardSet, error) {
	if s.rng.Float64() < s.rules.NewCardSetChance {
		return nil, nil
	}
	open, err := database.OpenCardSets(tx, user.ID, s.rules.MaxGamesPerCardSet)
	if err != nil || len(open) == 0 {
		return nil, err
	}
	return database.GetCardSet(tx, open[s.rng.Intn(len(open))])
}

func (s *Service) cardSetAssignment(user *schema.User, set *schema.CardSet) *CardSetAssignment {
	return &CardSetAssignment{
		CardSetID:     set.ID,
		Cards:         set.WordCards,
		ClueEnergy:    user.ClueEnergy,
		NextClueRegen: ledger.NextRegenOf(user, s.rules, ledger.ClueEnergy),
	}
}

type ClueSubmission struct {
	CardSetID   uint
	OddOneOutID uint
	Clue        string
}

type ClueResult struct {
	GameID uint
	Clue   string
	// Merged is set when the clue joined an existing game on the set; the
	// game keeps its original odd one out.
	Merged      bool
	OddOneOutID uint
	ClueGivers  int
}

// SubmitClue stores a clue for the user's assigned card set.
func (s *Service) SubmitClue(ctx context.Context, userID uint, sub ClueSubmission) (*ClueResult, error) {
	now := s.now()
	clue := strings.Join(strings.Fields(sub.Clue), " ")
	if clue == "" {
		return nil, invalid("clue is empty")
	}
	switch v := s.words.CheckClue(clue); v {
	case words.OK:
	case words.Profane:
		return nil, invalid("clue is not allowed")
	default:
		return nil, invalid("clue is %s", v)
	}

	var res *ClueResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := database.LockUser(tx, userID)
		if err != nil {
			return err
		}
		if user.AssignedCardSetID == nil {
			return wrongState(ErrNoCardSet)
		}
		if *user.AssignedCardSetID != sub.CardSetID {
			return invalid("card set %d is not assigned to you", sub.CardSetID)
		}

		set, err := database.GetCardSet(tx, sub.CardSetID)
		if database.IsNotFound(err) {
			return wrongState(ErrNoCardSet)
		}
		if err != nil {
			return err
		}
		if !set.Contains(sub.OddOneOutID) {
			return invalid("odd one out %d is not in the card set", sub.OddOneOutID)
		}
		if w, ok := usesCardWord(clue, set); ok {
			return invalid("clue uses the card word %s", w)
		}

		g, created, err := database.FindOrCreateGame(tx, set.ID, sub.OddOneOutID, clue, user.ID, now)
		if err != nil {
			return err
		}
		if err := database.MarkClueRatingDirty(tx, user.ID); err != nil {
			return err
		}
		if err := database.SetAssignedCardSet(tx, user.ID, nil); err != nil {
			return err
		}

		res = &ClueResult{
			GameID:      g.ID,
			Clue:        g.Clue,
			Merged:      !created,
			OddOneOutID: g.OddOneOutID,
			ClueGivers:  len(g.ClueGivers),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.Clue(res.Merged)
	return res, nil
}

// usesCardWord reports a card of the set that the clue, or one of its
// words, spells out.
func usesCardWord(clue string, set *schema.CardSet) (string, bool) {
	parts := append(strings.Fields(clue), clue)
	for _, card := range set.WordCards {
		for _, p := range parts {
			if strings.EqualFold(p, card.Word) {
				return card.Word, true
			}
		}
	}
	return "", false
}
