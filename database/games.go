package database

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BoltKey/OddOneOut-sub000/schema"
	"github.com/BoltKey/OddOneOut-sub000/scoring"
)

// Candidate is a game a guesser may be routed to.
type Candidate struct {
	GameID          uint
	CardSetID       uint
	CachedGameScore float64
	GuessCount      int
}

// EligibleGames lists, in id order, the games the user may guess on next:
// not clued by them, not on a card set they already guessed in, not their
// current game and not on the card set they are giving a clue for.
func EligibleGames(db *gorm.DB, user *schema.User) ([]Candidate, error) {
	clued := db.Model(&schema.GameClueGiver{}).
		Select("game_id").
		Where("user_id = ?", user.ID)

	q := db.Model(&schema.Game{}).
		Select("games.id AS game_id, games.card_set_id AS card_set_id, " +
			"games.cached_game_score AS cached_game_score, COUNT(guesses.id) AS guess_count").
		Joins("LEFT JOIN guesses ON guesses.game_id = games.id").
		Where("games.id NOT IN (?)", clued).
		Where("games.card_set_id NOT IN (?)", guessedCardSets(db, user.ID))
	if user.CurrentGameID != nil {
		q = q.Where("games.id <> ?", *user.CurrentGameID)
	}
	if user.AssignedCardSetID != nil {
		q = q.Where("games.card_set_id <> ?", *user.AssignedCardSetID)
	}

	var candidates []Candidate
	err := q.Group("games.id, games.card_set_id, games.cached_game_score").
		Order("games.id").
		Scan(&candidates).Error
	return candidates, newQueryError(err)
}

// GetGame loads a game with its odd one out and the words of its card set.
func GetGame(db *gorm.DB, id uint) (*schema.Game, error) {
	var g schema.Game
	err := db.Preload("OddOneOut").
		Preload("CardSet").
		Preload("CardSet.WordCards", orderByID).
		First(&g, id).Error
	if err != nil {
		return nil, newQueryError(err)
	}
	return &g, nil
}

// lockClue serialises find-or-create of one clue on one card set until the
// transaction ends. Only Postgres has advisory locks; elsewhere the unique
// index alone decides.
func lockClue(tx *gorm.DB, cardSetID uint, clueKey string) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))",
		fmt.Sprintf("clue:%d:%s", cardSetID, clueKey)).Error
}

// FindOrCreateGame stores a clue on a card set. When the clue already exists,
// case-insensitively, the user is appended as a clue-giver of that game and
// created is false. Must run inside a transaction.
func FindOrCreateGame(tx *gorm.DB, cardSetID, oddOneOutID uint, clue string, userID uint, now time.Time) (*schema.Game, bool, error) {
	key := schema.ClueKey(clue)
	if err := lockClue(tx, cardSetID, key); err != nil {
		return nil, false, newQueryError(err)
	}

	existing, err := findGameByClue(tx, cardSetID, key)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, addClueGiver(tx, existing, userID, now)
	}

	g := &schema.Game{
		CardSetID:       cardSetID,
		Clue:            clue,
		ClueKey:         key,
		OddOneOutID:     oddOneOutID,
		CachedGameScore: 0,
	}
	err = tx.Transaction(func(inner *gorm.DB) error {
		return inner.Omit(clause.Associations).Create(g).Error
	})
	if isDuplicate(err) {
		existing, err = findGameByClue(tx, cardSetID, key)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, newConflictError(fmt.Errorf("clue %q vanished after a duplicate insert", key))
		}
		return existing, false, addClueGiver(tx, existing, userID, now)
	}
	if err != nil {
		return nil, false, newInsertError(err)
	}
	return g, true, addClueGiver(tx, g, userID, now)
}

func findGameByClue(tx *gorm.DB, cardSetID uint, key string) (*schema.Game, error) {
	var games []schema.Game
	err := tx.Where("card_set_id = ? AND clue_key = ?", cardSetID, key).Limit(1).Find(&games).Error
	if err != nil {
		return nil, newQueryError(err)
	}
	if len(games) == 0 {
		return nil, nil
	}
	return &games[0], nil
}

func addClueGiver(tx *gorm.DB, g *schema.Game, userID uint, now time.Time) error {
	giver := schema.GameClueGiver{GameID: g.ID, UserID: userID, GivenAt: now}
	err := tx.Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&giver).Error
	if err != nil {
		return newInsertError(err)
	}
	return newQueryError(tx.Where("game_id = ?", g.ID).Order("given_at").Find(&g.ClueGivers).Error)
}

// RecalculateCardSet rescores every game on the card set, stores the cached
// scores and marks their clue-givers' clue ratings dirty.
func RecalculateCardSet(db *gorm.DB, cardSetID uint, fallbackAverage float64) (map[uint]float64, error) {
	set, err := GetCardSet(db, cardSetID)
	if err != nil {
		return nil, err
	}

	var games []schema.Game
	err = db.Preload("Guesses").
		Where("card_set_id = ?", cardSetID).
		Order("id").
		Find(&games).Error
	if err != nil {
		return nil, newQueryError(err)
	}

	scores := scoring.ScoreCardSet(set.CardIDs(), games, fallbackAverage)

	err = db.Transaction(func(tx *gorm.DB) error {
		gameIDs := make([]uint, 0, len(games))
		for _, g := range games {
			gameIDs = append(gameIDs, g.ID)
			err := tx.Model(&schema.Game{}).
				Where("id = ?", g.ID).
				Update("cached_game_score", scores[g.ID]).Error
			if err != nil {
				return err
			}
		}
		if len(gameIDs) == 0 {
			return nil
		}
		givers := tx.Model(&schema.GameClueGiver{}).
			Select("user_id").
			Where("game_id IN ?", gameIDs)
		return tx.Model(&schema.User{}).
			Where("id IN (?)", givers).
			Update("clue_rating_dirty", true).Error
	})
	if err != nil {
		return nil, newUpdateError(err)
	}
	return scores, nil
}

// CountGamesOnCardSet is the number of clues given on a card set.
func CountGamesOnCardSet(db *gorm.DB, cardSetID uint) (int, error) {
	var n int64
	err := db.Model(&schema.Game{}).Where("card_set_id = ?", cardSetID).Count(&n).Error
	return int(n), newQueryError(err)
}
