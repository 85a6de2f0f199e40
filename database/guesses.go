package database

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BoltKey/OddOneOut-sub000/schema"
	"github.com/BoltKey/OddOneOut-sub000/scoring"
)

func AddGuess(tx *gorm.DB, guess *schema.Guess) error {
	return newInsertError(tx.Omit(clause.Associations).Create(guess).Error)
}

// ClaimAssignment clears the user's assignment if it still points at cardID.
// It reports false when another request resolved it first.
func ClaimAssignment(tx *gorm.DB, userID, cardID uint) (bool, error) {
	res := tx.Model(&schema.User{}).
		Where("id = ? AND current_card_id = ?", userID, cardID).
		Updates(map[string]interface{}{
			"current_game_id": nil,
			"current_card_id": nil,
		})
	if res.Error != nil {
		return false, newUpdateError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// RefreshClueRating recomputes the cached clue rating when it is marked
// dirty, from the user's most recent window games.
func RefreshClueRating(db *gorm.DB, user *schema.User, window int, decayPerDay float64, now time.Time) error {
	if !user.ClueRatingDirty {
		return nil
	}

	var contributions []scoring.Contribution
	err := db.Model(&schema.GameClueGiver{}).
		Select("games.cached_game_score AS score, game_clue_givers.given_at AS given_at").
		Joins("JOIN games ON games.id = game_clue_givers.game_id").
		Where("game_clue_givers.user_id = ?", user.ID).
		Order("game_clue_givers.given_at desc").
		Limit(window).
		Scan(&contributions).Error
	if err != nil {
		return newQueryError(err)
	}

	rating := scoring.ClueRating(contributions, now, decayPerDay)
	err = db.Model(&schema.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"cached_clue_rating": rating,
			"clue_rating_dirty":  false,
		}).Error
	if err != nil {
		return newUpdateError(err)
	}

	user.CachedClueRating = rating
	user.ClueRatingDirty = false
	return nil
}

// MarkClueRatingDirty flags a user's clue rating for lazy recomputation.
func MarkClueRatingDirty(db *gorm.DB, userID uint) error {
	return newUpdateError(db.Model(&schema.User{}).
		Where("id = ?", userID).
		Update("clue_rating_dirty", true).Error)
}

// GuessHistory is the user's latest guesses, newest first. Game and card
// stay nil for rows whose game or card has been deleted.
func GuessHistory(db *gorm.DB, userID uint, limit int) ([]schema.Guess, error) {
	var guesses []schema.Guess
	err := db.Preload("Game").
		Preload("SelectedCard").
		Where("guesser_id = ?", userID).
		Order("guessed_at desc").Order("id desc").
		Limit(limit).
		Find(&guesses).Error
	return guesses, newQueryError(err)
}

type CreatedGame struct {
	Game       schema.Game
	GivenAt    time.Time
	GuessCount int
}

// CreatedGames is the user's latest clues, newest first.
func CreatedGames(db *gorm.DB, userID uint, limit int) ([]CreatedGame, error) {
	var givers []schema.GameClueGiver
	err := db.Preload("Game").
		Preload("Game.OddOneOut").
		Where("user_id = ?", userID).
		Order("given_at desc").
		Limit(limit).
		Find(&givers).Error
	if err != nil {
		return nil, newQueryError(err)
	}
	if len(givers) == 0 {
		return nil, nil
	}

	ids := make([]uint, len(givers))
	for i, g := range givers {
		ids[i] = g.GameID
	}
	var counts []struct {
		GameID uint
		N      int
	}
	err = db.Model(&schema.Guess{}).
		Select("game_id, COUNT(*) AS n").
		Where("game_id IN ?", ids).
		Group("game_id").
		Scan(&counts).Error
	if err != nil {
		return nil, newQueryError(err)
	}
	byGame := make(map[uint]int, len(counts))
	for _, c := range counts {
		byGame[c.GameID] = c.N
	}

	created := make([]CreatedGame, len(givers))
	for i, g := range givers {
		created[i] = CreatedGame{Game: g.Game, GivenAt: g.GivenAt, GuessCount: byGame[g.GameID]}
	}
	return created, nil
}
