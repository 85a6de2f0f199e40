package database

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BoltKey/OddOneOut-sub000/game"
	"github.com/BoltKey/OddOneOut-sub000/schema"
)

// AddWordCards inserts the cards whose word is not stored yet and returns
// how many were new. Words are stored upper case.
func AddWordCards(db *gorm.DB, cards []schema.WordCard) (int, error) {
	added := 0
	err := db.Transaction(func(tx *gorm.DB) error {
		for _, card := range cards {
			card.Word = strings.ToUpper(strings.TrimSpace(card.Word))
			if card.Word == "" {
				continue
			}
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "word"}},
				DoNothing: true,
			}).Create(&card)
			if res.Error != nil {
				return res.Error
			}
			added += int(res.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return 0, newInsertError(err)
	}
	return added, nil
}

func AllWords(db *gorm.DB) ([]string, error) {
	var words []string
	err := db.Model(&schema.WordCard{}).Pluck("word", &words).Error
	return words, newQueryError(err)
}

// PickWordCards draws n distinct word cards at random. ok is false when the
// pool holds fewer than n cards.
func PickWordCards(db *gorm.DB, rng game.Rand, n int) ([]schema.WordCard, bool, error) {
	var ids []uint
	if err := db.Model(&schema.WordCard{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, false, newQueryError(err)
	}
	if len(ids) < n {
		return nil, false, nil
	}

	for i := 0; i < n; i++ {
		j := i + rng.Intn(len(ids)-i)
		ids[i], ids[j] = ids[j], ids[i]
	}

	var cards []schema.WordCard
	if err := db.Where("id IN ?", ids[:n]).Find(&cards).Error; err != nil {
		return nil, false, newQueryError(err)
	}
	if len(cards) != n {
		return nil, false, newQueryError(fmt.Errorf("expected %d word cards, found %d", n, len(cards)))
	}
	return cards, true, nil
}

func CreateCardSet(db *gorm.DB, cards []schema.WordCard) (*schema.CardSet, error) {
	set := &schema.CardSet{WordCards: cards}
	err := db.Omit("WordCards.*").Create(set).Error
	if err != nil {
		return nil, newInsertError(err)
	}
	return set, nil
}

func GetCardSet(db *gorm.DB, id uint) (*schema.CardSet, error) {
	var set schema.CardSet
	if err := db.Preload("WordCards", orderByID).First(&set, id).Error; err != nil {
		return nil, newQueryError(err)
	}
	return &set, nil
}

// OpenCardSets lists card sets a clue-giver may be sent to: fewer than
// maxGames games, never guessed in and never clued by the user.
func OpenCardSets(db *gorm.DB, userID uint, maxGames int) ([]uint, error) {
	clued := db.Model(&schema.GameClueGiver{}).
		Select("games.card_set_id").
		Joins("JOIN games ON games.id = game_clue_givers.game_id").
		Where("game_clue_givers.user_id = ?", userID)
	guessed := guessedCardSets(db, userID)

	var ids []uint
	err := db.Model(&schema.CardSet{}).
		Select("card_sets.id").
		Joins("LEFT JOIN games ON games.card_set_id = card_sets.id").
		Where("card_sets.id NOT IN (?)", clued).
		Where("card_sets.id NOT IN (?)", guessed).
		Group("card_sets.id").
		Having("COUNT(games.id) < ?", maxGames).
		Order("card_sets.id").
		Pluck("card_sets.id", &ids).Error
	return ids, newQueryError(err)
}

func guessedCardSets(db *gorm.DB, userID uint) *gorm.DB {
	return db.Model(&schema.Guess{}).
		Select("games.card_set_id").
		Joins("JOIN games ON games.id = guesses.game_id").
		Where("guesses.guesser_id = ?", userID)
}

func orderByID(db *gorm.DB) *gorm.DB {
	return db.Order("id")
}
