package database

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BoltKey/OddOneOut-sub000/ledger"
	"github.com/BoltKey/OddOneOut-sub000/schema"
)

func AddUser(db *gorm.DB, user *schema.User) (uint, error) {
	if user.Email != nil {
		if _, err := GetUserByEmail(db, *user.Email); err == nil {
			return 0, newConflictError(fmt.Errorf("user with that email already exists"))
		}
	}

	if err := db.Omit(clause.Associations).Create(user).Error; err != nil {
		if isDuplicate(err) {
			return 0, newConflictError(err)
		}
		return 0, newInsertError(err)
	}
	return user.ID, nil
}

func GetUserByID(db *gorm.DB, id uint) (*schema.User, error) {
	var user schema.User
	if err := db.First(&user, id).Error; err != nil {
		return nil, newQueryError(err)
	}
	return &user, nil
}

// LockUser loads a user with a row lock held until the transaction ends.
func LockUser(tx *gorm.DB, id uint) (*schema.User, error) {
	var user schema.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, id).Error; err != nil {
		return nil, newQueryError(err)
	}
	return &user, nil
}

func GetUserByEmail(db *gorm.DB, email string) (*schema.User, error) {
	var user schema.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, newQueryError(err)
	}
	return &user, nil
}

func SaveUser(db *gorm.DB, user *schema.User) error {
	return newUpdateError(db.Omit(clause.Associations).Save(user).Error)
}

// SaveLedger writes back the columns maintained by lazy regen and decay.
// Other columns may be changed concurrently by rescoring and are left alone.
func SaveLedger(tx *gorm.DB, user *schema.User) error {
	return newUpdateError(tx.Model(user).
		Select("GuessEnergy", "ClueEnergy", "LastGuessEnergyRegen", "LastClueEnergyRegen",
			"GuessRating", "LastRatingDecay").
		Updates(user).Error)
}

func UpdateUserDisplayName(db *gorm.DB, id uint, displayName string) error {
	return newUpdateError(
		db.Model(&schema.User{}).
			Where("id = ?", id).
			Update("display_name", displayName).Error)
}

// SpendEnergy atomically takes amount from the counter. It reports false and
// changes nothing when the stored counter holds less than amount.
func SpendEnergy(db *gorm.DB, id uint, counter ledger.Counter, amount int) (bool, error) {
	column := counter.Column()
	res := db.Model(&schema.User{}).
		Where("id = ? AND "+column+" >= ?", id, amount).
		Update(column, gorm.Expr(column+" - ?", amount))
	if res.Error != nil {
		return false, newUpdateError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// LastGuessAt is the time of the user's most recent guess, nil if none.
func LastGuessAt(db *gorm.DB, userID uint) (*time.Time, error) {
	var guess schema.Guess
	err := db.Where("guesser_id = ?", userID).Order("guessed_at desc").Limit(1).Find(&guess).Error
	if err != nil {
		return nil, newQueryError(err)
	}
	if guess.ID == 0 {
		return nil, nil
	}
	return &guess.GuessedAt, nil
}

func CountGuesses(db *gorm.DB, userID uint) (int, error) {
	var n int64
	if err := db.Model(&schema.Guess{}).Where("guesser_id = ?", userID).Count(&n).Error; err != nil {
		return 0, newQueryError(err)
	}
	return int(n), nil
}

func CountGuessesSince(db *gorm.DB, userID uint, since time.Time) (int, error) {
	var n int64
	err := db.Model(&schema.Guess{}).
		Where("guesser_id = ? AND guessed_at >= ?", userID, since).
		Count(&n).Error
	if err != nil {
		return 0, newQueryError(err)
	}
	return int(n), nil
}

// TopGuessers ranks registered users by guess rating.
func TopGuessers(db *gorm.DB, n int) ([]schema.User, error) {
	var users []schema.User
	err := db.Where("is_guest = ?", false).
		Order("guess_rating desc").Order("id").
		Limit(n).Find(&users).Error
	return users, newQueryError(err)
}

// TopClueGivers ranks registered users by their cached clue rating.
func TopClueGivers(db *gorm.DB, n int) ([]schema.User, error) {
	var users []schema.User
	err := db.Where("is_guest = ?", false).
		Order("cached_clue_rating desc").Order("id").
		Limit(n).Find(&users).Error
	return users, newQueryError(err)
}

func GetUsersByID(db *gorm.DB, ids []uint) ([]schema.User, error) {
	var users []schema.User
	if len(ids) == 0 {
		return users, nil
	}
	err := db.Where("id IN ?", ids).Find(&users).Error
	return users, newQueryError(err)
}

// SetCurrentGame points the user at a game and card, nil clears both.
func SetCurrentGame(tx *gorm.DB, userID uint, gameID, cardID *uint) error {
	return newUpdateError(tx.Model(&schema.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"current_game_id": gameID,
			"current_card_id": cardID,
		}).Error)
}

func SetAssignedCardSet(tx *gorm.DB, userID uint, cardSetID *uint) error {
	return newUpdateError(tx.Model(&schema.User{}).
		Where("id = ?", userID).
		Update("assigned_card_set_id", cardSetID).Error)
}

func UpdateGuessRating(tx *gorm.DB, userID uint, rating int) error {
	return newUpdateError(tx.Model(&schema.User{}).
		Where("id = ?", userID).
		Update("guess_rating", rating).Error)
}

func SetSpamCooldown(tx *gorm.DB, userID uint, until *time.Time) error {
	return newUpdateError(tx.Model(&schema.User{}).
		Where("id = ?", userID).
		Update("spam_cooldown_until", until).Error)
}
