package testhelpers

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/BoltKey/OddOneOut-sub000/database"
	"github.com/BoltKey/OddOneOut-sub000/schema"
)

var openSQLite = func(dsn string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
}

// SetupTestDB creates an isolated in-memory SQLite database for tests.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name)
	db, err := openSQLite(dsn)
	if err != nil {
		panic(fmt.Sprintf("failed to open test database: %v", err))
	}
	if err := database.Automigrate(db); err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// SeedWords stores one word card per word and returns them in id order.
func SeedWords(t *testing.T, db *gorm.DB, words ...string) []schema.WordCard {
	t.Helper()

	cards := make([]schema.WordCard, len(words))
	for i, w := range words {
		cards[i] = schema.WordCard{Word: strings.ToUpper(w)}
	}
	if err := db.Create(&cards).Error; err != nil {
		panic(fmt.Sprintf("failed to seed word cards: %v", err))
	}
	return cards
}

// SeedUser stores a registered user with full energy.
func SeedUser(t *testing.T, db *gorm.DB, name string, guessEnergy, clueEnergy int) *schema.User {
	t.Helper()

	email := name + "@example.com"
	user := &schema.User{
		Email:            &email,
		DisplayName:      name,
		GuessRating:      1000,
		CachedClueRating: 1000,
		GuessEnergy:      guessEnergy,
		ClueEnergy:       clueEnergy,
	}
	if _, err := database.AddUser(db, user); err != nil {
		panic(fmt.Sprintf("failed to seed user: %v", err))
	}
	return user
}
