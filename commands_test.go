package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BoltKey/OddOneOut-sub000/config"
	"github.com/BoltKey/OddOneOut-sub000/testhelpers"
	"github.com/BoltKey/OddOneOut-sub000/words"
)

func TestReadWordCards(t *testing.T) {
	input := "word,category\n# fruit\napple,fruit\n banana\nCarrot, vegetable\n"

	cards, err := readWordCards(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, cards, 3)
	assert.Equal(t, "apple", cards[0].Word)
	assert.Equal(t, "fruit", cards[0].Category)
	assert.Equal(t, "banana", cards[1].Word)
	assert.Empty(t, cards[1].Category)
	assert.Equal(t, "vegetable", cards[2].Category)
}

func TestReadWordCards_Malformed(t *testing.T) {
	_, err := readWordCards(strings.NewReader("apple,\"fruit\n"))
	assert.Error(t, err)
}

func TestLoadChecker(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	testhelpers.SeedWords(t, db, "apple", "banana")

	checker, err := loadChecker(db, "")
	require.NoError(t, err)
	assert.Equal(t, words.OK, checker.CheckWord("anything"))

	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte("fruit\n# comment\ntree\n"), 0o600))

	checker, err = loadChecker(db, path)
	require.NoError(t, err)
	assert.Equal(t, words.OK, checker.CheckWord("fruit"))
	assert.Equal(t, words.OK, checker.CheckWord("apple"))
	assert.Equal(t, words.NotAWord, checker.CheckWord("anything"))
}

func TestServeRequiresSecret(t *testing.T) {
	t.Setenv("ODDONEOUT_DATABASE_URL", "postgres://localhost/oddoneout")

	cmd := newCmd(config.Default())
	cmd.SetArgs([]string{"serve"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token secret")
}

func TestSeedRequiresDatabase(t *testing.T) {
	cmd := newCmd(config.Default())
	cmd.SetArgs([]string{"seed", "words.csv"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database url")
}
