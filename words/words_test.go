package words

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckWord_EmptyDictionaryAcceptsAlphabetic(t *testing.T) {
	c := New()

	assert.Equal(t, OK, c.CheckWord("fruit"))
	assert.Equal(t, NotAWord, c.CheckWord("fru1t"))
	assert.Equal(t, NotAWord, c.CheckWord("   "))
}

func TestCheckWord_Dictionary(t *testing.T) {
	c := New("apple", "Banana")

	assert.Equal(t, OK, c.CheckWord("APPLE"))
	assert.Equal(t, OK, c.CheckWord(" banana "))
	assert.Equal(t, NotAWord, c.CheckWord("cherry"))

	c.Add("cherry")
	assert.Equal(t, OK, c.CheckWord("cherry"))
	assert.Equal(t, 3, c.Size())
}

func TestCheckWord_Profane(t *testing.T) {
	c := New()

	assert.Equal(t, Profane, c.CheckWord("fuck"))
	assert.Equal(t, Profane, c.CheckClue("tropical shit"))
}

func TestCheckClue(t *testing.T) {
	c := New("tropical", "fruit")

	assert.Equal(t, OK, c.CheckClue("tropical fruit"))
	assert.Equal(t, NotAWord, c.CheckClue("tropical xyzzy"))
	assert.Equal(t, NotAWord, c.CheckClue(""))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte("# fruits\napple\n\n  pear \n"), 0o644))

	words, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "pear"}, words)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
