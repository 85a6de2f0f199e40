package play

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/BoltKey/OddOneOut-sub000/config"
	"github.com/BoltKey/OddOneOut-sub000/database"
	"github.com/BoltKey/OddOneOut-sub000/leaderboard"
	"github.com/BoltKey/OddOneOut-sub000/schema"
	"github.com/BoltKey/OddOneOut-sub000/testhelpers"
	"github.com/BoltKey/OddOneOut-sub000/words"
)

// scriptedRand replays queued values, then falls back to 0.99 and 0.
type scriptedRand struct {
	floats []float64
	ints   []int
}

func (s *scriptedRand) Float64() float64 {
	if len(s.floats) == 0 {
		return 0.99
	}
	f := s.floats[0]
	s.floats = s.floats[1:]
	return f
}

func (s *scriptedRand) Intn(n int) int {
	if len(s.ints) == 0 {
		return 0
	}
	i := s.ints[0]
	s.ints = s.ints[1:]
	return i % n
}

func (s *scriptedRand) queue(floats ...float64) {
	s.floats = append(s.floats, floats...)
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	db    *gorm.DB
	svc   *Service
	rng   *scriptedRand
	now   time.Time
	fruit []schema.WordCard
}

func newFixture(t *testing.T, rules config.Rules, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		t:   t,
		ctx: context.Background(),
		db:  testhelpers.SetupTestDB(t),
		rng: &scriptedRand{},
		now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.fruit = testhelpers.SeedWords(t, f.db, "apple", "banana", "orange", "lemon", "mango")
	opts = append([]Option{WithRand(f.rng), WithClock(func() time.Time { return f.now })}, opts...)
	f.svc = New(f.db, rules, words.New(), opts...)
	return f
}

func (f *fixture) user(name string) *schema.User {
	f.t.Helper()
	email := name + "@example.com"
	u := &schema.User{Email: &email, DisplayName: name}
	require.NoError(f.t, f.svc.NewUser(f.ctx, u))
	return u
}

func (f *fixture) reload(u *schema.User) *schema.User {
	f.t.Helper()
	got, err := database.GetUserByID(f.db, u.ID)
	require.NoError(f.t, err)
	return got
}

// clue deals giver a fresh card set of the fruit words and clues it with
// APPLE as the odd one out.
func (f *fixture) clue(giver *schema.User, clue string) *ClueResult {
	f.t.Helper()
	f.rng.queue(0.1)
	set, err := f.svc.AssignCardSet(f.ctx, giver.ID)
	require.NoError(f.t, err)
	res, err := f.svc.SubmitClue(f.ctx, giver.ID, ClueSubmission{
		CardSetID:   set.CardSetID,
		OddOneOutID: f.fruit[0].ID,
		Clue:        clue,
	})
	require.NoError(f.t, err)
	return res
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func requireKind(t *testing.T, err error, kind Kind, sentinel error) {
	t.Helper()
	require.Error(t, err)
	got, ok := KindOf(err)
	require.True(t, ok, "not a play error: %v", err)
	assert.Equal(t, kind, got)
	assert.True(t, errors.Is(err, sentinel), "%v is not %v", err, sentinel)
}

func TestFruitScenario(t *testing.T) {
	f := newFixture(t, config.DefaultRules())
	giver := f.user("giver")
	alice := f.user("alice")
	bob := f.user("bob")

	created := f.clue(giver, "fruit")
	assert.False(t, created.Merged)

	g, err := database.GetGame(f.db, created.GameID)
	require.NoError(t, err)
	assert.Equal(t, "APPLE", g.OddOneOut.Word)
	assert.Zero(t, g.CachedGameScore, "a game without guesses scores 0")

	// Pick the only candidate, then an in-set card: BANANA.
	f.rng.queue(0.5, 0.9)
	a, err := f.svc.AssignGame(f.ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, created.GameID, a.GameID)
	assert.Equal(t, "fruit", a.Clue)
	assert.Equal(t, "BANANA", a.Card.Word)
	assert.Equal(t, 29, a.GuessEnergy)

	res, err := f.svc.SubmitGuess(f.ctx, alice.ID, true)
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.True(t, res.ActualInSet)
	assert.Equal(t, 10, res.RatingChange)
	assert.Equal(t, 1010, res.GuessRating)
	assert.Equal(t, "APPLE", res.OddOneOut.Word)

	g, err = database.GetGame(f.db, created.GameID)
	require.NoError(t, err)
	assert.Zero(t, g.CachedGameScore, "one guess is not enough signal")

	// Same game for bob, this time the odd one out.
	f.advance(time.Minute)
	f.rng.queue(0.5, 0.1)
	a, err = f.svc.AssignGame(f.ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "APPLE", a.Card.Word)

	res, err = f.svc.SubmitGuess(f.ctx, bob.ID, true)
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.False(t, res.ActualInSet)
	assert.Equal(t, -50, res.RatingChange)
	assert.Equal(t, 950, res.GuessRating)

	// BANANA 1/1, APPLE 0/1, three unguessed cards at rate 1:
	// round(100 * (0.1/1.1)^(1/5)) = 62, against the fallback of 80.
	g, err = database.GetGame(f.db, created.GameID)
	require.NoError(t, err)
	assert.InDelta(t, -18, g.CachedGameScore, 1e-9)

	assert.Equal(t, 1010, f.reload(alice).GuessRating)
	assert.Equal(t, 950, f.reload(bob).GuessRating)

	profile, err := f.svc.Profile(f.ctx, giver.ID)
	require.NoError(t, err)
	assert.InDelta(t, 982, profile.User.CachedClueRating, 1e-9)
	assert.False(t, profile.User.ClueRatingDirty)

	history, err := f.svc.History(f.ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, history.Guesses, 1)
	entry := history.Guesses[0]
	assert.Equal(t, "fruit", entry.Clue)
	assert.Equal(t, "APPLE", entry.Word)
	require.NotNil(t, entry.Correct)
	assert.False(t, *entry.Correct)
	assert.Equal(t, -50, entry.RatingChange)

	history, err = f.svc.History(f.ctx, giver.ID)
	require.NoError(t, err)
	require.Len(t, history.Clues, 1)
	assert.Equal(t, 2, history.Clues[0].GuessCount)
	assert.Equal(t, "APPLE", history.Clues[0].OddOneOut)
}

func TestAssignGame_ZeroEnergyChangesNothing(t *testing.T) {
	f := newFixture(t, config.DefaultRules())
	giver := f.user("giver")
	alice := f.user("alice")
	f.clue(giver, "fruit")

	require.NoError(t, f.db.Model(&schema.User{}).Where("id = ?", alice.ID).
		Updates(map[string]interface{}{"guess_energy": 0, "last_guess_energy_regen": f.now}).Error)
	before := f.reload(alice)

	f.advance(time.Minute)
	_, err := f.svc.AssignGame(f.ctx, alice.ID)
	requireKind(t, err, Exhaustion, ErrNoEnergy)
	require.NotNil(t, RetryAt(err))
	assert.True(t, RetryAt(err).Equal(before.LastGuessEnergyRegen.Add(2*time.Minute)))

	after := f.reload(alice)
	assert.Nil(t, after.CurrentGameID)
	assert.Nil(t, after.CurrentCardID)
	assert.Equal(t, 0, after.GuessEnergy)
	assert.True(t, before.LastGuessEnergyRegen.Equal(after.LastGuessEnergyRegen))
}

func TestAssignGame_NoGamesKeepsEnergy(t *testing.T) {
	f := newFixture(t, config.DefaultRules())
	giver := f.user("giver")
	f.clue(giver, "fruit")

	// A clue-giver never guesses on their own game.
	_, err := f.svc.AssignGame(f.ctx, giver.ID)
	requireKind(t, err, Exhaustion, ErrNoGames)
	assert.Nil(t, RetryAt(err))
	assert.Equal(t, 30, f.reload(giver).GuessEnergy)
}

func TestAssignGame_IsSticky(t *testing.T) {
	f := newFixture(t, config.DefaultRules())
	giver := f.user("giver")
	alice := f.user("alice")
	f.clue(giver, "fruit")
	f.clue(giver, "yellow")

	first, err := f.svc.AssignGame(f.ctx, alice.ID)
	require.NoError(t, err)
	again, err := f.svc.AssignGame(f.ctx, alice.ID)
	require.NoError(t, err)

	assert.Equal(t, first.GameID, again.GameID)
	assert.Equal(t, first.Card.ID, again.Card.ID)
	assert.Equal(t, 29, again.GuessEnergy)
}

func TestAssignGame_RedrawsMissingCard(t *testing.T) {
	f := newFixture(t, config.DefaultRules())
	giver := f.user("giver")
	alice := f.user("alice")
	f.clue(giver, "fruit")

	first, err := f.svc.AssignGame(f.ctx, alice.ID)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&schema.User{}).Where("id = ?", alice.ID).Update("current_card_id", nil).Error)

	f.rng.queue(0.1)
	again, err := f.svc.AssignGame(f.ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, first.GameID, again.GameID)
	assert.Equal(t, "APPLE", again.Card.Word)
	assert.Equal(t, 29, again.GuessEnergy)
}

func TestSubmitGuess_NeedsAssignment(t *testing.T) {
	f := newFixture(t, config.DefaultRules())
	alice := f.user("alice")

	_, err := f.svc.SubmitGuess(f.ctx, alice.ID, true)
	requireKind(t, err, State, ErrNoAssignment)
}

func TestSubmitGuess_ResolvesOnce(t *testing.T) {
	f := newFixture(t, config.DefaultRules())
	giver := f.user("giver")
	alice := f.user("alice")
	f.clue(giver, "fruit")

	_, err := f.svc.AssignGame(f.ctx, alice.ID)
	require.NoError(t, err)
	_, err = f.svc.SubmitGuess(f.ctx, alice.ID, true)
	require.NoError(t, err)
	_, err = f.svc.SubmitGuess(f.ctx, alice.ID, true)
	requireKind(t, err, State, ErrNoAssignment)

	n, err := database.CountGuesses(f.db, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	after := f.reload(alice)
	assert.Nil(t, after.CurrentGameID)
	assert.Nil(t, after.CurrentCardID)
}

func TestSubmitGuess_DeletedGame(t *testing.T) {
	f := newFixture(t, config.DefaultRules())
	giver := f.user("giver")
	alice := f.user("alice")
	created := f.clue(giver, "fruit")

	_, err := f.svc.AssignGame(f.ctx, alice.ID)
	require.NoError(t, err)
	require.NoError(t, f.db.Delete(&schema.Game{}, created.GameID).Error)

	_, err = f.svc.SubmitGuess(f.ctx, alice.ID, true)
	requireKind(t, err, State, ErrGameNotFound)
	assert.Nil(t, f.reload(alice).CurrentGameID, "the dangling assignment is dropped")
}

func TestSubmitGuess_SpamCooldown(t *testing.T) {
	rules := config.DefaultRules()
	rules.SpamMaxGuesses = 1
	f := newFixture(t, rules)
	giver := f.user("giver")
	alice := f.user("alice")
	for i := 0; i < 3; i++ {
		f.clue(giver, fmt.Sprintf("clue%s", string(rune('a'+i))))
	}

	_, err := f.svc.AssignGame(f.ctx, alice.ID)
	require.NoError(t, err)
	res, err := f.svc.SubmitGuess(f.ctx, alice.ID, true)
	require.NoError(t, err)
	assert.Nil(t, res.SpamCooldownEnd)

	_, err = f.svc.AssignGame(f.ctx, alice.ID)
	require.NoError(t, err)
	res, err = f.svc.SubmitGuess(f.ctx, alice.ID, true)
	require.NoError(t, err)
	require.NotNil(t, res.SpamCooldownEnd)
	assert.True(t, res.SpamCooldownEnd.Equal(f.now.Add(5*time.Minute)))

	_, err = f.svc.AssignGame(f.ctx, alice.ID)
	requireKind(t, err, Exhaustion, ErrSpamCooldown)
	assert.True(t, RetryAt(err).Equal(f.now.Add(5*time.Minute)))

	f.advance(6 * time.Minute)
	_, err = f.svc.AssignGame(f.ctx, alice.ID)
	require.NoError(t, err)
}

func TestAssignCardSet(t *testing.T) {
	f := newFixture(t, config.DefaultRules())
	giver := f.user("giver")

	f.rng.queue(0.1)
	first, err := f.svc.AssignCardSet(f.ctx, giver.ID)
	require.NoError(t, err)
	assert.Len(t, first.Cards, 5)
	assert.Equal(t, 9, first.ClueEnergy)
	require.NotNil(t, first.NextClueRegen)
	assert.True(t, first.NextClueRegen.Equal(f.now.Add(10*time.Minute)))

	again, err := f.svc.AssignCardSet(f.ctx, giver.ID)
	require.NoError(t, err)
	assert.Equal(t, first.CardSetID, again.CardSetID)
	assert.Equal(t, 9, again.ClueEnergy)
}

func TestAssignCardSet_NotEnoughWords(t *testing.T) {
	rules := config.DefaultRules()
	rules.CardSetSize = 6
	f := newFixture(t, rules)
	giver := f.user("giver")

	_, err := f.svc.AssignCardSet(f.ctx, giver.ID)
	requireKind(t, err, Exhaustion, ErrNoWordCards)
	assert.Equal(t, 10, f.reload(giver).ClueEnergy)
}

func TestAssignCardSet_ReusesOpenSets(t *testing.T) {
	f := newFixture(t, config.DefaultRules())
	alice := f.user("alice")
	bob := f.user("bob")
	first := f.clue(alice, "fruit")

	// Above the new set chance: bob is sent to alice's set.
	f.rng.queue(0.9)
	set, err := f.svc.AssignCardSet(f.ctx, bob.ID)
	require.NoError(t, err)
	g, err := database.GetGame(f.db, first.GameID)
	require.NoError(t, err)
	assert.Equal(t, g.CardSetID, set.CardSetID)

	res, err := f.svc.SubmitClue(f.ctx, bob.ID, ClueSubmission{
		CardSetID:   set.CardSetID,
		OddOneOutID: f.fruit[1].ID,
		Clue:        "  FRUIT ",
	})
	require.NoError(t, err)
	assert.True(t, res.Merged)
	assert.Equal(t, first.GameID, res.GameID)
	assert.Equal(t, f.fruit[0].ID, res.OddOneOutID, "merged clues keep the first odd one out")
	assert.Equal(t, 2, res.ClueGivers)
	assert.Nil(t, f.reload(bob).AssignedCardSetID)

	// alice already clued it, so she gets a new set.
	f.rng.queue(0.9)
	set, err = f.svc.AssignCardSet(f.ctx, alice.ID)
	require.NoError(t, err)
	assert.NotEqual(t, g.CardSetID, set.CardSetID)
}

func TestSubmitClue_Validation(t *testing.T) {
	f := newFixture(t, config.DefaultRules())
	giver := f.user("giver")

	_, err := f.svc.SubmitClue(f.ctx, giver.ID, ClueSubmission{Clue: "fruit"})
	requireKind(t, err, State, ErrNoCardSet)

	f.rng.queue(0.1)
	set, err := f.svc.AssignCardSet(f.ctx, giver.ID)
	require.NoError(t, err)

	other := testhelpers.SeedWords(t, f.db, "pear")[0]
	cases := []struct {
		name string
		sub  ClueSubmission
	}{
		{"empty", ClueSubmission{CardSetID: set.CardSetID, OddOneOutID: f.fruit[0].ID, Clue: "   "}},
		{"card word", ClueSubmission{CardSetID: set.CardSetID, OddOneOutID: f.fruit[0].ID, Clue: "Banana"}},
		{"card word inside", ClueSubmission{CardSetID: set.CardSetID, OddOneOutID: f.fruit[0].ID, Clue: "sour lemon"}},
		{"not a word", ClueSubmission{CardSetID: set.CardSetID, OddOneOutID: f.fruit[0].ID, Clue: "fru1t"}},
		{"profane", ClueSubmission{CardSetID: set.CardSetID, OddOneOutID: f.fruit[0].ID, Clue: "shit"}},
		{"odd one out outside the set", ClueSubmission{CardSetID: set.CardSetID, OddOneOutID: other.ID, Clue: "fruit"}},
		{"other card set", ClueSubmission{CardSetID: set.CardSetID + 1, OddOneOutID: f.fruit[0].ID, Clue: "fruit"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := f.svc.SubmitClue(f.ctx, giver.ID, c.sub)
			requireKind(t, err, Validation, ErrInvalidClue)
		})
	}

	assert.Equal(t, set.CardSetID, *f.reload(giver).AssignedCardSetID)
}

func TestNewUser_DuplicateEmail(t *testing.T) {
	f := newFixture(t, config.DefaultRules())
	f.user("alice")

	email := "alice@example.com"
	err := f.svc.NewUser(f.ctx, &schema.User{Email: &email})
	requireKind(t, err, State, ErrEmailTaken)
}

func TestProfile_RegeneratesLazily(t *testing.T) {
	f := newFixture(t, config.DefaultRules())
	alice := f.user("alice")
	require.NoError(t, f.db.Model(&schema.User{}).Where("id = ?", alice.ID).
		Updates(map[string]interface{}{"guess_energy": 0, "last_guess_energy_regen": f.now}).Error)

	f.advance(5 * time.Minute)
	p, err := f.svc.Profile(f.ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, p.User.GuessEnergy)
	require.NotNil(t, p.NextGuessRegen)
	assert.True(t, p.NextGuessRegen.Equal(f.now.Add(time.Minute)))
	assert.Nil(t, p.NextClueRegen)

	stored := f.reload(alice)
	assert.Equal(t, 2, stored.GuessEnergy)
	assert.True(t, stored.LastGuessEnergyRegen.Equal(f.now.Add(-time.Minute)))
}

func playFruit(t *testing.T, f *fixture) (alice, bob *schema.User) {
	t.Helper()
	giver := f.user("giver")
	alice = f.user("alice")
	bob = f.user("bob")
	f.clue(giver, "fruit")

	f.rng.queue(0.5, 0.9)
	_, err := f.svc.AssignGame(f.ctx, alice.ID)
	require.NoError(t, err)
	_, err = f.svc.SubmitGuess(f.ctx, alice.ID, true)
	require.NoError(t, err)

	f.rng.queue(0.5, 0.1)
	_, err = f.svc.AssignGame(f.ctx, bob.ID)
	require.NoError(t, err)
	_, err = f.svc.SubmitGuess(f.ctx, bob.ID, true)
	require.NoError(t, err)
	return alice, bob
}

func TestLeaderboard_SQL(t *testing.T) {
	f := newFixture(t, config.DefaultRules())
	alice, bob := playFruit(t, f)

	lb, err := f.svc.Leaderboard(f.ctx)
	require.NoError(t, err)
	assert.False(t, lb.FromCache)
	require.Len(t, lb.Guessers, 3)
	assert.Equal(t, alice.ID, lb.Guessers[0].UserID)
	assert.Equal(t, float64(1010), lb.Guessers[0].Rating)
	assert.Equal(t, bob.ID, lb.Guessers[2].UserID)
}

func TestLeaderboard_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	f := newFixture(t, config.DefaultRules(), WithLeaderboard(leaderboard.New(rdb)))
	alice, bob := playFruit(t, f)

	lb, err := f.svc.Leaderboard(f.ctx)
	require.NoError(t, err)
	assert.True(t, lb.FromCache)
	require.Len(t, lb.Guessers, 3)
	assert.Equal(t, alice.ID, lb.Guessers[0].UserID)
	assert.Equal(t, "alice", lb.Guessers[0].DisplayName)
	assert.Equal(t, bob.ID, lb.Guessers[2].UserID)

	// Guests are never ranked.
	guest := &schema.User{DisplayName: "guest", IsGuest: true}
	require.NoError(t, f.svc.NewUser(f.ctx, guest))
	require.NoError(t, f.svc.WarmLeaderboard(f.ctx))
	lb, err = f.svc.Leaderboard(f.ctx)
	require.NoError(t, err)
	assert.Len(t, lb.Guessers, 3)

	mr.Close()
	lb, err = f.svc.Leaderboard(f.ctx)
	require.NoError(t, err)
	assert.False(t, lb.FromCache, "falls back to the database")
	assert.Len(t, lb.Guessers, 3)
}
