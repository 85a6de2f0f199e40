package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BoltKey/OddOneOut-sub000/config"
	"github.com/BoltKey/OddOneOut-sub000/schema"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestRegen_AwardsWholeIntervalsOnly(t *testing.T) {
	energy, last := Regen(3, epoch, epoch.Add(5*time.Minute+30*time.Second), 2*time.Minute, 10)

	assert.Equal(t, 5, energy)
	assert.Equal(t, epoch.Add(4*time.Minute), last, "fractional progress must be kept")
}

func TestRegen_NoElapsedInterval(t *testing.T) {
	energy, last := Regen(3, epoch, epoch.Add(time.Minute), 2*time.Minute, 10)

	assert.Equal(t, 3, energy)
	assert.Equal(t, epoch, last)
}

func TestRegen_CappedAtMax(t *testing.T) {
	now := epoch.Add(24 * time.Hour)
	energy, last := Regen(0, epoch, now, 2*time.Minute, 10)

	assert.Equal(t, 10, energy)
	assert.Equal(t, now, last)
}

func TestRegen_Monotonic(t *testing.T) {
	prev := 0
	last := epoch
	for i := 1; i <= 40; i++ {
		var energy int
		energy, last = Regen(prev, last, epoch.Add(time.Duration(i)*time.Minute), 2*time.Minute, 10)
		require.GreaterOrEqual(t, energy, prev)
		require.LessOrEqual(t, energy, 10)
		prev = energy
	}
	assert.Equal(t, 10, prev)
}

func TestNextRegen(t *testing.T) {
	next := NextRegen(4, epoch, 2*time.Minute, 10)
	require.NotNil(t, next)
	assert.Equal(t, epoch.Add(2*time.Minute), *next)

	assert.Nil(t, NextRegen(10, epoch, 2*time.Minute, 10))
}

func TestTrySpend(t *testing.T) {
	energy := 1
	assert.True(t, TrySpend(&energy, 1))
	assert.Equal(t, 0, energy)

	assert.False(t, TrySpend(&energy, 1))
	assert.Equal(t, 0, energy, "a failed spend must not change the counter")
}

func TestAdjustGuessRating_GainsFavourLowRatings(t *testing.T) {
	rules := config.DefaultRules()

	_, low := AdjustGuessRating(500, 10, rules)
	_, high := AdjustGuessRating(1500, 10, rules)

	assert.Equal(t, 20, low)
	assert.Equal(t, 7, high)
	assert.Greater(t, low, high)
}

func TestAdjustGuessRating_LossesHitHighRatings(t *testing.T) {
	rules := config.DefaultRules()

	_, low := AdjustGuessRating(500, -20, rules)
	_, high := AdjustGuessRating(1500, -20, rules)

	assert.Equal(t, -10, low)
	assert.Equal(t, -30, high)
	assert.Less(t, high, low)
}

func TestAdjustGuessRating_PositiveDeltaGainsAtLeastOne(t *testing.T) {
	rules := config.DefaultRules()

	next, applied := AdjustGuessRating(100000, 1, rules)

	assert.Equal(t, 1, applied)
	assert.Equal(t, 100001, next)
}

func TestAdjustGuessRating_Floor(t *testing.T) {
	rules := config.DefaultRules()

	for _, rating := range []int{100, 101, 150, 1000, 5000} {
		next, applied := AdjustGuessRating(rating, -100000, rules)
		assert.Equal(t, rules.MinRating, next)
		assert.Equal(t, rules.MinRating-rating, applied)
	}
}

func TestAdjustGuessRating_PivotIsUnscaled(t *testing.T) {
	rules := config.DefaultRules()

	next, applied := AdjustGuessRating(1000, -50, rules)

	assert.Equal(t, 950, next)
	assert.Equal(t, -50, applied)
}

func TestDecay_GracePeriod(t *testing.T) {
	rules := config.DefaultRules()
	lastGuess := epoch
	u := &schema.User{GuessRating: 1200}

	assert.False(t, Decay(u, rules, epoch.Add(time.Duration(rules.DecayGraceDays)*day), &lastGuess))
	assert.Equal(t, 1200, u.GuessRating)
	assert.Nil(t, u.LastRatingDecay)
}

func TestDecay_IdempotentWithinADay(t *testing.T) {
	rules := config.DefaultRules()
	lastGuess := epoch
	u := &schema.User{GuessRating: 1200}
	now := epoch.Add(time.Duration(rules.DecayGraceDays+3)*day + time.Hour)

	require.True(t, Decay(u, rules, now, &lastGuess))
	assert.Equal(t, 1200-3*rules.DecayPerDay, u.GuessRating)

	assert.False(t, Decay(u, rules, now.Add(10*time.Hour), &lastGuess))
	assert.Equal(t, 1200-3*rules.DecayPerDay, u.GuessRating)

	require.True(t, Decay(u, rules, now.Add(25*time.Hour), &lastGuess))
	assert.Equal(t, 1200-4*rules.DecayPerDay, u.GuessRating)
}

func TestDecay_StopsAtPivot(t *testing.T) {
	rules := config.DefaultRules()
	lastGuess := epoch
	u := &schema.User{GuessRating: 1005}

	require.True(t, Decay(u, rules, epoch.Add(400*day), &lastGuess))
	assert.Equal(t, rules.PivotRating, u.GuessRating)

	low := &schema.User{GuessRating: 700}
	Decay(low, rules, epoch.Add(400*day), &lastGuess)
	assert.Equal(t, 700, low.GuessRating)
}

func TestDecay_NewerGuessResetsTheClock(t *testing.T) {
	rules := config.DefaultRules()
	decayed := epoch
	lastGuess := epoch.Add(2 * day)
	u := &schema.User{GuessRating: 1200, LastRatingDecay: &decayed}

	assert.False(t, Decay(u, rules, epoch.Add(5*day), &lastGuess))
	assert.Equal(t, 1200, u.GuessRating)
}

func TestDecay_NeverGuessed(t *testing.T) {
	u := &schema.User{GuessRating: 1200}
	assert.False(t, Decay(u, config.DefaultRules(), epoch.Add(900*day), nil))
}

func TestRefresh(t *testing.T) {
	rules := config.DefaultRules()
	u := &schema.User{
		GuessRating:          1000,
		GuessEnergy:          0,
		LastGuessEnergyRegen: epoch,
		ClueEnergy:           rules.MaxClueEnergy,
		LastClueEnergyRegen:  epoch,
	}

	changed := Refresh(u, rules, epoch.Add(3*rules.GuessRegenInterval), nil)

	assert.True(t, changed)
	assert.Equal(t, 3, u.GuessEnergy)
	assert.Equal(t, rules.MaxClueEnergy, u.ClueEnergy)
	assert.False(t, Refresh(u, rules, epoch.Add(3*rules.GuessRegenInterval), nil))
}
