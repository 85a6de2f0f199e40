// Package ledger implements the per-user energy and guess rating economy.
//
// Regeneration and decay are lazy: nothing runs in the background, the
// counters are brought up to date whenever a user is read and the stored
// timestamps only ever advance by whole intervals.
package ledger

import (
	"math"
	"time"

	"github.com/BoltKey/OddOneOut-sub000/config"
	"github.com/BoltKey/OddOneOut-sub000/schema"
)

const day = 24 * time.Hour

// Counter selects one of the two energy pools.
type Counter int

const (
	GuessEnergy Counter = iota
	ClueEnergy
)

func (c Counter) String() string {
	if c == ClueEnergy {
		return "clue energy"
	}
	return "guess energy"
}

// Column is the users column holding the counter.
func (c Counter) Column() string {
	if c == ClueEnergy {
		return "clue_energy"
	}
	return "guess_energy"
}

// Regen awards one unit per whole interval elapsed since last. At the cap the
// clock is parked at now so a later spend starts a fresh interval.
func Regen(energy int, last, now time.Time, interval time.Duration, max int) (int, time.Time) {
	if energy >= max {
		return max, now
	}
	if energy < 0 {
		energy = 0
	}
	if !now.After(last) {
		return energy, last
	}
	n := int(now.Sub(last) / interval)
	if n == 0 {
		return energy, last
	}
	if energy+n >= max {
		return max, now
	}
	return energy + n, last.Add(time.Duration(n) * interval)
}

// NextRegen is the moment the next unit arrives, nil when the pool is full.
func NextRegen(energy int, last time.Time, interval time.Duration, max int) *time.Time {
	if energy >= max {
		return nil
	}
	next := last.Add(interval)
	return &next
}

// TrySpend decrements counter by amount if it holds enough. On failure the
// counter is left untouched.
func TrySpend(counter *int, amount int) bool {
	if *counter < amount {
		return false
	}
	*counter -= amount
	return true
}

// Energy returns the pool value, its regen timestamp and its rules.
func Energy(u *schema.User, r config.Rules, c Counter) (energy int, last time.Time, interval time.Duration, max int) {
	if c == ClueEnergy {
		return u.ClueEnergy, u.LastClueEnergyRegen, r.ClueRegenInterval, r.MaxClueEnergy
	}
	return u.GuessEnergy, u.LastGuessEnergyRegen, r.GuessRegenInterval, r.MaxGuessEnergy
}

// NextRegenOf is NextRegen for one of the user's pools.
func NextRegenOf(u *schema.User, r config.Rules, c Counter) *time.Time {
	return NextRegen(Energy(u, r, c))
}

// Refresh brings both energy pools and the guess rating decay up to date.
// It reports whether the user changed and needs to be saved.
func Refresh(u *schema.User, r config.Rules, now time.Time, lastGuessAt *time.Time) bool {
	changed := false

	energy, last := Regen(u.GuessEnergy, u.LastGuessEnergyRegen, now, r.GuessRegenInterval, r.MaxGuessEnergy)
	if energy != u.GuessEnergy || !last.Equal(u.LastGuessEnergyRegen) {
		u.GuessEnergy, u.LastGuessEnergyRegen = energy, last
		changed = true
	}

	energy, last = Regen(u.ClueEnergy, u.LastClueEnergyRegen, now, r.ClueRegenInterval, r.MaxClueEnergy)
	if energy != u.ClueEnergy || !last.Equal(u.LastClueEnergyRegen) {
		u.ClueEnergy, u.LastClueEnergyRegen = energy, last
		changed = true
	}

	if Decay(u, r, now, lastGuessAt) {
		changed = true
	}
	return changed
}

// AdjustGuessRating scales delta around the pivot rating: low rated players
// gain more, high rated players lose more. It returns the new rating and the
// change actually applied after clamping to the floor.
func AdjustGuessRating(rating, delta int, r config.Rules) (int, int) {
	if delta == 0 {
		return rating, 0
	}
	base := math.Max(float64(rating), float64(r.MinRating))
	pivot := float64(r.PivotRating)

	multiplier := pivot / base
	if delta < 0 {
		multiplier = base / pivot
	}

	applied := int(math.Round(float64(delta) * multiplier))
	if delta > 0 && applied < 1 {
		applied = 1
	}

	next := rating + applied
	if next < r.MinRating {
		next = r.MinRating
	}
	return next, next - rating
}

// Decay lowers a rating above the pivot for every whole inactive day. Days
// are counted from the latest guess, after a grace period, or from the last
// decay run, whichever is more recent.
func Decay(u *schema.User, r config.Rules, now time.Time, lastGuessAt *time.Time) bool {
	if r.DecayPerDay == 0 {
		return false
	}

	var ref time.Time
	grace := 0
	switch {
	case u.LastRatingDecay != nil && (lastGuessAt == nil || !lastGuessAt.After(*u.LastRatingDecay)):
		ref = *u.LastRatingDecay
	case lastGuessAt != nil:
		ref = *lastGuessAt
		grace = r.DecayGraceDays
	default:
		return false
	}

	days := int(now.Sub(ref) / day)
	if days <= grace {
		return false
	}

	advanced := ref.Add(time.Duration(days) * day)
	u.LastRatingDecay = &advanced

	if u.GuessRating > r.PivotRating {
		next := u.GuessRating - (days-grace)*r.DecayPerDay
		if next < r.PivotRating {
			next = r.PivotRating
		}
		u.GuessRating = next
	}
	return true
}
