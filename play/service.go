// Package play runs the game flows on top of the stored state: assigning
// games to guessers and card sets to clue-givers, resolving their answers
// and reporting history and rankings.
package play

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BoltKey/OddOneOut-sub000/config"
	"github.com/BoltKey/OddOneOut-sub000/database"
	"github.com/BoltKey/OddOneOut-sub000/game"
	"github.com/BoltKey/OddOneOut-sub000/leaderboard"
	"github.com/BoltKey/OddOneOut-sub000/ledger"
	"github.com/BoltKey/OddOneOut-sub000/schema"
	"github.com/BoltKey/OddOneOut-sub000/words"
)

type Service struct {
	db     *gorm.DB
	rules  config.Rules
	words  *words.Checker
	board  *leaderboard.Board
	logger *zap.Logger
	rng    game.Rand
	now    func() time.Time
}

type Option func(*Service)

// WithRand replaces the random source. It is used from concurrent requests
// and must be safe for that.
func WithRand(rng game.Rand) Option {
	return func(s *Service) { s.rng = rng }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLeaderboard caches rankings in Redis.
func WithLeaderboard(board *leaderboard.Board) Option {
	return func(s *Service) { s.board = board }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(db *gorm.DB, rules config.Rules, checker *words.Checker, opts ...Option) *Service {
	s := &Service{
		db:     db,
		rules:  rules,
		words:  checker,
		logger: zap.NewNop(),
		rng:    &lockedRand{r: rand.New(rand.NewSource(time.Now().UnixNano()))},
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Rules() config.Rules {
	return s.rules
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// lockAndRefresh loads the user under a row lock and persists lazy regen and
// decay. Must run inside a transaction.
func (s *Service) lockAndRefresh(tx *gorm.DB, userID uint, now time.Time) (*schema.User, error) {
	user, err := database.LockUser(tx, userID)
	if err != nil {
		return nil, err
	}
	lastGuessAt, err := database.LastGuessAt(tx, userID)
	if err != nil {
		return nil, err
	}
	if ledger.Refresh(user, s.rules, now, lastGuessAt) {
		if err := database.SaveLedger(tx, user); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// spend takes one unit from the counter or fails with the next regen time.
func (s *Service) spend(tx *gorm.DB, user *schema.User, c ledger.Counter) error {
	ok, err := database.SpendEnergy(tx, user.ID, c, 1)
	if err != nil {
		return err
	}
	if !ok {
		return exhausted(ErrNoEnergy, ledger.NextRegenOf(user, s.rules, c))
	}
	if c == ledger.ClueEnergy {
		ledger.TrySpend(&user.ClueEnergy, 1)
	} else {
		ledger.TrySpend(&user.GuessEnergy, 1)
	}
	return nil
}

// NewUser fills in the economy of a fresh account and stores it.
func (s *Service) NewUser(ctx context.Context, user *schema.User) error {
	now := s.now()
	user.GuessRating = s.rules.InitialRating
	user.CachedClueRating = float64(s.rules.InitialRating)
	user.GuessEnergy = s.rules.MaxGuessEnergy
	user.ClueEnergy = s.rules.MaxClueEnergy
	user.LastGuessEnergyRegen = now
	user.LastClueEnergyRegen = now

	if _, err := database.AddUser(s.db.WithContext(ctx), user); err != nil {
		if database.IsType(err, database.ConflictError) {
			return wrongState(ErrEmailTaken)
		}
		return err
	}
	s.recordRatings(ctx, user)
	return nil
}

// Profile is a user brought up to date, with the times their pools refill.
type Profile struct {
	User           *schema.User
	NextGuessRegen *time.Time
	NextClueRegen  *time.Time
}

// Profile applies lazy regen, decay and clue rating recomputation.
func (s *Service) Profile(ctx context.Context, userID uint) (*Profile, error) {
	now := s.now()
	db := s.db.WithContext(ctx)

	var user *schema.User
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		user, err = s.lockAndRefresh(tx, userID, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := database.RefreshClueRating(db, user, s.rules.ClueRatingWindow, s.rules.ClueScoreDecayPerDay, now); err != nil {
		return nil, err
	}
	s.recordRatings(ctx, user)

	return &Profile{
		User:           user,
		NextGuessRegen: ledger.NextRegenOf(user, s.rules, ledger.GuessEnergy),
		NextClueRegen:  ledger.NextRegenOf(user, s.rules, ledger.ClueEnergy),
	}, nil
}
