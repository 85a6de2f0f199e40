package play

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BoltKey/OddOneOut-sub000/database"
	"github.com/BoltKey/OddOneOut-sub000/leaderboard"
	"github.com/BoltKey/OddOneOut-sub000/schema"
)

// GuessEntry is one past guess. Clue and Correct are unset when the game
// has been deleted since.
type GuessEntry struct {
	GameID       *uint
	Clue         string
	Word         string
	GuessIsInSet bool
	Correct      *bool
	RatingChange int
	GuessedAt    time.Time
}

type ClueEntry struct {
	GameID     uint
	Clue       string
	OddOneOut  string
	GuessCount int
	Score      float64
	GivenAt    time.Time
}

type History struct {
	Profile *Profile
	Guesses []GuessEntry
	Clues   []ClueEntry
}

func (s *Service) History(ctx context.Context, userID uint) (*History, error) {
	profile, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	guesses, err := database.GuessHistory(db, userID, s.rules.HistoryLimit)
	if err != nil {
		return nil, err
	}
	created, err := database.CreatedGames(db, userID, s.rules.HistoryLimit)
	if err != nil {
		return nil, err
	}

	h := &History{
		Profile: profile,
		Guesses: make([]GuessEntry, 0, len(guesses)),
		Clues:   make([]ClueEntry, 0, len(created)),
	}
	for i := range guesses {
		g := &guesses[i]
		entry := GuessEntry{
			GameID:       g.GameID,
			GuessIsInSet: g.GuessIsInSet,
			RatingChange: g.RatingChange,
			GuessedAt:    g.GuessedAt,
		}
		if g.SelectedCard != nil {
			entry.Word = g.SelectedCard.Word
		}
		if g.Game != nil {
			entry.Clue = g.Game.Clue
			if correct, ok := g.Correct(g.Game.OddOneOutID); ok {
				entry.Correct = &correct
			}
		}
		h.Guesses = append(h.Guesses, entry)
	}
	for _, c := range created {
		h.Clues = append(h.Clues, ClueEntry{
			GameID:     c.Game.ID,
			Clue:       c.Game.Clue,
			OddOneOut:  c.Game.OddOneOut.Word,
			GuessCount: c.GuessCount,
			Score:      c.Game.CachedGameScore,
			GivenAt:    c.GivenAt,
		})
	}
	return h, nil
}

type Standing struct {
	UserID      uint
	DisplayName string
	Rating      float64
}

type Leaderboards struct {
	Guessers   []Standing
	ClueGivers []Standing
	FromCache  bool
}

// Leaderboard ranks registered players. Clue ratings are the cached values
// and may lag behind games scored since the player was last read.
func (s *Service) Leaderboard(ctx context.Context) (*Leaderboards, error) {
	n := s.rules.LeaderboardSize
	if lb, ok := s.cachedLeaderboard(ctx, n); ok {
		return lb, nil
	}

	db := s.db.WithContext(ctx)
	guessers, err := database.TopGuessers(db, n)
	if err != nil {
		return nil, err
	}
	givers, err := database.TopClueGivers(db, n)
	if err != nil {
		return nil, err
	}

	lb := &Leaderboards{
		Guessers:   make([]Standing, len(guessers)),
		ClueGivers: make([]Standing, len(givers)),
	}
	for i, u := range guessers {
		lb.Guessers[i] = Standing{UserID: u.ID, DisplayName: u.DisplayName, Rating: float64(u.GuessRating)}
	}
	for i, u := range givers {
		lb.ClueGivers[i] = Standing{UserID: u.ID, DisplayName: u.DisplayName, Rating: u.CachedClueRating}
	}
	return lb, nil
}

func (s *Service) cachedLeaderboard(ctx context.Context, n int) (*Leaderboards, bool) {
	if s.board == nil {
		return nil, false
	}
	guessers, err := s.board.Top(ctx, leaderboard.Guess, n)
	if err != nil {
		s.logger.Warn("leaderboard cache unavailable", zap.Error(err))
		return nil, false
	}
	givers, err := s.board.Top(ctx, leaderboard.Clue, n)
	if err != nil {
		s.logger.Warn("leaderboard cache unavailable", zap.Error(err))
		return nil, false
	}
	if len(guessers) == 0 && len(givers) == 0 {
		return nil, false
	}

	ids := make([]uint, 0, len(guessers)+len(givers))
	for _, e := range guessers {
		ids = append(ids, e.UserID)
	}
	for _, e := range givers {
		ids = append(ids, e.UserID)
	}
	users, err := database.GetUsersByID(s.db.WithContext(ctx), ids)
	if err != nil {
		s.logger.Warn("resolving leaderboard names", zap.Error(err))
		return nil, false
	}
	names := make(map[uint]string, len(users))
	for _, u := range users {
		names[u.ID] = u.DisplayName
	}

	return &Leaderboards{
		Guessers:   standings(guessers, names),
		ClueGivers: standings(givers, names),
		FromCache:  true,
	}, true
}

func standings(entries []leaderboard.Entry, names map[uint]string) []Standing {
	out := make([]Standing, 0, len(entries))
	for _, e := range entries {
		name, ok := names[e.UserID]
		if !ok {
			continue
		}
		out = append(out, Standing{UserID: e.UserID, DisplayName: name, Rating: e.Score})
	}
	return out
}

// recordRatings pushes a registered user's ratings to the cache.
func (s *Service) recordRatings(ctx context.Context, user *schema.User) {
	if s.board == nil || user == nil || user.IsGuest {
		return
	}
	if err := s.board.Record(ctx, leaderboard.Guess, user.ID, float64(user.GuessRating)); err != nil {
		s.logger.Warn("caching guess rating", zap.Uint("user", user.ID), zap.Error(err))
		return
	}
	if err := s.board.Record(ctx, leaderboard.Clue, user.ID, user.CachedClueRating); err != nil {
		s.logger.Warn("caching clue rating", zap.Uint("user", user.ID), zap.Error(err))
	}
}

// WarmLeaderboard loads every registered user's stored ratings into the cache.
func (s *Service) WarmLeaderboard(ctx context.Context) error {
	if s.board == nil {
		return nil
	}
	users, err := database.TopGuessers(s.db.WithContext(ctx), -1)
	if err != nil {
		return err
	}
	guess := make([]leaderboard.Entry, len(users))
	clue := make([]leaderboard.Entry, len(users))
	for i, u := range users {
		guess[i] = leaderboard.Entry{UserID: u.ID, Score: float64(u.GuessRating)}
		clue[i] = leaderboard.Entry{UserID: u.ID, Score: u.CachedClueRating}
	}
	if err := s.board.Fill(ctx, leaderboard.Guess, guess); err != nil {
		return err
	}
	return s.board.Fill(ctx, leaderboard.Clue, clue)
}
