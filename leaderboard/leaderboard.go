// Package leaderboard caches the rating rankings in Redis sorted sets.
package leaderboard

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

type Kind string

const (
	Guess Kind = "guess"
	Clue  Kind = "clue"
)

const keyPrefix = "leaderboard:"

type Entry struct {
	UserID uint
	Score  float64
}

type Board struct {
	rdb redis.UniversalClient
}

func New(rdb redis.UniversalClient) *Board {
	return &Board{rdb: rdb}
}

// Connect parses a redis:// url and checks the server answers.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return rdb, nil
}

func key(kind Kind) string {
	return keyPrefix + string(kind)
}

func member(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}

// Record sets the user's score on one board.
func (b *Board) Record(ctx context.Context, kind Kind, userID uint, score float64) error {
	return b.rdb.ZAdd(ctx, key(kind), redis.Z{Score: score, Member: member(userID)}).Err()
}

// Fill replaces a board with the given entries.
func (b *Board) Fill(ctx context.Context, kind Kind, entries []Entry) error {
	_, err := b.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key(kind))
		if len(entries) == 0 {
			return nil
		}
		members := make([]redis.Z, len(entries))
		for i, e := range entries {
			members[i] = redis.Z{Score: e.Score, Member: member(e.UserID)}
		}
		pipe.ZAdd(ctx, key(kind), members...)
		return nil
	})
	return err
}

func (b *Board) Remove(ctx context.Context, kind Kind, userID uint) error {
	return b.rdb.ZRem(ctx, key(kind), member(userID)).Err()
}

// Top returns the n best entries, highest score first.
func (b *Board) Top(ctx context.Context, kind Kind, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	zs, err := b.rdb.ZRevRangeWithScores(ctx, key(kind), 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(zs))
	for _, z := range zs {
		s, ok := z.Member.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected leaderboard member %v", z.Member)
		}
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("unexpected leaderboard member %q: %w", s, err)
		}
		entries = append(entries, Entry{UserID: uint(id), Score: z.Score})
	}
	return entries, nil
}
