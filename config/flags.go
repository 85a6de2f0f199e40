package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "ODDONEOUT"

// RegisterFlags declares every setting on fs, defaults taken from cfg.
func RegisterFlags(fs *pflag.FlagSet, cfg *Config) {
	r := &cfg.Rules

	fs.StringVarP(&cfg.Bind, "bind", "b", cfg.Bind, "address to bind to (env: ODDONEOUT_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to listen on (env: ODDONEOUT_PORT)")
	fs.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "postgres connection string (env: ODDONEOUT_DATABASE_URL)")
	fs.StringVar(&cfg.RedisURL, "redis-url", cfg.RedisURL, "redis url for the leaderboard cache, empty to disable (env: ODDONEOUT_REDIS_URL)")
	fs.StringVar(&cfg.TokenSecret, "token-secret", cfg.TokenSecret, "HS256 secret for session tokens (env: ODDONEOUT_TOKEN_SECRET)")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL, "session token lifetime (env: ODDONEOUT_TOKEN_TTL)")
	fs.StringVar(&cfg.WordList, "word-list", cfg.WordList, "optional dictionary file, one word per line (env: ODDONEOUT_WORD_LIST)")
	fs.StringVar(&cfg.LeaderboardRefresh, "leaderboard-refresh", cfg.LeaderboardRefresh, "cron schedule for rebuilding the leaderboard cache (env: ODDONEOUT_LEADERBOARD_REFRESH)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "development logging (env: ODDONEOUT_VERBOSE)")

	fs.IntVar(&r.MaxGuessEnergy, "max-guess-energy", r.MaxGuessEnergy, "guess energy cap")
	fs.IntVar(&r.MaxClueEnergy, "max-clue-energy", r.MaxClueEnergy, "clue energy cap")
	fs.DurationVar(&r.GuessRegenInterval, "guess-regen-interval", r.GuessRegenInterval, "time to regenerate one guess energy")
	fs.DurationVar(&r.ClueRegenInterval, "clue-regen-interval", r.ClueRegenInterval, "time to regenerate one clue energy")
	fs.IntVar(&r.PivotRating, "pivot-rating", r.PivotRating, "rating at which gains and losses are unscaled")
	fs.IntVar(&r.MinRating, "min-rating", r.MinRating, "guess rating floor")
	fs.IntVar(&r.InSetCorrect, "reward-in-set", r.InSetCorrect, "rating delta for a correct in-set guess")
	fs.IntVar(&r.InSetWrong, "penalty-in-set", r.InSetWrong, "rating delta for a wrong in-set guess")
	fs.IntVar(&r.OddOneOutCorrect, "reward-odd-one-out", r.OddOneOutCorrect, "rating delta for spotting the odd one out")
	fs.IntVar(&r.OddOneOutWrong, "penalty-odd-one-out", r.OddOneOutWrong, "rating delta for missing the odd one out")
	fs.Float64Var(&r.OddOneOutChance, "odd-one-out-chance", r.OddOneOutChance, "probability that a guesser is shown the odd one out")
	fs.IntVar(&r.ExperienceCap, "experience-cap", r.ExperienceCap, "guess count after which experience stops growing")
	fs.Float64Var(&r.FallbackAverageSuccessCoef, "fallback-success-coef", r.FallbackAverageSuccessCoef, "sibling average used for a card set with a single game")
	fs.IntVar(&r.ClueRatingWindow, "clue-rating-window", r.ClueRatingWindow, "number of recent games counted in the clue rating")
	fs.Float64Var(&r.ClueScoreDecayPerDay, "clue-score-decay", r.ClueScoreDecayPerDay, "fraction of a game's clue rating contribution lost per day")
	fs.IntVar(&r.DecayGraceDays, "decay-grace-days", r.DecayGraceDays, "inactive days before guess rating decay starts")
	fs.IntVar(&r.DecayPerDay, "decay-per-day", r.DecayPerDay, "guess rating lost per inactive day")
	fs.IntVar(&r.SpamMaxGuesses, "spam-max-guesses", r.SpamMaxGuesses, "guesses allowed within the spam window")
	fs.DurationVar(&r.SpamWindow, "spam-window", r.SpamWindow, "spam detection window")
	fs.DurationVar(&r.SpamCooldown, "spam-cooldown", r.SpamCooldown, "cooldown imposed on detected spam")
	fs.IntVar(&r.CardSetSize, "card-set-size", r.CardSetSize, "word cards per card set")
	fs.Float64Var(&r.NewCardSetChance, "new-card-set-chance", r.NewCardSetChance, "probability of a fresh card set for a clue-giver")
	fs.IntVar(&r.MaxGamesPerCardSet, "max-games-per-card-set", r.MaxGamesPerCardSet, "games after which a card set is no longer offered to clue-givers")
	fs.IntVar(&r.HistoryLimit, "history-limit", r.HistoryLimit, "entries returned by the history endpoint")
	fs.IntVar(&r.LeaderboardSize, "leaderboard-size", r.LeaderboardSize, "entries per leaderboard")
}

// Bind overlays .env, an optional JSON config file and ODDONEOUT_* variables
// onto the flags that were not set explicitly.
func Bind(fs *pflag.FlagSet, configFile string) error {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}

	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			if err := fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); err != nil && bindErr == nil {
				bindErr = fmt.Errorf("invalid value for %s: %w", f.Name, err)
			}
		}
	})
	return bindErr
}

func Default() *Config {
	return &Config{
		Bind:               "0.0.0.0",
		Port:               8080,
		TokenTTL:           24 * time.Hour,
		LeaderboardRefresh: "@every 10m",
		Rules:              DefaultRules(),
	}
}
