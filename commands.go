package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BoltKey/OddOneOut-sub000/config"
	"github.com/BoltKey/OddOneOut-sub000/database"
	"github.com/BoltKey/OddOneOut-sub000/jobs"
	"github.com/BoltKey/OddOneOut-sub000/leaderboard"
	"github.com/BoltKey/OddOneOut-sub000/logging"
	"github.com/BoltKey/OddOneOut-sub000/play"
	"github.com/BoltKey/OddOneOut-sub000/schema"
	"github.com/BoltKey/OddOneOut-sub000/server"
	"github.com/BoltKey/OddOneOut-sub000/words"
)

func newCmd(cfg *config.Config) *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:     "oddoneout",
		Short:   "Server for the Odd One Out word association game.",
		Version: releaseVersion,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.Bind(cmd.Flags(), configFile)
		},
	}

	fs := cmd.PersistentFlags()
	fs.StringVarP(&configFile, "config", "c", "", "optional JSON config file")
	config.RegisterFlags(fs, cfg)

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "seed <words.csv>",
		Short: "Import word cards from a CSV file of word,category rows.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.DatabaseURL == "" {
				return errors.New("a database url is required (--database-url)")
			}
			return seed(cmd, cfg, args[0])
		},
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("oddoneout v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.New(cfg.Verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	logger.Info("connected to database")

	if err := database.Automigrate(db); err != nil {
		return err
	}
	logger.Info("migrated the database")

	checker, err := loadChecker(db, cfg.WordList)
	if err != nil {
		return err
	}
	logger.Info("loaded dictionary", zap.Int("words", checker.Size()))

	opts := []play.Option{play.WithLogger(logger)}
	if cfg.RedisURL != "" {
		rdb, err := leaderboard.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		opts = append(opts, play.WithLeaderboard(leaderboard.New(rdb)))
	}

	svc := play.New(db, cfg.Rules, checker, opts...)
	if cfg.RedisURL != "" {
		if err := svc.WarmLeaderboard(ctx); err != nil {
			logger.Warn("could not warm leaderboard cache", zap.Error(err))
		}
		if cfg.LeaderboardRefresh != "" {
			refresh := jobs.NewLeaderboardRefresh(svc, cfg.LeaderboardRefresh, logger)
			if err := refresh.Start(ctx); err != nil {
				return err
			}
			defer refresh.Stop()
		}
	}

	srv := server.New(db, svc, server.NewToken(cfg.TokenSecret, cfg.TokenTTL), logger)
	return srv.Connect(ctx, net.JoinHostPort(cfg.Bind, strconv.Itoa(cfg.Port)))
}

// loadChecker builds the clue dictionary. Without a word list every
// alphabetic word is accepted; with one, the seeded card words are added.
func loadChecker(db *gorm.DB, path string) (*words.Checker, error) {
	if path == "" {
		return words.New(), nil
	}
	dictionary, err := words.LoadFile(path)
	if err != nil {
		return nil, err
	}
	cards, err := database.AllWords(db)
	if err != nil {
		return nil, err
	}
	return words.New(append(dictionary, cards...)...), nil
}

func seed(cmd *cobra.Command, cfg *config.Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cards, err := readWordCards(f)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if err := database.Automigrate(db); err != nil {
		return err
	}

	added, err := database.AddWordCards(db.WithContext(cmd.Context()), cards)
	if err != nil {
		return err
	}
	cmd.Printf("added %d of %d word cards\n", added, len(cards))
	return nil
}

// readWordCards parses word,category rows. The category column is optional
// and a header row starting with "word" is skipped.
func readWordCards(r io.Reader) ([]schema.WordCard, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.Comment = '#'
	reader.TrimLeadingSpace = true

	var cards []schema.WordCard
	for line := 0; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return cards, nil
		}
		if err != nil {
			return nil, err
		}
		if line == 0 && strings.EqualFold(strings.TrimSpace(record[0]), "word") {
			continue
		}
		card := schema.WordCard{Word: strings.TrimSpace(record[0])}
		if len(record) > 1 {
			card.Category = strings.TrimSpace(record[1])
		}
		cards = append(cards, card)
	}
}
