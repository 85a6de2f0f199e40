package server

import (
	"net/http"
	"time"

	"github.com/BoltKey/OddOneOut-sub000/play"
	"github.com/BoltKey/OddOneOut-sub000/server/containers"
)

func (s *Server) handleGuessAssign(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	a, err := s.Play.AssignGame(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"gameId":      a.GameID,
		"clue":        a.Clue,
		"card":        containers.Card{ID: a.Card.ID, Word: a.Card.Word},
		"guessEnergy": containers.Energy{Energy: a.GuessEnergy, NextRegen: a.NextGuessRegen},
	})
}

func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	guess, err := containers.ParseGuess(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, containers.Error{Error: err.Error()})
		return
	}
	res, err := s.Play.SubmitGuess(r.Context(), id, *guess.GuessIsInSet)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"gameId":            res.GameID,
		"card":              containers.Card{ID: res.Card.ID, Word: res.Card.Word},
		"oddOneOut":         containers.Card{ID: res.OddOneOut.ID, Word: res.OddOneOut.Word},
		"guessIsInSet":      res.GuessIsInSet,
		"actualIsInSet":     res.ActualInSet,
		"isCorrect":         res.Correct,
		"ratingChange":      res.RatingChange,
		"guessRating":       res.GuessRating,
		"spamCooldownUntil": res.SpamCooldownEnd,
	})
}

func (s *Server) handleClueAssign(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	a, err := s.Play.AssignCardSet(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	cards := make([]containers.Card, len(a.Cards))
	for i, c := range a.Cards {
		cards[i] = containers.Card{ID: c.ID, Word: c.Word}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cardSetId":  a.CardSetID,
		"cards":      cards,
		"clueEnergy": containers.Energy{Energy: a.ClueEnergy, NextRegen: a.NextClueRegen},
	})
}

func (s *Server) handleClue(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	clue, err := containers.ParseClue(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, containers.Error{Error: err.Error()})
		return
	}
	res, err := s.Play.SubmitClue(r.Context(), id, play.ClueSubmission{
		CardSetID:   clue.CardSetID,
		OddOneOutID: clue.OddOneOutID,
		Clue:        clue.Clue,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"gameId":      res.GameID,
		"clue":        res.Clue,
		"merged":      res.Merged,
		"oddOneOutId": res.OddOneOutID,
		"clueGivers":  res.ClueGivers,
	})
}

type historyGuess struct {
	GameID       *uint     `json:"gameId"`
	Clue         string    `json:"clue"`
	Word         string    `json:"word"`
	GuessIsInSet bool      `json:"guessIsInSet"`
	IsCorrect    *bool     `json:"isCorrect"`
	RatingChange int       `json:"ratingChange"`
	GuessedAt    time.Time `json:"guessedAt"`
}

type historyClue struct {
	GameID     uint      `json:"gameId"`
	Clue       string    `json:"clue"`
	OddOneOut  string    `json:"oddOneOut"`
	GuessCount int       `json:"guessCount"`
	Score      float64   `json:"score"`
	GivenAt    time.Time `json:"givenAt"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	h, err := s.Play.History(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	guesses := make([]historyGuess, len(h.Guesses))
	for i, g := range h.Guesses {
		guesses[i] = historyGuess{
			GameID:       g.GameID,
			Clue:         g.Clue,
			Word:         g.Word,
			GuessIsInSet: g.GuessIsInSet,
			IsCorrect:    g.Correct,
			RatingChange: g.RatingChange,
			GuessedAt:    g.GuessedAt,
		}
	}
	clues := make([]historyClue, len(h.Clues))
	for i, c := range h.Clues {
		clues[i] = historyClue(c)
	}

	u := h.Profile.User
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":        publicUser(u),
		"guessEnergy": containers.Energy{Energy: u.GuessEnergy, NextRegen: h.Profile.NextGuessRegen},
		"clueEnergy":  containers.Energy{Energy: u.ClueEnergy, NextRegen: h.Profile.NextClueRegen},
		"guesses":     guesses,
		"clues":       clues,
	})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := s.Play.Leaderboard(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"guessers":   lb.Guessers,
		"clueGivers": lb.ClueGivers,
	})
}
