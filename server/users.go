package server

import (
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/BoltKey/OddOneOut-sub000/database"
	"github.com/BoltKey/OddOneOut-sub000/play"
	"github.com/BoltKey/OddOneOut-sub000/schema"
	"github.com/BoltKey/OddOneOut-sub000/server/containers"
	"github.com/BoltKey/OddOneOut-sub000/utils"
)

func publicUser(u *schema.User) containers.User {
	return containers.User{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		IsGuest:     u.IsGuest,
		GuessRating: u.GuessRating,
		ClueRating:  u.CachedClueRating,
	}
}

func sourceIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) writeSession(w http.ResponseWriter, r *http.Request, status int, user *schema.User) {
	token, err := s.Token.CreateToken(user.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, status, map[string]interface{}{
		"sessionToken": token,
		"user":         publicUser(user),
	})
}

func (s *Server) handleUserRegister(w http.ResponseWriter, r *http.Request) {
	user, err := containers.ParseLoginUser(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, containers.Error{Error: err.Error()})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	displayName := user.DisplayName
	if displayName == "" {
		displayName = strings.SplitN(user.Email, "@", 2)[0]
	}
	schemaUser := &schema.User{
		Email:       &user.Email,
		Password:    hashedPassword,
		DisplayName: displayName,
		SourceIP:    sourceIP(r),
	}
	if err := s.Play.NewUser(r.Context(), schemaUser); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSession(w, r, http.StatusCreated, schemaUser)
}

func (s *Server) handleGuest(w http.ResponseWriter, r *http.Request) {
	guest := &schema.User{
		DisplayName: "guest-" + uuid.NewString()[:8],
		IsGuest:     true,
		SourceIP:    sourceIP(r),
	}
	if err := s.Play.NewUser(r.Context(), guest); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSession(w, r, http.StatusCreated, guest)
}

func (s *Server) handleUserLogin(w http.ResponseWriter, r *http.Request) {
	user, err := containers.ParseLoginUser(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, containers.Error{Error: err.Error()})
		return
	}

	dbUser, err := database.GetUserByEmail(s.DB.WithContext(r.Context()), user.Email)
	if err != nil {
		if !database.IsNotFound(err) {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusUnauthorized, containers.Error{Error: play.ErrInvalidCredentials.Error()})
		return
	}
	if err := bcrypt.CompareHashAndPassword(dbUser.Password, []byte(user.Password)); err != nil {
		s.Logger.Debug("password mismatch", zap.Uint("user", dbUser.ID))
		writeJSON(w, http.StatusUnauthorized, containers.Error{Error: play.ErrInvalidCredentials.Error()})
		return
	}
	s.writeSession(w, r, http.StatusOK, dbUser)
}

func (s *Server) handleUserGet(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	profile, err := s.Play.Profile(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessionToken": ExtractToken(r),
		"user":         publicUser(profile.User),
		"guessEnergy":  containers.Energy{Energy: profile.User.GuessEnergy, NextRegen: profile.NextGuessRegen},
		"clueEnergy":   containers.Energy{Energy: profile.User.ClueEnergy, NextRegen: profile.NextClueRegen},
	})
}

func (s *Server) handleUserShow(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseUint(mux.Vars(r), "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, containers.Error{Error: err.Error()})
		return
	}
	user, err := database.GetUserByID(s.DB.WithContext(r.Context()), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, publicUser(user))
}

func (s *Server) handleUserChange(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	change, err := containers.ParseChangeUser(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, containers.Error{Error: err.Error()})
		return
	}
	if err := database.UpdateUserDisplayName(s.DB.WithContext(r.Context()), id, change.DisplayName); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
