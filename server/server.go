package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BoltKey/OddOneOut-sub000/database"
	"github.com/BoltKey/OddOneOut-sub000/metrics"
	"github.com/BoltKey/OddOneOut-sub000/play"
	"github.com/BoltKey/OddOneOut-sub000/server/containers"
)

type contextKey string

const userIDKey contextKey = "id"

type Server struct {
	Mux    *mux.Router
	DB     *gorm.DB
	Token  Token
	Play   *play.Service
	Logger *zap.Logger
}

func New(db *gorm.DB, svc *play.Service, token Token, logger *zap.Logger) *Server {
	s := &Server{
		DB:     db,
		Mux:    mux.NewRouter(),
		Token:  token,
		Play:   svc,
		Logger: logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Mux.Use(metrics.Middleware)

	authRouter := s.Mux.NewRoute().Subrouter()
	authRouter.Use(s.authHandler)
	authRouter.HandleFunc("/api/user", s.handleUserGet).Methods("GET")
	authRouter.HandleFunc("/api/user/change", s.handleUserChange).Methods("POST")
	authRouter.HandleFunc("/api/user/id/{id}", s.handleUserShow).Methods("GET")
	authRouter.HandleFunc("/api/guess/assign", s.handleGuessAssign).Methods("POST")
	authRouter.HandleFunc("/api/guess", s.handleGuess).Methods("POST")
	authRouter.HandleFunc("/api/clue/assign", s.handleClueAssign).Methods("POST")
	authRouter.HandleFunc("/api/clue", s.handleClue).Methods("POST")
	authRouter.HandleFunc("/api/history", s.handleHistory).Methods("GET")
	authRouter.HandleFunc("/api/leaderboard", s.handleLeaderboard).Methods("GET")

	s.Mux.HandleFunc("/api/health", s.handleHealth).Methods("GET")
	s.Mux.HandleFunc("/api/login", s.handleUserLogin).Methods("POST")
	s.Mux.HandleFunc("/api/register", s.handleUserRegister).Methods("POST")
	s.Mux.HandleFunc("/api/guest", s.handleGuest).Methods("POST")
	s.Mux.Handle("/metrics", metrics.Handler()).Methods("GET")
	s.Mux.Use(mux.CORSMethodMiddleware(s.Mux))
}

// Handler wraps the router with CORS and request logging.
func (s *Server) Handler() http.Handler {
	allowedOrigins := handlers.AllowedOrigins([]string{"*"})
	allowedMethods := handlers.AllowedMethods([]string{"POST", "OPTIONS", "GET"})
	allowedHeaders := handlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type", "Authorization"})

	return handlers.LoggingHandler(os.Stderr, handlers.CORS(
		allowedOrigins,
		allowedMethods,
		allowedHeaders)(s.Mux))
}

// Connect serves on address until ctx is cancelled, then shuts down.
func (s *Server) Connect(ctx context.Context, address string) error {
	srv := &http.Server{
		Addr:              address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errs := make(chan error, 1)
	go func() {
		s.Logger.Info("starting server", zap.String("address", address))
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("error connecting to server %s: %w", address, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) authHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, err := s.Token.VerifyToken(ExtractToken(r))
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, containers.Error{Error: err.Error()})
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, payload.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userID(r *http.Request) (uint, bool) {
	id, ok := r.Context().Value(userIDKey).(uint)
	return id, ok
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps service errors to statuses. Integrity and unexpected
// errors are logged and reported without detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	if kind, ok := play.KindOf(err); ok {
		switch kind {
		case play.Exhaustion:
			status = http.StatusTooManyRequests
		case play.Validation:
			status = http.StatusBadRequest
		case play.State:
			status = http.StatusConflict
		case play.Unauthorized:
			status = http.StatusUnauthorized
		}
		if kind != play.Integrity {
			msg = err.Error()
		}
	} else if database.IsNotFound(err) {
		status = http.StatusNotFound
		msg = "not found"
	}

	if status >= http.StatusInternalServerError {
		s.Logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, containers.Error{Error: msg, RetryAt: play.RetryAt(err)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := s.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		s.Logger.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
