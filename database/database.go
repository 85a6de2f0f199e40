package database

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/BoltKey/OddOneOut-sub000/schema"
)

type ErrorType int

const (
	InsertError ErrorType = iota
	ConflictError
	OpenError
	ConfigError
	MigrateError
	UpdateError
	QueryError
	NotFoundError
)

type DatabaseError struct {
	ErrorType ErrorType
	msg       error
}

func wrap(t ErrorType, format string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		t = NotFoundError
	}
	return &DatabaseError{
		ErrorType: t,
		msg:       fmt.Errorf(format+": %w", err),
	}
}

func newMigrateError(err error) error {
	return wrap(MigrateError, "database migrate error", err)
}

func newConflictError(err error) error {
	return wrap(ConflictError, "database conflict error", err)
}

func newOpenError(err error) error {
	return wrap(OpenError, "database open error", err)
}

func newInsertError(err error) error {
	return wrap(InsertError, "database insert error", err)
}

func newUpdateError(err error) error {
	return wrap(UpdateError, "database update error", err)
}

func newQueryError(err error) error {
	return wrap(QueryError, "database query error", err)
}

func (e *DatabaseError) Error() string {
	return e.msg.Error()
}

func (e *DatabaseError) Unwrap() error {
	return e.msg
}

// IsType reports whether err is a DatabaseError of type t.
func IsType(err error, t ErrorType) bool {
	var derr *DatabaseError
	return errors.As(err, &derr) && derr.ErrorType == t
}

// IsNotFound reports whether err means the requested row does not exist.
func IsNotFound(err error) bool {
	return IsType(err, NotFoundError) || errors.Is(err, gorm.ErrRecordNotFound)
}

// isDuplicate recognises unique violations from the translated gorm error
// and from lib/pq, which gorm does not translate.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// Open connects through lib/pq.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DriverName: "postgres",
		DSN:        dsn,
	}), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, newOpenError(err)
	}
	return db, nil
}

func Automigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&schema.WordCard{}); err != nil {
		return newMigrateError(fmt.Errorf("schema word card, %w", err))
	}
	if err := db.AutoMigrate(&schema.CardSet{}); err != nil {
		return newMigrateError(fmt.Errorf("schema card set, %w", err))
	}
	if err := db.AutoMigrate(&schema.User{}); err != nil {
		return newMigrateError(fmt.Errorf("schema user, %w", err))
	}
	if err := db.AutoMigrate(&schema.Game{}); err != nil {
		return newMigrateError(fmt.Errorf("schema game, %w", err))
	}
	if err := db.AutoMigrate(&schema.GameClueGiver{}); err != nil {
		return newMigrateError(fmt.Errorf("schema game clue giver, %w", err))
	}
	if err := db.AutoMigrate(&schema.Guess{}); err != nil {
		return newMigrateError(fmt.Errorf("schema guess, %w", err))
	}
	return nil
}
