package service

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Domain outcomes surfaced to callers as typed errors. The command layer
// maps these to user-facing messages; anything else is a store failure and
// is wrapped with context instead.
var (
	// ErrPredictionNotFound is returned when the referenced prediction does
	// not exist.
	ErrPredictionNotFound = errors.New("prediction not found")

	// ErrInvalidOption is returned when the option does not belong to the
	// prediction.
	ErrInvalidOption = errors.New("option does not belong to prediction")

	// ErrVotingClosed is returned when a vote is cast on a prediction that
	// is not open, or whose lock deadline has elapsed.
	ErrVotingClosed = errors.New("prediction is not open for voting")

	// ErrAlreadyResolved is returned when a resolve attempt loses the race
	// to a concurrent resolution, or targets an already resolved prediction.
	ErrAlreadyResolved = errors.New("prediction already resolved")

	// ErrNotResolved is returned when undo targets a prediction that is not
	// in the RESOLVED state.
	ErrNotResolved = errors.New("prediction is not resolved")

	// ErrWrongGuild is returned when an operation targets a prediction that
	// belongs to a different guild.
	ErrWrongGuild = errors.New("prediction belongs to another guild")
)

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
