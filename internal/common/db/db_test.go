package db_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/jackc/pgconn"
	pgx "github.com/jackc/pgx/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlibekovAA/recordkeeper/internal/common/db"
	"github.com/AlibekovAA/recordkeeper/internal/common/logger"
)

var errNotFound = errors.New("not found")

func TestHandleQueryError_NoRows(t *testing.T) {
	err := db.HandleQueryError(pgx.ErrNoRows, errNotFound, "find user", time.Now())
	assert.ErrorIs(t, err, errNotFound)
}

func TestHandleQueryError_Wraps(t *testing.T) {
	cause := errors.New("broken pipe")
	err := db.HandleQueryError(cause, errNotFound, "list recordings", time.Now())

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to list recordings: broken pipe", err.Error())
}

func TestHandleExecError_Nil(t *testing.T) {
	assert.NoError(t, db.HandleExecError(nil, "insert recording", time.Now()))
}

func TestConstraintClassification(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	check := &pgconn.PgError{Code: "23514"}
	conn := &pgconn.PgError{Code: "08006"}

	assert.True(t, db.IsUniqueViolation(unique))
	assert.True(t, db.IsConstraintViolation(unique))
	assert.False(t, db.IsUniqueViolation(check))
	assert.True(t, db.IsConstraintViolation(check))
	assert.False(t, db.IsConstraintViolation(conn))
	assert.True(t, db.IsRetryableError(conn))
	assert.False(t, db.IsRetryableError(pgx.ErrNoRows))
}

func TestIsCallerError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nul byte", fmt.Errorf("insert recording: %w", &pgconn.PgError{Code: "22021"}), true},
		{"negative offset", &pgconn.PgError{Code: "2201X"}, true},
		{"not null", &pgconn.PgError{Code: "23502"}, true},
		{"canceled", fmt.Errorf("list: %w", context.Canceled), true},
		{"deadline", context.DeadlineExceeded, false},
		{"connection lost", &pgconn.PgError{Code: "08006"}, false},
		{"plain", errors.New("dial tcp: connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, db.IsCallerError(tt.err))
		})
	}
	assert.True(t, db.IsDataException(&pgconn.PgError{Code: "22P02"}))
	assert.False(t, db.IsDataException(&pgconn.PgError{Code: "23505"}))
}

func TestRetryWithBackoff_RetriesTransientErrors(t *testing.T) {
	log := logger.NewWriter(io.Discard, "test", "debug")
	cfg := db.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2}

	calls := 0
	err := db.RetryWithBackoff(context.Background(), log, "list recordings", cfg, func() error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: "40001"}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoff_StopsOnPermanentError(t *testing.T) {
	log := logger.NewWriter(io.Discard, "test", "debug")
	permanent := errors.New("syntax error")

	calls := 0
	err := db.RetryWithBackoff(context.Background(), log, "list recordings", db.DefaultRetryConfig, func() error {
		calls++
		return permanent
	})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoff_GivesUp(t *testing.T) {
	log := logger.NewWriter(io.Discard, "test", "debug")
	cfg := db.RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2}
	transient := &pgconn.PgError{Code: "08003"}

	err := db.RetryWithBackoff(context.Background(), log, "count recordings", cfg, func() error {
		return transient
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, transient)
	assert.Contains(t, err.Error(), "after 2 attempts")
}
