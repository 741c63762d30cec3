package store

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation_MatchesCode23505(t *testing.T) {
	err := &pgconn.PgError{Code: codeUniqueViolation}
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsSerializationFailure(err))
}

func TestIsSerializationFailure_MatchesSerializationAndDeadlock(t *testing.T) {
	assert.True(t, IsSerializationFailure(&pgconn.PgError{Code: codeSerializationFailure}))
	assert.True(t, IsSerializationFailure(&pgconn.PgError{Code: codeDeadlockDetected}))
}

func TestIsUniqueViolation_FalseForOtherErrors(t *testing.T) {
	assert.False(t, IsUniqueViolation(errors.New("boom")))
	assert.False(t, IsSerializationFailure(errors.New("boom")))
	assert.False(t, IsUniqueViolation(nil))
}
