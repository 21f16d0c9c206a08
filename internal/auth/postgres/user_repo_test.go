// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cityplanner/cityplanner/internal/auth"
	"github.com/cityplanner/cityplanner/pkg/errutil"
)

var userRowColumns = []string{"id", "email", "full_name", "password_hash", "is_active", "created_at", "updated_at"}

func newMockRepo(t *testing.T) (*UserRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return NewUserRepository(mock), mock
}

func testUser() *auth.User {
	name := "Ada Lovelace"
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &auth.User{
		ID:           ulid.Make(),
		Email:        "ada@example.com",
		FullName:     &name,
		PasswordHash: "$argon2id$digest",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestUserRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts user", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		user := testUser()

		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(user.ID.String(), user.Email, user.FullName, user.PasswordHash, true, user.CreatedAt, user.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.Create(ctx, user))
	})

	t.Run("unique violation maps to duplicate email", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		user := testUser()

		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_lower_key"})

		err := repo.Create(ctx, user)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, auth.CodeDuplicateEmail)
		assert.Equal(t, "email already registered", err.Error())
	})

	t.Run("primary key conflict is not a duplicate email", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		user := testUser()

		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_pkey"})

		err := repo.Create(ctx, user)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "USER_CREATE_FAILED")
		assert.NotEqual(t, "email already registered", err.Error())
	})

	t.Run("other errors are wrapped", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		user := testUser()

		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(errors.New("connection refused"))

		err := repo.Create(ctx, user)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "USER_CREATE_FAILED")
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestUserRepository_GetByEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		user := testUser()

		mock.ExpectQuery(`FROM users\s+WHERE LOWER\(email\) = LOWER\(\$1\)`).
			WithArgs("ADA@example.com").
			WillReturnRows(pgxmock.NewRows(userRowColumns).
				AddRow(user.ID.String(), user.Email, user.FullName, user.PasswordHash, user.IsActive, user.CreatedAt, user.UpdatedAt))

		got, err := repo.GetByEmail(ctx, "ADA@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, user.Email, got.Email)
		require.NotNil(t, got.FullName)
		assert.Equal(t, *user.FullName, *got.FullName)
		assert.True(t, got.IsActive)
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery(`FROM users`).
			WithArgs("nobody@example.com").
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetByEmail(ctx, "nobody@example.com")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, auth.CodeUserNotFound)
	})

	t.Run("corrupt id", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		user := testUser()

		mock.ExpectQuery(`FROM users`).
			WithArgs(user.Email).
			WillReturnRows(pgxmock.NewRows(userRowColumns).
				AddRow("not-a-ulid", user.Email, user.FullName, user.PasswordHash, true, user.CreatedAt, user.UpdatedAt))

		_, err := repo.GetByEmail(ctx, user.Email)
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestUserRepository_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		id := ulid.Make()

		mock.ExpectQuery(`FROM users\s+WHERE id = \$1`).
			WithArgs(id.String()).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetByID(ctx, id)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("query error", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		id := ulid.Make()

		mock.ExpectQuery(`FROM users\s+WHERE id = \$1`).
			WithArgs(id.String()).
			WillReturnError(errors.New("connection reset"))

		_, err := repo.GetByID(ctx, id)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "USER_GET_BY_ID_FAILED")
		errutil.AssertErrorContext(t, err, "id", id.String())
	})
}

func TestUserRepository_SetActive(t *testing.T) {
	ctx := context.Background()

	t.Run("updates flag", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectExec(`UPDATE users SET is_active = \$2`).
			WithArgs("ada@example.com", false, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.SetActive(ctx, "ada@example.com", false))
	})

	t.Run("unknown email", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectExec(`UPDATE users SET is_active = \$2`).
			WithArgs("nobody@example.com", true, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.SetActive(ctx, "nobody@example.com", true)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, auth.CodeUserNotFound)
	})
}
