package localstore

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/user"
)

func newTestUserRepo() user.Repository {
	s, _ := newTestStore(Options{Namespace: "test"})
	return NewUserRepository(s, core.NewSequenceIDGen("u"))
}

func mustCreate(t *testing.T, repo user.Repository, uname, email, role string, active bool) user.User {
	t.Helper()
	usr := user.User{Username: uname, Name: uname, Email: email, Role: role, IsActive: active, CreatedAt: time.Now()}
	require.NoError(t, usr.SetPassword("password"))
	usr, err := repo.CreateUser(context.Background(), usr)
	require.NoError(t, err)
	return usr
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := newTestUserRepo()

	john := mustCreate(t, repo, "john.doe", "john@example.com", user.RoleTeacher, true)
	jane := mustCreate(t, repo, "jane.smith", "jane@example.com", user.RoleStudent, true)
	mustCreate(t, repo, "joe", "", user.RoleStudent, false)
	assert.Equal(t, "u1", john.ID)
	assert.Equal(t, "u2", jane.ID)

	t.Run("password hash is persisted", func(t *testing.T) {
		got, err := repo.GetUserByUsername(ctx, "john.doe")
		require.NoError(t, err)
		assert.NoError(t, got.CheckPassword("password"))
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := repo.GetUserByID(ctx, "u42")
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
		_, err = repo.GetUserByUsername(ctx, "nobody")
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	})

	t.Run("uniqueness", func(t *testing.T) {
		assert.Equal(t, user.ErrUsernameExists, repo.CheckUniqueness(ctx, "john.doe", ""))
		assert.Equal(t, user.ErrEmailExists, repo.CheckUniqueness(ctx, "new", "jane@example.com"))
		assert.NoError(t, repo.CheckUniqueness(ctx, "john.doe", "john@example.com", john.ID))
		assert.NoError(t, repo.CheckUniqueness(ctx, "new", ""))

		_, err := repo.CreateUser(ctx, user.User{Username: "john.doe"})
		assert.Equal(t, user.ErrUsernameExists, errors.Cause(err))
	})

	t.Run("query", func(t *testing.T) {
		active := true
		tests := []struct {
			name   string
			filter user.QueryFilter
			want   []string
		}{
			{name: "all", want: []string{"jane.smith", "joe", "john.doe"}},
			{name: "role", filter: user.QueryFilter{Role: user.RoleStudent}, want: []string{"jane.smith", "joe"}},
			{name: "active students", filter: user.QueryFilter{Role: user.RoleStudent, IsActive: &active}, want: []string{"jane.smith"}},
			{name: "search", filter: user.QueryFilter{Search: "JOHN@"}, want: []string{"john.doe"}},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				users, err := repo.QueryUsers(ctx, tc.filter)
				require.NoError(t, err)
				got := make([]string, 0, len(users))
				for _, u := range users {
					got = append(got, u.Username)
				}
				assert.Equal(t, tc.want, got)
			})
		}
	})

	t.Run("update keeps hash", func(t *testing.T) {
		upd := jane
		upd.PasswordHash = nil
		upd.IsActive = false
		_, err := repo.UpdateUser(ctx, upd)
		require.NoError(t, err)

		got, err := repo.GetUserByID(ctx, jane.ID)
		require.NoError(t, err)
		assert.False(t, got.IsActive)
		assert.NoError(t, got.CheckPassword("password"))

		_, err = repo.UpdateUser(ctx, user.User{ID: "u42"})
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteUsersByID(ctx, john.ID, "u42"))
		_, err := repo.GetUserByID(ctx, john.ID)
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	})
}
