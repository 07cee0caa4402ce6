package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/user"
	"github.com/trezcool/masomo-portal/storage/localstore"
	testutil "github.com/trezcool/masomo-portal/tests"
)

func newService(t *testing.T) (*user.Service, user.Repository) {
	t.Helper()
	repo := localstore.NewUserRepository(testutil.NewStore(), core.NewSequenceIDGen("u"))
	return user.NewService(repo, core.NewNopLogger()), repo
}

func TestNewUser_Validate(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t)
	testutil.CreateUser(t, repo, "John Doe", "john.doe", "john@example.com", "", user.RoleTeacher, true)

	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)

	valid := func() user.NewUser {
		return user.NewUser{
			Username:        " Jane.Smith ",
			Name:            "Jane Smith",
			Email:           "JANE@example.com",
			Role:            "Student",
			Password:        "correct-horse",
			PasswordConfirm: "correct-horse",
		}
	}

	tests := []struct {
		name      string
		mutate    func(nu *user.NewUser)
		wantField string
		wantMsg   string
	}{
		{name: "valid"},
		{name: "username required", mutate: func(nu *user.NewUser) { nu.Username = "  " }, wantField: "username", wantMsg: "this field is required"},
		{name: "username charset", mutate: func(nu *user.NewUser) { nu.Username = "jane smith" }, wantField: "username"},
		{name: "bad role", mutate: func(nu *user.NewUser) { nu.Role = "janitor" }, wantField: "role", wantMsg: "invalid role"},
		{name: "bad email", mutate: func(nu *user.NewUser) { nu.Email = "nope" }, wantField: "email"},
		{name: "password mismatch", mutate: func(nu *user.NewUser) { nu.PasswordConfirm = "other" }, wantField: "password_confirm"},
		{name: "short password", mutate: func(nu *user.NewUser) { nu.Password, nu.PasswordConfirm = "abc", "abc" }, wantField: "password"},
		{name: "numeric password", mutate: func(nu *user.NewUser) { nu.Password, nu.PasswordConfirm = "12345678", "12345678" }, wantField: "password"},
		{name: "password like username", mutate: func(nu *user.NewUser) { nu.Password, nu.PasswordConfirm = "jane.smith1", "jane.smith1" }, wantField: "password"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			nu := valid()
			if tc.mutate != nil {
				tc.mutate(&nu)
			}
			err := nu.Validate(ctx, validate, svc)
			if tc.wantField == "" {
				require.NoError(t, err)
				assert.Equal(t, "jane.smith", nu.Username)
				assert.Equal(t, "jane@example.com", nu.Email)
				assert.Equal(t, user.RoleStudent, nu.Role)
				return
			}
			verrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok, "want validation errors, got %v", err)
			assert.Equal(t, tc.wantField, verrs[0].Field())
			if tc.wantMsg != "" {
				assert.Equal(t, tc.wantMsg, verrs[0].Translate(translator))
			}
		})
	}

	t.Run("username taken", func(t *testing.T) {
		nu := valid()
		nu.Username = "John.Doe"
		err := nu.Validate(ctx, validate, svc)
		verr, ok := err.(*core.ValidationError)
		require.True(t, ok, "want *core.ValidationError, got %v", err)
		assert.Equal(t, "username", verr.Fields[0].Field)
	})
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t)
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	user.NowFunc = func() time.Time { return now }
	defer func() { user.NowFunc = time.Now }()

	active := testutil.CreateUser(t, repo, "Jane Smith", "jane.smith", "", "password", user.RoleStudent, true)
	testutil.CreateUser(t, repo, "Old Timer", "old.timer", "", "password", user.RoleStudent, false)

	tests := []struct {
		name    string
		uname   string
		pwd     string
		wantErr error
	}{
		{name: "ok", uname: " Jane.Smith", pwd: "password"},
		{name: "wrong password", uname: "jane.smith", pwd: "Password", wantErr: user.ErrInvalidCredentials},
		{name: "unknown user", uname: "nobody", pwd: "password", wantErr: user.ErrInvalidCredentials},
		{name: "deactivated", uname: "old.timer", pwd: "password", wantErr: user.ErrAccountDeactivated},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			usr, err := svc.Authenticate(ctx, tc.uname, tc.pwd)
			if tc.wantErr != nil {
				assert.Equal(t, tc.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, active.ID, usr.ID)
			assert.Equal(t, now, usr.LastLogin)
		})
	}
}

func TestService_adminOperations(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	created, err := svc.Seed(ctx)
	require.NoError(t, err)
	require.Len(t, created, 3)
	again, err := svc.Seed(ctx)
	require.NoError(t, err)
	assert.Empty(t, again, "seeding twice is a no-op")

	teachers, err := svc.Filter(ctx, user.QueryFilter{Role: " Teacher "})
	require.NoError(t, err)
	require.Len(t, teachers, 1)
	assert.Equal(t, "john.doe", teachers[0].Username)

	toggled, err := svc.ToggleActive(ctx, teachers[0].ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)
	_, err = svc.Authenticate(ctx, "john.doe", "password")
	assert.Equal(t, user.ErrAccountDeactivated, errors.Cause(err))

	err = svc.SetPassword(ctx, "jane.smith", "1234")
	assert.IsType(t, &core.ValidationError{}, err)
	require.NoError(t, svc.SetPassword(ctx, "jane.smith", "new-secret-pass"))
	_, err = svc.Authenticate(ctx, "jane.smith", "new-secret-pass")
	assert.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, teachers[0].ID))
	_, err = svc.GetByID(ctx, teachers[0].ID)
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
}
