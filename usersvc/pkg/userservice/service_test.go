package userservice

import (
	"context"
	"testing"

	"github.com/ichigozero/todokit"
	"github.com/ichigozero/todokit/usersvc"
	"github.com/ichigozero/todokit/usersvc/inmem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newService() Service {
	return NewBasicService(inmem.NewUserRepository(), bcrypt.MinCost)
}

func TestCreateUser_HashesPasswordAndNormalizesEmail(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, "  Ann ", " Ann@X.com ", "pw123")
	require.NoError(t, err)

	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "Ann", u.Name)
	assert.Equal(t, "ann@x.com", u.Email)
	assert.NotEqual(t, "pw123", u.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("pw123")))
	assert.False(t, u.CreatedAt.IsZero())
}

func TestCreateUser_MissingFields(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	for _, args := range [][3]string{
		{"", "ann@x.com", "pw"},
		{"Ann", "  ", "pw"},
		{"Ann", "ann@x.com", ""},
	} {
		_, err := svc.CreateUser(ctx, args[0], args[1], args[2])
		assert.Equal(t, usersvc.ErrInvalidArgument, err, "args %q", args)
		assert.Equal(t, todokit.Validation, todokit.KindOf(err))
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	repo := inmem.NewUserRepository()
	svc := NewBasicService(repo, bcrypt.MinCost)
	ctx := context.Background()

	first, err := svc.CreateUser(ctx, "Ann", "ann@x.com", "pw123")
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, "Other Ann", "ANN@x.com", "other")
	assert.Equal(t, usersvc.ErrEmailTaken, err)

	stored, err := repo.FindByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
	assert.Equal(t, "Ann", stored.Name)
}

func TestUserID(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, "Ann", "ann@x.com", "pw123")
	require.NoError(t, err)

	id, err := svc.UserID(ctx, "ann@x.com", "pw123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)

	_, err = svc.UserID(ctx, "ann@x.com", "wrong")
	assert.Equal(t, usersvc.ErrInvalidCredentials, err)

	_, err = svc.UserID(ctx, "nobody@x.com", "pw123")
	assert.Equal(t, usersvc.ErrInvalidCredentials, err)

	_, err = svc.UserID(ctx, "", "pw123")
	assert.Equal(t, usersvc.ErrMissingCredentials, err)
}

func TestUserAndIsExists(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, "Ann", "ann@x.com", "pw123")
	require.NoError(t, err)

	got, err := svc.User(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u, got)

	ok, err := svc.IsExists(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.IsExists(ctx, "missing")
	assert.False(t, ok)
	assert.Equal(t, todokit.Auth, todokit.KindOf(err))
}
