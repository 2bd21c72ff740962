package gorm

import (
	"context"
	"testing"

	"github.com/ichigozero/todokit/usersvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	libgorm "gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *libgorm.DB {
	t.Helper()

	db, err := libgorm.Open(sqlite.Open(":memory:"), &libgorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&usersvc.User{}))
	return db
}

func TestUserRepository_CreateAndFind(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	ctx := context.Background()

	u, err := repo.Create(ctx, usersvc.User{Name: "Ann", Email: " ANN@x.com", PasswordHash: "hash"})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "ann@x.com", u.Email)

	byEmail, err := repo.FindByEmail(ctx, "Ann@X.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Equal(t, "hash", byEmail.PasswordHash)

	byID, err := repo.Find(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", byID.Name)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	ctx := context.Background()

	_, err := repo.Create(ctx, usersvc.User{Name: "Ann", Email: "ann@x.com", PasswordHash: "hash"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, usersvc.User{Name: "Bob", Email: "ann@x.com", PasswordHash: "hash"})
	assert.Equal(t, usersvc.ErrEmailTaken, err)
}

func TestUserRepository_NotFound(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	ctx := context.Background()

	_, err := repo.Find(ctx, "missing")
	assert.Equal(t, usersvc.ErrUserNotFound, err)

	_, err = repo.FindByEmail(ctx, "missing@x.com")
	assert.Equal(t, usersvc.ErrUserNotFound, err)
}
