package gorm

import (
	"context"
	"testing"
	"time"

	"github.com/ichigozero/todokit/tasksvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	stdgorm "gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *stdgorm.DB {
	t.Helper()

	db, err := stdgorm.Open(sqlite.Open(":memory:"), &stdgorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&tasksvc.Task{}))
	return db
}

func TestTaskRepository_CreateAndFindAll(t *testing.T) {
	repo := NewTaskRepository(openTestDB(t))
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i, title := range []string{"old", "new"} {
		_, err := repo.Create(ctx, tasksvc.Task{
			Title:     title,
			UserID:    "ann",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	_, err := repo.Create(ctx, tasksvc.Task{Title: "other", UserID: "bob"})
	require.NoError(t, err)

	tasks, err := repo.FindAll(ctx, "ann")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "new", tasks[0].Title)
	assert.Equal(t, "old", tasks[1].Title)
	assert.False(t, tasks[0].Completed)

	none, err := repo.FindAll(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestTaskRepository_UpdateIsOwnerScoped(t *testing.T) {
	repo := NewTaskRepository(openTestDB(t))
	ctx := context.Background()

	task, err := repo.Create(ctx, tasksvc.Task{Title: "Walk dog", Description: "park", UserID: "ann"})
	require.NoError(t, err)

	done := true
	_, err = repo.Update(ctx, "bob", task.ID, tasksvc.Patch{Completed: &done})
	assert.Equal(t, tasksvc.ErrTaskNotFound, err)

	updated, err := repo.Update(ctx, "ann", task.ID, tasksvc.Patch{Completed: &done})
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.Equal(t, "Walk dog", updated.Title)
	assert.Equal(t, "park", updated.Description)

	undone := false
	updated, err = repo.Update(ctx, "ann", task.ID, tasksvc.Patch{Completed: &undone})
	require.NoError(t, err)
	assert.False(t, updated.Completed)

	_, err = repo.Update(ctx, "ann", "missing", tasksvc.Patch{Completed: &done})
	assert.Equal(t, tasksvc.ErrTaskNotFound, err)
}

func TestTaskRepository_DeleteIsOwnerScoped(t *testing.T) {
	repo := NewTaskRepository(openTestDB(t))
	ctx := context.Background()

	task, err := repo.Create(ctx, tasksvc.Task{Title: "Walk dog", UserID: "ann"})
	require.NoError(t, err)

	assert.Equal(t, tasksvc.ErrTaskNotFound, repo.Delete(ctx, "bob", task.ID))

	_, err = repo.Find(ctx, "ann", task.ID)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, "ann", task.ID))
	assert.Equal(t, tasksvc.ErrTaskNotFound, repo.Delete(ctx, "ann", task.ID))

	_, err = repo.Find(ctx, "ann", task.ID)
	assert.Equal(t, tasksvc.ErrTaskNotFound, err)
}
