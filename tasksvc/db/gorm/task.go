package gorm

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ichigozero/todokit/tasksvc"
	stdgorm "gorm.io/gorm"
)

type taskRepository struct {
	db *stdgorm.DB
}

func NewTaskRepository(db *stdgorm.DB) tasksvc.TaskRepository {
	return &taskRepository{db}
}

func (t taskRepository) Create(ctx context.Context, task tasksvc.Task) (tasksvc.Task, error) {
	task.ID = uuid.NewString()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	task.UpdatedAt = task.CreatedAt
	result := t.db.WithContext(ctx).Create(&task)

	return task, result.Error
}

func (t taskRepository) FindAll(ctx context.Context, userID string) ([]tasksvc.Task, error) {
	tasks := []tasksvc.Task{}
	result := t.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc").Find(&tasks)

	return tasks, result.Error
}

func (t taskRepository) Find(ctx context.Context, userID, taskID string) (tasksvc.Task, error) {
	var task tasksvc.Task
	result := t.db.WithContext(ctx).Where("id = ? AND user_id = ?", taskID, userID).First(&task)
	if errors.Is(result.Error, stdgorm.ErrRecordNotFound) {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}

	return task, result.Error
}

// Update is a single UPDATE filtered by id and owner; no row means not found.
func (t taskRepository) Update(ctx context.Context, userID, taskID string, p tasksvc.Patch) (tasksvc.Task, error) {
	fields := map[string]interface{}{"updated_at": time.Now().UTC()}
	if p.Title != nil {
		fields["title"] = *p.Title
	}
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	if p.Completed != nil {
		fields["completed"] = *p.Completed
	}

	result := t.db.WithContext(ctx).
		Model(&tasksvc.Task{}).
		Where("id = ? AND user_id = ?", taskID, userID).
		Updates(fields)
	if result.Error != nil {
		return tasksvc.Task{}, result.Error
	}
	if result.RowsAffected == 0 {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}

	return t.Find(ctx, userID, taskID)
}

func (t taskRepository) Delete(ctx context.Context, userID, taskID string) error {
	result := t.db.WithContext(ctx).Where("id = ? AND user_id = ?", taskID, userID).Delete(&tasksvc.Task{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return tasksvc.ErrTaskNotFound
	}
	return nil
}
