package inmem

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ichigozero/todokit/tasksvc"
)

type entry struct {
	task tasksvc.Task
	seq  uint64
}

type taskRepository struct {
	mtx   sync.RWMutex
	seq   uint64
	tasks map[string]entry
}

func NewTaskRepository() tasksvc.TaskRepository {
	return &taskRepository{tasks: make(map[string]entry)}
}

func (r *taskRepository) Create(_ context.Context, task tasksvc.Task) (tasksvc.Task, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	task.ID = uuid.NewString()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	task.UpdatedAt = task.CreatedAt

	r.seq++
	r.tasks[task.ID] = entry{task: task, seq: r.seq}
	return task, nil
}

// FindAll orders newest first; insertion order breaks timestamp ties.
func (r *taskRepository) FindAll(_ context.Context, userID string) ([]tasksvc.Task, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	var owned []entry
	for _, e := range r.tasks {
		if e.task.UserID == userID {
			owned = append(owned, e)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		a, b := owned[i], owned[j]
		if !a.task.CreatedAt.Equal(b.task.CreatedAt) {
			return a.task.CreatedAt.After(b.task.CreatedAt)
		}
		return a.seq > b.seq
	})

	tasks := make([]tasksvc.Task, 0, len(owned))
	for _, e := range owned {
		tasks = append(tasks, e.task)
	}
	return tasks, nil
}

func (r *taskRepository) Find(_ context.Context, userID, taskID string) (tasksvc.Task, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	e, ok := r.tasks[taskID]
	if !ok || e.task.UserID != userID {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}
	return e.task, nil
}

func (r *taskRepository) Update(_ context.Context, userID, taskID string, p tasksvc.Patch) (tasksvc.Task, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	e, ok := r.tasks[taskID]
	if !ok || e.task.UserID != userID {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}
	e.task = p.Apply(e.task)
	e.task.UpdatedAt = time.Now().UTC()
	r.tasks[taskID] = e

	return e.task, nil
}

func (r *taskRepository) Delete(_ context.Context, userID, taskID string) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	e, ok := r.tasks[taskID]
	if !ok || e.task.UserID != userID {
		return tasksvc.ErrTaskNotFound
	}
	delete(r.tasks, taskID)
	return nil
}
