package taskservice

import (
	"context"
	"strings"

	"github.com/go-kit/kit/log"
	"github.com/ichigozero/todokit/tasksvc"
)

type Service interface {
	CreateTask(ctx context.Context, a tasksvc.Auth, title, description string) (tasksvc.Task, error)
	Tasks(ctx context.Context, a tasksvc.Auth) ([]tasksvc.Task, error)
	Task(ctx context.Context, a tasksvc.Auth, taskID string) (tasksvc.Task, error)
	UpdateTask(ctx context.Context, a tasksvc.Auth, taskID string, p tasksvc.Patch) (tasksvc.Task, error)
	DeleteTask(ctx context.Context, a tasksvc.Auth, taskID string) (bool, error)
}

func New(t tasksvc.TaskRepository, logger log.Logger) Service {
	var svc Service
	{
		svc = NewBasicService(t)
		svc = LoggingMiddleware(logger)(svc)
	}
	return svc
}

type basicService struct {
	tasks tasksvc.TaskRepository
}

func NewBasicService(t tasksvc.TaskRepository) Service {
	return basicService{tasks: t}
}

func (s basicService) CreateTask(ctx context.Context, a tasksvc.Auth, title, description string) (tasksvc.Task, error) {
	if a.UserID == "" {
		return tasksvc.Task{}, tasksvc.ErrClaimsMissing
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return tasksvc.Task{}, tasksvc.ErrTitleRequired
	}
	return s.tasks.Create(ctx, tasksvc.Task{
		Title:       title,
		Description: strings.TrimSpace(description),
		UserID:      a.UserID,
	})
}

func (s basicService) Tasks(ctx context.Context, a tasksvc.Auth) ([]tasksvc.Task, error) {
	if a.UserID == "" {
		return nil, tasksvc.ErrClaimsMissing
	}
	return s.tasks.FindAll(ctx, a.UserID)
}

func (s basicService) Task(ctx context.Context, a tasksvc.Auth, taskID string) (tasksvc.Task, error) {
	if a.UserID == "" {
		return tasksvc.Task{}, tasksvc.ErrClaimsMissing
	}
	if taskID == "" {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}
	return s.tasks.Find(ctx, a.UserID, taskID)
}

// UpdateTask validates the patch before handing it to a single owner-scoped write.
func (s basicService) UpdateTask(ctx context.Context, a tasksvc.Auth, taskID string, p tasksvc.Patch) (tasksvc.Task, error) {
	if a.UserID == "" {
		return tasksvc.Task{}, tasksvc.ErrClaimsMissing
	}
	if taskID == "" {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}
	p, err := p.Normalize()
	if err != nil {
		return tasksvc.Task{}, err
	}
	return s.tasks.Update(ctx, a.UserID, taskID, p)
}

func (s basicService) DeleteTask(ctx context.Context, a tasksvc.Auth, taskID string) (bool, error) {
	if a.UserID == "" {
		return false, tasksvc.ErrClaimsMissing
	}
	if taskID == "" {
		return false, tasksvc.ErrTaskNotFound
	}
	if err := s.tasks.Delete(ctx, a.UserID, taskID); err != nil {
		return false, err
	}
	return true, nil
}
