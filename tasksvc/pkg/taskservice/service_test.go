package taskservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/ichigozero/todokit"
	"github.com/ichigozero/todokit/tasksvc"
	"github.com/ichigozero/todokit/tasksvc/inmem"
	"github.com/ichigozero/todokit/usersvc"
	"github.com/ichigozero/todokit/usersvc/pkg/userendpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ann = tasksvc.Auth{TokenID: "t1", UserID: "ann"}
	bob = tasksvc.Auth{TokenID: "t2", UserID: "bob"}
)

func strptr(s string) *string { return &s }
func boolptr(b bool) *bool    { return &b }

func TestCreateTask(t *testing.T) {
	svc := NewBasicService(inmem.NewTaskRepository())
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, ann, "  Buy milk ", " 2 litres ")
	require.NoError(t, err)

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "Buy milk", task.Title)
	assert.Equal(t, "2 litres", task.Description)
	assert.False(t, task.Completed)
	assert.Equal(t, "ann", task.UserID)
	assert.False(t, task.CreatedAt.IsZero())
}

func TestCreateTask_EmptyTitle(t *testing.T) {
	svc := NewBasicService(inmem.NewTaskRepository())
	ctx := context.Background()

	for _, title := range []string{"", "   ", "\t\n"} {
		_, err := svc.CreateTask(ctx, ann, title, "desc")
		assert.Equal(t, tasksvc.ErrTitleRequired, err)
		assert.Equal(t, todokit.Validation, todokit.KindOf(err))
	}

	tasks, err := svc.Tasks(ctx, ann)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestTasks_NewestFirst(t *testing.T) {
	repo := inmem.NewTaskRepository()
	svc := NewBasicService(repo)
	ctx := context.Background()

	base := time.Now().UTC()
	for i, title := range []string{"first", "second", "third"} {
		_, err := repo.Create(ctx, tasksvc.Task{
			Title:     title,
			UserID:    ann.UserID,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	tasks, err := svc.Tasks(ctx, ann)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "third", tasks[0].Title)
	assert.Equal(t, "second", tasks[1].Title)
	assert.Equal(t, "first", tasks[2].Title)
}

func TestTasks_EmptyIsNotNil(t *testing.T) {
	svc := NewBasicService(inmem.NewTaskRepository())

	tasks, err := svc.Tasks(context.Background(), ann)
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Len(t, tasks, 0)
}

func TestOwnerIsolation(t *testing.T) {
	svc := NewBasicService(inmem.NewTaskRepository())
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, ann, "secret", "")
	require.NoError(t, err)

	tasks, err := svc.Tasks(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	_, err = svc.Task(ctx, bob, task.ID)
	assert.Equal(t, tasksvc.ErrTaskNotFound, err)

	_, err = svc.UpdateTask(ctx, bob, task.ID, tasksvc.Patch{Title: strptr("mine now")})
	assert.Equal(t, tasksvc.ErrTaskNotFound, err)

	ok, err := svc.DeleteTask(ctx, bob, task.ID)
	assert.False(t, ok)
	assert.Equal(t, tasksvc.ErrTaskNotFound, err)

	got, err := svc.Task(ctx, ann, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "secret", got.Title)
}

func TestUpdateTask_CompletedOnly(t *testing.T) {
	svc := NewBasicService(inmem.NewTaskRepository())
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, ann, "Walk dog", "around the park")
	require.NoError(t, err)

	updated, err := svc.UpdateTask(ctx, ann, task.ID, tasksvc.Patch{Completed: boolptr(true)})
	require.NoError(t, err)

	assert.True(t, updated.Completed)
	assert.Equal(t, "Walk dog", updated.Title)
	assert.Equal(t, "around the park", updated.Description)
	assert.Equal(t, task.CreatedAt, updated.CreatedAt)
	assert.False(t, updated.UpdatedAt.Before(task.UpdatedAt))
}

func TestUpdateTask_Validation(t *testing.T) {
	svc := NewBasicService(inmem.NewTaskRepository())
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, ann, "Walk dog", "")
	require.NoError(t, err)

	_, err = svc.UpdateTask(ctx, ann, task.ID, tasksvc.Patch{Title: strptr("  ")})
	assert.Equal(t, tasksvc.ErrTitleRequired, err)

	got, err := svc.Task(ctx, ann, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Walk dog", got.Title)

	updated, err := svc.UpdateTask(ctx, ann, task.ID, tasksvc.Patch{Title: strptr(" Walk cat "), Description: strptr(" ")})
	require.NoError(t, err)
	assert.Equal(t, "Walk cat", updated.Title)
	assert.Equal(t, "", updated.Description)
}

func TestUpdateTask_NotFound(t *testing.T) {
	svc := NewBasicService(inmem.NewTaskRepository())
	ctx := context.Background()

	_, err := svc.UpdateTask(ctx, ann, "missing", tasksvc.Patch{Completed: boolptr(true)})
	assert.Equal(t, tasksvc.ErrTaskNotFound, err)
	assert.Equal(t, todokit.NotFound, todokit.KindOf(err))

	_, err = svc.UpdateTask(ctx, ann, "", tasksvc.Patch{})
	assert.Equal(t, tasksvc.ErrTaskNotFound, err)
}

func TestDeleteTask(t *testing.T) {
	svc := NewBasicService(inmem.NewTaskRepository())
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, ann, "Walk dog", "")
	require.NoError(t, err)

	ok, err := svc.DeleteTask(ctx, ann, task.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.Task(ctx, ann, task.ID)
	assert.Equal(t, tasksvc.ErrTaskNotFound, err)

	ok, err = svc.DeleteTask(ctx, ann, task.ID)
	assert.False(t, ok)
	assert.Equal(t, tasksvc.ErrTaskNotFound, err)
}

func TestMissingOwner(t *testing.T) {
	svc := NewBasicService(inmem.NewTaskRepository())
	ctx := context.Background()

	_, err := svc.CreateTask(ctx, tasksvc.Auth{}, "title", "")
	assert.Equal(t, tasksvc.ErrClaimsMissing, err)

	_, err = svc.Tasks(ctx, tasksvc.Auth{})
	assert.Equal(t, todokit.Auth, todokit.KindOf(err))
}

func isExists(known map[string]bool, fail error) endpoint.Endpoint {
	return func(_ context.Context, request interface{}) (interface{}, error) {
		req := request.(userendpoint.IsExistsRequest)
		if fail != nil {
			return userendpoint.IsExistsResponse{Err: fail}, nil
		}
		if !known[req.ID] {
			return userendpoint.IsExistsResponse{Err: usersvc.ErrUserNotFound}, nil
		}
		return userendpoint.IsExistsResponse{V: true}, nil
	}
}

func TestProxingMiddleware(t *testing.T) {
	ctx := context.Background()
	repo := inmem.NewTaskRepository()
	svc := ProxingMiddleware(isExists(map[string]bool{"ann": true}, nil))(NewBasicService(repo))

	_, err := svc.CreateTask(ctx, ann, "kept", "")
	require.NoError(t, err)

	_, err = svc.CreateTask(ctx, bob, "dropped", "")
	assert.Equal(t, tasksvc.ErrClaimsInvalid, err)

	tasks, err := repo.FindAll(ctx, bob.UserID)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestProxingMiddleware_PassesInternalErrors(t *testing.T) {
	boom := errors.New("connection refused")
	svc := ProxingMiddleware(isExists(nil, boom))(NewBasicService(inmem.NewTaskRepository()))

	_, err := svc.Tasks(context.Background(), ann)
	assert.Equal(t, boom, err)
	assert.Equal(t, todokit.Internal, todokit.KindOf(err))
}
