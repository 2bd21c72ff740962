package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/ichigozero/todokit/tasksvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

const ns = "todo.tasks"

func newTestRepository(mt *mtest.T) tasksvc.TaskRepository {
	mt.AddMockResponses(mtest.CreateSuccessResponse())
	repo, err := NewTaskRepository(context.Background(), mt.DB)
	require.NoError(mt, err)

	index := mt.GetStartedEvent()
	require.NotNil(mt, index)
	assert.Equal(mt, "createIndexes", index.CommandName)

	mt.ClearEvents()
	return repo
}

func taskDoc(id primitive.ObjectID, title string, completed bool, createdAt time.Time) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "title", Value: title},
		{Key: "description", Value: ""},
		{Key: "completed", Value: completed},
		{Key: "user", Value: "ann"},
		{Key: "createdAt", Value: createdAt},
		{Key: "updatedAt", Value: createdAt},
	}
}

func lookup(mt *mtest.T, cmd bson.Raw, key string) bson.M {
	mt.Helper()

	var m bson.M
	require.NoError(mt, cmd.Lookup(key).Unmarshal(&m))
	return m
}

func TestTaskRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	mt.Run("create", func(mt *mtest.T) {
		repo := newTestRepository(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		task, err := repo.Create(ctx, tasksvc.Task{Title: "Walk dog", UserID: "ann"})
		require.NoError(mt, err)
		assert.Len(mt, task.ID, 24)
		assert.False(mt, task.CreatedAt.IsZero())
		assert.Equal(mt, task.CreatedAt, task.UpdatedAt)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "insert", evt.CommandName)
	})

	mt.Run("find all sorts newest first", func(mt *mtest.T) {
		repo := newTestRepository(mt)
		newer, older := primitive.NewObjectID(), primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			taskDoc(newer, "new", false, now.Add(time.Minute)),
			taskDoc(older, "old", true, now),
		))

		tasks, err := repo.FindAll(ctx, "ann")
		require.NoError(mt, err)
		require.Len(mt, tasks, 2)
		assert.Equal(mt, newer.Hex(), tasks[0].ID)
		assert.Equal(mt, "ann", tasks[0].UserID)
		assert.True(mt, tasks[1].Completed)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "find", evt.CommandName)
		assert.Equal(mt, bson.M{"user": "ann"}, lookup(mt, evt.Command, "filter"))

		var sort bson.D
		require.NoError(mt, evt.Command.Lookup("sort").Unmarshal(&sort))
		require.NotEmpty(mt, sort)
		assert.Equal(mt, "createdAt", sort[0].Key)
		assert.EqualValues(mt, -1, sort[0].Value)
	})

	mt.Run("find all empty is not nil", func(mt *mtest.T) {
		repo := newTestRepository(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		tasks, err := repo.FindAll(ctx, "nobody")
		require.NoError(mt, err)
		assert.NotNil(mt, tasks)
		assert.Empty(mt, tasks)
	})

	mt.Run("malformed id is not found without a round trip", func(mt *mtest.T) {
		repo := newTestRepository(mt)
		done := true

		_, err := repo.Find(ctx, "ann", "not-an-object-id")
		assert.Equal(mt, tasksvc.ErrTaskNotFound, err)
		_, err = repo.Update(ctx, "ann", "not-an-object-id", tasksvc.Patch{Completed: &done})
		assert.Equal(mt, tasksvc.ErrTaskNotFound, err)
		assert.Equal(mt, tasksvc.ErrTaskNotFound, repo.Delete(ctx, "ann", "not-an-object-id"))

		assert.Nil(mt, mt.GetStartedEvent())
	})

	mt.Run("update is owner scoped and returns the new document", func(mt *mtest.T) {
		repo := newTestRepository(mt)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "value", Value: taskDoc(id, "Walk dog", true, now)},
		))

		done := true
		task, err := repo.Update(ctx, "ann", id.Hex(), tasksvc.Patch{Completed: &done})
		require.NoError(mt, err)
		assert.True(mt, task.Completed)
		assert.Equal(mt, "Walk dog", task.Title)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "findAndModify", evt.CommandName)
		assert.Equal(mt, bson.M{"_id": id, "user": "ann"}, lookup(mt, evt.Command, "query"))
		assert.True(mt, evt.Command.Lookup("new").Boolean())

		set := lookup(mt, evt.Command, "update")["$set"].(bson.M)
		assert.Equal(mt, true, set["completed"])
		assert.Contains(mt, set, "updatedAt")
		assert.NotContains(mt, set, "title")
		assert.NotContains(mt, set, "description")
	})

	mt.Run("update of a missing or foreign task is not found", func(mt *mtest.T) {
		repo := newTestRepository(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		title := "mine now"
		_, err := repo.Update(ctx, "bob", primitive.NewObjectID().Hex(), tasksvc.Patch{Title: &title})
		assert.Equal(mt, tasksvc.ErrTaskNotFound, err)
	})

	mt.Run("find", func(mt *mtest.T) {
		repo := newTestRepository(mt)
		id := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, taskDoc(id, "Walk dog", false, now)),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
		)

		task, err := repo.Find(ctx, "ann", id.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, id.Hex(), task.ID)
		assert.True(mt, now.Equal(task.CreatedAt))

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, bson.M{"_id": id, "user": "ann"}, lookup(mt, evt.Command, "filter"))

		_, err = repo.Find(ctx, "bob", id.Hex())
		assert.Equal(mt, tasksvc.ErrTaskNotFound, err)
	})

	mt.Run("delete", func(mt *mtest.T) {
		repo := newTestRepository(mt)
		id := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
		)

		require.NoError(mt, repo.Delete(ctx, "ann", id.Hex()))

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "delete", evt.CommandName)

		var deletes []bson.M
		require.NoError(mt, evt.Command.Lookup("deletes").Unmarshal(&deletes))
		require.Len(mt, deletes, 1)
		assert.Equal(mt, bson.M{"_id": id, "user": "ann"}, deletes[0]["q"])

		assert.Equal(mt, tasksvc.ErrTaskNotFound, repo.Delete(ctx, "ann", id.Hex()))
	})
}
