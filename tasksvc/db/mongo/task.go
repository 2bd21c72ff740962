package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ichigozero/todokit/tasksvc"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	libmongo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collection = "tasks"

type taskDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Completed   bool               `bson:"completed"`
	User        string             `bson:"user"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d taskDocument) task() tasksvc.Task {
	return tasksvc.Task{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Completed:   d.Completed,
		UserID:      d.User,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

type taskRepository struct {
	tasks *libmongo.Collection
}

// NewTaskRepository ensures the owner/creation index exists before returning.
func NewTaskRepository(ctx context.Context, db *libmongo.Database) (tasksvc.TaskRepository, error) {
	tasks := db.Collection(collection)
	_, err := tasks.Indexes().CreateOne(ctx, libmongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return nil, fmt.Errorf("create tasks index: %w", err)
	}
	return &taskRepository{tasks}, nil
}

func (r *taskRepository) Create(ctx context.Context, task tasksvc.Task) (tasksvc.Task, error) {
	doc := taskDocument{
		ID:          primitive.NewObjectID(),
		Title:       task.Title,
		Description: task.Description,
		Completed:   task.Completed,
		User:        task.UserID,
		CreatedAt:   task.CreatedAt,
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	doc.UpdatedAt = doc.CreatedAt

	if _, err := r.tasks.InsertOne(ctx, doc); err != nil {
		return tasksvc.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return doc.task(), nil
}

func (r *taskRepository) FindAll(ctx context.Context, userID string) ([]tasksvc.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.tasks.Find(ctx, bson.M{"user": userID}, opts)
	if err != nil {
		return nil, err
	}

	var docs []taskDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	tasks := make([]tasksvc.Task, 0, len(docs))
	for _, d := range docs {
		tasks = append(tasks, d.task())
	}
	return tasks, nil
}

func (r *taskRepository) Find(ctx context.Context, userID, taskID string) (tasksvc.Task, error) {
	filter, ok := ownedBy(userID, taskID)
	if !ok {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}

	var doc taskDocument
	if err := r.tasks.FindOne(ctx, filter).Decode(&doc); err != nil {
		return tasksvc.Task{}, notFound(err)
	}
	return doc.task(), nil
}

// Update applies the patch with one FindOneAndUpdate filtered by id and owner.
func (r *taskRepository) Update(ctx context.Context, userID, taskID string, p tasksvc.Patch) (tasksvc.Task, error) {
	filter, ok := ownedBy(userID, taskID)
	if !ok {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.Completed != nil {
		set["completed"] = *p.Completed
	}

	var doc taskDocument
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := r.tasks.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&doc); err != nil {
		return tasksvc.Task{}, notFound(err)
	}
	return doc.task(), nil
}

func (r *taskRepository) Delete(ctx context.Context, userID, taskID string) error {
	filter, ok := ownedBy(userID, taskID)
	if !ok {
		return tasksvc.ErrTaskNotFound
	}

	res, err := r.tasks.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return tasksvc.ErrTaskNotFound
	}
	return nil
}

func ownedBy(userID, taskID string) (bson.M, bool) {
	oid, err := primitive.ObjectIDFromHex(taskID)
	if err != nil {
		return nil, false
	}
	return bson.M{"_id": oid, "user": userID}, true
}

func notFound(err error) error {
	if errors.Is(err, libmongo.ErrNoDocuments) {
		return tasksvc.ErrTaskNotFound
	}
	return err
}
