package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ichigozero/todokit/usersvc"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	libmongo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collection = "users"

type userDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Password  string             `bson:"password"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (d userDocument) user() usersvc.User {
	return usersvc.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.Password,
		CreatedAt:    d.CreatedAt.UTC(),
	}
}

type userRepository struct {
	users *libmongo.Collection
}

// NewUserRepository ensures the unique email index exists before returning.
func NewUserRepository(ctx context.Context, db *libmongo.Database) (usersvc.UserRepository, error) {
	users := db.Collection(collection)
	_, err := users.Indexes().CreateOne(ctx, libmongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("create users index: %w", err)
	}
	return &userRepository{users}, nil
}

func (r *userRepository) Create(ctx context.Context, user usersvc.User) (usersvc.User, error) {
	doc := userDocument{
		ID:        primitive.NewObjectID(),
		Name:      user.Name,
		Email:     usersvc.NormalizeEmail(user.Email),
		Password:  user.PasswordHash,
		CreatedAt: user.CreatedAt,
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	if _, err := r.users.InsertOne(ctx, doc); err != nil {
		if libmongo.IsDuplicateKeyError(err) {
			return usersvc.User{}, usersvc.ErrEmailTaken
		}
		return usersvc.User{}, fmt.Errorf("insert user: %w", err)
	}
	return doc.user(), nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (usersvc.User, error) {
	return r.findOne(ctx, bson.M{"email": usersvc.NormalizeEmail(email)})
}

func (r *userRepository) Find(ctx context.Context, id string) (usersvc.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return usersvc.User{}, usersvc.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *userRepository) findOne(ctx context.Context, filter bson.M) (usersvc.User, error) {
	var doc userDocument
	err := r.users.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, libmongo.ErrNoDocuments) {
		return usersvc.User{}, usersvc.ErrUserNotFound
	}
	if err != nil {
		return usersvc.User{}, err
	}
	return doc.user(), nil
}
