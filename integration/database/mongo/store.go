// Package mongo implements the required auth.UserStore capability on
// MongoDB. It deliberately omits the optional session capability, so a
// service over this store runs in pure-token mode; pair it with the Redis
// revoker when sign-out must invalidate live tokens.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/authkit/core/auth"
)

// Config provides environment-based configuration for the Mongo connection.
type Config struct {
	ConnectionURL  string        `env:"MONGO_URL,required"`
	Database       string        `env:"MONGO_DATABASE" envDefault:"authkit"`
	ConnectTimeout time.Duration `env:"MONGO_CONNECT_TIMEOUT" envDefault:"30s"`
}

// usersCollection is where user documents live.
const usersCollection = "users"

// userDoc is the BSON shape of a stored user.
type userDoc struct {
	ID          string         `bson:"_id"`
	Email       string         `bson:"email"`
	Name        string         `bson:"name,omitempty"`
	Roles       []string       `bson:"roles"`
	Permissions []string       `bson:"permissions"`
	Metadata    map[string]any `bson:"metadata,omitempty"`
	CreatedAt   time.Time      `bson:"created_at"`
	UpdatedAt   time.Time      `bson:"updated_at"`
}

func (d userDoc) toUser() *auth.User {
	return &auth.User{
		ID:          d.ID,
		Email:       d.Email,
		Name:        d.Name,
		Roles:       d.Roles,
		Permissions: d.Permissions,
		Metadata:    d.Metadata,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// Store is a MongoDB-backed auth.UserStore.
type Store struct {
	users *mongo.Collection
}

// Connect opens a client, verifies connectivity, and ensures the unique
// email index the duplicate-signup path relies on.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, error) {
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.ConnectionURL))
	if err != nil {
		return nil, fmt.Errorf("mongo: failed to connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping failed: %w", err)
	}
	return client, nil
}

// NewStore creates a Store over the configured database and ensures the
// unique index on email.
func NewStore(ctx context.Context, client *mongo.Client, database string) (*Store, error) {
	users := client.Database(database).Collection(usersCollection)
	_, err := users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("mongo: failed to ensure email index: %w", err)
	}
	return &Store{users: users}, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*auth.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *Store) CreateUser(ctx context.Context, user *auth.User) (*auth.User, error) {
	_, err := s.users.InsertOne(ctx, userDoc{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		Roles:       user.Roles,
		Permissions: user.Permissions,
		Metadata:    user.Metadata,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, auth.ErrStoreDuplicateEmail
		}
		return nil, fmt.Errorf("mongo: failed to create user: %w", err)
	}
	return user, nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, update auth.UserUpdate) (*auth.User, error) {
	set := bson.M{"updated_at": time.Now()}
	if update.Email != nil {
		set["email"] = *update.Email
	}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Roles != nil {
		set["roles"] = update.Roles
	}
	if update.Permissions != nil {
		set["permissions"] = update.Permissions
	}
	for k, v := range update.Metadata {
		set["metadata."+k] = v
	}

	res := s.users.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var doc userDoc
	if err := res.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, auth.ErrStoreUserNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, auth.ErrStoreDuplicateEmail
		}
		return nil, fmt.Errorf("mongo: failed to update user: %w", err)
	}
	return doc.toUser(), nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	if _, err := s.users.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("mongo: failed to delete user: %w", err)
	}
	return nil
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*auth.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, auth.ErrStoreUserNotFound
		}
		return nil, fmt.Errorf("mongo: failed to find user: %w", err)
	}
	return doc.toUser(), nil
}
