package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gogotex/secrets/internal/database"
	"github.com/gogotex/secrets/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrDuplicateAccount   = errors.New("account already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrStorageUnavailable = errors.New("identity store unavailable")
)

// UserRepository defines persistence operations for users.
// Lookups return (nil, nil) when no record matches.
type UserRepository interface {
	Create(ctx context.Context, u *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	FindOrCreateByGoogleID(ctx context.Context, googleID string) (*models.User, bool, error)
}

// MongoUserRepository implements UserRepository using MongoDB
type MongoUserRepository struct {
	col *mongo.Collection
}

// NewMongoUserRepository creates a new repository for the given collection and
// ensures the sparse unique indexes on username and googleId.
func NewMongoUserRepository(ctx context.Context, col *mongo.Collection) (*MongoUserRepository, error) {
	idx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		{Keys: bson.D{{Key: "googleId", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
	}
	if _, err := col.Indexes().CreateMany(ctx, idx); err != nil {
		return nil, fmt.Errorf("create user indexes: %w", classify(err))
	}
	return &MongoUserRepository{col: col}, nil
}

func (r *MongoUserRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	now := time.Now().UTC()
	doc := *u
	doc.ID = ""
	doc.CreatedAt = now
	doc.UpdatedAt = now
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateAccount
		}
		return nil, classify(err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid.Hex()
	}
	return &doc, nil
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *MongoUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

// FindOrCreateByGoogleID upserts on googleId with $setOnInsert, so an
// existing record is never modified. The boolean result is true when a new
// record was inserted.
func (r *MongoUserRepository) FindOrCreateByGoogleID(ctx context.Context, googleID string) (*models.User, bool, error) {
	now := time.Now().UTC()
	filter := bson.M{"googleId": googleID}
	update := bson.M{"$setOnInsert": bson.M{
		"googleId":  googleID,
		"createdAt": now,
		"updatedAt": now,
	}}
	created := false
	res, err := r.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	switch {
	case err == nil:
		created = res.UpsertedCount > 0
	case mongo.IsDuplicateKeyError(err):
		// lost a race against a concurrent upsert; the winner's record is read below
	default:
		return nil, false, classify(err)
	}
	u, err := r.findOne(ctx, filter)
	if err != nil {
		return nil, false, err
	}
	if u == nil {
		return nil, false, fmt.Errorf("user with googleId %q missing after upsert", googleID)
	}
	return u, created, nil
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, classify(err)
	}
	return &u, nil
}

// classify maps connectivity failures onto ErrStorageUnavailable.
func classify(err error) error {
	if database.IsUnavailable(err) {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return err
}
