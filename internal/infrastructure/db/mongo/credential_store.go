package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/apiecommerce/identity-service/internal/core/domain"
	"github.com/apiecommerce/identity-service/internal/core/ports"
)

const collectionUsers = "users"

var _ ports.CredentialStore = (*CredentialStore)(nil)

// CredentialStore implements ports.CredentialStore using MongoDB. Uniqueness
// rides on the unique index over username_normalized (see EnsureIndexes).
type CredentialStore struct {
	col *mongo.Collection
}

func NewCredentialStore(db *mongo.Database) *CredentialStore {
	return &CredentialStore{col: db.Collection(collectionUsers)}
}

type mongoUser struct {
	ID                 string    `bson:"_id"`
	Username           string    `bson:"username"`
	UsernameNormalized string    `bson:"username_normalized"`
	DisplayName        string    `bson:"display_name"`
	PasswordHash       string    `bson:"password_hash"`
	Roles              []string  `bson:"roles"`
	CreatedAt          time.Time `bson:"created_at"`
	UpdatedAt          time.Time `bson:"updated_at"`
}

func toMongoUser(u *domain.User) mongoUser {
	return mongoUser{
		ID:                 u.ID,
		Username:           u.Username,
		UsernameNormalized: domain.NormalizeUsername(u.Username),
		DisplayName:        u.DisplayName,
		PasswordHash:       u.PasswordHash,
		Roles:              u.Roles,
		CreatedAt:          u.CreatedAt.UTC(),
		UpdatedAt:          u.UpdatedAt.UTC(),
	}
}

func (m mongoUser) toDomain() *domain.User {
	roles := m.Roles
	if roles == nil {
		roles = []string{}
	}
	return &domain.User{
		ID:           m.ID,
		Username:     m.Username,
		DisplayName:  m.DisplayName,
		PasswordHash: m.PasswordHash,
		Roles:        roles,
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}

func (r *CredentialStore) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toMongoUser(user)
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, mapInsertErr(err)
	}
	return doc.toDomain(), nil
}

// mapInsertErr turns a violation of the username_normalized unique index into
// domain.ErrDuplicateUsername.
func mapInsertErr(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrDuplicateUsername
	}
	return fmt.Errorf("%w: insert user: %w", domain.ErrStorage, err)
}

func (r *CredentialStore) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return r.findOne(ctx, bson.M{"username_normalized": domain.NormalizeUsername(username)})
}

func (r *CredentialStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *CredentialStore) Exists(ctx context.Context, username string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx,
		bson.M{"username_normalized": domain.NormalizeUsername(username)},
		options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("%w: count users: %w", domain.ErrStorage, err)
	}
	return n > 0, nil
}

func (r *CredentialStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("%w: delete user: %w", domain.ErrStorage, err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// List returns all users sorted by username.
func (r *CredentialStore) List(ctx context.Context) ([]*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "username", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%w: list users: %w", domain.ErrStorage, err)
	}
	defer cur.Close(ctx)

	var docs []mongoUser
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: decode users: %w", domain.ErrStorage, err)
	}
	users := make([]*domain.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.toDomain())
	}
	return users, nil
}

func (r *CredentialStore) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var mu mongoUser
	if err := r.col.FindOne(ctx, filter).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: find user: %w", domain.ErrStorage, err)
	}
	return mu.toDomain(), nil
}
