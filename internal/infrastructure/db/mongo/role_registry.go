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

const collectionRoles = "roles"

var _ ports.RoleRegistry = (*RoleRegistry)(nil)

// RoleRegistry implements ports.RoleRegistry. Roles are keyed by name in
// their own collection; memberships live on the user document.
type RoleRegistry struct {
	roles *mongo.Collection
	users *mongo.Collection
}

func NewRoleRegistry(db *mongo.Database) *RoleRegistry {
	return &RoleRegistry{
		roles: db.Collection(collectionRoles),
		users: db.Collection(collectionUsers),
	}
}

type mongoRole struct {
	Name      string    `bson:"_id"`
	CreatedAt time.Time `bson:"created_at"`
}

// EnsureRole upserts the role. Two concurrent upserts of the same name can
// race on _id; the loser sees a duplicate key error and reads the winner's row.
func (r *RoleRegistry) EnsureRole(ctx context.Context, name string) (*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"_id": name}
	update := bson.M{"$setOnInsert": bson.M{"created_at": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc mongoRole
	err := r.roles.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err != nil && mongo.IsDuplicateKeyError(err) {
		err = r.roles.FindOne(ctx, filter).Decode(&doc)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: ensure role %q: %w", domain.ErrStorage, name, err)
	}
	return &domain.Role{Name: doc.Name, CreatedAt: doc.CreatedAt.UTC()}, nil
}

func (r *RoleRegistry) Assign(ctx context.Context, userID, roleName string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{
		"$addToSet": bson.M{"roles": roleName},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := r.users.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return fmt.Errorf("%w: assign role: %w", domain.ErrStorage, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *RoleRegistry) RolesOf(ctx context.Context, userID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc struct {
		Roles []string `bson:"roles"`
	}
	opts := options.FindOne().SetProjection(bson.M{"roles": 1})
	if err := r.users.FindOne(ctx, bson.M{"_id": userID}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: roles of user: %w", domain.ErrStorage, err)
	}
	if doc.Roles == nil {
		return []string{}, nil
	}
	return doc.Roles, nil
}

func (r *RoleRegistry) List(ctx context.Context) ([]*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.roles.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%w: list roles: %w", domain.ErrStorage, err)
	}
	defer cur.Close(ctx)

	var docs []mongoRole
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: decode roles: %w", domain.ErrStorage, err)
	}
	roles := make([]*domain.Role, 0, len(docs))
	for _, d := range docs {
		roles = append(roles, &domain.Role{Name: d.Name, CreatedAt: d.CreatedAt.UTC()})
	}
	return roles, nil
}
