package mongodb

import (
	"context"

	"github.com/pilab-dev/shadow-auth/domain"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// RoleRepository implements domain.RoleRepository over the roles collection.
type RoleRepository struct {
	roles *mongo.Collection
}

var _ domain.RoleRepository = (*RoleRepository)(nil)

func NewRoleRepository(db *mongo.Database) *RoleRepository {
	return &RoleRepository{roles: db.Collection(RolesCollection)}
}

// DefaultRoles returns the names of the roles flagged as default, sorted by name.
// When none are flagged new accounts get the USER role.
func (r *RoleRepository) DefaultRoles(ctx context.Context) ([]string, error) {
	cursor, err := r.roles.Find(ctx, bson.M{"is_default": true},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var roles []domain.Role
	if err := cursor.All(ctx, &roles); err != nil {
		return nil, err
	}

	if len(roles) == 0 {
		log.Warn().Msg("No default roles configured, falling back to USER")
		return []string{domain.RoleUser}, nil
	}

	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, role.Name)
	}

	return names, nil
}

// EnsureRole upserts role by id.
func (r *RoleRepository) EnsureRole(ctx context.Context, role domain.Role) error {
	_, err := r.roles.ReplaceOne(ctx, bson.M{"_id": role.ID}, role, options.Replace().SetUpsert(true))
	return err
}

// SeedDefaultRoles creates the standard roles when they are missing. USER is the default.
func (r *RoleRepository) SeedDefaultRoles(ctx context.Context) error {
	seed := []domain.Role{
		{ID: domain.RoleUser, Name: domain.RoleUser, Description: "Regular account", IsDefault: true},
		{ID: domain.RoleAdmin, Name: domain.RoleAdmin, Description: "Administrator"},
	}
	for _, role := range seed {
		count, err := r.roles.CountDocuments(ctx, bson.M{"_id": role.ID})
		if err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := r.EnsureRole(ctx, role); err != nil {
			return err
		}
	}

	return nil
}
