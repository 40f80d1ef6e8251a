package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pilab-dev/shadow-auth/domain"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// emailCollation makes email comparisons case-insensitive. Queries must pass the
// same collation to be served by the unique index.
var emailCollation = &options.Collation{Locale: "en", Strength: 2}

// UserRepository implements domain.UserRepository.
type UserRepository struct {
	users *mongo.Collection
}

var _ domain.UserRepository = (*UserRepository)(nil)

// NewUserRepository returns a repository on the users collection of db.
func NewUserRepository(ctx context.Context, db *mongo.Database) (*UserRepository, error) {
	repo := &UserRepository{users: db.Collection(UsersCollection)}
	if err := repo.createIndexes(ctx); err != nil {
		return nil, err
	}

	return repo, nil
}

func (r *UserRepository) createIndexes(ctx context.Context) error {
	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetCollation(emailCollation),
		},
	}

	if _, err := r.users.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes for users collection: %w", err)
	}
	log.Debug().Msg("Indexes for users collection ensured.")

	return nil
}

// CreateUser inserts user. A duplicate email yields domain.ErrUserAlreadyExists.
func (r *UserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	if _, err := r.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrUserAlreadyExists
		}
		log.Error().Err(err).Str("userID", user.ID).Msg("Error creating user in MongoDB")

		return err
	}

	return nil
}

// GetUserByID retrieves a user by id.
func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id}, options.FindOne())
}

// GetUserByEmail retrieves a user by email, ignoring case.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email}, options.FindOne().SetCollation(emailCollation))
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptionsBuilder) (*domain.User, error) {
	var user domain.User
	if err := r.users.FindOne(ctx, filter, opts).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		log.Error().Err(err).Msg("Error getting user from MongoDB")

		return nil, err
	}

	return &user, nil
}

// ExistsByEmail reports whether an account uses email, ignoring case.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	count, err := r.users.CountDocuments(ctx, bson.M{"email": email},
		options.Count().SetLimit(1).SetCollation(emailCollation))
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// UpdateUser replaces the stored user with the same id.
func (r *UserRepository) UpdateUser(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		return errors.New("user ID is required for update")
	}
	user.UpdatedAt = time.Now().UTC()

	result, err := r.users.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrUserAlreadyExists
		}
		log.Error().Err(err).Str("userID", user.ID).Msg("Error updating user in MongoDB")

		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}

	return nil
}
