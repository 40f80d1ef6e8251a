package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const defaultConnectTimeout = 10 * time.Second

// Connect dials the deployment at uri and verifies it by pinging the primary.
// A failed ping disconnects the client before returning.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	log.Info().Msg("Initializing MongoDB client")

	clientOptions := options.Client().ApplyURI(uri)
	clientOptions.SetConnectTimeout(defaultConnectTimeout)
	clientOptions.SetServerSelectionTimeout(defaultConnectTimeout)

	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)

		return nil, fmt.Errorf("ping mongodb primary: %w", err)
	}

	log.Info().Msg("MongoDB client initialized successfully.")

	return client, nil
}

// Disconnect closes the client, logging instead of failing on error.
func Disconnect(ctx context.Context, client *mongo.Client) {
	if client == nil {
		return
	}
	if err := client.Disconnect(ctx); err != nil {
		log.Error().Err(err).Msg("Error disconnecting MongoDB client")
		return
	}
	log.Info().Msg("MongoDB client disconnected.")
}

// Repositories groups the stores backed by one database.
type Repositories struct {
	Users    *UserRepository
	Profiles *ProfileRepository
	Roles    *RoleRepository
}

// NewRepositories builds every repository on db and ensures their indexes.
func NewRepositories(ctx context.Context, db *mongo.Database) (*Repositories, error) {
	users, err := NewUserRepository(ctx, db)
	if err != nil {
		return nil, err
	}
	profiles, err := NewProfileRepository(ctx, db)
	if err != nil {
		return nil, err
	}

	return &Repositories{
		Users:    users,
		Profiles: profiles,
		Roles:    NewRoleRepository(db),
	}, nil
}
