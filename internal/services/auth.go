package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"chain-gateway/internal/config"
	"chain-gateway/internal/models"
	"chain-gateway/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

var (
	ErrInvalidAPIKey  = errors.New("invalid API key")
	ErrInactiveAPIKey = errors.New("API key is inactive")
	ErrDatabaseError  = errors.New("database error")
)

// AuthService handles API key authentication using MongoDB
type AuthService struct {
	client     *mongo.Client
	db         *mongo.Database
	collection *mongo.Collection
	config     *config.MongoDBConfig
}

// connectMongo opens a pooled client and verifies it with a ping
func connectMongo(ctx context.Context, cfg *config.MongoDBConfig) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(cfg.URI)

	clientOptions.SetMaxPoolSize(cfg.MaxPoolSize)
	clientOptions.SetMinPoolSize(cfg.MaxPoolSize / 4)
	clientOptions.SetMaxConnIdleTime(30 * time.Minute)
	clientOptions.SetMaxConnecting(cfg.MaxPoolSize / 2)

	clientOptions.SetConnectTimeout(cfg.ConnectTimeout)
	clientOptions.SetSocketTimeout(30 * time.Second)
	clientOptions.SetServerSelectionTimeout(5 * time.Second)
	clientOptions.SetHeartbeatInterval(10 * time.Second)

	clientOptions.SetReadPreference(readpref.SecondaryPreferred())
	clientOptions.SetRetryWrites(true)
	clientOptions.SetRetryReads(true)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

// NewAuthService connects to MongoDB and makes sure the key indexes exist
func NewAuthService(ctx context.Context, cfg *config.MongoDBConfig) (*AuthService, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := connectMongo(ctx, cfg)
	if err != nil {
		return nil, err
	}

	db := client.Database(cfg.Database)
	a := &AuthService{
		client:     client,
		db:         db,
		collection: db.Collection(cfg.APIKeyCollection),
		config:     cfg,
	}

	if err := a.EnsureIndexes(ctx); err != nil {
		// a read-only user cannot create indexes; lookups still work
		logger.GetLogger().Warn("Could not ensure API key indexes", zap.Error(err))
	}
	return a, nil
}

// EnsureIndexes creates the unique key index and the active lookup indexes
func (a *AuthService) EnsureIndexes(ctx context.Context) error {
	_, err := a.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "active", Value: 1}},
		},
		{
			Keys: bson.D{
				{Key: "key", Value: 1},
				{Key: "active", Value: 1},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create API key indexes: %w", err)
	}
	return nil
}

// ValidateAPIKey validates an API key against the MongoDB database
func (a *AuthService) ValidateAPIKey(ctx context.Context, key string) (*models.APIKey, error) {
	if key == "" {
		return nil, ErrInvalidAPIKey
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var apiKey models.APIKey
	err := a.collection.FindOne(ctx, bson.M{"key": key}).Decode(&apiKey)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInvalidAPIKey
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	if !apiKey.Active {
		return nil, ErrInactiveAPIKey
	}

	go a.updateLastUsed(apiKey.ID)

	return &apiKey, nil
}

// updateLastUsed updates the last_used timestamp for an API key
func (a *AuthService) updateLastUsed(id interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{"last_used": time.Now()}}
	if _, err := a.collection.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		logger.GetLogger().Debug("Failed to update API key last_used", zap.Error(err))
	}
}

// CreateAPIKey stores a new random key. The plaintext key is only available
// on the returned value.
func (a *AuthService) CreateAPIKey(ctx context.Context, name string, active bool) (*models.APIKey, error) {
	key, err := GenerateAPIKey()
	if err != nil {
		return nil, err
	}
	apiKey := &models.APIKey{
		Key:       key,
		Name:      name,
		Active:    active,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.InsertAPIKeys(ctx, apiKey); err != nil {
		return nil, err
	}
	return apiKey, nil
}

// InsertAPIKeys stores the given keys as-is
func (a *AuthService) InsertAPIKeys(ctx context.Context, keys ...*models.APIKey) error {
	documents := make([]interface{}, 0, len(keys))
	for _, k := range keys {
		documents = append(documents, k)
	}
	if _, err := a.collection.InsertMany(ctx, documents); err != nil {
		return fmt.Errorf("%w: insert API keys: %v", ErrDatabaseError, err)
	}
	return nil
}

// CountAPIKeys returns the number of stored keys
func (a *AuthService) CountAPIKeys(ctx context.Context) (int64, error) {
	count, err := a.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("%w: count API keys: %v", ErrDatabaseError, err)
	}
	return count, nil
}

// SetActive enables or disables a key
func (a *AuthService) SetActive(ctx context.Context, key string, active bool) error {
	res, err := a.collection.UpdateOne(ctx, bson.M{"key": key}, bson.M{"$set": bson.M{"active": active}})
	if err != nil {
		return fmt.Errorf("%w: update API key: %v", ErrDatabaseError, err)
	}
	if res.MatchedCount == 0 {
		return ErrInvalidAPIKey
	}
	return nil
}

// Ping checks the MongoDB connection
func (a *AuthService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx, nil)
}

// Client exposes the underlying MongoDB client for health checks
func (a *AuthService) Client() *mongo.Client {
	return a.client
}

// Close closes the MongoDB connection
func (a *AuthService) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return a.client.Disconnect(ctx)
}

// GenerateAPIKey returns a cryptographically secure random API key
func GenerateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate API key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
