package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oicur0t/hal/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoConfig holds MongoDB connection settings
type MongoConfig struct {
	URI                string
	Database           string
	Collection         string
	CertificateKeyFile string
	Timeout            time.Duration
}

// Mongo keeps one document per parameter holding its latest value
type Mongo struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *zap.Logger
}

// NewMongo connects, pings and ensures the collection's indexes
func NewMongo(ctx context.Context, cfg MongoConfig, logger *zap.Logger) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	uri := cfg.URI
	clientOpts := options.Client().ApplyURI(uri)

	// X.509 authentication
	if cfg.CertificateKeyFile != "" {
		if strings.Contains(uri, "?") {
			uri = uri + "&tlsCertificateKeyFile=" + cfg.CertificateKeyFile
		} else {
			uri = uri + "?tlsCertificateKeyFile=" + cfg.CertificateKeyFile
		}
		clientOpts.SetAuth(options.Credential{
			AuthMechanism: "MONGODB-X509",
		})
		clientOpts.ApplyURI(uri)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	m := &Mongo{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		logger:     logger,
	}
	if err := m.ensureIndexes(ctx); err != nil {
		logger.Error("Failed to ensure indexes", zap.Error(err), zap.String("collection", cfg.Collection))
	}

	logger.Info("Connected to MongoDB",
		zap.String("database", cfg.Database),
		zap.String("collection", cfg.Collection))
	return m, nil
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "published_at", Value: -1}},
			Options: options.Index().SetName("updated_at"),
		},
		{
			Keys:    bson.D{{Key: "category", Value: 1}},
			Options: options.Index().SetName("category"),
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// Publish upserts the parameter's document
func (m *Mongo) Publish(ctx context.Context, u models.Update) error {
	filter, update := upsertDoc(u)
	_, err := m.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", u.Parameter, err)
	}

	m.logger.Debug("Update stored", zap.String("parameter", u.Parameter))
	return nil
}

// upsertDoc builds the filter and $set document for u
func upsertDoc(u models.Update) (bson.D, bson.D) {
	filter := bson.D{{Key: "_id", Value: u.Parameter}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "category", Value: u.Category},
		{Key: "value", Value: u.Value},
		{Key: "reading_time", Value: u.ReadingTime},
		{Key: "published_at", Value: u.PublishedAt},
	}}}
	return filter, update
}

// Close closes the MongoDB connection
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
