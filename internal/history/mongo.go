package history

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/SecondPrice/internal/config"
)

// Mongo stores events in a MongoDB collection, one document per search.
type Mongo struct {
	client     *mongo.Client
	collection *mongo.Collection
	count      atomic.Int64
	logger     *slog.Logger
}

// NewMongo connects and pings the server.
func NewMongo(ctx context.Context, cfg config.MongoConfig, logger *slog.Logger) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	return &Mongo{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		logger:     logger.With("component", "mongo_history"),
	}, nil
}

func (m *Mongo) Name() string { return "mongodb" }

func (m *Mongo) Record(ctx context.Context, ev Event) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := m.collection.InsertOne(ctx, ev); err != nil {
		return fmt.Errorf("mongodb insert: %w", err)
	}
	m.count.Add(1)
	m.logger.Debug("search recorded", "keyword", ev.Keyword, "total", m.count.Load())
	return nil
}

// Recent returns the latest events for keyword, newest first. An empty
// keyword matches every search.
func (m *Mongo) Recent(ctx context.Context, keyword string, limit int64) ([]Event, error) {
	filter := bson.M{}
	if keyword != "" {
		filter["keyword"] = keyword
	}
	cur, err := m.collection.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "at", Value: -1}}).
		SetLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("mongodb find: %w", err)
	}
	defer cur.Close(ctx)

	var events []Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("mongodb decode: %w", err)
	}
	return events, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	m.logger.Info("mongodb history closing", "recorded", m.count.Load())
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
