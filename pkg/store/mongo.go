package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andrewsamuelsen/bowen/pkg/db"
	"github.com/andrewsamuelsen/bowen/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo keeps one document per user in a collection per kind, the fields
// stored at top level next to userId and updatedAt.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// OpenMongo connects to uri and pings the server.
func OpenMongo(ctx context.Context, uri, database string, timeout time.Duration) (*Mongo, error) {
	if database == "" {
		database = DefaultMongoDatabase
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return NewMongo(client, client.Database(database)), nil
}

func NewMongo(client *mongo.Client, database *mongo.Database) *Mongo {
	return &Mongo{client: client, db: database}
}

var storedOnly = []string{"_id", "userId", "updatedAt"}

func (s *Mongo) Get(ctx context.Context, collection, userID string) ([]byte, bool, error) {
	var doc bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"userId": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", collection, err)
	}
	for _, k := range storedOnly {
		delete(doc, k)
	}
	b, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return nil, false, fmt.Errorf("encode %s: %w", collection, err)
	}
	return b, true, nil
}

func (s *Mongo) Put(ctx context.Context, collection, userID string, body []byte) error {
	var fields bson.M
	if err := bson.UnmarshalExtJSON(body, false, &fields); err != nil {
		return fmt.Errorf("put %s: %w", collection, ErrNotObject)
	}
	for _, k := range storedOnly {
		delete(fields, k)
	}
	fields["userId"] = userID
	fields["updatedAt"] = time.Now()

	_, err := s.db.Collection(collection).UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{"$set": fields},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", collection, err)
	}
	return nil
}

func (s *Mongo) RecordUsage(ctx context.Context, userID string, u models.Usage, at time.Time) error {
	_, err := s.db.Collection(db.CollectionMetrics).UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{
			"$inc": bson.M{
				"totalInputTokens":  u.InputTokens,
				"totalOutputTokens": u.OutputTokens,
				"totalRequests":     1,
			},
			"$set": bson.M{
				"lastInputTokens":  u.InputTokens,
				"lastOutputTokens": u.OutputTokens,
				"lastUpdated":      at,
			},
			"$setOnInsert": bson.M{"firstInteractionAt": at},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

func (s *Mongo) Usage(ctx context.Context, userID string) (models.UserMetrics, bool, error) {
	var m models.UserMetrics
	err := s.db.Collection(db.CollectionMetrics).FindOne(ctx, bson.M{"userId": userID}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.UserMetrics{}, false, nil
	}
	if err != nil {
		return models.UserMetrics{}, false, fmt.Errorf("get usage: %w", err)
	}
	return m, true, nil
}

func (s *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
