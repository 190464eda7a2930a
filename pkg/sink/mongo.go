package sink

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/mltn2v/pkg/errors"
)

// Defaults for [MongoOptions].
const (
	DefaultDatabase   = "mltn2v"
	DefaultCollection = "walks"
	DefaultBatchSize  = 1000
)

// MongoOptions configures [NewMongoSink].
type MongoOptions struct {
	URI        string
	Database   string
	Collection string
	BatchSize  int
}

// MongoSink inserts walks into a MongoDB collection. Each document has the
// fields run_id, w, index (position within the batch) and tokens.
type MongoSink struct {
	client    *mongo.Client
	coll      *mongo.Collection
	batchSize int
}

// NewMongoSink connects to MongoDB and ensures an index on (run_id, w).
func NewMongoSink(ctx context.Context, opts MongoOptions) (*MongoSink, error) {
	if opts.Database == "" {
		opts.Database = DefaultDatabase
	}
	if opts.Collection == "" {
		opts.Collection = DefaultCollection
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "connect mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "ping mongo")
	}

	coll := client.Database(opts.Database).Collection(opts.Collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "run_id", Value: 1}, {Key: "w", Value: 1}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &MongoSink{client: client, coll: coll, batchSize: opts.BatchSize}, nil
}

// Write inserts the batch in chunks of the configured batch size.
func (s *MongoSink) Write(ctx context.Context, b Batch) error {
	docs := documents(b)
	for start := 0; start < len(docs); start += s.batchSize {
		end := min(start+s.batchSize, len(docs))
		if _, err := s.coll.InsertMany(ctx, docs[start:end], options.InsertMany().SetOrdered(false)); err != nil {
			return fmt.Errorf("insert walks w=%v: %w", b.W, err)
		}
	}
	return nil
}

// Close disconnects the client.
func (s *MongoSink) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func documents(b Batch) []interface{} {
	docs := make([]interface{}, len(b.Walks))
	for i, w := range b.Walks {
		docs[i] = bson.D{
			{Key: "run_id", Value: b.RunID},
			{Key: "w", Value: b.W},
			{Key: "index", Value: i},
			{Key: "tokens", Value: []string(w)},
		}
	}
	return docs
}

var _ Sink = (*MongoSink)(nil)
