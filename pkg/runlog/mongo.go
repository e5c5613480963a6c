package runlog

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/starkviz/pkg/errors"
)

// MongoDB defaults.
const (
	DefaultMongoDatabase   = "starkviz"
	DefaultMongoCollection = "runs"
	mongoConnectTimeout    = 10 * time.Second
)

// MongoConfig configures a MongoRecorder.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// MongoRecorder inserts runs into a MongoDB collection.
type MongoRecorder struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoRecorder connects to cfg.URI and verifies the connection.
func NewMongoRecorder(ctx context.Context, cfg MongoConfig) (*MongoRecorder, error) {
	if cfg.URI == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "mongo URI is required")
	}
	if cfg.Database == "" {
		cfg.Database = DefaultMongoDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultMongoCollection
	}

	ctx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "connect to mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "ping mongo")
	}
	return &MongoRecorder{client: client, coll: client.Database(cfg.Database).Collection(cfg.Collection)}, nil
}

// NewMongoRecorderFromCollection records into an existing collection. Close
// leaves the owning client connected.
func NewMongoRecorderFromCollection(coll *mongo.Collection) *MongoRecorder {
	return &MongoRecorder{coll: coll}
}

// Record inserts run.
func (r *MongoRecorder) Record(ctx context.Context, run Run) error {
	if _, err := r.coll.InsertOne(ctx, run); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "insert run %s", run.ID)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (r *MongoRecorder) Recent(ctx context.Context, limit int64) ([]Run, error) {
	opts := options.Find().SetSort(bson.D{{Key: "started", Value: -1}}).SetLimit(limit)
	cur, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "query runs")
	}
	var runs []Run
	if err := cur.All(ctx, &runs); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecode, err, "decode runs")
	}
	return runs, nil
}

// Close disconnects the client opened by NewMongoRecorder.
func (r *MongoRecorder) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Disconnect(context.Background())
}

var (
	_ Recorder = NullRecorder{}
	_ Recorder = (*FileRecorder)(nil)
	_ Recorder = (*MongoRecorder)(nil)
)
