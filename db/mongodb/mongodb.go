// Package mongodb implements db.Database over a MongoDB collection. The
// server is taken from the MONGODB_URL environment variable and the database
// name from db.Options.Path.
package mongodb

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/vocdoni/anonvote-node/db"
	"github.com/vocdoni/anonvote-node/db/internal/batch"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collectionName = "kv"
	opTimeout      = 30 * time.Second
)

// kvDoc is the stored document. Keys are hex encoded so that the string
// ordering of _id matches the byte ordering of the keys.
type kvDoc struct {
	Key   string `bson:"_id"`
	Value []byte `bson:"value"`
}

// MongoDB is a db.Database backed by a MongoDB collection.
type MongoDB struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var _ db.Database = (*MongoDB)(nil)

// New connects to MONGODB_URL and uses opts.Path as database name.
func New(opts db.Options) (*MongoDB, error) {
	url := os.Getenv("MONGODB_URL")
	if url == "" {
		return nil, fmt.Errorf("mongodb: MONGODB_URL is not set")
	}
	if opts.Path == "" {
		return nil, fmt.Errorf("mongodb: empty database name")
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, fmt.Errorf("mongodb: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongodb: ping: %w", err)
	}
	return &MongoDB{
		client: client,
		coll:   client.Database(opts.Path).Collection(collectionName),
	}, nil
}

func (d *MongoDB) Get(key []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	var doc kvDoc
	err := d.coll.FindOne(ctx, bson.M{"_id": hex.EncodeToString(key)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.Value, nil
}

func (d *MongoDB) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	filter := bson.M{}
	if len(prefix) > 0 {
		bounds := bson.M{"$gte": hex.EncodeToString(prefix)}
		if end := upperBound(prefix); end != nil {
			bounds["$lt"] = hex.EncodeToString(end)
		}
		filter["_id"] = bounds
	}
	cur, err := d.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return err
	}
	defer func() { _ = cur.Close(ctx) }()
	for cur.Next(ctx) {
		var doc kvDoc
		if err := cur.Decode(&doc); err != nil {
			return err
		}
		key, err := hex.DecodeString(doc.Key)
		if err != nil {
			return fmt.Errorf("mongodb: invalid key %q: %w", doc.Key, err)
		}
		if !callback(key, doc.Value) {
			break
		}
	}
	return cur.Err()
}

// WriteTx buffers writes and sends them as one ordered bulk write on Commit.
// The bulk write is not a multi-document transaction.
func (d *MongoDB) WriteTx() db.WriteTx {
	return &WriteTx{Overlay: batch.New(d), coll: d.coll}
}

func (d *MongoDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return d.client.Disconnect(ctx)
}

func (*MongoDB) Compact() error {
	return nil
}

// WriteTx implements db.WriteTx.
type WriteTx struct {
	*batch.Overlay
	coll *mongo.Collection
}

var _ db.WriteTx = (*WriteTx)(nil)

func (tx *WriteTx) Commit() error {
	if tx.Len() == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, tx.Len())
	if err := tx.Each(func(key, value []byte, deleted bool) error {
		id := hex.EncodeToString(key)
		if deleted {
			models = append(models, mongo.NewDeleteOneModel().SetFilter(bson.M{"_id": id}))
			return nil
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": id}).
			SetReplacement(kvDoc{Key: id, Value: value}).
			SetUpsert(true))
		return nil
	}); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	_, err := tx.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	return err
}

func (tx *WriteTx) Discard() {
	tx.Reset()
}

func upperBound(prefix []byte) []byte {
	end := bytes.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
