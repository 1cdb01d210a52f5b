/* mongo.go
 * Contains the MongoDB backend. Every document is one record in the blobs collection keyed by its name
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const blobsCollection = "blobs"

// blobRecord is the stored shape of a document
type blobRecord struct {
	Key         string    `bson:"_id"`
	Data        []byte    `bson:"data"`
	ContentType string    `bson:"contentType"`
	Size        int64     `bson:"size"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

type MongoBlobStore struct {
	Client     *mongo.Client
	Collection *mongo.Collection
}

var (
	_ BlobStore = (*MongoBlobStore)(nil)
	_ Statter   = (*MongoBlobStore)(nil)
)

// NewMongoBlobStore connects to MongoDB and uses the blobs collection of dbName
// Preconditions: Receives a context, the connection uri and the database name
// Postconditions: Returns the store, or an error if the uri or database name is empty or the connection failed
func NewMongoBlobStore(ctx context.Context, mongoURI string, dbName string) (*MongoBlobStore, error) {
	if mongoURI == "" || dbName == "" {
		return nil, fmt.Errorf("mongo uri or database name cannot be empty")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to reach mongo: %w", err)
	}
	return &MongoBlobStore{Client: client, Collection: client.Database(dbName).Collection(blobsCollection)}, nil
}

// Close disconnects the client
func (m *MongoBlobStore) Close(ctx context.Context) error {
	if m.Client == nil {
		return nil
	}
	return m.Client.Disconnect(ctx)
}

func (m *MongoBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	var record blobRecord
	err := m.Collection.FindOne(ctx, bson.D{{Key: "_id", Value: key}}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s from database: %w", key, err)
	}
	return record.Data, nil
}

func (m *MongoBlobStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "data", Value: data},
		{Key: "contentType", Value: contentType},
		{Key: "size", Value: int64(len(data))},
		{Key: "updatedAt", Value: time.Now().UTC()},
	}}}
	_, err := m.Collection.UpdateOne(ctx, bson.D{{Key: "_id", Value: key}}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to store %s in database: %w", key, err)
	}
	return nil
}

func (m *MongoBlobStore) Delete(ctx context.Context, key string) error {
	if _, err := m.Collection.DeleteOne(ctx, bson.D{{Key: "_id", Value: key}}); err != nil {
		return fmt.Errorf("failed to delete %s from database: %w", key, err)
	}
	return nil
}

func (m *MongoBlobStore) Stat(ctx context.Context, key string) (BlobInfo, error) {
	var record blobRecord
	opts := options.FindOne().SetProjection(bson.D{{Key: "data", Value: 0}})
	err := m.Collection.FindOne(ctx, bson.D{{Key: "_id", Value: key}}, opts).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return BlobInfo{}, ErrNotFound
	}
	if err != nil {
		return BlobInfo{}, fmt.Errorf("failed to stat %s in database: %w", key, err)
	}
	return BlobInfo{Key: key, Size: record.Size, LastModified: record.UpdatedAt}, nil
}
