/* mongo_test.go
 * Contains unit tests for the MongoDB backend using mtest mock deployments, plus an integration test that runs
 * against MONGO_TEST_URI when it is set
 */

package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

// region mock deployment

func TestMongoBlobStore_Get(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("returns stored data", func(mt *mtest.T) {
		blobs := &MongoBlobStore{Client: mt.Client, Collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(1, "test.blobs", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: GameLinksKey},
			{Key: "data", Value: []byte("A,https://a\n")},
			{Key: "contentType", Value: contentTypeText},
		}))

		data, err := blobs.Get(context.Background(), GameLinksKey)
		require.NoError(t, err)
		assert.Equal(t, "A,https://a\n", string(data))
	})

	mt.Run("maps missing document to ErrNotFound", func(mt *mtest.T) {
		blobs := &MongoBlobStore{Client: mt.Client, Collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.blobs", mtest.FirstBatch))

		_, err := blobs.Get(context.Background(), GameLinksKey)
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	mt.Run("returns database errors", func(mt *mtest.T) {
		blobs := &MongoBlobStore{Client: mt.Client, Collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "database error"}))

		_, err := blobs.Get(context.Background(), GameLinksKey)
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrNotFound))
		assert.Contains(t, err.Error(), "failed to fetch")
	})
}

func TestMongoBlobStore_PutAndDelete(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("upserts and deletes", func(mt *mtest.T) {
		blobs := &MongoBlobStore{Client: mt.Client, Collection: mt.Coll}
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)

		require.NoError(t, blobs.Put(context.Background(), GamesCacheKey, []byte("[]"), contentTypeJSON))
		require.NoError(t, blobs.Delete(context.Background(), GamesCacheKey))
	})

	mt.Run("put error", func(mt *mtest.T) {
		blobs := &MongoBlobStore{Client: mt.Client, Collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 11000, Message: "write failed"}))

		err := blobs.Put(context.Background(), GamesCacheKey, []byte("[]"), contentTypeJSON)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to store")
	})
}

func TestMongoBlobStore_Stat(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("reports size and update time", func(mt *mtest.T) {
		blobs := &MongoBlobStore{Client: mt.Client, Collection: mt.Coll}
		updated := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		mt.AddMockResponses(mtest.CreateCursorResponse(1, "test.blobs", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: GamesCacheKey},
			{Key: "size", Value: int64(42)},
			{Key: "updatedAt", Value: updated},
		}))

		info, err := blobs.Stat(context.Background(), GamesCacheKey)
		require.NoError(t, err)
		assert.Equal(t, int64(42), info.Size)
		assert.True(t, updated.Equal(info.LastModified))
	})
}

func TestNewMongoBlobStore_Validation(t *testing.T) {
	_, err := NewMongoBlobStore(context.Background(), "", "db")
	assert.Error(t, err)
	_, err = NewMongoBlobStore(context.Background(), "mongodb://localhost:27017", "")
	assert.Error(t, err)
}

// endregion

// region integration

func TestMongoBlobStore_Integration(t *testing.T) {
	mongoURI := os.Getenv("MONGO_TEST_URI")
	if mongoURI == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	blobs, err := NewMongoBlobStore(ctx, mongoURI, "test_uscf_gamelist")
	require.NoError(t, err)
	defer func() {
		_ = blobs.Collection.Database().Drop(context.Background())
		_ = blobs.Close(context.Background())
	}()

	s := New(blobs, nil, nil)
	require.NoError(t, s.SaveUscfIDs(ctx, []string{"3", "1"}))
	ids, err := s.LoadUscfIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, ids)

	info, err := s.CacheInfo(ctx)
	require.NoError(t, err)
	assert.False(t, info.Exists)

	require.NoError(t, s.ClearCache(ctx))
	_, err = blobs.Get(ctx, UscfIDsKey)
	assert.NoError(t, err)
}

// endregion
