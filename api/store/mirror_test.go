/* mirror_test.go
 * Contains unit tests for mirror.go
 */

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMirrorBlobStore_PutWritesEverywhere(t *testing.T) {
	remote, local := NewMemoryBlobStore(), NewMemoryBlobStore()
	mirror := NewMirrorBlobStore(nil, remote, local)

	require.NoError(t, mirror.Put(context.Background(), "k", []byte("v"), contentTypeText))

	_, _, ok := remote.Raw("k")
	assert.True(t, ok)
	_, _, ok = local.Raw("k")
	assert.True(t, ok)
}

func TestMirrorBlobStore_GetPrefersFirst(t *testing.T) {
	remote, local := NewMemoryBlobStore(), NewMemoryBlobStore()
	require.NoError(t, remote.Put(context.Background(), "k", []byte("remote"), contentTypeText))
	require.NoError(t, local.Put(context.Background(), "k", []byte("local"), contentTypeText))
	mirror := NewMirrorBlobStore(nil, remote, local)

	data, err := mirror.Get(context.Background(), "k")

	require.NoError(t, err)
	assert.Equal(t, "remote", string(data))
	assert.Equal(t, 0, local.Gets)
}

func TestMirrorBlobStore_FallsBackOnFailure(t *testing.T) {
	remote, local := NewMemoryBlobStore(), NewMemoryBlobStore()
	require.NoError(t, local.Put(context.Background(), "k", []byte("local"), contentTypeText))
	remote.Err = errors.New("remote unavailable")
	mirror := NewMirrorBlobStore(nil, remote, local)

	data, err := mirror.Get(context.Background(), "k")

	require.NoError(t, err)
	assert.Equal(t, "local", string(data))
}

func TestMirrorBlobStore_NotFoundIsAuthoritative(t *testing.T) {
	remote, local := NewMemoryBlobStore(), NewMemoryBlobStore()
	require.NoError(t, local.Put(context.Background(), "k", []byte("stale"), contentTypeText))
	mirror := NewMirrorBlobStore(nil, remote, local)

	_, err := mirror.Get(context.Background(), "k")

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, 0, local.Gets)
}

func TestMirrorBlobStore_AllFail(t *testing.T) {
	remote, local := NewMemoryBlobStore(), NewMemoryBlobStore()
	remote.Err = errors.New("remote down")
	local.Err = errors.New("disk full")
	mirror := NewMirrorBlobStore(nil, remote, local)

	_, err := mirror.Get(context.Background(), "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote down")
	assert.Contains(t, err.Error(), "disk full")

	err = mirror.Put(context.Background(), "k", nil, contentTypeText)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestMirrorBlobStore_PartialPutFailureStillWritesOthers(t *testing.T) {
	remote, local := NewMemoryBlobStore(), NewMemoryBlobStore()
	remote.Err = errors.New("remote down")
	mirror := NewMirrorBlobStore(nil, remote, local)

	err := mirror.Put(context.Background(), "k", []byte("v"), contentTypeText)

	assert.Error(t, err)
	_, _, ok := local.Raw("k")
	assert.True(t, ok)
}

func TestMirrorBlobStore_Stat(t *testing.T) {
	remote, local := NewMemoryBlobStore(), NewMemoryBlobStore()
	mirror := NewMirrorBlobStore(nil, remote, local)
	require.NoError(t, mirror.Put(context.Background(), "k", []byte("abc"), contentTypeText))

	info, err := mirror.Stat(context.Background(), "k")

	require.NoError(t, err)
	assert.Equal(t, int64(3), info.Size)
}

func TestMirrorBlobStore_Empty(t *testing.T) {
	mirror := NewMirrorBlobStore(nil)

	_, err := mirror.Get(context.Background(), "k")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mirror.Put(context.Background(), "k", nil, contentTypeText))
}
