/* mirror.go
 * Contains MirrorBlobStore, which keeps a remote store and a local copy in step. Reads come from the first store
 * that answers, writes go to all of them
 */

package store

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

type MirrorBlobStore struct {
	stores []BlobStore
	logger *zap.Logger
}

var (
	_ BlobStore = (*MirrorBlobStore)(nil)
	_ Statter   = (*MirrorBlobStore)(nil)
)

// NewMirrorBlobStore mirrors stores in priority order, typically remote first then local
func NewMirrorBlobStore(logger *zap.Logger, stores ...BlobStore) *MirrorBlobStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MirrorBlobStore{stores: stores, logger: logger}
}

// Get reads from the first store. The next store is tried only when a store fails; a store that reports the key
// as missing is authoritative
func (m *MirrorBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	var errs []error
	for i, blobs := range m.stores {
		data, err := blobs.Get(ctx, key)
		if err == nil || errors.Is(err, ErrNotFound) {
			return data, err
		}
		m.logger.Warn("blob store read failed, trying next store", zap.Int("store", i), zap.String("key", key), zap.Error(err))
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, ErrNotFound
	}
	return nil, errors.Join(errs...)
}

// Put writes to every store and returns the joined errors of those that failed
func (m *MirrorBlobStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	var errs []error
	for i, blobs := range m.stores {
		if err := blobs.Put(ctx, key, data, contentType); err != nil {
			m.logger.Warn("blob store write failed", zap.Int("store", i), zap.String("key", key), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MirrorBlobStore) Delete(ctx context.Context, key string) error {
	var errs []error
	for _, blobs := range m.stores {
		if err := blobs.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stat asks the first store that can describe blobs
func (m *MirrorBlobStore) Stat(ctx context.Context, key string) (BlobInfo, error) {
	var errs []error
	for _, blobs := range m.stores {
		statter, ok := blobs.(Statter)
		if !ok {
			continue
		}
		info, err := statter.Stat(ctx, key)
		if err == nil || errors.Is(err, ErrNotFound) {
			return info, err
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return BlobInfo{}, errors.New("no store reports blob details")
	}
	return BlobInfo{}, errors.Join(errs...)
}
