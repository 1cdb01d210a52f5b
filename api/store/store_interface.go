/* store_interface.go
 * Contains the interfaces for dependency injection and testing: Interface is implemented by Store and used by the
 * api package, BlobStore is implemented by every storage backend
 */

package store

import (
	"context"
	"errors"
	"time"
	"uscf-gamelist/api/shared"
)

// ErrNotFound is returned by BlobStore.Get when the key does not exist
var ErrNotFound = errors.New("blob not found")

// BlobStore is an opaque key/value store for whole documents
type BlobStore interface {
	// Get returns the blob stored under key, or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)
	// Put replaces the blob stored under key
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Delete removes key. Deleting a missing key is not an error
	Delete(ctx context.Context, key string) error
}

// BlobInfo describes a stored blob
type BlobInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Statter is implemented by backends that can describe a blob without reading it
type Statter interface {
	Stat(ctx context.Context, key string) (BlobInfo, error)
}

// Interface defines the methods that Store implements.
// This allows for mocking in tests.
type Interface interface {
	LoadGames(ctx context.Context) ([]shared.Game, error)
	SaveGames(ctx context.Context, games []shared.Game) error
	LoadSections(ctx context.Context) ([]shared.Section, error)
	SaveSections(ctx context.Context, sections []shared.Section) error
	LoadGameLinks(ctx context.Context) (*shared.NameKeyedLinks, error)
	SaveGameLinks(ctx context.Context, entries []shared.GameLinkEntry) error
	LoadUscfIDs(ctx context.Context) ([]string, error)
	SaveUscfIDs(ctx context.Context, ids []string) error
	AddUscfID(ctx context.Context, id string) (bool, error)
	PutReport(ctx context.Context, name string, html string) error
	ClearCache(ctx context.Context) error
	CacheInfo(ctx context.Context) (CacheInfo, error)
}

// Ensure Store implements Interface
var _ Interface = (*Store)(nil)
