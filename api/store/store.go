/* store.go
 * Contains the store struct and New function. Store reads and writes the application's documents over two blob
 * stores: the cache namespace (games, sections, game links and the published report) and the ids namespace
 * (the monitored player list). The document formats are in documents.go and the backends in local.go, s3.go,
 * mongo.go and mirror.go
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"time"
	"uscf-gamelist/api/shared"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Document keys
const (
	GamesCacheKey    = "games_cache.json"
	SectionsCacheKey = "sections_cache.json"
	GameLinksKey     = "game data.txt"
	UscfIDsKey       = "uscf-ids.txt"
	ReportKey        = "index.html"
)

const (
	contentTypeJSON = "application/json"
	contentTypeText = "text/plain; charset=utf-8"
	contentTypeHTML = "text/html; charset=utf-8"
)

type Store struct {
	cache  BlobStore
	ids    BlobStore
	logger *zap.Logger
}

// CacheInfo describes the games cache for the cache info command
type CacheInfo struct {
	Exists       bool      `json:"exists"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

// Function for initialising Store
// Preconditions: Receives the blob store for cached documents, the blob store for the ids list (nil to share the
// cache store) and a logger (nil for none)
// Postconditions: Returns pointer to the Store object
func New(cache BlobStore, ids BlobStore, logger *zap.Logger) *Store {
	if ids == nil {
		ids = cache
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{cache: cache, ids: ids, logger: logger}
}

// get reads a blob and reports whether it existed. A missing blob is not an error
func (s *Store) get(ctx context.Context, blobs BlobStore, key string) ([]byte, bool, error) {
	data, err := blobs.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		s.logger.Debug("document not found, treating as empty", zap.String("key", key))
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, true, nil
}

func (s *Store) put(ctx context.Context, blobs BlobStore, key string, data []byte, contentType string) error {
	if err := blobs.Put(ctx, key, data, contentType); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	s.logger.Debug("document saved", zap.String("key", key), zap.Int("bytes", len(data)))
	return nil
}

func loadJSON[T any](ctx context.Context, s *Store, key string) ([]T, error) {
	data, ok, err := s.get(ctx, s.cache, key)
	if err != nil || !ok || len(data) == 0 {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return items, nil
}

func saveJSON[T any](ctx context.Context, s *Store, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.put(ctx, s.cache, key, data, contentTypeJSON)
}

// LoadGames returns the cached raw games, empty if there is no cache
func (s *Store) LoadGames(ctx context.Context) ([]shared.Game, error) {
	return loadJSON[shared.Game](ctx, s, GamesCacheKey)
}

// SaveGames replaces the games cache
func (s *Store) SaveGames(ctx context.Context, games []shared.Game) error {
	return saveJSON(ctx, s, GamesCacheKey, games)
}

// LoadSections returns the cached sections, empty if there is no cache
func (s *Store) LoadSections(ctx context.Context) ([]shared.Section, error) {
	return loadJSON[shared.Section](ctx, s, SectionsCacheKey)
}

// SaveSections replaces the sections cache
func (s *Store) SaveSections(ctx context.Context, sections []shared.Section) error {
	return saveJSON(ctx, s, SectionsCacheKey, sections)
}

// LoadGameLinks reads `game data.txt` into the name keyed link table
// Preconditions: Receives a context
// Postconditions: Returns the table in file order, empty if the file does not exist, or an error if it could not be
// read
func (s *Store) LoadGameLinks(ctx context.Context) (*shared.NameKeyedLinks, error) {
	data, ok, err := s.get(ctx, s.cache, GameLinksKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return shared.NewNameKeyedLinks(), nil
	}
	links, err := ParseGameLinks(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", GameLinksKey, err)
	}
	s.logger.Info("game links loaded", zap.Int("entries", links.Len()))
	return links, nil
}

// SaveGameLinks writes the link table back to `game data.txt`, sorted by tournament name
func (s *Store) SaveGameLinks(ctx context.Context, entries []shared.GameLinkEntry) error {
	return s.put(ctx, s.cache, GameLinksKey, FormatGameLinks(entries), contentTypeText)
}

// LoadUscfIDs returns the monitored player ids, empty if the list does not exist
func (s *Store) LoadUscfIDs(ctx context.Context) ([]string, error) {
	data, ok, err := s.get(ctx, s.ids, UscfIDsKey)
	if err != nil || !ok {
		return nil, err
	}
	return ParseUscfIDs(data), nil
}

// SaveUscfIDs writes the ids list sorted and without duplicates
func (s *Store) SaveUscfIDs(ctx context.Context, ids []string) error {
	return s.put(ctx, s.ids, UscfIDsKey, FormatUscfIDs(ids), contentTypeText)
}

// AddUscfID adds one id to the ids list
// Preconditions: Receives a context and a player id
// Postconditions: Returns true if the id was added, false if it was already present, or an error
func (s *Store) AddUscfID(ctx context.Context, id string) (bool, error) {
	ids, err := s.LoadUscfIDs(ctx)
	if err != nil {
		return false, err
	}
	for _, existing := range ids {
		if existing == id {
			return false, nil
		}
	}
	if err := s.SaveUscfIDs(ctx, append(ids, id)); err != nil {
		return false, err
	}
	return true, nil
}

// PutReport uploads a rendered html page, under ReportKey if name is empty
func (s *Store) PutReport(ctx context.Context, name string, html string) error {
	if name == "" {
		name = ReportKey
	}
	return s.put(ctx, s.cache, name, []byte(html), contentTypeHTML)
}

// ClearCache deletes the games and sections caches. The game link table is never touched
func (s *Store) ClearCache(ctx context.Context) error {
	var errs []error
	for _, key := range []string{GamesCacheKey, SectionsCacheKey} {
		if err := s.cache.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("failed to delete %s: %w", key, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	s.logger.Info("cache cleared")
	return nil
}

// CacheInfo describes the games cache when the backend can stat blobs
func (s *Store) CacheInfo(ctx context.Context) (CacheInfo, error) {
	statter, ok := s.cache.(Statter)
	if !ok {
		return CacheInfo{}, errors.New("cache backend does not report blob details")
	}
	info, err := statter.Stat(ctx, GamesCacheKey)
	if errors.Is(err, ErrNotFound) {
		return CacheInfo{}, nil
	}
	if err != nil {
		return CacheInfo{}, fmt.Errorf("failed to stat %s: %w", GamesCacheKey, err)
	}
	return CacheInfo{Exists: true, Size: info.Size, LastModified: info.LastModified}, nil
}
