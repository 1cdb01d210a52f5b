/* test_mocks.go
 * Contains mock structures and interfaces for testing the API package
 */

package api

import (
	"context"
	"sync"
	"uscf-gamelist/api/external"
	"uscf-gamelist/api/shared"
	"uscf-gamelist/api/store"
)

// MockFetcher implements the Fetcher interface for testing
type MockFetcher struct {
	mu sync.Mutex

	// Sections returned by GetMemberSections
	Sections []shared.Section
	// Games returned per event id by GetCompleteGamesFromSections
	GamesByEvent map[string][]shared.Game
	// Event ids that are reported as skipped
	SkipEvents map[string]string

	// Error injection for testing error paths
	SectionsError  error
	StandingsError error

	// Call tracking
	SectionCalls    int
	RequestedEvents []string
	MemberIDs       []string

	// Block, when set, is waited on inside GetMemberSections
	Block chan struct{}
}

// NewMockFetcher creates a MockFetcher returning the given sections
func NewMockFetcher(sections ...shared.Section) *MockFetcher {
	return &MockFetcher{
		Sections:     sections,
		GamesByEvent: make(map[string][]shared.Game),
		SkipEvents:   make(map[string]string),
	}
}

func (m *MockFetcher) GetMemberSections(ctx context.Context, memberID string, _ external.ProgressFunc) ([]shared.Section, error) {
	m.mu.Lock()
	m.SectionCalls++
	m.MemberIDs = append(m.MemberIDs, memberID)
	block := m.Block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.SectionsError != nil {
		return nil, m.SectionsError
	}
	return append([]shared.Section(nil), m.Sections...), nil
}

func (m *MockFetcher) GetCompleteGamesFromSections(_ context.Context, _ string, sections []shared.Section, progress external.ProgressFunc) (*external.FetchReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StandingsError != nil {
		return nil, m.StandingsError
	}

	result := &external.FetchReport{}
	for _, section := range sections {
		m.RequestedEvents = append(m.RequestedEvents, section.Event.ID)
		if reason, ok := m.SkipEvents[section.Event.ID]; ok {
			result.Results = append(result.Results, external.SectionResult{Section: section, Status: external.SectionSkipped, Reason: reason})
			continue
		}
		var games []shared.Game
		for _, game := range m.GamesByEvent[section.Event.ID] {
			if game.Section.Number == section.SectionNumber {
				games = append(games, game)
			}
		}
		result.Games = append(result.Games, games...)
		result.Results = append(result.Results, external.SectionResult{Section: section, Status: external.SectionFetched, Games: len(games)})
	}
	if progress != nil {
		progress("done")
	}
	return result, nil
}

// MockStore implements store.Interface on top of an in-memory store, with error injection
type MockStore struct {
	*store.Store
	Blobs *store.MemoryBlobStore

	// Error injection for testing error paths
	LoadGamesError     error
	SaveGamesError     error
	SaveGameLinksError error
	PutReportError     error

	SaveGamesCalls int
	Reports        map[string]string
}

// NewMockStore creates a MockStore with empty caches
func NewMockStore() *MockStore {
	blobs := store.NewMemoryBlobStore()
	return &MockStore{
		Store:   store.New(blobs, nil, nil),
		Blobs:   blobs,
		Reports: make(map[string]string),
	}
}

func (m *MockStore) LoadGames(ctx context.Context) ([]shared.Game, error) {
	if m.LoadGamesError != nil {
		return nil, m.LoadGamesError
	}
	return m.Store.LoadGames(ctx)
}

func (m *MockStore) SaveGames(ctx context.Context, games []shared.Game) error {
	m.SaveGamesCalls++
	if m.SaveGamesError != nil {
		return m.SaveGamesError
	}
	return m.Store.SaveGames(ctx, games)
}

func (m *MockStore) SaveGameLinks(ctx context.Context, entries []shared.GameLinkEntry) error {
	if m.SaveGameLinksError != nil {
		return m.SaveGameLinksError
	}
	return m.Store.SaveGameLinks(ctx, entries)
}

func (m *MockStore) PutReport(ctx context.Context, name string, html string) error {
	if m.PutReportError != nil {
		return m.PutReportError
	}
	m.Reports[name] = html
	return m.Store.PutReport(ctx, name, html)
}

var _ store.Interface = (*MockStore)(nil)
