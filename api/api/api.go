/* api.go
 * This file contains the public methods for interacting with this package. The bot, the web server and the command
 * line all go through API so that the session state (games, display models and the game link table) is kept in one
 * place. Long running fetches do not hold the state lock; only one refresh may run at a time
 */

package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"uscf-gamelist/api/external"
	"uscf-gamelist/api/logic"
	"uscf-gamelist/api/report"
	"uscf-gamelist/api/shared"
	"uscf-gamelist/api/store"

	"go.uber.org/zap"
)

// API provides methods for interacting with the game list data layer
type API struct {
	Fetcher  Fetcher
	Store    store.Interface
	MemberID string
	NavLinks []report.NavLink

	logger *zap.Logger

	mu         sync.Mutex
	refreshing bool
	games      []shared.Game
	sections   []shared.Section
	display    []shared.GameDisplayModel
	// linkSource holds the entries the next sync matches against: the name keyed table after loading, then the
	// event keyed entries plus unmatched ones after every sync
	linkSource []shared.GameLinkEntry
	links      shared.EventKeyedLinks
	unmatched  []shared.GameLinkEntry
}

// New creates a new API instance
// Preconditions: Receives the ratings api client, the document store, the default member id and a logger (nil for
// none)
// Postconditions: Returns the API with an empty session
func New(fetcher Fetcher, docs store.Interface, memberID string, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		Fetcher:  fetcher,
		Store:    docs,
		MemberID: strings.TrimSpace(memberID),
		logger:   logger,
		links:    make(shared.EventKeyedLinks),
	}
}

// region session

// LoadGameLinks loads the persisted link table. It is called once when a session starts
func (a *API) LoadGameLinks(ctx context.Context) (int, error) {
	links, err := a.Store.LoadGameLinks(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load game links: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.linkSource = links.Entries()
	a.links = make(shared.EventKeyedLinks)
	a.unmatched = nil
	if len(a.display) > 0 {
		a.syncLinksLocked()
	}
	return links.Len(), nil
}

// LoadCached rebuilds the session from the games and sections caches without calling the ratings api
// Preconditions: Receives a context
// Postconditions: Returns the number of games loaded (0 if there is no cache), or an error if a cache could not be
// read
func (a *API) LoadCached(ctx context.Context) (int, error) {
	games, err := a.Store.LoadGames(ctx)
	if err != nil {
		return 0, err
	}
	sections, err := a.Store.LoadSections(ctx)
	if err != nil {
		return 0, err
	}

	display := logic.MergeGamesWithSections(games, sections)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.games, a.sections, a.display = games, sections, display
	matched := a.syncLinksLocked()
	a.logger.Info("cache loaded", zap.Int("games", len(display)), zap.Int("matchedLinks", matched))
	return len(display), nil
}

// Refresh fetches the member's sections, fetches standings for the sections whose event is not cached yet and
// rebuilds the session from cached and new games
// Preconditions: Receives a context, the member id (the configured one when empty) and an optional progress sink
// Postconditions: Returns a summary of the refresh, or an error if the sections could not be fetched, a cache could
// not be read or written, ctx was cancelled, or another refresh is running. Sections that could not be fetched
// are reported in the result, not as an error
func (a *API) Refresh(ctx context.Context, memberID string, progress external.ProgressFunc) (RefreshResult, error) {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		memberID = a.MemberID
	}
	if memberID == "" {
		return RefreshResult{}, ErrNoMemberID
	}

	a.mu.Lock()
	if a.refreshing {
		a.mu.Unlock()
		return RefreshResult{}, ErrRefreshInProgress
	}
	a.refreshing = true
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.refreshing = false
		a.mu.Unlock()
	}()

	emit := func(message string) {
		if progress != nil {
			progress(message)
		}
	}

	emit("Fetching sections from USCF API...")
	sections, err := a.Fetcher.GetMemberSections(ctx, memberID, progress)
	if err != nil {
		return RefreshResult{}, err
	}

	cached, err := a.Store.LoadGames(ctx)
	if err != nil {
		return RefreshResult{}, err
	}

	result := RefreshResult{Sections: len(sections)}
	newSections := logic.NewSections(sections, cached)
	result.NewSections = len(newSections)

	allGames := cached
	if len(newSections) > 0 {
		emit(fmt.Sprintf("Fetching game data for %d new tournaments...", len(newSections)))
		fetched, err := a.Fetcher.GetCompleteGamesFromSections(ctx, memberID, newSections, progress)
		if err != nil {
			return RefreshResult{}, err
		}
		result.Skipped = fetched.Skipped()
		result.NewGames = len(fetched.Games)
		allGames = append(append(make([]shared.Game, 0, len(cached)+len(fetched.Games)), cached...), fetched.Games...)
	} else {
		emit("Using cached data (no new tournaments)...")
	}

	emit("Merging data...")
	display := logic.MergeGamesWithSections(allGames, sections)

	if result.NewGames > 0 {
		emit("Saving games cache...")
		if err := a.Store.SaveGames(ctx, allGames); err != nil {
			return RefreshResult{}, err
		}
	}
	if err := a.Store.SaveSections(ctx, sections); err != nil {
		return RefreshResult{}, err
	}

	a.mu.Lock()
	a.games, a.sections, a.display = allGames, sections, display
	if a.MemberID == "" {
		a.MemberID = memberID
	}
	result.Matched = a.syncLinksLocked()
	result.Games = len(display)
	result.Tournaments = len(logic.Tournaments(display))
	a.mu.Unlock()

	emit(fmt.Sprintf("Loaded %d games from %d tournaments", result.Games, result.Tournaments))
	a.logger.Info("refresh complete",
		zap.String("memberId", memberID),
		zap.Int("sections", result.Sections),
		zap.Int("newSections", result.NewSections),
		zap.Int("newGames", result.NewGames),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("games", result.Games),
	)
	return result, nil
}

// Refreshing reports whether a refresh is running
func (a *API) Refreshing() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.refreshing
}

// syncLinksLocked projects the link table onto the display models. a.mu must be held
func (a *API) syncLinksLocked() int {
	source := a.linkSource
	synced, matched := logic.SyncGameLinks(a.display, source)
	a.links = synced
	a.unmatched = logic.UnmatchedLinks(a.display, source)
	a.linkSource = append(synced.Entries(), a.unmatched...)
	return matched
}

// linkEntriesLocked returns every entry that should be persisted. a.mu must be held
func (a *API) linkEntriesLocked() []shared.GameLinkEntry {
	if len(a.display) == 0 {
		return append([]shared.GameLinkEntry(nil), a.linkSource...)
	}
	return append(a.links.Entries(), a.unmatched...)
}

// endregion

// region links

// AddGameLink attaches a url to every game of a tournament and saves the link table
// Preconditions: Receives a context, the formatted tournament name (case-insensitive), the url and whether the user
// confirmed a url that failed validation
// Postconditions: Returns the formatted tournament name and the number of games updated. Returns
// logic.ErrEmptyGameURL, logic.ErrMalformedGameURL (when not confirmed), a *logic.UnknownTournamentError (which
// matches logic.ErrUnknownTournament and names the closest tournament) or a storage error otherwise
func (a *API) AddGameLink(ctx context.Context, eventName string, gameURL string, confirmed bool) (string, int, error) {
	if err := logic.ValidateGameURL(gameURL); err != nil {
		if !errors.Is(err, logic.ErrMalformedGameURL) || !confirmed {
			return "", 0, err
		}
		a.logger.Warn("accepting unvalidated game url", zap.String("url", gameURL))
	}

	a.mu.Lock()
	name, err := logic.FindTournament(eventName, a.display)
	if err != nil {
		a.mu.Unlock()
		return "", 0, err
	}
	updated, err := logic.ApplyGameLink(a.display, a.links, name, gameURL)
	if err != nil {
		a.mu.Unlock()
		return "", 0, err
	}
	a.linkSource = append(a.links.Entries(), a.unmatched...)
	entries := a.linkEntriesLocked()
	a.mu.Unlock()

	if err := a.Store.SaveGameLinks(ctx, entries); err != nil {
		return name, updated, fmt.Errorf("link applied but could not be saved: %w", err)
	}
	a.logger.Info("game link added", zap.String("tournament", name), zap.Int("games", updated))
	return name, updated, nil
}

// SaveGameLinks persists the current link table
func (a *API) SaveGameLinks(ctx context.Context) error {
	a.mu.Lock()
	entries := a.linkEntriesLocked()
	a.mu.Unlock()
	return a.Store.SaveGameLinks(ctx, entries)
}

// LinkSuggestions proposes tournaments for link entries that matched no game
func (a *API) LinkSuggestions() []logic.LinkSuggestion {
	a.mu.Lock()
	defer a.mu.Unlock()
	return logic.SuggestLinkMatches(a.display, a.unmatched)
}

// UnmatchedLinks returns the link entries that matched no loaded tournament
func (a *API) UnmatchedLinks() []shared.GameLinkEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]shared.GameLinkEntry(nil), a.unmatched...)
}

// endregion

// region publishing and cache

// RenderReport renders the html game list for the current session. An empty memberID uses the configured one
func (a *API) RenderReport(memberID string) (string, error) {
	a.mu.Lock()
	games := append([]shared.GameDisplayModel(nil), a.display...)
	if strings.TrimSpace(memberID) == "" {
		memberID = a.MemberID
	}
	generator := report.NewGenerator(strings.TrimSpace(memberID), a.NavLinks...)
	a.mu.Unlock()
	return generator.Render(games)
}

// Publish saves the link table, renders the html game list and uploads it as index.html
// Preconditions: Receives a context and the member id shown in the page header (configured one when empty)
// Postconditions: Returns the number of games published, or an error if saving, rendering or uploading failed
func (a *API) Publish(ctx context.Context, memberID string) (int, error) {
	if err := a.SaveGameLinks(ctx); err != nil {
		return 0, fmt.Errorf("failed to save game links: %w", err)
	}
	html, err := a.RenderReport(memberID)
	if err != nil {
		return 0, err
	}
	if err := a.Store.PutReport(ctx, store.ReportKey, html); err != nil {
		return 0, fmt.Errorf("failed to upload report: %w", err)
	}

	a.mu.Lock()
	published := len(a.display)
	a.mu.Unlock()
	a.logger.Info("report published", zap.Int("games", published))
	return published, nil
}

// ClearCache deletes the games and sections caches and empties the session. The link table is kept
func (a *API) ClearCache(ctx context.Context) error {
	if err := a.Store.ClearCache(ctx); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.display) > 0 {
		a.linkSource = append(a.links.Entries(), a.unmatched...)
	}
	a.games, a.sections, a.display = nil, nil, nil
	a.links = make(shared.EventKeyedLinks)
	a.unmatched = nil
	return nil
}

// CacheInfo describes the games cache
func (a *API) CacheInfo(ctx context.Context) (store.CacheInfo, error) {
	return a.Store.CacheInfo(ctx)
}

// ForgetTournaments drops tournaments from the games cache so that the next refresh fetches them again
// Preconditions: Receives a context, the number of tournaments and the mode
// Postconditions: Returns the removed event ids, or an error if the cache could not be read or written
func (a *API) ForgetTournaments(ctx context.Context, n int, mode logic.ForgetMode) ([]string, error) {
	games, err := a.Store.LoadGames(ctx)
	if err != nil {
		return nil, err
	}
	if len(games) == 0 {
		return nil, nil
	}
	remaining, removed := logic.ForgetTournaments(games, n, mode, nil)
	if err := a.Store.SaveGames(ctx, remaining); err != nil {
		return nil, err
	}
	a.logger.Info("tournaments removed from cache", zap.String("mode", string(mode)), zap.Strings("events", removed))
	return removed, nil
}

// endregion

// region queries

// Games returns a copy of the display models
func (a *API) Games() []shared.GameDisplayModel {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]shared.GameDisplayModel(nil), a.display...)
}

// TournamentGames returns the games of one tournament, resolved the same way as AddGameLink
func (a *API) TournamentGames(query string) (string, []shared.GameDisplayModel, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	name, ok := logic.ResolveTournament(query, a.display)
	if !ok {
		return "", nil, fmt.Errorf("%w: %s", logic.ErrUnknownTournament, query)
	}
	var games []shared.GameDisplayModel
	for _, game := range a.display {
		if game.EventName == name {
			games = append(games, game)
		}
	}
	return name, games, nil
}

// Tournaments lists the distinct tournaments, newest first
func (a *API) Tournaments() []logic.Tournament {
	a.mu.Lock()
	defer a.mu.Unlock()
	return logic.Tournaments(a.display)
}

// YearlyStats returns the per year record and the totals row
func (a *API) YearlyStats() ([]logic.YearStats, logic.YearStats) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return logic.YearlyStats(a.display)
}

// Summary returns the tournament, result and link counts
func (a *API) Summary() logic.Summary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return logic.Summarise(a.display)
}

// endregion

// region ids

// UscfIDs returns the monitored player ids
func (a *API) UscfIDs(ctx context.Context) ([]string, error) {
	return a.Store.LoadUscfIDs(ctx)
}

// SaveUscfIDs replaces the monitored player ids
func (a *API) SaveUscfIDs(ctx context.Context, ids []string) error {
	return a.Store.SaveUscfIDs(ctx, ids)
}

// AddUscfID adds a player to the monitored ids, returning false if it was already present
func (a *API) AddUscfID(ctx context.Context, id string) (bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return false, errors.New("USCF id is required")
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false, fmt.Errorf("invalid USCF id %q", id)
		}
	}
	return a.Store.AddUscfID(ctx, id)
}

// endregion
