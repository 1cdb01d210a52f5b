/* links_test.go
 * Contains unit tests for links.go
 */

package logic

import (
	"errors"
	"testing"
	"uscf-gamelist/api/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func displayGames() []shared.GameDisplayModel {
	return []shared.GameDisplayModel{
		{EventID: "100", EventName: "WORLD OPEN (PA)", EndDate: "2024-07-04", Round: 1, Result: "W"},
		{EventID: "100", EventName: "WORLD OPEN (PA)", EndDate: "2024-07-04", Round: 2, Result: "L"},
		{EventID: "200", EventName: "CLUB CHAMPIONSHIP", EndDate: "2024-03-01", Round: 1, Result: "D"},
		{EventID: "300", EventName: "35TH ANNUAL NORTH AMERICAN OPEN (NV)", EndDate: "2023-12-28", Round: 1, Result: "W"},
	}
}

// region SyncGameLinks

func TestSyncGameLinks_MatchesCaseInsensitively(t *testing.T) {
	games := displayGames()
	links := []shared.GameLinkEntry{
		{EventName: "world open (pa)", GameURL: "https://example.com/world"},
		{EventName: "UNLOADED EVENT", GameURL: "https://example.com/other"},
	}

	synced, matched := SyncGameLinks(games, links)

	assert.Equal(t, 1, matched)
	require.Len(t, synced, 1)
	assert.Equal(t, "https://example.com/world", synced["100"].GameURL)
	assert.Equal(t, "https://example.com/world", games[0].GameURL)
	assert.Equal(t, "https://example.com/world", games[1].GameURL)
	assert.Empty(t, games[2].GameURL)
	assert.Empty(t, games[3].GameURL)
}

func TestSyncGameLinks_FirstEntryWins(t *testing.T) {
	games := displayGames()
	links := []shared.GameLinkEntry{
		{EventName: "CLUB CHAMPIONSHIP", GameURL: "https://first"},
		{EventName: "Club Championship", GameURL: "https://second"},
	}

	synced, _ := SyncGameLinks(games, links)

	assert.Equal(t, "https://first", synced["200"].GameURL)
	assert.Equal(t, "https://first", games[2].GameURL)
}

func TestSyncGameLinks_NoPartialMatch(t *testing.T) {
	games := displayGames()
	links := []shared.GameLinkEntry{{EventName: "WORLD OPEN", GameURL: "https://example.com"}}

	synced, matched := SyncGameLinks(games, links)

	assert.Zero(t, matched)
	assert.Empty(t, synced)
	assert.Empty(t, games[0].GameURL)
}

func TestSyncGameLinks_Idempotent(t *testing.T) {
	games := displayGames()
	links := []shared.GameLinkEntry{
		{EventName: "WORLD OPEN (PA)", GameURL: "https://a"},
		{EventName: "CLUB CHAMPIONSHIP", GameURL: "https://b"},
	}

	first, _ := SyncGameLinks(games, links)
	stampsAfterFirst := append([]shared.GameDisplayModel(nil), games...)
	second, _ := SyncGameLinks(games, links)

	assert.Equal(t, first, second)
	assert.Equal(t, stampsAfterFirst, games)

	// Re-syncing from the event keyed table gives the same result
	third, _ := SyncGameLinks(games, first.Entries())
	assert.Equal(t, first, third)
	assert.Equal(t, stampsAfterFirst, games)
}

func TestSyncGameLinks_ClearsStaleStamp(t *testing.T) {
	games := displayGames()
	games[3].GameURL = "https://stale"

	_, _ = SyncGameLinks(games, nil)

	assert.Empty(t, games[3].GameURL)
}

func TestUnmatchedLinks(t *testing.T) {
	links := []shared.GameLinkEntry{
		{EventName: "world open (pa)", GameURL: "https://a"},
		{EventName: "WORLD OPEN 2019 (PA)", GameURL: "https://b"},
	}

	unmatched := UnmatchedLinks(displayGames(), links)

	require.Len(t, unmatched, 1)
	assert.Equal(t, "WORLD OPEN 2019 (PA)", unmatched[0].EventName)
}

// endregion

// region ValidateGameURL

func TestValidateGameURL(t *testing.T) {
	assert.NoError(t, ValidateGameURL("https://lichess.org/study/abc"))
	assert.NoError(t, ValidateGameURL("  http://example.com/games.pgn  "))
	assert.True(t, errors.Is(ValidateGameURL(""), ErrEmptyGameURL))
	assert.True(t, errors.Is(ValidateGameURL("   "), ErrEmptyGameURL))
	assert.True(t, errors.Is(ValidateGameURL("lichess.org/study/abc"), ErrMalformedGameURL))
	assert.True(t, errors.Is(ValidateGameURL("/relative/path"), ErrMalformedGameURL))
	assert.True(t, errors.Is(ValidateGameURL("http://"), ErrMalformedGameURL))
}

// endregion

// region ApplyGameLink

func TestApplyGameLink_CreatesEntry(t *testing.T) {
	games := displayGames()
	links := make(shared.EventKeyedLinks)

	updated, err := ApplyGameLink(games, links, "WORLD OPEN (PA)", "https://example.com/w")

	require.NoError(t, err)
	assert.Equal(t, 2, updated)
	assert.Equal(t, shared.GameLinkEntry{EventName: "WORLD OPEN (PA)", GameURL: "https://example.com/w"}, links["100"])
	assert.Equal(t, "https://example.com/w", games[0].GameURL)
	assert.Equal(t, "https://example.com/w", games[1].GameURL)
	assert.Empty(t, games[2].GameURL)
}

func TestApplyGameLink_UpdatesEntry(t *testing.T) {
	games := displayGames()
	links := shared.EventKeyedLinks{"200": {EventName: "Club Championship", GameURL: "https://old"}}

	_, err := ApplyGameLink(games, links, "CLUB CHAMPIONSHIP", "https://new")

	require.NoError(t, err)
	assert.Equal(t, "https://new", links["200"].GameURL)
	assert.Equal(t, "Club Championship", links["200"].EventName)
	assert.Len(t, links, 1)
}

func TestApplyGameLink_UnknownTournament(t *testing.T) {
	games := displayGames()
	links := make(shared.EventKeyedLinks)

	updated, err := ApplyGameLink(games, links, "NOT A TOURNAMENT", "https://x")

	assert.Zero(t, updated)
	assert.True(t, errors.Is(err, ErrUnknownTournament))
	assert.Empty(t, links)
}

func TestApplyGameLink_SurvivesResync(t *testing.T) {
	games := displayGames()
	links := make(shared.EventKeyedLinks)
	_, err := ApplyGameLink(games, links, "CLUB CHAMPIONSHIP", "https://club")
	require.NoError(t, err)

	fresh := displayGames()
	synced, _ := SyncGameLinks(fresh, links.Entries())

	assert.Equal(t, "https://club", fresh[2].GameURL)
	assert.Equal(t, links, synced)
}

func TestApplyGameLink_SharedNameUpdatesEveryEvent(t *testing.T) {
	games := []shared.GameDisplayModel{
		{EventID: "E1", EventName: "CLUB CHAMPIONSHIP (CA)", EndDate: "2023-02-01", Round: 1},
		{EventID: "E2", EventName: "CLUB CHAMPIONSHIP (CA)", EndDate: "2024-02-01", Round: 1},
	}
	links, _ := SyncGameLinks(games, []shared.GameLinkEntry{{EventName: "Club Championship (CA)", GameURL: "https://old"}})
	require.Len(t, links, 2)

	updated, err := ApplyGameLink(games, links, "CLUB CHAMPIONSHIP (CA)", "https://new")
	require.NoError(t, err)
	assert.Equal(t, 2, updated)
	assert.Equal(t, "https://new", links["E1"].GameURL)
	assert.Equal(t, "https://new", links["E2"].GameURL)

	// Re-syncing from the saved entries keeps the new url on both events
	fresh := []shared.GameDisplayModel{games[0], games[1]}
	fresh[0].GameURL, fresh[1].GameURL = "", ""
	SyncGameLinks(fresh, links.Entries())
	assert.Equal(t, "https://new", fresh[0].GameURL)
	assert.Equal(t, "https://new", fresh[1].GameURL)
}

// endregion

// region lookups

func TestFindTournament(t *testing.T) {
	games := displayGames()

	name, err := FindTournament("  world open (pa) ", games)
	require.NoError(t, err)
	assert.Equal(t, "WORLD OPEN (PA)", name)

	_, err = FindTournament("world open", games)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownTournament))
	var unknown *UnknownTournamentError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "WORLD OPEN (PA)", unknown.Candidate)
	assert.Contains(t, err.Error(), `did you mean "WORLD OPEN (PA)"`)

	_, err = FindTournament("zzzz", games)
	require.True(t, errors.As(err, &unknown))
	assert.Empty(t, unknown.Candidate)

	_, err = FindTournament("", games)
	assert.True(t, errors.Is(err, ErrUnknownTournament))
}

func TestTournaments(t *testing.T) {
	games := displayGames()
	games[1].GameURL = "https://w"

	tournaments := Tournaments(games)

	require.Len(t, tournaments, 3)
	assert.Equal(t, "100", tournaments[0].EventID)
	assert.Equal(t, 2, tournaments[0].Games)
	assert.Equal(t, "https://w", tournaments[0].GameURL)
	assert.Equal(t, "CLUB CHAMPIONSHIP", tournaments[1].EventName)
	assert.Equal(t, 1, tournaments[2].Games)
}

func TestResolveTournament(t *testing.T) {
	games := displayGames()

	name, ok := ResolveTournament("club championship", games)
	assert.True(t, ok)
	assert.Equal(t, "CLUB CHAMPIONSHIP", name)

	name, ok = ResolveTournament("north american", games)
	assert.True(t, ok)
	assert.Equal(t, "35TH ANNUAL NORTH AMERICAN OPEN (NV)", name)

	_, ok = ResolveTournament("zzzz", games)
	assert.False(t, ok)

	_, ok = ResolveTournament("  ", games)
	assert.False(t, ok)
}

func TestSuggestLinkMatches(t *testing.T) {
	unmatched := []shared.GameLinkEntry{
		{EventName: "World Open (NJ)", GameURL: "https://a"},
		{EventName: "SOMETHING ELSE ENTIRELY", GameURL: "https://b"},
	}

	suggestions := SuggestLinkMatches(displayGames(), unmatched)

	require.Len(t, suggestions, 1)
	assert.Equal(t, "World Open (NJ)", suggestions[0].Link.EventName)
	assert.Equal(t, []string{"WORLD OPEN (PA)"}, suggestions[0].Candidates)
}

// endregion
