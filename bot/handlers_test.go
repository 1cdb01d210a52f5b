/* handlers_test.go
 * Contains unit tests for bot command handlers using mock Discord session
 */

package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"uscf-gamelist/api/api"
	"uscf-gamelist/api/shared"
	"uscf-gamelist/api/store"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	testMember  = "30000001"
	testChannel = "channel123"
)

func testSection(eventID string, name string, endDate string) shared.Section {
	return shared.Section{
		SectionNumber: 1,
		EndDate:       endDate,
		RatingSystem:  "R",
		Event:         shared.EventInfo{ID: eventID, Name: name, EndDate: endDate, StateCode: "pa"},
		RatingRecords: []shared.RatingRecord{{EventID: eventID, SectionNumber: 1, PreRating: 1500, PostRating: 1520}},
	}
}

func testGame(section shared.Section, round int, outcome string, color string) shared.Game {
	return shared.Game{
		Date:         section.EndDate,
		Section:      shared.SectionInfo{Number: 1},
		Event:        section.Event,
		RatingSystem: "R",
		Player:       shared.PlayerInfo{ID: testMember, Outcome: outcome, Color: color},
		Opponent:     shared.OpponentInfo{ID: "1234567" + section.Event.ID, FirstName: "Ann", LastName: "Lee", PreRating: 1400, PostRating: 1390},
		Round:        round,
	}
}

// createTestBot creates a Bot whose API knows two tournaments. When refresh is true the games are already loaded
func createTestBot(t *testing.T, refresh bool) (*Bot, *api.MockFetcher, *api.MockStore) {
	t.Helper()
	worldOpen := testSection("1", "World Open", "2024-07-04")
	club := testSection("2", "Club Championship", "2023-03-01")

	fetcher := api.NewMockFetcher(worldOpen, club)
	fetcher.GamesByEvent["1"] = []shared.Game{testGame(worldOpen, 1, "Win", "White"), testGame(worldOpen, 2, "Draw", "Black")}
	fetcher.GamesByEvent["2"] = []shared.Game{testGame(club, 1, "Loss", "Black")}
	docs := api.NewMockStore()

	apiPtr := api.New(fetcher, docs, testMember, zaptest.NewLogger(t))
	if refresh {
		_, err := apiPtr.Refresh(context.Background(), "", nil)
		require.NoError(t, err)
	}

	bot, err := NewBot("test_token", apiPtr, zaptest.NewLogger(t))
	require.NoError(t, err)
	return bot, fetcher, docs
}

// createMockMessage creates a mock Discord message for testing
func createMockMessage(content, userID, username, channelID string) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{
		Message: &discordgo.Message{
			Content:   content,
			ChannelID: channelID,
			Author: &discordgo.User{
				ID:       userID,
				Username: username,
			},
		},
	}
}

// run routes content through newMessageHandler and returns everything the bot sent
func run(t *testing.T, bot *Bot, content string) (*MockDiscordSession, string) {
	t.Helper()
	mockSession := NewMockDiscordSession()
	bot.newMessageHandler(context.Background(), mockSession, createMockMessage(content, "user123", "TestUser", testChannel), "bot")
	return mockSession, mockSession.AllContent()
}

// region routing tests

func TestNewMessageHandler_IgnoresOwnMessages(t *testing.T) {
	bot, _, _ := createTestBot(t, true)
	mockSession := NewMockDiscordSession()

	bot.newMessageHandler(context.Background(), mockSession, createMockMessage("$help", "bot", "Bot", testChannel), "bot")

	assert.Empty(t, mockSession.SentMessages)
}

func TestNewMessageHandler_IgnoresOtherChannelsAndText(t *testing.T) {
	bot, _, _ := createTestBot(t, true)
	bot.ChannelID = "other"

	mockSession, _ := run(t, bot, "$help")
	assert.Empty(t, mockSession.SentMessages)

	bot.ChannelID = ""
	mockSession, _ = run(t, bot, "hello $help")
	assert.Empty(t, mockSession.SentMessages)

	mockSession, _ = run(t, bot, "$unknown")
	assert.Empty(t, mockSession.SentMessages)
}

func TestHelpMessage_Success(t *testing.T) {
	bot, _, _ := createTestBot(t, false)

	mockSession, content := run(t, bot, "$help")

	require.Len(t, mockSession.SentMessages, 1)
	assert.Equal(t, testChannel, mockSession.GetLastMessage().ChannelID)
	for _, command := range []string{"$refresh", "$tournaments", "$games", "$link", "$stats", "$summary", "$publish", "$addid", "$ids", "$clearcache", "$forget"} {
		assert.Contains(t, content, command)
	}
}

// endregion

// region refresh tests

func TestRefresh_Success(t *testing.T) {
	bot, fetcher, _ := createTestBot(t, false)

	mockSession, content := run(t, bot, "$refresh 12345678")

	require.Len(t, mockSession.SentMessages, 2)
	assert.Equal(t, 1, mockSession.TypingCalls)
	assert.Contains(t, content, "Loaded 3 games from 2 tournaments")
	assert.Equal(t, []string{"12345678"}, fetcher.MemberIDs)
}

func TestRefresh_ReportsSkipped(t *testing.T) {
	bot, fetcher, _ := createTestBot(t, false)
	fetcher.SkipEvents["2"] = "standings are empty"

	_, content := run(t, bot, "$refresh")

	assert.Contains(t, content, "skipped Club Championship section 1: standings are empty")
}

func TestRefresh_Error(t *testing.T) {
	bot, fetcher, _ := createTestBot(t, false)
	fetcher.SectionsError = errors.New("connection refused")

	_, content := run(t, bot, "$refresh")

	assert.Contains(t, content, "An error occurred refreshing the game list")
}

func TestRefresh_NoMemberID(t *testing.T) {
	bot, _, _ := createTestBot(t, false)
	bot.APIPtr.MemberID = ""

	_, content := run(t, bot, "$refresh")

	assert.Contains(t, content, "No USCF id is configured")
}

// endregion

// region tournaments and games tests

func TestTournaments(t *testing.T) {
	bot, _, _ := createTestBot(t, true)

	_, content := run(t, bot, "$tournaments")

	assert.Contains(t, content, "2 tournaments")
	assert.Contains(t, content, "2024-07-04 WORLD OPEN (PA) (2 games)")
	assert.Less(t, strings.Index(content, "WORLD OPEN"), strings.Index(content, "CLUB CHAMPIONSHIP"))
}

func TestTournaments_Empty(t *testing.T) {
	bot, _, _ := createTestBot(t, false)

	_, content := run(t, bot, "$tournaments")

	assert.Contains(t, content, "No games are loaded")
}

func TestGames(t *testing.T) {
	bot, _, _ := createTestBot(t, true)

	mockSession, content := run(t, bot, `$games "world open"`)

	require.Len(t, mockSession.SentMessages, 2)
	assert.Contains(t, content, "WORLD OPEN (PA) (2024-07-04)")
	assert.True(t, strings.HasPrefix(mockSession.GetLastMessage().Content, "```"))
	assert.Contains(t, content, "ANN LEE")
	assert.Contains(t, content, "1500 → 1520")
}

func TestGames_Unknown(t *testing.T) {
	bot, _, _ := createTestBot(t, true)

	_, content := run(t, bot, `$games "zzzz"`)

	assert.Contains(t, content, `No tournament matches "zzzz"`)
}

// endregion

// region link tests

func TestLink_Success(t *testing.T) {
	bot, _, docs := createTestBot(t, true)

	_, content := run(t, bot, `$link "World Open (PA)" https://lichess.org/study/abc`)

	assert.Contains(t, content, "Game link saved for WORLD OPEN (PA) (2 games)")
	links, err := docs.Store.LoadGameLinks(context.Background())
	require.NoError(t, err)
	entry, ok := links.Get("WORLD OPEN (PA)")
	require.True(t, ok)
	assert.Equal(t, "https://lichess.org/study/abc", entry.GameURL)

	_, content = run(t, bot, "$tournaments")
	assert.Contains(t, content, "<https://lichess.org/study/abc>")
}

func TestLink_NeedsConfirmation(t *testing.T) {
	bot, _, _ := createTestBot(t, true)

	_, content := run(t, bot, `$link "World Open (PA)" chessbase-file`)
	assert.Contains(t, content, "does not look like a valid url")

	_, content = run(t, bot, `$link "World Open (PA)" chessbase-file confirm`)
	assert.Contains(t, content, "Game link saved")
}

func TestLink_Errors(t *testing.T) {
	bot, _, docs := createTestBot(t, true)

	_, content := run(t, bot, `$link "World Open (PA)"`)
	assert.Contains(t, content, "Usage")

	_, content = run(t, bot, `$link "Nothing Like It" https://example.com`)
	assert.Contains(t, content, "No tournament matches")

	docs.SaveGameLinksError = errors.New("bucket gone")
	_, content = run(t, bot, `$link "World Open (PA)" https://example.com`)
	assert.Contains(t, content, "could not be saved")
}

func TestLink_PartialNameSuggestsTournament(t *testing.T) {
	bot, _, docs := createTestBot(t, true)

	_, content := run(t, bot, `$link "World Open" https://lichess.org/study/abc`)

	assert.Contains(t, content, "Did you mean `WORLD OPEN (PA)`?")
	links, err := docs.Store.LoadGameLinks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, links.Len())
}

func TestSuggest(t *testing.T) {
	bot, _, docs := createTestBot(t, false)
	require.NoError(t, docs.Store.SaveGameLinks(context.Background(), []shared.GameLinkEntry{
		{EventName: "WORLD OPEN (NV)", GameURL: "https://example.com/old"},
	}))
	_, err := bot.APIPtr.LoadGameLinks(context.Background())
	require.NoError(t, err)
	_, err = bot.APIPtr.Refresh(context.Background(), "", nil)
	require.NoError(t, err)

	_, content := run(t, bot, "$suggest")

	assert.Contains(t, content, "WORLD OPEN (NV)")
	assert.Contains(t, content, "maybe: WORLD OPEN (PA)")
}

// endregion

// region stats tests

func TestStats(t *testing.T) {
	bot, _, _ := createTestBot(t, true)

	mockSession, content := run(t, bot, "$stats")

	require.Len(t, mockSession.SentMessages, 1)
	assert.Contains(t, content, "2024")
	assert.Contains(t, content, "2023")
	assert.Contains(t, content, "Total")
	assert.Contains(t, content, "1-1-1")
}

func TestSummary(t *testing.T) {
	bot, _, _ := createTestBot(t, true)

	_, content := run(t, bot, "$summary")

	assert.Contains(t, content, "Tournaments: 2 | Games: 3 | W-L-D: 1-1-1 | With Links: 0 (0%)")
}

// endregion

// region publish and ids tests

func TestPublish(t *testing.T) {
	bot, _, docs := createTestBot(t, true)

	_, content := run(t, bot, "$publish")

	assert.Contains(t, content, "Published 3 games")
	assert.Contains(t, docs.Reports[store.ReportKey], "WORLD OPEN (PA)")
}

func TestPublish_Error(t *testing.T) {
	bot, _, docs := createTestBot(t, true)
	docs.PutReportError = errors.New("access denied")

	_, content := run(t, bot, "$publish")

	assert.Contains(t, content, "An error occurred publishing the game list")
}

func TestAddIDAndIDs(t *testing.T) {
	bot, _, _ := createTestBot(t, false)

	_, content := run(t, bot, "$addid 12345678")
	assert.Contains(t, content, "Added 12345678")

	_, content = run(t, bot, "$addid 12345678")
	assert.Contains(t, content, "already in the list")

	_, content = run(t, bot, "$addid abc")
	assert.Contains(t, content, "Could not add abc")

	_, content = run(t, bot, "$ids")
	assert.Contains(t, content, "1 ids:\n12345678")
}

func TestIDs_Empty(t *testing.T) {
	bot, _, _ := createTestBot(t, false)

	_, content := run(t, bot, "$ids")

	assert.Contains(t, content, "The id list is empty")
}

// endregion

// region cache tests

func TestCacheInfoAndClearCache(t *testing.T) {
	bot, _, _ := createTestBot(t, true)

	_, content := run(t, bot, "$cacheinfo")
	assert.Contains(t, content, "Games cache:")
	assert.Contains(t, content, time.Now().Format("2006-01-02"))

	_, content = run(t, bot, "$clearcache")
	assert.Contains(t, content, "Cache cleared")

	_, content = run(t, bot, "$cacheinfo")
	assert.Contains(t, content, "No games cache")
}

func TestForget(t *testing.T) {
	bot, fetcher, _ := createTestBot(t, true)

	_, content := run(t, bot, "$forget 1 recent")
	assert.Contains(t, content, "Removed 1 tournaments from the cache: 1")

	_, err := bot.APIPtr.Refresh(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "1"}, fetcher.RequestedEvents)
}

func TestForget_BadArguments(t *testing.T) {
	bot, _, _ := createTestBot(t, true)

	_, content := run(t, bot, "$forget")
	assert.Contains(t, content, "Usage")

	_, content = run(t, bot, "$forget x recent")
	assert.Contains(t, content, "is not a positive number")

	_, content = run(t, bot, "$forget 2 oldest")
	assert.Contains(t, content, "unknown forget mode")
}

// endregion
