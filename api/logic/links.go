/* links.go
 * Contains the game link logic: projecting the link table onto the games, manual link entry and the tournament
 * lookups used by the chat and web front ends
 */

package logic

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"uscf-gamelist/api/shared"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

var (
	// ErrEmptyGameURL is returned when a link is entered without a url
	ErrEmptyGameURL = errors.New("game url is required")
	// ErrMalformedGameURL is returned for a url that is not absolute. It is a warning: the link is accepted once the
	// user confirms it
	ErrMalformedGameURL = errors.New("game url is not a valid absolute url")
	// ErrUnknownTournament is returned when no game belongs to the named tournament
	ErrUnknownTournament = errors.New("no games found for tournament")
)

// maxSuggestions is the number of candidate tournaments offered for each unmatched link
const maxSuggestions = 3

// SyncGameLinks stamps every game with the url of the first link entry whose name matches the game's tournament
// name case-insensitively, and builds the event id keyed table from the matches
// Preconditions: Receives the display models (modified in place) and the link entries in table order. Entries can
// come from either the name keyed table loaded from storage or an event keyed table from a previous sync
// Postconditions: Returns the event keyed table and the number of tournaments matched. Games without a match have
// an empty GameURL
func SyncGameLinks(games []shared.GameDisplayModel, links []shared.GameLinkEntry) (shared.EventKeyedLinks, int) {
	synced := make(shared.EventKeyedLinks)
	for i := range games {
		match, ok := findLink(links, games[i].EventName)
		if !ok {
			games[i].GameURL = ""
			continue
		}
		if _, exists := synced[games[i].EventID]; !exists {
			synced[games[i].EventID] = match
		}
		games[i].GameURL = match.GameURL
	}
	return synced, len(synced)
}

func findLink(links []shared.GameLinkEntry, eventName string) (shared.GameLinkEntry, bool) {
	for _, link := range links {
		if shared.SameName(link.EventName, eventName) {
			return link, true
		}
	}
	return shared.GameLinkEntry{}, false
}

// UnmatchedLinks returns the link entries that match none of the games. They are kept alongside the event keyed
// table so that saving the table does not drop links for tournaments that are not loaded
func UnmatchedLinks(games []shared.GameDisplayModel, links []shared.GameLinkEntry) []shared.GameLinkEntry {
	var unmatched []shared.GameLinkEntry
	for _, link := range links {
		found := false
		for _, game := range games {
			if shared.SameName(link.EventName, game.EventName) {
				found = true
				break
			}
		}
		if !found {
			unmatched = append(unmatched, link)
		}
	}
	return unmatched
}

// ValidateGameURL checks a manually entered link
// Preconditions: Receives the raw url
// Postconditions: Returns nil for an absolute url, ErrEmptyGameURL for a blank one and ErrMalformedGameURL (which
// the caller may override after confirmation) for anything else
func ValidateGameURL(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ErrEmptyGameURL
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || !parsed.IsAbs() || (parsed.Host == "" && parsed.Opaque == "") {
		return fmt.Errorf("%w: %q", ErrMalformedGameURL, trimmed)
	}
	return nil
}

// ApplyGameLink attaches a url to every game of a tournament and records it in the event keyed table under every
// event id that carries that tournament name
// Preconditions: Receives the display models (modified in place), the event keyed table (modified in place), the
// formatted tournament name and the url, which has already been validated
// Postconditions: Returns the number of games updated, or ErrUnknownTournament if no game has that name. Entries
// with the same name under other event ids get the new url too, so a later sync cannot restore the old one
func ApplyGameLink(games []shared.GameDisplayModel, links shared.EventKeyedLinks, eventName string, gameURL string) (int, error) {
	gameURL = strings.TrimSpace(gameURL)
	updated := 0
	for i := range games {
		if games[i].EventName != eventName {
			continue
		}
		entry, ok := links[games[i].EventID]
		if !ok {
			entry = shared.GameLinkEntry{EventName: eventName}
		}
		entry.GameURL = gameURL
		links[games[i].EventID] = entry
		games[i].GameURL = gameURL
		updated++
	}
	if updated == 0 {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTournament, eventName)
	}

	for id, entry := range links {
		if shared.SameName(entry.EventName, eventName) && entry.GameURL != gameURL {
			entry.GameURL = gameURL
			links[id] = entry
		}
	}
	return updated, nil
}

// UnknownTournamentError reports a tournament name that matches no game exactly. Candidate holds the closest
// tournament name, if any, so the caller can offer it back to the user
type UnknownTournamentError struct {
	Query     string
	Candidate string
}

func (e *UnknownTournamentError) Error() string {
	if e.Candidate == "" {
		return fmt.Sprintf("%s: %s", ErrUnknownTournament, e.Query)
	}
	return fmt.Sprintf("%s: %s (did you mean %q?)", ErrUnknownTournament, e.Query, e.Candidate)
}

func (e *UnknownTournamentError) Unwrap() error {
	return ErrUnknownTournament
}

// FindTournament returns the formatted name of the tournament whose name equals query case-insensitively
// Preconditions: Receives the user's input and the display models
// Postconditions: Returns the formatted name, or an *UnknownTournamentError carrying the closest fuzzy match
func FindTournament(query string, games []shared.GameDisplayModel) (string, error) {
	query = strings.TrimSpace(query)
	for _, game := range games {
		if query != "" && shared.SameName(game.EventName, query) {
			return game.EventName, nil
		}
	}
	candidate, _ := ResolveTournament(query, games)
	return "", &UnknownTournamentError{Query: query, Candidate: candidate}
}

// Tournament is a summary of one tournament in the game list
type Tournament struct {
	EventID       string `json:"eventId"`
	EventName     string `json:"eventName"`
	EndDate       string `json:"endDate"`
	SectionNumber int    `json:"sectionNumber"`
	Games         int    `json:"games"`
	GameURL       string `json:"gameUrl"`
}

// Tournaments lists the distinct tournaments in the order their games appear
func Tournaments(games []shared.GameDisplayModel) []Tournament {
	var tournaments []Tournament
	index := make(map[string]int)
	for _, game := range games {
		i, ok := index[game.EventID]
		if !ok {
			index[game.EventID] = len(tournaments)
			tournaments = append(tournaments, Tournament{
				EventID:       game.EventID,
				EventName:     game.EventName,
				EndDate:       game.EndDate,
				SectionNumber: game.SectionNumber,
			})
			i = len(tournaments) - 1
		}
		tournaments[i].Games++
		if tournaments[i].GameURL == "" {
			tournaments[i].GameURL = game.GameURL
		}
	}
	return tournaments
}

// ResolveTournament turns a typed tournament name into the formatted name used by the games
// Preconditions: Receives the user's input and the display models
// Postconditions: Returns the formatted name and true. A case-insensitive exact match wins, otherwise the closest
// fuzzy match is used. Returns false if nothing matches
func ResolveTournament(query string, games []shared.GameDisplayModel) (string, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", false
	}

	var names []string
	seen := make(map[string]struct{})
	for _, game := range games {
		if _, ok := seen[game.EventName]; ok {
			continue
		}
		seen[game.EventName] = struct{}{}
		if shared.SameName(game.EventName, query) {
			return game.EventName, true
		}
		names = append(names, game.EventName)
	}

	ranks := fuzzy.RankFindFold(query, names)
	if len(ranks) == 0 {
		return "", false
	}
	sort.Stable(ranks)
	return ranks[0].Target, true
}

// LinkSuggestion pairs an unmatched link entry with the tournaments it most likely belongs to
type LinkSuggestion struct {
	Link       shared.GameLinkEntry `json:"link"`
	Candidates []string             `json:"candidates"`
}

// SuggestLinkMatches proposes tournaments for link entries that did not match any game, usually because the
// tournament was renamed. Only candidates within a third of the name's length in edit distance are offered
// Preconditions: Receives the display models and the unmatched link entries
// Postconditions: Returns one suggestion per entry that has at least one candidate, closest candidates first
func SuggestLinkMatches(games []shared.GameDisplayModel, unmatched []shared.GameLinkEntry) []LinkSuggestion {
	var names []string
	for _, tournament := range Tournaments(games) {
		names = append(names, tournament.EventName)
	}

	var suggestions []LinkSuggestion
	for _, link := range unmatched {
		source := strings.ToUpper(link.EventName)
		limit := len(source)/3 + 1

		type candidate struct {
			name     string
			distance int
		}
		var candidates []candidate
		for _, name := range names {
			distance := fuzzy.LevenshteinDistance(source, name)
			if distance <= limit {
				candidates = append(candidates, candidate{name, distance})
			}
		}
		if len(candidates) == 0 {
			continue
		}
		sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].distance < candidates[j].distance })

		suggestion := LinkSuggestion{Link: link}
		for i := 0; i < len(candidates) && i < maxSuggestions; i++ {
			suggestion.Candidates = append(suggestion.Candidates, candidates[i].name)
		}
		suggestions = append(suggestions, suggestion)
	}
	return suggestions
}
