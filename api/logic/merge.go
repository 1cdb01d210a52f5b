/* merge.go
 * Contains the reconciliation of raw games with their sections: round assignment, rating changes, tournament name
 * formatting and the display ordering
 */

package logic

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
	"uscf-gamelist/api/shared"
)

// ratingKey identifies the rating record that applies to a game
type ratingKey struct {
	eventID       string
	sectionNumber int
	ratingSystem  string
}

// groupKey identifies the games played in one section of one event
type groupKey struct {
	eventID       string
	sectionNumber int
}

// MergeGamesWithSections combines games with the sections they were played in and produces the display model
// Preconditions: Receives every game (cached and freshly fetched) and every section known for the member
// Postconditions: Returns one display model per game ordered by end date descending then round ascending. Each
// game's Round is overwritten with its position (from 1) in its event/section group ordered by date
func MergeGamesWithSections(games []shared.Game, sections []shared.Section) []shared.GameDisplayModel {
	ratings := make(map[ratingKey]shared.RatingRecord)
	for _, section := range sections {
		for _, record := range section.RatingRecords {
			key := ratingKey{section.Event.ID, section.SectionNumber, section.RatingSystem}
			if _, ok := ratings[key]; !ok {
				ratings[key] = record
			}
		}
	}

	// Groups are kept in the order they first appear so the stable sort below has a deterministic input
	var order []groupKey
	groups := make(map[groupKey][]int)
	for i, game := range games {
		key := groupKey{game.Event.ID, game.Section.Number}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	models := make([]shared.GameDisplayModel, 0, len(games))
	for _, key := range order {
		indexes := groups[key]
		// Dates are ISO 8601 so they order lexically
		sort.SliceStable(indexes, func(a, b int) bool {
			return games[indexes[a]].Date < games[indexes[b]].Date
		})

		for round, i := range indexes {
			games[i].Round = round + 1
			game := games[i]

			myRatingChange := ""
			if record, ok := ratings[ratingKey{key.eventID, key.sectionNumber, game.RatingSystem}]; ok {
				myRatingChange = RatingChange(record.PreRating, record.PostRating)
			}

			opponentRatingChange := ""
			if game.Opponent.PreRating > 0 {
				opponentRatingChange = RatingChange(game.Opponent.PreRating, game.Opponent.PostRating)
			}

			models = append(models, shared.GameDisplayModel{
				EventID:              game.Event.ID,
				EventName:            FormatEventName(game.Event.Name, game.Event.StateCode),
				EndDate:              game.Event.EndDate,
				SectionNumber:        game.Section.Number,
				Round:                game.Round,
				OpponentName:         strings.ToUpper(strings.TrimSpace(game.Opponent.FirstName + " " + game.Opponent.LastName)),
				OpponentID:           game.Opponent.ID,
				Result:               resultLetter(game.Player.Outcome),
				MyRatingChange:       myRatingChange,
				OpponentRatingChange: opponentRatingChange,
				Color:                game.Player.Color,
			})
		}
	}

	SortDisplayModels(models)
	return models
}

// SortDisplayModels orders games newest tournament first, then by round
func SortDisplayModels(models []shared.GameDisplayModel) {
	sort.SliceStable(models, func(i, j int) bool {
		if models[i].EndDate != models[j].EndDate {
			return models[i].EndDate > models[j].EndDate
		}
		return models[i].Round < models[j].Round
	})
}

// FormatEventName formats a tournament name the way the game link table stores it
// e.g. "35th annual North American Open", "NV" -> "35TH ANNUAL NORTH AMERICAN OPEN (NV)"
func FormatEventName(name string, stateCode string) string {
	formatted := strings.ToUpper(name)
	if stateCode != "" {
		formatted = fmt.Sprintf("%s (%s)", formatted, strings.ToUpper(stateCode))
	}
	return formatted
}

// RatingChange renders a pre and post rating as "pre → post"
func RatingChange(pre int, post int) string {
	return fmt.Sprintf("%d → %d", pre, post)
}

// resultLetter maps Win, Loss and Draw to W, L and D
func resultLetter(outcome string) string {
	if outcome == "" {
		return ""
	}
	r, _ := utf8.DecodeRuneInString(outcome)
	return string(unicode.ToUpper(r))
}

// NewSections returns the sections whose event has no games in the cache. Only these need their standings fetched
// Preconditions: Receives every section for the member and the cached games
// Postconditions: Returns the uncached sections in their original order
func NewSections(sections []shared.Section, cachedGames []shared.Game) []shared.Section {
	cached := make(map[string]struct{}, len(cachedGames))
	for _, game := range cachedGames {
		cached[game.Event.ID] = struct{}{}
	}

	var fresh []shared.Section
	for _, section := range sections {
		if _, ok := cached[section.Event.ID]; !ok {
			fresh = append(fresh, section)
		}
	}
	return fresh
}
