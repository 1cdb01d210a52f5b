/* forget.go
 * Contains the cache maintenance used to force tournaments to be fetched again on the next refresh
 */

package logic

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"uscf-gamelist/api/shared"
)

// ForgetMode selects which tournaments ForgetTournaments drops
type ForgetMode string

const (
	ForgetRecent ForgetMode = "recent"
	ForgetRandom ForgetMode = "random"
)

// ParseForgetMode accepts "recent" or "random"
func ParseForgetMode(s string) (ForgetMode, error) {
	switch ForgetMode(s) {
	case ForgetRecent, ForgetRandom:
		return ForgetMode(s), nil
	default:
		return "", fmt.Errorf("unknown forget mode %q, expected recent or random", s)
	}
}

// Shuffler reorders n items by calling swap, rand.Shuffle by default
type Shuffler func(n int, swap func(i, j int))

// ForgetTournaments removes up to n tournaments from the cached games. Because refresh only fetches standings for
// events with no cached games, the removed tournaments are fetched again next time
// Preconditions: Receives the cached games, the number of tournaments to drop, the mode and an optional shuffler
// used by ForgetRandom
// Postconditions: Returns the remaining games in their original order and the ids of the removed events
func ForgetTournaments(games []shared.Game, n int, mode ForgetMode, shuffle Shuffler) ([]shared.Game, []string) {
	if n <= 0 || len(games) == 0 {
		return games, nil
	}

	// Distinct events with the end date of their first game
	var ids []string
	endDates := make(map[string]string)
	for _, game := range games {
		if _, ok := endDates[game.Event.ID]; !ok {
			endDates[game.Event.ID] = game.Event.EndDate
			ids = append(ids, game.Event.ID)
		}
	}

	switch mode {
	case ForgetRecent:
		sort.SliceStable(ids, func(i, j int) bool { return endDates[ids[i]] > endDates[ids[j]] })
	case ForgetRandom:
		if shuffle == nil {
			shuffle = rand.Shuffle
		}
		shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	default:
		return games, nil
	}

	if n > len(ids) {
		n = len(ids)
	}
	removed := ids[:n]
	drop := make(map[string]struct{}, n)
	for _, id := range removed {
		drop[id] = struct{}{}
	}

	remaining := make([]shared.Game, 0, len(games))
	for _, game := range games {
		if _, ok := drop[game.Event.ID]; !ok {
			remaining = append(remaining, game)
		}
	}
	return remaining, removed
}
