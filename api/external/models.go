/* models.go
 * This file contains the models used by the external package when fetching data from the USCF ratings api, and
 * the per section results reported back by the standings fetcher
 */

package external

import (
	"fmt"
	"net/http"
	"uscf-gamelist/api/shared"
)

// page is the envelope used by the members and standings endpoints. Either may also answer with a bare list
type page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// PlayerStanding is one player's row in a section's standings
type PlayerStanding struct {
	MemberID      string             `json:"memberId"`
	FirstName     string             `json:"firstName"`
	LastName      string             `json:"lastName"`
	RoundOutcomes []RoundOutcome     `json:"roundOutcomes"`
	Ratings       []PlayerRatingInfo `json:"ratings"`
}

// PlayerRatingInfo is a player's rating in one rating system for the section
type PlayerRatingInfo struct {
	PreRating    int    `json:"preRating"`
	PostRating   int    `json:"postRating"`
	RatingSystem string `json:"ratingSystem"`
}

// RoundOutcome is a single round result from the player's point of view
type RoundOutcome struct {
	RoundNumber       int    `json:"roundNumber"`
	Outcome           string `json:"outcome"`
	Color             string `json:"color"`
	OpponentMemberID  string `json:"opponentMemberId"`
	OpponentFirstName string `json:"opponentFirstName"`
	OpponentLastName  string `json:"opponentLastName"`
}

// APIError is returned when the ratings api answers with a non-success status
type APIError struct {
	StatusCode int
	Body       string
	URL        string
}

func (e *APIError) Error() string {
	if e.StatusCode == http.StatusInternalServerError {
		return fmt.Sprintf("the USCF ratings api is temporarily unavailable (500 Internal Server Error) for %s, try again later", e.URL)
	}
	return fmt.Sprintf("api error (%d %s) for %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL, e.Body)
}

// SectionStatus is the outcome of fetching standings for one section
type SectionStatus int

const (
	SectionFetched SectionStatus = iota
	SectionSkipped
)

func (s SectionStatus) String() string {
	switch s {
	case SectionFetched:
		return "fetched"
	case SectionSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// SectionResult records what happened to a single section during a standings fetch
type SectionResult struct {
	Section shared.Section
	Status  SectionStatus
	Reason  string
	Games   int
}

// FetchReport is the result of GetCompleteGamesFromSections: the games that were built plus one result per
// section that was attempted
type FetchReport struct {
	Games   []shared.Game
	Results []SectionResult
}

// Skipped returns the results for sections that were skipped
func (r *FetchReport) Skipped() []SectionResult {
	return r.filter(SectionSkipped)
}

// Fetched returns the results for sections whose standings were read
func (r *FetchReport) Fetched() []SectionResult {
	return r.filter(SectionFetched)
}

func (r *FetchReport) filter(status SectionStatus) []SectionResult {
	if r == nil {
		return nil
	}
	var out []SectionResult
	for _, res := range r.Results {
		if res.Status == status {
			out = append(out, res)
		}
	}
	return out
}

// ProgressFunc receives human readable progress messages. A nil ProgressFunc is ignored
type ProgressFunc func(message string)

func (p ProgressFunc) report(format string, args ...any) {
	if p != nil {
		p(fmt.Sprintf(format, args...))
	}
}
