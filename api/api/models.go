/* models.go
 * This file contain the interfaces and structs that are used by api consumers
 */

package api

import (
	"context"
	"errors"
	"uscf-gamelist/api/external"
	"uscf-gamelist/api/shared"
)

// ErrRefreshInProgress is returned when a refresh is requested while another one is running
var ErrRefreshInProgress = errors.New("a refresh is already in progress")

// ErrNoMemberID is returned when no member id was given and none is configured
var ErrNoMemberID = errors.New("no USCF member id given")

// Fetcher is the part of the ratings api client used by the API. *external.Client implements it
type Fetcher interface {
	GetMemberSections(ctx context.Context, memberID string, progress external.ProgressFunc) ([]shared.Section, error)
	GetCompleteGamesFromSections(ctx context.Context, memberID string, sections []shared.Section, progress external.ProgressFunc) (*external.FetchReport, error)
}

var _ Fetcher = (*external.Client)(nil)

// RefreshResult summarises a refresh
type RefreshResult struct {
	Tournaments int                      `json:"tournaments"`
	Games       int                      `json:"games"`
	Sections    int                      `json:"sections"`
	NewSections int                      `json:"newSections"`
	NewGames    int                      `json:"newGames"`
	Matched     int                      `json:"matchedLinks"`
	Skipped     []external.SectionResult `json:"-"`
}

// SkippedSection is a section that could not be fetched, in a form suitable for display
type SkippedSection struct {
	EventID   string `json:"eventId"`
	EventName string `json:"eventName"`
	Section   int    `json:"section"`
	Reason    string `json:"reason"`
}

// SkippedSections flattens the skipped results for display
func (r RefreshResult) SkippedSections() []SkippedSection {
	out := make([]SkippedSection, 0, len(r.Skipped))
	for _, res := range r.Skipped {
		out = append(out, SkippedSection{
			EventID:   res.Section.Event.ID,
			EventName: res.Section.Event.Name,
			Section:   res.Section.SectionNumber,
			Reason:    res.Reason,
		})
	}
	return out
}
