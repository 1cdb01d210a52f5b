/* standings.go
 * Contains the standings fetcher. Games are rebuilt from each section's standings because the games endpoint
 * does not carry opponent ratings; sections are fetched one at a time and paced to respect the api's throttling
 */

package external

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"uscf-gamelist/api/shared"

	"go.uber.org/zap"
)

// noOpponent is the placeholder the api uses for byes and forfeits
const noOpponent = "undefined"

// GetCompleteGamesFromSections fetches the standings of every section in turn and converts the member's round
// outcomes into games. A section that cannot be read is skipped and recorded in the report; only cancellation of
// ctx stops the loop
// Preconditions: Receives a context, the member's USCF id, the sections to fetch and an optional progress sink
// Postconditions: Returns a report holding the games built and one SectionResult per section attempted. The error
// is non-nil only when ctx was cancelled, in which case the partial report is still returned
func (c *Client) GetCompleteGamesFromSections(ctx context.Context, memberID string, sections []shared.Section, progress ProgressFunc) (*FetchReport, error) {
	report := &FetchReport{}

	for i, section := range sections {
		progress.report("Fetching standings %d/%d (%d games loaded)...", i+1, len(sections), len(report.Games))

		if err := c.limiter.Wait(ctx); err != nil {
			return report, fmt.Errorf("standings fetch interrupted: %w", err)
		}

		games, err := c.gamesFromSection(ctx, memberID, section)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, fmt.Errorf("standings fetch interrupted: %w", ctxErr)
			}
			c.logger.Warn("skipping section",
				zap.String("eventId", section.Event.ID),
				zap.String("event", section.Event.Name),
				zap.Int("section", section.SectionNumber),
				zap.Error(err),
			)
			progress.report("Skipped %s section %d: %s", section.Event.Name, section.SectionNumber, err)
			report.Results = append(report.Results, SectionResult{Section: section, Status: SectionSkipped, Reason: err.Error()})
			continue
		}

		report.Games = append(report.Games, games...)
		report.Results = append(report.Results, SectionResult{Section: section, Status: SectionFetched, Games: len(games)})
		c.logger.Debug("section fetched",
			zap.String("eventId", section.Event.ID),
			zap.Int("section", section.SectionNumber),
			zap.Int("games", len(games)),
		)
	}

	progress.report("Completed: Fetched %d games from %d sections", len(report.Games), len(sections))
	return report, nil
}

// gamesFromSection fetches one section's standings and builds the member's games from it
func (c *Client) gamesFromSection(ctx context.Context, memberID string, section shared.Section) ([]shared.Game, error) {
	path := fmt.Sprintf("rated-events/%s/sections/%s/standings",
		url.PathEscape(section.Event.ID), strconv.Itoa(section.SectionNumber))

	body, err := c.get(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	standings, err := decodeItems[PlayerStanding](body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode standings: %w", err)
	}
	if len(standings) == 0 {
		return nil, errors.New("standings are empty")
	}

	return BuildGames(memberID, section, standings)
}

// BuildGames converts the member's row in a section's standings into games
// Preconditions: Receives the member id, the section and every player row from the section's standings
// Postconditions: Returns one game per round that had an opponent, or an error if the member is not in the
// standings
func BuildGames(memberID string, section shared.Section, standings []PlayerStanding) ([]shared.Game, error) {
	var player *PlayerStanding
	for i := range standings {
		if standings[i].MemberID == memberID {
			player = &standings[i]
			break
		}
	}
	if player == nil {
		return nil, fmt.Errorf("player %s not found in standings", memberID)
	}

	// First row wins when a member id appears more than once
	ratingsByMember := make(map[string][]PlayerRatingInfo, len(standings))
	for _, row := range standings {
		if _, seen := ratingsByMember[row.MemberID]; !seen {
			ratingsByMember[row.MemberID] = row.Ratings
		}
	}

	games := make([]shared.Game, 0, len(player.RoundOutcomes))
	for _, outcome := range player.RoundOutcomes {
		if isBye(outcome.OpponentMemberID) {
			continue
		}

		preRating, postRating := ResolveOpponentRating(ratingsByMember[outcome.OpponentMemberID], section.RatingSystem)

		games = append(games, shared.Game{
			Date: section.EndDate,
			Section: shared.SectionInfo{
				ID:     section.ID,
				Number: section.SectionNumber,
				Name:   section.SectionName,
			},
			Event:        section.Event,
			RatingSystem: section.RatingSystem,
			Player: shared.PlayerInfo{
				ID:        memberID,
				FirstName: player.FirstName,
				LastName:  player.LastName,
				Color:     outcome.Color,
				Outcome:   outcome.Outcome,
			},
			Opponent: shared.OpponentInfo{
				ID:         outcome.OpponentMemberID,
				FirstName:  outcome.OpponentFirstName,
				LastName:   outcome.OpponentLastName,
				Color:      InvertColor(outcome.Color),
				Outcome:    InvertOutcome(outcome.Outcome),
				PreRating:  preRating,
				PostRating: postRating,
			},
			Round: outcome.RoundNumber,
		})
	}
	return games, nil
}

func isBye(opponentID string) bool {
	id := strings.TrimSpace(opponentID)
	return id == "" || id == noOpponent
}

// ResolveOpponentRating picks the opponent rating that applies to a section. The section's rating system is
// preferred (dual "D" sections use quick "Q"), then regular "R", then whatever entry exists. A zero pre rating
// with a post rating means the opponent was unrated before the event, so the post rating is used for both
// Preconditions: Receives the opponent's ratings from the standings and the section's rating system code
// Postconditions: Returns the pre and post rating, 0 and 0 if none is available
func ResolveOpponentRating(ratings []PlayerRatingInfo, ratingSystem string) (int, int) {
	if len(ratings) == 0 {
		return 0, 0
	}

	target := ratingSystem
	if target == "D" {
		target = "Q"
	}

	chosen := findRating(ratings, target)
	if chosen == nil {
		chosen = findRating(ratings, "R")
	}
	if chosen == nil {
		chosen = &ratings[0]
	}

	pre, post := chosen.PreRating, chosen.PostRating
	if pre == 0 && post > 0 {
		pre = post
	}
	return pre, post
}

func findRating(ratings []PlayerRatingInfo, system string) *PlayerRatingInfo {
	for i := range ratings {
		if ratings[i].RatingSystem == system {
			return &ratings[i]
		}
	}
	return nil
}

// InvertOutcome returns the opponent's outcome for the member's outcome
func InvertOutcome(outcome string) string {
	switch outcome {
	case "Win":
		return "Loss"
	case "Loss":
		return "Win"
	default:
		return "Draw"
	}
}

// InvertColor returns the opponent's color for the member's color
func InvertColor(color string) string {
	if color == "White" {
		return "Black"
	}
	return "White"
}
