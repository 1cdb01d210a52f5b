/* stats.go
 * Contains the win/loss statistics shown by the stats and summary commands
 */

package logic

import (
	"fmt"
	"sort"
	"strings"
	"uscf-gamelist/api/shared"
)

// YearStats is the record for one calendar year, or for all years in the totals row
type YearStats struct {
	Year        string `json:"year"`
	Games       int    `json:"games"`
	Wins        int    `json:"wins"`
	Losses      int    `json:"losses"`
	Draws       int    `json:"draws"`
	WhiteGames  int    `json:"whiteGames"`
	WhiteWins   int    `json:"whiteWins"`
	BlackGames  int    `json:"blackGames"`
	BlackWins   int    `json:"blackWins"`
	WinPct      string `json:"winPct"`
	WhiteWinPct string `json:"whiteWinPct"`
	BlackWinPct string `json:"blackWinPct"`
	Record      string `json:"record"`
}

func (s *YearStats) add(game shared.GameDisplayModel) {
	s.Games++
	switch game.Result {
	case "W":
		s.Wins++
	case "L":
		s.Losses++
	case "D":
		s.Draws++
	}
	switch {
	case strings.EqualFold(game.Color, "White"):
		s.WhiteGames++
		if game.Result == "W" {
			s.WhiteWins++
		}
	case strings.EqualFold(game.Color, "Black"):
		s.BlackGames++
		if game.Result == "W" {
			s.BlackWins++
		}
	}
}

func (s *YearStats) finish() {
	s.WinPct = percent(s.Wins, s.Games)
	s.WhiteWinPct = percent(s.WhiteWins, s.WhiteGames)
	s.BlackWinPct = percent(s.BlackWins, s.BlackGames)
	s.Record = fmt.Sprintf("%d-%d-%d", s.Wins, s.Losses, s.Draws)
}

func percent(part int, whole int) string {
	if whole == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(part)*100/float64(whole))
}

// YearlyStats groups the games by the year their tournament ended
// Preconditions: Receives the display models
// Postconditions: Returns one row per year, newest first, and a totals row labelled "Total". Games without a
// parsable end date are counted under "Unknown"
func YearlyStats(games []shared.GameDisplayModel) ([]YearStats, YearStats) {
	byYear := make(map[string]*YearStats)
	total := YearStats{Year: "Total"}
	for _, game := range games {
		year := "Unknown"
		if len(game.EndDate) >= 4 && isDigits(game.EndDate[:4]) {
			year = game.EndDate[:4]
		}
		stats, ok := byYear[year]
		if !ok {
			stats = &YearStats{Year: year}
			byYear[year] = stats
		}
		stats.add(game)
		total.add(game)
	}

	rows := make([]YearStats, 0, len(byYear))
	for _, stats := range byYear {
		stats.finish()
		rows = append(rows, *stats)
	}
	// "Unknown" sorts after every digit so it lands first in a descending sort; push it to the end instead
	sort.Slice(rows, func(i, j int) bool {
		if (rows[i].Year == "Unknown") != (rows[j].Year == "Unknown") {
			return rows[j].Year == "Unknown"
		}
		return rows[i].Year > rows[j].Year
	})
	total.finish()
	return rows, total
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// Summary is the one line overview of the game list
type Summary struct {
	Tournaments int `json:"tournaments"`
	Games       int `json:"games"`
	Wins        int `json:"wins"`
	Losses      int `json:"losses"`
	Draws       int `json:"draws"`
	WithLinks   int `json:"withLinks"`
	LinkPct     int `json:"linkPct"`
}

// Summarise counts tournaments, results and linked games
func Summarise(games []shared.GameDisplayModel) Summary {
	summary := Summary{Games: len(games)}
	events := make(map[string]struct{})
	for _, game := range games {
		events[game.EventID] = struct{}{}
		switch game.Result {
		case "W":
			summary.Wins++
		case "L":
			summary.Losses++
		case "D":
			summary.Draws++
		}
		if game.HasLink() {
			summary.WithLinks++
		}
	}
	summary.Tournaments = len(events)
	if summary.Games > 0 {
		summary.LinkPct = summary.WithLinks * 100 / summary.Games
	}
	return summary
}

func (s Summary) String() string {
	return fmt.Sprintf("Tournaments: %d | Games: %d | W-L-D: %d-%d-%d | With Links: %d (%d%%)",
		s.Tournaments, s.Games, s.Wins, s.Losses, s.Draws, s.WithLinks, s.LinkPct)
}
