/* stats_test.go
 * Contains unit tests for stats.go
 */

package logic

import (
	"testing"
	"uscf-gamelist/api/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYearlyStats(t *testing.T) {
	games := []shared.GameDisplayModel{
		{EventID: "1", EndDate: "2024-05-01", Result: "W", Color: "White"},
		{EventID: "1", EndDate: "2024-05-01", Result: "L", Color: "Black"},
		{EventID: "2", EndDate: "2024-09-01", Result: "W", Color: "black"},
		{EventID: "3", EndDate: "2023-01-10", Result: "D", Color: "White"},
		{EventID: "4", EndDate: "", Result: "W", Color: "White"},
	}

	rows, total := YearlyStats(games)

	require.Len(t, rows, 3)
	assert.Equal(t, "2024", rows[0].Year)
	assert.Equal(t, "2023", rows[1].Year)
	assert.Equal(t, "Unknown", rows[2].Year)

	y := rows[0]
	assert.Equal(t, 3, y.Games)
	assert.Equal(t, "2-1-0", y.Record)
	assert.Equal(t, "66.7%", y.WinPct)
	assert.Equal(t, 1, y.WhiteGames)
	assert.Equal(t, "100.0%", y.WhiteWinPct)
	assert.Equal(t, 2, y.BlackGames)
	assert.Equal(t, "50.0%", y.BlackWinPct)

	assert.Equal(t, "0.0%", rows[1].WinPct)
	assert.Equal(t, "0%", rows[1].BlackWinPct)

	assert.Equal(t, "Total", total.Year)
	assert.Equal(t, 5, total.Games)
	assert.Equal(t, "3-1-1", total.Record)
	assert.Equal(t, "60.0%", total.WinPct)
}

func TestYearlyStats_Empty(t *testing.T) {
	rows, total := YearlyStats(nil)

	assert.Empty(t, rows)
	assert.Equal(t, 0, total.Games)
	assert.Equal(t, "0%", total.WinPct)
	assert.Equal(t, "0-0-0", total.Record)
}

func TestSummarise(t *testing.T) {
	games := displayGames()
	games[0].GameURL = "https://a"
	games[1].GameURL = "https://a"

	summary := Summarise(games)

	assert.Equal(t, Summary{Tournaments: 3, Games: 4, Wins: 2, Losses: 1, Draws: 1, WithLinks: 2, LinkPct: 50}, summary)
	assert.Equal(t, "Tournaments: 3 | Games: 4 | W-L-D: 2-1-1 | With Links: 2 (50%)", summary.String())
}

func TestSummarise_Empty(t *testing.T) {
	assert.Equal(t, Summary{}, Summarise(nil))
}
