/* html.go
 * Contains the generator for the static html game list that is published next to the caches. The page is a single
 * filterable table with one row per game
 */

package report

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"uscf-gamelist/api/shared"
)

const ratingsSite = "https://ratings.uschess.org"

// NavLink is an extra link shown in the page header
type NavLink struct {
	Title string
	URL   string
}

// Generator renders the game list page for one member
type Generator struct {
	MemberID string
	Title    string
	NavLinks []NavLink
}

type pageData struct {
	Title      string
	ProfileURL string
	NavLinks   []NavLink
	Games      []shared.GameDisplayModel
}

var funcs = template.FuncMap{
	"eventURL": func(eventID string, section int) string {
		return fmt.Sprintf("%s/event/%s?section=%d", ratingsSite, url.PathEscape(eventID), section)
	},
	"playerURL": PlayerURL,
}

var pageTemplate = template.Must(template.New("page").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    table, th, td { border:1px solid #000; border-collapse:collapse; padding:4px }
    th { background:#f0f0f0 }
    #filterInput { width:100%; padding:6px; margin-bottom:8px }
    .nav a { margin-right:12px; font-weight:bold; text-decoration:none; color:#0645AD }
  </style>
  <script>
    function filterTable() {
      const f = document.getElementById('filterInput').value.toUpperCase();
      document.querySelectorAll('#matchesTable tbody tr').forEach(tr => {
        tr.style.display = [...tr.cells].some(td =>
          td.textContent.toUpperCase().includes(f)
        ) ? '' : 'none';
      });
    }
  </script>
</head>
<body>
  <div class="nav" style="margin-bottom: 8px;">
    {{- if .ProfileURL}}
    <a href="{{.ProfileURL}}" target="_blank">My USCF ID</a>
    {{- end}}
    {{- range .NavLinks}}
    <a href="{{.URL}}" target="_blank">{{.Title}}</a>
    {{- end}}
  </div>
  <input id="filterInput" placeholder="Filter rows…" onkeyup="filterTable()">
  <table id="matchesTable">
    <thead>
      <tr>
        <th>End Date</th><th>Tournament Name</th><th>Round</th>
        <th>Opponent Pairing</th><th>Result</th><th>My Rating Change</th>
        <th>Opponent USCF</th><th>Opponent Name</th><th>Opponent Rating Change</th>
        <th>Games</th>
      </tr>
    </thead>
    <tbody>
    {{- range .Games}}
      <tr>
        <td>{{.EndDate}}</td>
        <td><a href="{{eventURL .EventID .SectionNumber}}" target="_blank">{{.EventName}}</a></td>
        <td>{{.Round}}</td>
        <td>{{.Round}}</td>
        <td>{{.Result}}</td>
        <td>{{.MyRatingChange}}</td>
        <td>{{if .OpponentID}}<a href="{{playerURL .OpponentID}}" target="_blank">{{.OpponentID}}</a>{{end}}</td>
        <td>{{.OpponentName}}</td>
        <td>{{.OpponentRatingChange}}</td>
        <td>{{if .GameURL}}<a href="{{.GameURL}}" target="_blank">games</a>{{end}}</td>
      </tr>
    {{- end}}
    </tbody>
  </table>
</body>
</html>
`))

// WebsiteURL returns the static website address of a page in an S3 bucket. An empty page gives the site root
func WebsiteURL(bucket string, region string, page string) string {
	return fmt.Sprintf("http://%s.s3-website-%s.amazonaws.com/%s", bucket, region, page)
}

// DefaultNavLinks are the companion pages published next to the game list
func DefaultNavLinks(resultsBucket string, idsBucket string, region string) []NavLink {
	return []NavLink{
		{Title: "Player Monitor", URL: WebsiteURL(idsBucket, region, "")},
		{Title: "Blunders", URL: WebsiteURL(resultsBucket, region, "theodore_blunders_full.html")},
		{Title: "Retreats", URL: WebsiteURL(resultsBucket, region, "theodore_retreat.html")},
		{Title: "Video", URL: WebsiteURL(resultsBucket, region, "video.html")},
	}
}

// NewGenerator creates a generator with the default title
func NewGenerator(memberID string, navLinks ...NavLink) *Generator {
	return &Generator{MemberID: memberID, Title: "US Chess Tournament Matches", NavLinks: navLinks}
}

// PlayerURL returns the ratings site profile page of a member
func PlayerURL(memberID string) string {
	return fmt.Sprintf("%s/player/%s", ratingsSite, url.PathEscape(memberID))
}

// Render produces the html page for games in the order given. All text is escaped; links that are not http(s)
// are neutralised by html/template
// Preconditions: Receives the display models, normally already sorted
// Postconditions: Returns the page, or an error if the template failed to execute
func (g *Generator) Render(games []shared.GameDisplayModel) (string, error) {
	data := pageData{Title: g.Title, NavLinks: g.NavLinks, Games: games}
	if data.Title == "" {
		data.Title = "US Chess Tournament Matches"
	}
	if g.MemberID != "" {
		data.ProfileURL = PlayerURL(g.MemberID)
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render game list: %w", err)
	}
	return buf.String(), nil
}
