/* models.go
 * This file contain the structs and helper functions that are shared between sub packages: the raw USCF records
 * that are cached verbatim, the display model shown to users and the two game link tables
 */

package shared

import (
	"sort"
	"strings"
)

// Section is one rated section of a tournament as returned by the members/{id}/sections endpoint
type Section struct {
	ID            string         `json:"id" bson:"id"`
	SectionNumber int            `json:"sectionNumber" bson:"sectionNumber"`
	SectionName   string         `json:"sectionName" bson:"sectionName"`
	StartDate     string         `json:"startDate" bson:"startDate"`
	EndDate       string         `json:"endDate" bson:"endDate"`
	RatingSystem  string         `json:"ratingSystem" bson:"ratingSystem"`
	RatingRecords []RatingRecord `json:"ratingRecords" bson:"ratingRecords"`
	Event         EventInfo      `json:"event" bson:"event"`
}

// RatingRecord is the player's pre and post rating for one section
type RatingRecord struct {
	EventID           string  `json:"eventId" bson:"eventId"`
	SectionNumber     int     `json:"sectionNumber" bson:"sectionNumber"`
	PreRating         int     `json:"preRating" bson:"preRating"`
	PreRatingDecimal  float64 `json:"preRatingDecimal" bson:"preRatingDecimal"`
	PostRating        int     `json:"postRating" bson:"postRating"`
	PostRatingDecimal float64 `json:"postRatingDecimal" bson:"postRatingDecimal"`
	RatingSource      string  `json:"ratingSource" bson:"ratingSource"`
}

// SectionInfo is the short section reference carried by a game
type SectionInfo struct {
	ID     string `json:"id" bson:"id"`
	Number int    `json:"number" bson:"number"`
	Name   string `json:"name" bson:"name"`
}

// EventInfo identifies the tournament that owns a section
type EventInfo struct {
	ID        string `json:"id" bson:"id"`
	Name      string `json:"name" bson:"name"`
	StartDate string `json:"startDate" bson:"startDate"`
	EndDate   string `json:"endDate" bson:"endDate"`
	StateCode string `json:"stateCode" bson:"stateCode"`
}

// PlayerInfo is the member's side of a game
type PlayerInfo struct {
	Color     string `json:"color" bson:"color"`
	Outcome   string `json:"outcome" bson:"outcome"`
	ID        string `json:"id" bson:"id"`
	FirstName string `json:"firstName" bson:"firstName"`
	LastName  string `json:"lastName" bson:"lastName"`
	StateRep  string `json:"stateRep" bson:"stateRep"`
}

// OpponentInfo is the opponent's side of a game including the rating resolved from the section standings
type OpponentInfo struct {
	ID         string `json:"id" bson:"id"`
	FirstName  string `json:"firstName" bson:"firstName"`
	LastName   string `json:"lastName" bson:"lastName"`
	StateRep   string `json:"stateRep" bson:"stateRep"`
	Color      string `json:"color" bson:"color"`
	Outcome    string `json:"outcome" bson:"outcome"`
	PreRating  int    `json:"preRating" bson:"preRating"`
	PostRating int    `json:"postRating" bson:"postRating"`
}

// Game is a single round played by the member. Round is not supplied by the ratings API, it is assigned when
// games are merged with their sections
type Game struct {
	Date         string       `json:"date" bson:"date"`
	Section      SectionInfo  `json:"section" bson:"section"`
	Event        EventInfo    `json:"event" bson:"event"`
	RatingSystem string       `json:"ratingSystem" bson:"ratingSystem"`
	Player       PlayerInfo   `json:"player" bson:"player"`
	Opponent     OpponentInfo `json:"opponent" bson:"opponent"`
	Round        int          `json:"round" bson:"round"`
}

// GameDisplayModel is the flattened row shown in the bot, the web page and the html report
type GameDisplayModel struct {
	EventID              string `json:"eventId"`
	EventName            string `json:"eventName"`
	EndDate              string `json:"endDate"`
	SectionNumber        int    `json:"sectionNumber"`
	Round                int    `json:"round"`
	OpponentName         string `json:"opponentName"`
	OpponentID           string `json:"opponentId"`
	Result               string `json:"result"`
	MyRatingChange       string `json:"myRatingChange"`
	OpponentRatingChange string `json:"opponentRatingChange"`
	GameURL              string `json:"gameUrl"`
	Color                string `json:"color"`
}

// HasLink reports whether a game record link has been attached to the game
func (g GameDisplayModel) HasLink() bool {
	return g.GameURL != ""
}

// GameLinkEntry is one row of the game link table
type GameLinkEntry struct {
	EventName string `json:"eventName"`
	GameURL   string `json:"gameUrl"`
}

// NameKeyedLinks is the game link table as it is persisted: keyed by tournament display name and kept in the
// order the names were first seen. It only exists between loading `game data.txt` and the first link sync
type NameKeyedLinks struct {
	names []string
	links map[string]GameLinkEntry
}

// NewNameKeyedLinks creates an empty name keyed table
func NewNameKeyedLinks() *NameKeyedLinks {
	return &NameKeyedLinks{links: make(map[string]GameLinkEntry)}
}

// Set adds an entry keyed by its EventName. A repeated name replaces the stored url but keeps its position
func (n *NameKeyedLinks) Set(entry GameLinkEntry) {
	if n.links == nil {
		n.links = make(map[string]GameLinkEntry)
	}
	if _, ok := n.links[entry.EventName]; !ok {
		n.names = append(n.names, entry.EventName)
	}
	n.links[entry.EventName] = entry
}

// Get returns the entry stored under the exact name
func (n *NameKeyedLinks) Get(name string) (GameLinkEntry, bool) {
	if n == nil {
		return GameLinkEntry{}, false
	}
	entry, ok := n.links[name]
	return entry, ok
}

// Entries returns the entries in table order
func (n *NameKeyedLinks) Entries() []GameLinkEntry {
	if n == nil {
		return nil
	}
	entries := make([]GameLinkEntry, 0, len(n.names))
	for _, name := range n.names {
		entries = append(entries, n.links[name])
	}
	return entries
}

// Len returns the number of entries
func (n *NameKeyedLinks) Len() int {
	if n == nil {
		return 0
	}
	return len(n.names)
}

// EventKeyedLinks is the game link table keyed by event id. It is produced by link synchronisation and by
// manual link entry
type EventKeyedLinks map[string]GameLinkEntry

// Entries returns the entries sorted by tournament name, then event id, so that persisted output is stable
func (e EventKeyedLinks) Entries() []GameLinkEntry {
	ids := make([]string, 0, len(e))
	for id := range e {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := e[ids[i]], e[ids[j]]
		if a.EventName != b.EventName {
			return a.EventName < b.EventName
		}
		return ids[i] < ids[j]
	})

	entries := make([]GameLinkEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, e[id])
	}
	return entries
}

// Clone returns a copy that can be mutated without affecting the receiver
func (e EventKeyedLinks) Clone() EventKeyedLinks {
	out := make(EventKeyedLinks, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// SameName compares two tournament names the way the link table does: case-insensitive, no other normalisation
func SameName(a, b string) bool {
	return strings.EqualFold(a, b)
}
