/* documents.go
 * Contains the text formats of the persisted documents that are not JSON: the game link table (`game data.txt`)
 * and the monitored player ids list (`uscf-ids.txt`)
 */

package store

import (
	"bufio"
	"bytes"
	"sort"
	"strings"
	"uscf-gamelist/api/shared"

	"github.com/go-andiamo/splitter"
)

// linkSplitter splits a `NAME,URL` line on commas that are not inside double quotes
var linkSplitter, _ = splitter.NewSplitter(',', splitter.DoubleQuotes)

// ParseGameLinks reads the link table. Each line is `TOURNAMENT NAME,URL` split at the first comma outside quotes;
// a name that contains a comma is written in double quotes, with embedded quotes doubled. Blank lines and lines
// without a url are ignored
// Preconditions: Receives the raw file contents
// Postconditions: Returns the name keyed table in file order. A repeated name keeps its first position with the
// last url
func ParseGameLinks(data []byte) (*shared.NameKeyedLinks, error) {
	links := shared.NewNameKeyedLinks()
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		name, gameURL, ok := splitLinkLine(scanner.Text())
		if !ok {
			continue
		}
		links.Set(shared.GameLinkEntry{EventName: name, GameURL: gameURL})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return links, nil
}

func splitLinkLine(line string) (string, string, bool) {
	line = strings.TrimSpace(strings.TrimPrefix(line, "\ufeff"))
	if line == "" {
		return "", "", false
	}

	var name, gameURL string
	var parts []string
	var err error
	if !strings.Contains(line, `""`) {
		parts, err = linkSplitter.Split(line)
	}
	if err == nil && len(parts) >= 2 {
		name = parts[0]
		// urls may contain commas of their own
		gameURL = strings.Join(parts[1:], ",")
	} else {
		var found bool
		name, gameURL, found = cutLinkLine(line)
		if !found {
			return "", "", false
		}
	}

	name = unquote(strings.TrimSpace(name))
	gameURL = strings.TrimSpace(gameURL)
	if name == "" || gameURL == "" {
		return "", "", false
	}
	return name, gameURL, true
}

// cutLinkLine splits at the comma that ends a quoted name, or at the first comma when the name is not quoted
func cutLinkLine(line string) (string, string, bool) {
	if strings.HasPrefix(line, `"`) {
		for i := 1; i < len(line); i++ {
			if line[i] != '"' {
				continue
			}
			if i+1 < len(line) && line[i+1] == '"' {
				i++
				continue
			}
			rest := strings.TrimSpace(line[i+1:])
			if gameURL, ok := strings.CutPrefix(rest, ","); ok {
				return line[:i+1], gameURL, true
			}
			break
		}
	}
	return strings.Cut(line, ",")
}

func unquote(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return strings.TrimSpace(strings.ReplaceAll(s[1:len(s)-1], `""`, `"`))
	}
	return s
}

// FormatGameLinks writes the link table sorted by tournament name, one entry per line. Entries whose names differ
// only in case are written once, keeping the first
func FormatGameLinks(entries []shared.GameLinkEntry) []byte {
	sorted := make([]shared.GameLinkEntry, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if strings.TrimSpace(entry.EventName) == "" || strings.TrimSpace(entry.GameURL) == "" {
			continue
		}
		key := strings.ToLower(entry.EventName)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		sorted = append(sorted, entry)
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].EventName < sorted[j].EventName })

	var buf bytes.Buffer
	for _, entry := range sorted {
		name := entry.EventName
		if strings.Contains(name, ",") || strings.HasPrefix(name, `"`) {
			name = `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
		}
		buf.WriteString(name)
		buf.WriteByte(',')
		buf.WriteString(strings.TrimSpace(entry.GameURL))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// ParseUscfIDs reads the ids list, one id per line, ignoring blank lines
func ParseUscfIDs(data []byte) []string {
	var ids []string
	for _, line := range strings.Split(string(data), "\n") {
		if id := strings.TrimSpace(line); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// FormatUscfIDs writes the ids list trimmed, sorted and without duplicates
func FormatUscfIDs(ids []string) []byte {
	seen := make(map[string]struct{}, len(ids))
	var cleaned []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		cleaned = append(cleaned, id)
	}
	sort.Strings(cleaned)
	if len(cleaned) == 0 {
		return []byte{}
	}
	return []byte(strings.Join(cleaned, "\n") + "\n")
}
