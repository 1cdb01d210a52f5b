/* bot.go
 * Contains logic used for creating the bot and parsing commands. Requires a discord bot token, and ApiPtr both of
 * which are passed in from main.go
 */

package bot

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
	"uscf-gamelist/api/api"

	"github.com/go-andiamo/splitter"
	"go.uber.org/zap"
)

// maxMessageLength is kept below discord's 2000 character limit to leave room for code fences
const maxMessageLength = 1900

// defaultRefreshTimeout bounds a refresh started from discord. A full fetch paces one request per second
const defaultRefreshTimeout = 15 * time.Minute

type Bot struct {
	BotToken string
	APIPtr   *api.API
	// ChannelID, when set, restricts the bot to one channel
	ChannelID      string
	RefreshTimeout time.Duration
	Logger         *zap.Logger
}

// NewBot creates a bot
// Preconditions: Receives the discord token, the api and a logger (nil for none)
// Postconditions: Returns the bot, or an error if the token is empty
func NewBot(botToken string, apiPtr *api.API, logger *zap.Logger) (*Bot, error) {
	if botToken == "" {
		return nil, fmt.Errorf("botToken is required but none was provided")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Bot{
		BotToken:       botToken,
		APIPtr:         apiPtr,
		RefreshTimeout: defaultRefreshTimeout,
		Logger:         logger,
	}, nil
}

// argSplitter splits on spaces but keeps quoted tournament names together, e.g. `$link "World Open" url`
var argSplitter, _ = splitter.NewSplitter(' ', splitter.DoubleQuotes, splitter.LeftRightDoubleDoubleQuotes)

// parseCommand splits a message into the command and its arguments
// Preconditions: Receives the message content
// Postconditions: Returns the lower cased command (including the $ prefix) and the arguments with surrounding
// quotes removed. Unbalanced quotes fall back to splitting on whitespace
func parseCommand(content string) (string, []string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", nil
	}

	parts, err := argSplitter.Split(content)
	if err != nil {
		parts = strings.Fields(content)
	}

	var args []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		args = append(args, strings.TrimSpace(strings.Trim(part, "\"“”")))
	}
	if len(args) == 0 {
		return "", nil
	}
	return strings.ToLower(args[0]), args[1:]
}

// chunkMessage splits a long reply on line boundaries so every piece fits in one discord message
func chunkMessage(text string) []string {
	if len(text) <= maxMessageLength {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > maxMessageLength {
			if current.Len() > 0 {
				chunks = append(chunks, current.String())
				current.Reset()
			}
			cut := maxMessageLength
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}
		if current.Len()+len(line) > maxMessageLength {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
