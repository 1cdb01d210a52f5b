/* handlers.go
 * Contains testable handler methods that accept DiscordSession interface
 */

package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"uscf-gamelist/api/api"
	"uscf-gamelist/api/logic"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// reply sends text to the channel the message came from, split into several messages if needed
func (b *Bot) reply(session DiscordSession, message *discordgo.MessageCreate, text string) {
	b.send(session, message.ChannelID, chunkMessage(text), "")
}

// replyCode sends an optional header followed by body inside code fences
func (b *Bot) replyCode(session DiscordSession, message *discordgo.MessageCreate, header string, body string) {
	if header != "" {
		b.reply(session, message, header)
	}
	b.send(session, message.ChannelID, chunkMessage(body), "```")
}

func (b *Bot) send(session DiscordSession, channelID string, chunks []string, fence string) {
	for _, chunk := range chunks {
		if fence != "" {
			chunk = fence + "\n" + chunk + fence
		}
		if _, err := session.ChannelMessageSend(channelID, chunk); err != nil {
			b.Logger.Warn("failed to send discord message", zap.String("channel", channelID), zap.Error(err))
			return
		}
	}
}

// helpMessageHandler handles the $help command with a DiscordSession interface
func (b *Bot) helpMessageHandler(session DiscordSession, message *discordgo.MessageCreate) {
	var res strings.Builder
	res.WriteString("USCF Game List Bot\n")
	res.WriteString("`$refresh [uscf id]`: fetches new tournaments from the USCF ratings api. Uses the configured id when none is given\n")
	res.WriteString("`$tournaments`: lists the loaded tournaments, newest first, with the number of games and the game link if one is set\n")
	res.WriteString("`$games \"tournament\"`: shows the games of one tournament. Names with spaces need to be encased in \" (e.g. \"World Open\")\n")
	res.WriteString("`$link \"tournament\" url [confirm]`: attaches a game record link to every game of a tournament. Add `confirm` to keep a link that does not look like a url\n")
	res.WriteString("`$suggest`: suggests tournaments for stored links that no longer match a tournament name\n")
	res.WriteString("`$stats`: shows wins, losses and draws per year\n")
	res.WriteString("`$summary`: shows the number of tournaments, results and games with links\n")
	res.WriteString("`$publish`: uploads the html game list\n")
	res.WriteString("`$addid id`: adds a USCF id to the player monitor list\n")
	res.WriteString("`$ids`: shows the player monitor list\n")
	res.WriteString("`$cacheinfo`: shows the size and age of the games cache\n")
	res.WriteString("`$clearcache`: deletes the games and sections caches. Game links are kept\n")
	res.WriteString("`$forget n recent|random`: removes n tournaments from the games cache so the next refresh fetches them again\n")
	b.reply(session, message, res.String())
}

// refreshHandler handles the $refresh command
func (b *Bot) refreshHandler(ctx context.Context, session DiscordSession, message *discordgo.MessageCreate, args []string) {
	memberID := ""
	if len(args) > 0 {
		memberID = args[0]
	}

	ctx, cancel := context.WithTimeout(ctx, b.RefreshTimeout)
	defer cancel()

	b.reply(session, message, "Refreshing games from the USCF ratings api, this can take a few minutes...")
	_ = session.ChannelTyping(message.ChannelID)
	result, err := b.APIPtr.Refresh(ctx, memberID, func(msg string) {
		b.Logger.Debug("refresh progress", zap.String("message", msg))
	})
	if err != nil {
		switch {
		case errors.Is(err, api.ErrRefreshInProgress):
			b.reply(session, message, "A refresh is already running, try again when it has finished")
		case errors.Is(err, api.ErrNoMemberID):
			b.reply(session, message, "No USCF id is configured. Use `$refresh id`")
		default:
			b.Logger.Error("refresh failed", zap.Error(err))
			b.reply(session, message, fmt.Sprintf("An error occurred refreshing the game list: %s", err))
		}
		return
	}

	var res strings.Builder
	res.WriteString(fmt.Sprintf("Loaded %d games from %d tournaments (%d new sections, %d links matched)\n",
		result.Games, result.Tournaments, result.NewSections, result.Matched))
	for _, skipped := range result.SkippedSections() {
		res.WriteString(fmt.Sprintf("- skipped %s section %d: %s\n", skipped.EventName, skipped.Section, skipped.Reason))
	}
	b.reply(session, message, res.String())
}

// tournamentsHandler handles the $tournaments command
func (b *Bot) tournamentsHandler(session DiscordSession, message *discordgo.MessageCreate) {
	tournaments := b.APIPtr.Tournaments()
	if len(tournaments) == 0 {
		b.reply(session, message, "No games are loaded. Use $refresh first")
		return
	}

	var res strings.Builder
	res.WriteString(fmt.Sprintf("%d tournaments:\n", len(tournaments)))
	for _, t := range tournaments {
		line := fmt.Sprintf("- %s %s (%d games)", t.EndDate, t.EventName, t.Games)
		if t.GameURL != "" {
			line += " <" + t.GameURL + ">"
		}
		res.WriteString(line + "\n")
	}
	b.reply(session, message, res.String())
}

// gamesHandler handles the $games command
func (b *Bot) gamesHandler(session DiscordSession, message *discordgo.MessageCreate, args []string) {
	if len(args) == 0 {
		b.reply(session, message, "Usage: `$games \"tournament name\"`")
		return
	}
	name, games, err := b.APIPtr.TournamentGames(strings.Join(args, " "))
	if err != nil {
		b.reply(session, message, fmt.Sprintf("No tournament matches %q", strings.Join(args, " ")))
		return
	}

	var body strings.Builder
	w := tabwriter.NewWriter(&body, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Rd\tResult\tOpponent\tUSCF ID\tMy Rating\tOpp Rating")
	for _, g := range games {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", g.Round, g.Result, g.OpponentName, g.OpponentID, g.MyRatingChange, g.OpponentRatingChange)
	}
	w.Flush()

	header := fmt.Sprintf("%s (%s)", name, games[0].EndDate)
	if games[0].GameURL != "" {
		header += "\nGames: <" + games[0].GameURL + ">"
	}
	b.replyCode(session, message, header, body.String())
}

// linkHandler handles the $link command
func (b *Bot) linkHandler(ctx context.Context, session DiscordSession, message *discordgo.MessageCreate, args []string) {
	if len(args) < 2 {
		b.reply(session, message, "Usage: `$link \"tournament name\" url [confirm]`")
		return
	}
	confirmed := false
	if len(args) > 2 && strings.EqualFold(args[len(args)-1], "confirm") {
		confirmed = true
		args = args[:len(args)-1]
	}
	gameURL := args[len(args)-1]
	query := strings.Join(args[:len(args)-1], " ")

	name, updated, err := b.APIPtr.AddGameLink(ctx, query, gameURL, confirmed)
	switch {
	case err == nil:
		b.reply(session, message, fmt.Sprintf("Game link saved for %s (%d games)", name, updated))
	case errors.Is(err, logic.ErrEmptyGameURL):
		b.reply(session, message, "Please enter a game url")
	case errors.Is(err, logic.ErrMalformedGameURL):
		b.reply(session, message, fmt.Sprintf("%q does not look like a valid url. Repeat the command with `confirm` at the end to save it anyway", gameURL))
	case errors.Is(err, logic.ErrUnknownTournament):
		var unknown *logic.UnknownTournamentError
		if errors.As(err, &unknown) && unknown.Candidate != "" {
			b.reply(session, message, fmt.Sprintf("No tournament is named %q. Did you mean `%s`? Repeat the command with the full name", query, unknown.Candidate))
			return
		}
		b.reply(session, message, fmt.Sprintf("No tournament matches %q. Use $tournaments to see the loaded names", query))
	case updated > 0:
		b.Logger.Error("failed to save game links", zap.Error(err))
		b.reply(session, message, fmt.Sprintf("Game link applied to %s but could not be saved: %s", name, err))
	default:
		b.Logger.Error("failed to add game link", zap.Error(err))
		b.reply(session, message, "An error occurred adding the game link")
	}
}

// suggestHandler handles the $suggest command
func (b *Bot) suggestHandler(session DiscordSession, message *discordgo.MessageCreate) {
	suggestions := b.APIPtr.LinkSuggestions()
	if len(suggestions) == 0 {
		b.reply(session, message, "Every stored game link matches a tournament")
		return
	}
	var res strings.Builder
	res.WriteString("Stored links without a matching tournament:\n")
	for _, s := range suggestions {
		res.WriteString(fmt.Sprintf("- %s <%s>", s.Link.EventName, s.Link.GameURL))
		if len(s.Candidates) > 0 {
			res.WriteString(" maybe: " + strings.Join(s.Candidates, ", "))
		}
		res.WriteString("\n")
	}
	b.reply(session, message, res.String())
}

// statsHandler handles the $stats command
func (b *Bot) statsHandler(session DiscordSession, message *discordgo.MessageCreate) {
	rows, total := b.APIPtr.YearlyStats()
	if len(rows) == 0 {
		b.reply(session, message, "No games are loaded. Use $refresh first")
		return
	}

	var body strings.Builder
	w := tabwriter.NewWriter(&body, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "Year\tGames\tW-L-D\tWin %\tWhite\tWhite %\tBlack\tBlack %\t")
	for _, row := range append(rows, total) {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%d\t%s\t%d\t%s\t\n",
			row.Year, row.Games, row.Record, row.WinPct, row.WhiteGames, row.WhiteWinPct, row.BlackGames, row.BlackWinPct)
	}
	w.Flush()
	b.replyCode(session, message, "", body.String())
}

// summaryHandler handles the $summary command
func (b *Bot) summaryHandler(session DiscordSession, message *discordgo.MessageCreate) {
	b.reply(session, message, b.APIPtr.Summary().String())
}

// publishHandler handles the $publish command
func (b *Bot) publishHandler(ctx context.Context, session DiscordSession, message *discordgo.MessageCreate) {
	n, err := b.APIPtr.Publish(ctx, "")
	if err != nil {
		b.Logger.Error("publish failed", zap.Error(err))
		b.reply(session, message, fmt.Sprintf("An error occurred publishing the game list: %s", err))
		return
	}
	b.reply(session, message, fmt.Sprintf("Published %d games", n))
}

// addIDHandler handles the $addid command
func (b *Bot) addIDHandler(ctx context.Context, session DiscordSession, message *discordgo.MessageCreate, args []string) {
	if len(args) != 1 {
		b.reply(session, message, "Usage: `$addid 12345678`")
		return
	}
	added, err := b.APIPtr.AddUscfID(ctx, args[0])
	switch {
	case err != nil:
		b.Logger.Warn("failed to add uscf id", zap.String("id", args[0]), zap.Error(err))
		b.reply(session, message, fmt.Sprintf("Could not add %s: %s", args[0], err))
	case !added:
		b.reply(session, message, fmt.Sprintf("%s is already in the list", args[0]))
	default:
		b.reply(session, message, fmt.Sprintf("Added %s", args[0]))
	}
}

// idsHandler handles the $ids command
func (b *Bot) idsHandler(ctx context.Context, session DiscordSession, message *discordgo.MessageCreate) {
	ids, err := b.APIPtr.UscfIDs(ctx)
	if err != nil {
		b.Logger.Error("failed to load uscf ids", zap.Error(err))
		b.reply(session, message, "An error occurred loading the id list")
		return
	}
	if len(ids) == 0 {
		b.reply(session, message, "The id list is empty")
		return
	}
	b.reply(session, message, fmt.Sprintf("%d ids:\n%s", len(ids), strings.Join(ids, "\n")))
}

// cacheInfoHandler handles the $cacheinfo command
func (b *Bot) cacheInfoHandler(ctx context.Context, session DiscordSession, message *discordgo.MessageCreate) {
	info, err := b.APIPtr.CacheInfo(ctx)
	if err != nil {
		b.Logger.Error("failed to stat cache", zap.Error(err))
		b.reply(session, message, "An error occurred reading the cache")
		return
	}
	if !info.Exists {
		b.reply(session, message, "No games cache")
		return
	}
	b.reply(session, message, fmt.Sprintf("Games cache: %.1f KB, updated %s", float64(info.Size)/1024, info.LastModified.Format("2006-01-02 15:04")))
}

// clearCacheHandler handles the $clearcache command
func (b *Bot) clearCacheHandler(ctx context.Context, session DiscordSession, message *discordgo.MessageCreate) {
	if err := b.APIPtr.ClearCache(ctx); err != nil {
		b.Logger.Error("failed to clear cache", zap.Error(err))
		b.reply(session, message, fmt.Sprintf("An error occurred clearing the cache: %s", err))
		return
	}
	b.reply(session, message, "Cache cleared. The next $refresh fetches every tournament")
}

// forgetHandler handles the $forget command
func (b *Bot) forgetHandler(ctx context.Context, session DiscordSession, message *discordgo.MessageCreate, args []string) {
	if len(args) != 2 {
		b.reply(session, message, "Usage: `$forget n recent|random`")
		return
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		b.reply(session, message, fmt.Sprintf("%q is not a positive number", args[0]))
		return
	}
	mode, err := logic.ParseForgetMode(strings.ToLower(args[1]))
	if err != nil {
		b.reply(session, message, err.Error())
		return
	}

	removed, err := b.APIPtr.ForgetTournaments(ctx, n, mode)
	if err != nil {
		b.Logger.Error("failed to forget tournaments", zap.Error(err))
		b.reply(session, message, "An error occurred updating the cache")
		return
	}
	if len(removed) == 0 {
		b.reply(session, message, "No cached tournaments")
		return
	}
	b.reply(session, message, fmt.Sprintf("Removed %d tournaments from the cache: %s", len(removed), strings.Join(removed, ", ")))
}

// newMessageHandler routes messages to appropriate handlers with a DiscordSession interface
// botUserID is the bot's user ID to prevent self-responses
func (b *Bot) newMessageHandler(ctx context.Context, session DiscordSession, message *discordgo.MessageCreate, botUserID string) {
	// Prevent bot from responding to its own messages
	if message.Author == nil || message.Author.ID == botUserID {
		return
	}
	if b.ChannelID != "" && message.ChannelID != b.ChannelID {
		return
	}
	if !strings.HasPrefix(strings.TrimSpace(message.Content), "$") {
		return
	}

	command, args := parseCommand(message.Content)

	// Route to appropriate handler
	switch command {
	case "$help":
		b.helpMessageHandler(session, message)
	case "$refresh":
		b.refreshHandler(ctx, session, message, args)
	case "$tournaments":
		b.tournamentsHandler(session, message)
	case "$games":
		b.gamesHandler(session, message, args)
	case "$link":
		b.linkHandler(ctx, session, message, args)
	case "$suggest":
		b.suggestHandler(session, message)
	case "$stats":
		b.statsHandler(session, message)
	case "$summary":
		b.summaryHandler(session, message)
	case "$publish":
		b.publishHandler(ctx, session, message)
	case "$addid":
		b.addIDHandler(ctx, session, message, args)
	case "$ids":
		b.idsHandler(ctx, session, message)
	case "$cacheinfo":
		b.cacheInfoHandler(ctx, session, message)
	case "$clearcache":
		b.clearCacheHandler(ctx, session, message)
	case "$forget":
		b.forgetHandler(ctx, session, message, args)
	}
}
