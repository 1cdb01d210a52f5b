/* main.go
 * The "main" method for running the game list as a Discord bot, a web server or a one-shot command
 * Usage: go run . -mode=<bot|serve|refresh|publish|link|clear|stats|forget|addid> [-id=<uscf id>]
 */

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"uscf-gamelist/api/api"
	"uscf-gamelist/api/external"
	"uscf-gamelist/api/logic"
	"uscf-gamelist/api/report"
	"uscf-gamelist/api/store"
	"uscf-gamelist/bot"
	"uscf-gamelist/config"
	applog "uscf-gamelist/logger"
	"uscf-gamelist/web"

	"go.uber.org/zap"
)

func main() {
	//Flags
	modePtr := flag.String("mode", "serve", "What to run: bot, serve, refresh, publish, link, clear, stats, forget or addid")
	idPtr := flag.String("id", "", "USCF member id, overrides the configured one")
	eventPtr := flag.String("event", "", "Tournament name for -mode=link")
	urlPtr := flag.String("url", "", "Game link for -mode=link")
	confirmPtr := flag.String("confirm", "false", "Keep a game link that does not look like a url: takes true or false as argument")
	settingsPtr := flag.String("settings", "", "Path to settings.json (default: user config dir)")
	countPtr := flag.Int("n", 5, "Number of tournaments for -mode=forget")
	forgetPtr := flag.String("forget", "recent", "Which tournaments -mode=forget drops: recent or random")
	flag.Parse()

	cfg, err := config.Load(*settingsPtr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := applog.New(cfg.Debug)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := options{
		mode:       *modePtr,
		memberID:   *idPtr,
		event:      *eventPtr,
		url:        *urlPtr,
		confirm:    *confirmPtr,
		count:      *countPtr,
		forgetMode: *forgetPtr,
	}
	if err := run(ctx, cfg, opts, logger, os.Stdout); err != nil {
		logger.Error("exiting with error", zap.String("mode", opts.mode), zap.Error(err))
		stop()
		os.Exit(1)
	}
}

// options are the parsed command line flags
type options struct {
	mode       string
	memberID   string
	event      string
	url        string
	confirm    string
	count      int
	forgetMode string
}

// run wires the application together and executes one mode
func run(ctx context.Context, cfg *config.Config, opts options, logger *zap.Logger, out io.Writer) error {
	cache, ids, closeStores, err := openBlobStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStores()

	client, err := external.NewClient(
		external.WithBaseURL(cfg.APIBaseURL),
		external.WithRequestDelay(cfg.RequestDelay),
		external.WithHTTPClient(newHTTPClient(cfg.RequestTimeout)),
		external.WithLogger(logger.Named("uscf")),
	)
	if err != nil {
		return err
	}

	memberID := cfg.MemberID
	if strings.TrimSpace(opts.memberID) != "" {
		memberID = strings.TrimSpace(opts.memberID)
	}

	a := api.New(client, store.New(cache, ids, logger.Named("store")), memberID, logger.Named("api"))
	a.NavLinks = report.DefaultNavLinks(cfg.S3Bucket, cfg.IDsBucket, cfg.AwsRegion)

	if _, err := a.LoadGameLinks(ctx); err != nil {
		return err
	}
	if _, err := a.LoadCached(ctx); err != nil {
		return err
	}

	return runMode(ctx, a, cfg, opts, logger, out)
}

// runMode executes the selected mode against an initialised API
func runMode(ctx context.Context, a *api.API, cfg *config.Config, opts options, logger *zap.Logger, out io.Writer) error {
	progress := func(msg string) { fmt.Fprintln(out, msg) }

	switch opts.mode {
	case "bot":
		b, err := bot.NewBot(cfg.DiscordToken, a, logger.Named("bot"))
		if err != nil {
			return err
		}
		b.ChannelID = cfg.DiscordChannel
		return b.Run(ctx)

	case "serve":
		return web.Start(ctx, web.Config{Addr: cfg.HTTPAddr, API: a, Logger: logger.Named("web")})

	case "refresh":
		result, err := a.Refresh(ctx, "", progress)
		if err != nil {
			return err
		}
		for _, skipped := range result.SkippedSections() {
			fmt.Fprintf(out, "Skipped %s section %d: %s\n", skipped.EventName, skipped.Section, skipped.Reason)
		}
		fmt.Fprintln(out, a.Summary())
		return nil

	case "publish":
		n, err := a.Publish(ctx, "")
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Published %d games\n", n)
		return nil

	case "link":
		confirmed, err := convertStrToBool(opts.confirm)
		if err != nil {
			return fmt.Errorf("invalid -confirm flag %q: %w", opts.confirm, err)
		}
		name, updated, err := a.AddGameLink(ctx, opts.event, opts.url, confirmed)
		if errors.Is(err, logic.ErrMalformedGameURL) {
			return fmt.Errorf("%w (rerun with -confirm=true to keep it)", err)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Game link saved for %s (%d games)\n", name, updated)
		return nil

	case "clear":
		if err := a.ClearCache(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Cache cleared")
		return nil

	case "stats":
		rows, total := a.YearlyStats()
		printStats(out, append(rows, total))
		fmt.Fprintln(out, a.Summary())
		return nil

	case "forget":
		mode, err := logic.ParseForgetMode(opts.forgetMode)
		if err != nil {
			return err
		}
		removed, err := a.ForgetTournaments(ctx, opts.count, mode)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Removed %d tournaments from the cache: %s\n", len(removed), strings.Join(removed, ", "))
		return nil

	case "addid":
		added, err := a.AddUscfID(ctx, opts.memberID)
		if err != nil {
			return err
		}
		if !added {
			fmt.Fprintf(out, "%s is already in the list\n", opts.memberID)
			return nil
		}
		fmt.Fprintf(out, "Added %s\n", opts.memberID)
		return nil

	default:
		return fmt.Errorf("unknown mode %q", opts.mode)
	}
}
