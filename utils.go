/* utils.go
 * Utility functions used across the application
 */

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"uscf-gamelist/api/logic"
	"uscf-gamelist/api/store"
	"uscf-gamelist/config"

	"go.uber.org/zap"
)

// convertStrToBool converts a string of true or false into a boolean for comparisons
// Preconditions: Receives string containing either true or false (case insensitive)
// Postconditions: Returns boolean value or an error if the string is not true or false
func convertStrToBool(str string) (bool, error) {
	str = strings.TrimSpace(str)
	str = strings.ToLower(str)

	if str == "true" {
		return true, nil
	} else if str == "false" {
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean string")
}

// newHTTPClient returns the client used for the ratings api
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// openBlobStores builds the document storage: S3 when configured, an optional MongoDB mirror and always a local
// cache directory. The first store that is configured is authoritative for reads
// Preconditions: Receives a context, the configuration and a logger
// Postconditions: Returns the store for the caches and link table, the store for uscf-ids.txt, a function that
// releases connections, or an error if a configured backend could not be reached
func openBlobStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.BlobStore, store.BlobStore, func(), error) {
	var (
		stores []store.BlobStore
		ids    store.BlobStore
		closer = func() {}
	)

	if cfg.S3Enabled() {
		s3Cfg := store.S3Config{
			AccessKeyID:     cfg.AwsAccessKey,
			SecretAccessKey: cfg.AwsSecretKey,
			Region:          cfg.AwsRegion,
			Bucket:          cfg.S3Bucket,
			Endpoint:        cfg.S3Endpoint,
		}
		results, err := store.NewS3BlobStore(ctx, s3Cfg)
		if err != nil {
			return nil, nil, closer, err
		}
		stores = append(stores, results)

		s3Cfg.Bucket = cfg.IDsBucket
		idsStore, err := store.NewS3BlobStore(ctx, s3Cfg)
		if err != nil {
			return nil, nil, closer, err
		}
		ids = idsStore
	} else {
		logger.Warn("S3 not configured, using local storage only")
	}

	if cfg.MongoURI != "" {
		mongoStore, err := store.NewMongoBlobStore(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, nil, closer, err
		}
		stores = append(stores, mongoStore)
		closer = func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := mongoStore.Close(shutdownCtx); err != nil {
				logger.Warn("failed to disconnect from mongo", zap.Error(err))
			}
		}
	}

	dir := cfg.CacheDir
	if dir == "" {
		var err error
		if dir, err = store.DefaultCacheDir(); err != nil {
			return nil, nil, closer, err
		}
	}
	local, err := store.NewLocalBlobStore(dir)
	if err != nil {
		return nil, nil, closer, err
	}
	stores = append(stores, local)

	if len(stores) == 1 {
		return local, ids, closer, nil
	}
	return store.NewMirrorBlobStore(logger.Named("mirror"), stores...), ids, closer, nil
}

// printStats writes the yearly statistics as an aligned table
func printStats(out io.Writer, rows []logic.YearStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "Year\tGames\tW-L-D\tWin %\tWhite\tWhite %\tBlack\tBlack %\t")
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%d\t%s\t%d\t%s\t\n",
			row.Year, row.Games, row.Record, row.WinPct, row.WhiteGames, row.WhiteWinPct, row.BlackGames, row.BlackWinPct)
	}
	w.Flush()
}
