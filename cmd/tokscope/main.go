// Command tokscope analyzes a public account and prints the results as
// one JSON envelope: profile details, follower and following lists,
// contact signals, and accounts that tag the target.
//
// Usage:
//
//	tokscope somehandle
//	tokscope @somehandle
//	tokscope https://www.tiktok.com/@somehandle
//	tokscope -no-tagged -o results.json somehandle
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tokscope/tokscope/pkg/auth"
	"github.com/tokscope/tokscope/pkg/export"
	"github.com/tokscope/tokscope/pkg/httpcache"
	"github.com/tokscope/tokscope/pkg/tokscope"
)

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	verbose := flag.Bool("v", false, "verbose logging (same as -debug)")
	noBrowser := flag.Bool("no-browser", false, "disable reading cookies from browser stores (enabled by default)")
	noCache := flag.Bool("no-cache", false, "disable HTTP caching (enabled by default with 24-hour TTL)")
	cacheTTL := flag.Duration("cache-ttl", 24*time.Hour, "cache time-to-live")
	stealth := flag.Bool("stealth", false, "apply anti-automation-detection patches to rendered pages")
	output := flag.String("o", "", "also write the JSON envelope to this file")
	noFollowers := flag.Bool("no-followers", false, "skip the follower list")
	noFollowing := flag.Bool("no-following", false, "skip the following list")
	noContacts := flag.Bool("no-contacts", false, "skip contact signal mining")
	noTagged := flag.Bool("no-tagged", false, "skip the tagged-user search")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: tokscope [options] <handle | profile URL>")
		fmt.Fprintln(os.Stderr, "\nOptions:")
		flag.PrintDefaults()
		fmt.Fprintln(os.Stderr, "\nAuthentication (optional, unlocks restricted lists):")
		fmt.Fprintf(os.Stderr, "  session cookies are read from %s,\n", strings.Join(auth.EnvVars(), ", "))
		fmt.Fprintln(os.Stderr, "  from a .env file in the working directory, or from browser stores.")
		os.Exit(1)
	}

	handle := flag.Arg(0)

	logLevel := slog.LevelInfo
	if *debug || *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to load .env file", "error", err)
	}

	var httpCache *httpcache.Cache
	if !*noCache {
		var err error
		httpCache, err = httpcache.New(*cacheTTL)
		if err != nil {
			logger.Warn("failed to initialize cache, continuing without cache", "error", err)
		} else {
			defer func() {
				if err := httpCache.Close(); err != nil {
					logger.Warn("failed to close cache", "error", err)
				}
			}()
			logger.Debug("HTTP cache initialized", "ttl", cacheTTL.String())
		}
	}

	scope := tokscope.FullScope()
	scope.Followers = !*noFollowers
	scope.Following = !*noFollowing
	scope.Contacts = !*noContacts
	scope.Tagged = !*noTagged

	opts := []tokscope.Option{
		tokscope.WithLogger(logger),
		tokscope.WithScope(scope),
	}
	if !*noBrowser {
		opts = append(opts, tokscope.WithBrowserCookies())
	}
	if httpCache != nil {
		opts = append(opts, tokscope.WithHTTPCache(httpCache))
	}
	if *stealth {
		opts = append(opts, tokscope.WithStealth())
	}

	ctx := context.Background()

	rep, err := tokscope.Analyze(ctx, handle, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1) //nolint:gocritic // exitAfterDefer is acceptable in main
	}

	envelope := export.Wrap(rep)
	if err := export.Encode(os.Stdout, envelope); err != nil {
		fmt.Fprintf(os.Stderr, "Output error: %v\n", err)
		os.Exit(1)
	}
	if *output != "" {
		if err := export.WriteFile(*output, envelope); err != nil {
			fmt.Fprintf(os.Stderr, "Output error: %v\n", err)
			os.Exit(1)
		}
		logger.Info("results exported", "path", *output)
	}
}
