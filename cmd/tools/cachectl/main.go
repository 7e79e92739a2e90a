package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/shopdesk/backend/internal/config"
	"github.com/zhouzirui/shopdesk/backend/internal/service/cache"
	"github.com/zhouzirui/shopdesk/backend/pkg/logger"
)

func main() {
	list := flag.Bool("list", false, "list cached answers, oldest first")
	get := flag.String("get", "", "show the cached answer for a question")
	del := flag.String("delete", "", "remove the cached answer for a question")
	purge := flag.Bool("purge", false, "drop every expired entry")
	path := flag.String("file", "", "cache file (default: CACHE_FILE)")
	verbose := flag.Bool("v", false, "print full answers and log cache activity")
	flag.Parse()

	envErr := godotenv.Load()

	level := "warn"
	if *verbose {
		level = "debug"
	}
	log := logger.Component(logger.NewWithWriter(os.Stderr, level, true), "cachectl")
	if envErr != nil {
		log.Debug().Err(envErr).Msg("no .env file, using process environment only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if *path != "" {
		cfg.Cache.Path = *path
	}

	store := cache.Open(cfg.Cache.Path, cfg.Cache.TTL, cfg.Cache.MaxSize, log)
	cmd := command{list: *list, get: *get, del: *del, purge: *purge, full: *verbose}
	if err := run(os.Stdout, store, cmd); err != nil {
		flag.Usage()
		log.Fatal().Err(err).Msg("cachectl failed")
	}
}

// command is one cachectl invocation.
type command struct {
	list  bool
	get   string
	del   string
	purge bool
	full  bool
}

func run(out io.Writer, store *cache.Store, cmd command) error {
	switch {
	case cmd.list:
		return printEntries(out, store, cmd.full)
	case cmd.get != "":
		answer, ok := store.Get(cache.Key(cmd.get))
		if !ok {
			return fmt.Errorf("no cached answer for %q", cmd.get)
		}
		fmt.Fprintln(out, answer)
	case cmd.del != "":
		if !store.Delete(cache.Key(cmd.del)) {
			return fmt.Errorf("no cached answer for %q", cmd.del)
		}
		fmt.Fprintln(out, "deleted")
	case cmd.purge:
		fmt.Fprintf(out, "purged %d expired entries\n", store.Purge())
	default:
		return fmt.Errorf("one of -list, -get, -delete or -purge is required")
	}
	return nil
}

func printEntries(out io.Writer, store *cache.Store, full bool) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tCREATED\tEXPIRED\tRESPONSE")
	for _, e := range store.Entries() {
		response := e.Response
		if !full {
			response = truncate(response, 60)
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n",
			e.Key,
			e.Created().Format(time.RFC3339),
			store.Expired(e.Entry),
			response,
		)
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
