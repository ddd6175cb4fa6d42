// Command marque is the maintenance CLI for a marque bookmark database:
// import browser exports, run ranked searches, inspect stats and manage
// search history from the shell.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/hazyhaar/marque"
)

func main() {
	// Optional .env for MARQUE_DB and friends; absence is fine.
	godotenv.Load()

	app := &cli.App{
		Name:  "marque",
		Usage: "embedded bookmark store and search engine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db",
				Usage:   "database file",
				Value:   "marque.db",
				EnvVars: []string{"MARQUE_DB"},
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "YAML config file (flags override it)",
				EnvVars: []string{"MARQUE_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error",
				Value:   "warn",
				EnvVars: []string{"MARQUE_LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			setupLogging(c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			importCommand(),
			searchCommand(),
			statsCommand(),
			historyCommand(),
			clearCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "marque:", err)
		os.Exit(1)
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

// openEngine builds the engine from the config file (when given) with the
// db flag taking precedence.
func openEngine(c *cli.Context) (*marque.Engine, error) {
	var cfg marque.Config
	if path := c.String("config"); path != "" {
		loaded, err := marque.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if c.IsSet("db") || cfg.Path == "" {
		cfg.Path = c.String("db")
	}
	return marque.Open(c.Context, cfg)
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "run a ranked search",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 20, Usage: "maximum results"},
			&cli.StringFlag{Name: "sort", Value: "relevance", Usage: "relevance, title, dateAdded or visitCount"},
			&cli.BoolFlag{Name: "urls", Value: true, Usage: "match against URLs and domains"},
			&cli.BoolFlag{Name: "keywords", Value: true, Usage: "match against derived keywords"},
			&cli.BoolFlag{Name: "tags", Usage: "match against user tags"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return cli.Exit("missing query argument", 1)
			}
			eng, err := openEngine(c)
			if err != nil {
				return err
			}
			defer eng.Close()

			results, err := eng.Search(c.Context, c.Args().Get(0), marque.SearchOptions{
				Limit:           c.Int("limit"),
				SortBy:          marque.SortMode(c.String("sort")),
				IncludeURL:      c.Bool("urls"),
				IncludeDomain:   c.Bool("urls"),
				IncludeKeywords: c.Bool("keywords"),
				IncludeTags:     c.Bool("tags"),
				Source:          "cli",
			})
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Printf("%6.1f  %s\n        %s\n", r.Score, r.Bookmark.Title, r.Bookmark.URL)
			}
			if len(results) == 0 {
				fmt.Println("no results")
			}
			return nil
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "show corpus and storage statistics",
		Action: func(c *cli.Context) error {
			eng, err := openEngine(c)
			if err != nil {
				return err
			}
			defer eng.Close()

			g, err := eng.ComputeGlobalStats(c.Context)
			if err != nil {
				return err
			}
			d, err := eng.GetDatabaseStats(c.Context)
			if err != nil {
				return err
			}

			fmt.Printf("bookmarks      %s\n", humanize.Comma(int64(g.TotalBookmarks)))
			fmt.Printf("folders        %s\n", humanize.Comma(int64(g.TotalFolders)))
			fmt.Printf("domains        %s\n", humanize.Comma(int64(g.TotalDomains)))
			fmt.Printf("max depth      %d\n", g.MaxDepth)
			fmt.Printf("history        %s\n", humanize.Comma(int64(d.SearchHistory)))
			fmt.Printf("crawl rows     %s\n", humanize.Comma(int64(d.CrawlMetadata)))
			fmt.Printf("est. size      %s\n", humanize.Bytes(uint64(d.EstimatedBytes)))

			h := eng.CheckHealth(c.Context)
			status := "ok"
			if !h.OK {
				status = "DEGRADED: " + h.Error
			}
			fmt.Printf("health         %s\n", status)
			return nil
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "list recent searches",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 20},
		},
		Action: func(c *cli.Context) error {
			eng, err := openEngine(c)
			if err != nil {
				return err
			}
			defer eng.Close()

			entries, err := eng.RecentSearches(c.Context, c.Int("limit"))
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Printf("%-24s  %3d hits  %4dms  %s\n",
					e.Query, e.ResultCount, e.DurationMs, e.Source)
			}
			return nil
		},
	}
}

func clearCommand() *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "clear stored data",
		Subcommands: []*cli.Command{
			{
				Name:  "history",
				Usage: "delete all search history",
				Action: func(c *cli.Context) error {
					eng, err := openEngine(c)
					if err != nil {
						return err
					}
					defer eng.Close()
					return eng.ClearHistory(c.Context)
				},
			},
			{
				Name:  "bookmarks",
				Usage: "delete the whole bookmark corpus",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Usage: "skip confirmation"},
				},
				Action: func(c *cli.Context) error {
					if !c.Bool("yes") {
						return cli.Exit("refusing to clear without --yes", 1)
					}
					eng, err := openEngine(c)
					if err != nil {
						return err
					}
					defer eng.Close()
					return eng.ClearAll(c.Context)
				},
			},
		},
	}
}
