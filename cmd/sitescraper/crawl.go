package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitescraper/internal/config"
	"github.com/nao1215/sitescraper/internal/crawler"
	"github.com/nao1215/sitescraper/internal/database"
	"github.com/nao1215/sitescraper/internal/extract"
	"github.com/nao1215/sitescraper/internal/fetch"
	"github.com/nao1215/sitescraper/internal/log"
	"github.com/nao1215/sitescraper/internal/model"
	"github.com/nao1215/sitescraper/internal/pipeline"
	"github.com/nao1215/sitescraper/internal/report"
	"github.com/nao1215/sitescraper/internal/robots"
)

// Flag names shared by the site and docs commands. The names of flags that
// a config file may also set match the config.Setting* constants.
const (
	flagDepth             = config.SettingDepth
	flagMaxPages          = config.SettingMaxPages
	flagDelay             = config.SettingDelay
	flagUserAgent         = config.SettingUserAgent
	flagKeepQuery         = config.SettingKeepQuery
	flagOutput            = "output"
	flagTimeout           = "timeout"
	flagConcurrency       = "concurrency"
	flagSeedConcurrency   = "seed-concurrency"
	flagRobots            = "robots"
	flagDeny              = "deny"
	flagNoDefaultDeny     = "no-default-deny"
	flagRegistrableDomain = "registrable-domain"
	flagProxy             = "proxy"
	flagConfig            = "config"
	flagNoHistory         = "no-history"
	flagDBDir             = "db-dir"
	flagContent           = "content"
)

// addCrawlFlags registers the flags of a crawl command with the defaults
// of profile.
func addCrawlFlags(cmd *cobra.Command, profile config.Profile) {
	defaults := config.NewConfig(profile)
	flags := cmd.Flags()

	// Traversal bounds
	flags.IntP(flagDepth, "d", defaults.MaxDepth,
		"Maximum crawl depth (0 fetches only the seed)")
	flags.IntP(flagMaxPages, "p", defaults.MaxPages,
		"Maximum number of pages to fetch per seed (0 for no limit)")
	flags.DurationP(flagTimeout, "t", defaults.Timeout,
		"Timeout for each request")
	flags.Duration(flagDelay, defaults.Delay,
		"Minimum delay between two requests to the same host")
	flags.IntP(flagConcurrency, "n", defaults.Concurrency,
		"Number of concurrent fetches within one depth level")
	flags.Int(flagSeedConcurrency, 1,
		"Number of seeds crawled at the same time")

	// Scope
	flags.Bool(flagKeepQuery, defaults.KeepQuery,
		"Treat URLs that differ only by query string as different pages")
	flags.Bool(flagRobots, defaults.RespectRobots,
		"Respect robots.txt")
	flags.StringArray(flagDeny, nil,
		"Additional denylist pattern (repeatable)")
	flags.Bool(flagNoDefaultDeny, false,
		"Do not apply the profile's default denylist")
	flags.Bool(flagRegistrableDomain, defaults.RegistrableDomain,
		"Widen the scope to the seed's registrable domain and its subdomains")

	// HTTP
	flags.String(flagUserAgent, defaults.UserAgent,
		"User-Agent header sent with every request")
	flags.String(flagProxy, "",
		"SOCKS5 proxy address (e.g. 127.0.0.1:9050)")

	// Output and configuration
	flags.StringP(flagOutput, "o", defaults.OutputDir,
		"Output directory")
	flags.StringP(flagConfig, "c", "",
		"Configuration file path (default: .sitescraper in current or home directory)")
	flags.Bool(flagNoHistory, false,
		"Do not record the run in the history database")
	flags.String(flagDBDir, defaults.DBDir,
		"Directory of the history database")
}

// lockedWriter serializes writes from concurrently crawled seeds.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// runCrawl builds one configuration per seed, then crawls every seed.
func runCrawl(cmd *cobra.Command, profile config.Profile, args []string) error {
	siteConfigs, err := loadSiteConfigs(cmd)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	seeds := make([]string, 0, len(args))
	configs := make(map[string]*config.Config, len(args))
	for _, arg := range args {
		cfg, err := buildConfig(cmd, profile, arg, siteConfigs)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		if _, dup := configs[cfg.SeedURL]; dup {
			continue
		}
		seeds = append(seeds, cfg.SeedURL)
		configs[cfg.SeedURL] = cfg
	}

	first := configs[seeds[0]]
	var headerNames []string
	for _, seed := range seeds {
		for name := range configs[seed].Headers {
			headerNames = append(headerNames, name)
		}
	}
	logger := log.NewLogger(cmd.ErrOrStderr(), first.Verbose, first.LogFormat, headerNames...)
	slog.SetDefault(logger)

	out := &lockedWriter{w: cmd.OutOrStdout()}

	spiders := make(map[string]*crawler.Spider, len(seeds))
	for _, seed := range seeds {
		spider, err := newSpider(configs[seed], out, logger)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		spiders[seed] = spider
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store pipeline.HistoryStore
	if first.SaveHistory {
		db, err := database.Open(first.DBDir, database.DefaultOptions())
		if err != nil {
			logger.Warn("history disabled: failed to open database", "dir", first.DBDir, "error", err)
		} else {
			defer db.Close()
			store = db
		}
	}

	seedConcurrency, err := cmd.Flags().GetInt(flagSeedConcurrency)
	if err != nil {
		return err
	}

	bp := pipeline.NewBatchProcessor(
		func(seed string) *pipeline.Pipeline {
			return newPipeline(configs[seed], spiders[seed], store, out, logger)
		},
		func(seed string) *model.CrawlRun {
			return model.NewCrawlRun(string(profile), seed, configs[seed].MaxDepth)
		},
		pipeline.WithConcurrency(seedConcurrency),
		pipeline.WithBatchLogger(logger),
	)

	results := bp.ProcessBatch(ctx, seeds)

	interrupted := ctx.Err() != nil
	var errs []error
	for i, res := range results {
		if res.Run != nil && res.Run.Interrupted {
			interrupted = true
		}
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", seeds[i], res.Err))
		}
	}

	if interrupted {
		fmt.Fprintln(out, "Interrupted: partial results were saved.")
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// loadSiteConfigs loads the config file. A file named with --config must
// exist; otherwise a missing file yields an empty configuration.
func loadSiteConfigs(cmd *cobra.Command) (*config.File, error) {
	explicitPath, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return nil, err
	}

	path := config.FindConfigFile(explicitPath)
	if path == "" {
		if explicitPath != "" {
			return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, explicitPath)
		}
		return &config.File{Sites: make(map[string]config.SiteConfig)}, nil
	}

	cf, err := config.LoadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return cf, nil
}

// buildConfig creates the Config for one seed.
// Precedence: flags given on the command line > config file > profile defaults.
func buildConfig(cmd *cobra.Command, profile config.Profile, seed string, siteConfigs *config.File) (*config.Config, error) {
	cfg := config.NewConfig(profile)
	flags := cmd.Flags()

	var err error
	if cfg.SeedURL, err = config.NormalizeSeed(seed); err != nil {
		return nil, err
	}

	if cfg.MaxDepth, err = flags.GetInt(flagDepth); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = flags.GetInt(flagMaxPages); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration(flagTimeout); err != nil {
		return nil, err
	}
	if cfg.Delay, err = flags.GetDuration(flagDelay); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = flags.GetInt(flagConcurrency); err != nil {
		return nil, err
	}
	if cfg.KeepQuery, err = flags.GetBool(flagKeepQuery); err != nil {
		return nil, err
	}
	if cfg.RespectRobots, err = flags.GetBool(flagRobots); err != nil {
		return nil, err
	}
	if cfg.RegistrableDomain, err = flags.GetBool(flagRegistrableDomain); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString(flagUserAgent); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString(flagProxy); err != nil {
		return nil, err
	}
	if cfg.OutputDir, err = flags.GetString(flagOutput); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString(flagConfig); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString(flagDBDir); err != nil {
		return nil, err
	}

	noHistory, err := flags.GetBool(flagNoHistory)
	if err != nil {
		return nil, err
	}
	cfg.SaveHistory = !noHistory

	if flags.Lookup(flagContent) != nil {
		if cfg.IncludeContent, err = flags.GetBool(flagContent); err != nil {
			return nil, err
		}
	}

	if cfg.RegistrableDomain {
		cfg.ScopeMode = config.ScopeSubdomains
	}

	noDefaultDeny, err := flags.GetBool(flagNoDefaultDeny)
	if err != nil {
		return nil, err
	}
	if noDefaultDeny {
		cfg.DenyPatterns = nil
	}

	cfg.SiteConfigs = siteConfigs
	cfg.ApplySiteConfig(siteConfigs.GetSiteConfig(cfg.SeedHost()), flags.Changed)

	deny, err := flags.GetStringArray(flagDeny)
	if err != nil {
		return nil, err
	}
	cfg.DenyPatterns = append(cfg.DenyPatterns, deny...)

	cfg.Verbose = getVerboseFlag(cmd)
	cfg.LogFormat = getLogFormatFlag(cmd)

	return cfg, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getLogFormatFlag retrieves the log format from the command or its parent.
func getLogFormatFlag(cmd *cobra.Command) string {
	format, err := cmd.Flags().GetString("log-format")
	if err != nil {
		format, err = cmd.Root().PersistentFlags().GetString("log-format")
		if err != nil {
			return config.DefaultLogFormat
		}
	}
	return format
}

// newSpider wires the fetch, extract and robots components for cfg.
// Progress lines are written to out.
func newSpider(cfg *config.Config, out io.Writer, logger *slog.Logger) (*crawler.Spider, error) {
	client, err := fetch.NewHTTPClient(fetch.ClientConfig{
		Timeout:      cfg.Timeout,
		ProxyAddress: cfg.ProxyAddress,
		Cookie:       cfg.Cookie,
		Headers:      cfg.Headers,
	})
	if err != nil {
		return nil, err
	}

	fetcher := fetch.NewHTTPFetcher(client,
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
	)

	// The site profile only needs plain text for its optional content field.
	var converter extract.Converter = extract.MarkdownConverter{}
	if cfg.Profile == config.ProfileSite {
		converter = extract.TextConverter{}
	}
	extractor := extract.NewExtractor(
		extract.WithStrategies(extract.StrategiesFor(cfg.ContentSelectors)...),
		extract.WithConverter(converter),
	)

	opts := []crawler.SpiderOption{
		crawler.WithMaxDepth(cfg.MaxDepth),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithDelay(cfg.Delay),
		crawler.WithConcurrency(cfg.Concurrency),
		crawler.WithScopeMode(crawler.ScopeMode(cfg.ScopeMode)),
		crawler.WithDenyPatterns(cfg.DenyPatterns),
		crawler.WithKeepQuery(cfg.KeepQuery),
		crawler.WithExtractor(extractor),
		crawler.WithLogger(logger),
		crawler.WithProgress(func(e crawler.Entry) {
			fmt.Fprintf(out, "Crawling: %s (depth: %d)\n", e.URL, e.Depth)
		}),
	}
	if cfg.RegistrableDomain {
		opts = append(opts, crawler.WithRootDomain(crawler.RegistrableDomain(cfg.SeedHost())))
	}
	if cfg.RespectRobots {
		opts = append(opts, crawler.WithRobots(robots.NewAgent(client, cfg.UserAgent, robots.WithLogger(logger))))
	}

	return crawler.NewSpider(fetcher, opts...), nil
}

// newResultWriter returns the profile's output writer.
func newResultWriter(cfg *config.Config, logger *slog.Logger) report.Writer {
	if cfg.Profile == config.ProfileDocs {
		return report.NewDocsWriter(cfg.OutputDir, report.WithDocsLogger(logger))
	}
	return report.NewMultiWriter(
		report.NewJSONWriter(cfg.OutputDir, report.WithPrettyPrint(), report.WithContent(cfg.IncludeContent)),
		report.NewIndexWriter(cfg.OutputDir, report.IndexSite),
	)
}

// newPipeline assembles crawl, persist, history and summary for one seed.
// store may be nil.
func newPipeline(cfg *config.Config, spider *crawler.Spider, store pipeline.HistoryStore, out io.Writer, logger *slog.Logger) *pipeline.Pipeline {
	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddStep(pipeline.NewCrawlStep(spider, pipeline.WithCrawlLogger(logger)))
	p.AddFinalizer(
		pipeline.NewPersistStep(newResultWriter(cfg, logger), pipeline.WithPersistLogger(logger)),
		pipeline.NewHistoryStep(store, pipeline.WithHistoryLogger(logger)),
		pipeline.NewSummaryStep(report.NewSummaryWriter(out, report.WithVerbose(cfg.Verbose))),
	)
	return p
}
