package cmd

import (
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/streed/memo/internal/config"
	"github.com/streed/memo/internal/database"
	"github.com/streed/memo/internal/logger"
	"github.com/streed/memo/internal/metrics"
	"github.com/streed/memo/internal/models"
	"github.com/streed/memo/internal/search"
)

var (
	db         *database.DB
	noteRepo   *models.NoteRepository
	tagRepo    *models.TagRepository
	searcher   *search.Searcher
	appMetrics *metrics.Metrics
	appConfig  *config.Config
	cfgViper   = viper.New()
	cfgFile    string
	debugFlag  bool
	Version    = "dev" // Version is set from main.go
)

var rootCmd = &cobra.Command{
	Use:     "memo",
	Short:   "A note-taking service with a boolean search language",
	Version: Version,
	Long: heredoc.Doc(`
		memo stores notes and tags in SQLite and serves them over HTTP, MCP and
		this command line. Notes are found with a small query language:

		  project plan                 both words, in title or body
		  "project plan"               the exact phrase
		  @title:plan @body:draft      restrict a term to one field
		  @tags:work                   notes carrying the tag "work"
		  a OR b, NOT a, -a, (a b)     boolean operators and grouping

		First time users should run 'memo init' to write a configuration file.
	`),
	SilenceUsage: true,
}

func Execute() error {
	rootCmd.Version = Version
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentPreRunE = initAppConfig
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default is $XDG_CONFIG_HOME/memo/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")
}

// skipStoreInit reports whether cmd works without a database.
func skipStoreInit(cmd *cobra.Command) bool {
	if cmd == rootCmd {
		return true
	}
	top := cmd
	for top.HasParent() && top.Parent() != rootCmd {
		top = top.Parent()
	}
	switch top.Name() {
	case "init", "config", "help", "completion":
		return true
	}
	return false
}

func initAppConfig(cmd *cobra.Command, args []string) error {
	if debugFlag {
		logger.SetDebugMode(true)
	}

	// Already wired, e.g. by tests.
	if db != nil || skipStoreInit(cmd) {
		return nil
	}

	cfg, err := config.Load(cfgViper, cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration (run 'memo init' to set it up): %w", err)
	}

	if debugFlag || cfg.Debug {
		logger.SetDebugMode(true)
		logger.Debug("Configuration loaded from: %s", configPath())
		logger.Debug("Data directory: %s", cfg.DataDirectory)
		logger.Debug("Database path: %s", cfg.GetDatabasePath())
		logger.Debug("Query cache: %d entries, ttl %s", cfg.QueryCacheSize, cfg.QueryCacheTTL())
	}

	d, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("error initializing database: %w", err)
	}

	wireStore(cfg, d)
	return nil
}

// wireStore builds the repositories and search service over an open database.
func wireStore(cfg *config.Config, d *database.DB) {
	appConfig = cfg
	db = d
	appMetrics = metrics.New()
	noteRepo = models.NewNoteRepository(d.Conn())
	tagRepo = models.NewTagRepository(d.Conn())
	searcher = search.NewSearcher(noteRepo, search.Options{
		CacheSize: cfg.QueryCacheSize,
		CacheTTL:  cfg.QueryCacheTTL(),
	}, appMetrics)
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	path, err := config.GetConfigPath()
	if err != nil {
		return ""
	}
	return path
}
