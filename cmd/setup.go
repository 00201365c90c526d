package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/rail44/userdash/internal/config"
	"github.com/rail44/userdash/internal/fetch"
	"github.com/rail44/userdash/internal/log"
	"github.com/rail44/userdash/internal/session"
	"github.com/rail44/userdash/internal/user"
	"github.com/rail44/userdash/internal/view"
)

var envKeyReplacer = strings.NewReplacer("-", "_")

var (
	searchFlag string
	sortFlag   string
)

// addViewFlags registers the flags that set the initial search and sort
func addViewFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&searchFlag, "search", "s", "", "initial search text")
	fs.StringVar(&sortFlag, "sort", "", "sort field: name, username or email")
}

// loadConfig reads the config file and applies flag and environment overrides
func loadConfig() (*config.Config, error) {
	return loadConfigFrom(cfgFile)
}

// loadConfigFrom is loadConfig for an explicit file. An empty path searches
// upward from the working directory.
func loadConfigFrom(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load(".")
	}
	if err != nil {
		return nil, err
	}

	if v := viper.GetString("endpoint"); v != "" {
		cfg.Endpoint = v
	}
	if viper.IsSet("timeout") {
		cfg.Timeout.Duration = viper.GetDuration("timeout")
	}
	if v := viper.GetString("locale"); v != "" {
		cfg.Locale = v
	}
	if v := viper.GetString("link-scheme"); v != "" {
		cfg.LinkScheme = v
	}
	if v := viper.GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if sortFlag != "" {
		cfg.Sort = sortFlag
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newFetcher builds the HTTP fetcher for a config
func newFetcher(cfg *config.Config) (*fetch.Client, error) {
	return fetch.NewClient(fetch.ClientOptions{
		Endpoint:  cfg.Endpoint,
		Timeout:   cfg.Timeout.Duration,
		UserAgent: cfg.UserAgent,
		Logger:    log.With("fetch"),
	})
}

// app holds what every front-end needs
type app struct {
	cfg      *config.Config
	session  *session.Session
	collator *view.Collator
	sort     user.SortField
}

// newApp builds the shared core. Logging must be configured first: the
// component loggers are bound here.
func newApp(cfg *config.Config) (*app, error) {
	fetcher, err := newFetcher(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetcher: %w", err)
	}
	collator, err := view.NewCollator(cfg.Locale)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:      cfg,
		session:  session.New(fetcher, log.With("session")),
		collator: collator,
		sort:     cfg.SortField(),
	}, nil
}
