package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rail44/userdash/internal/config"
	"github.com/rail44/userdash/internal/dashboard"
	"github.com/rail44/userdash/internal/log"
	"github.com/rail44/userdash/internal/view"
)

var tuiWatch bool

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive dashboard",
	Long: `Open the interactive dashboard. Type to search, tab to change the sort field,
ctrl+r to reload and ctrl+c to quit. When a fetch fails, press r to retry.

With --watch, saving the config file reloads it and starts a new fetch.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			log.Error("failed to load configuration", slog.String("error", err.Error()))
			os.Exit(1)
		}
		setupLogging(cfg.LogLevel)

		if err := runDashboard(cmd, cfg); err != nil {
			log.Error("dashboard failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	},
}

func init() {
	addViewFlags(tuiCmd.Flags())
	tuiCmd.Flags().BoolVarP(&tuiWatch, "watch", "w", false, "reload when the config file changes")
	rootCmd.AddCommand(tuiCmd)
}

func runDashboard(cmd *cobra.Command, cfg *config.Config) error {
	if tuiWatch && cfg.Path == "" {
		return fmt.Errorf("--watch needs a config file, none was found")
	}

	// The dashboard owns the terminal: route logs to its footer until it exits
	logs := dashboard.NewLogBuffer(50)
	restore := log.SetCallback(logs.Record)
	defer restore()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.session.Close()

	opts := dashboard.ProgramOptions{
		Model: dashboard.Options{
			Session:    a.session,
			Collator:   a.collator,
			Sort:       a.sort,
			Search:     searchFlag,
			LinkScheme: cfg.LinkScheme,
			Source:     cfg.Endpoint,
			Logs:       logs,
			Hyperlinks: true,
		},
		Logger: log.With("watch"),
	}

	if tuiWatch {
		opts.WatchPath = cfg.Path
		opts.OnChange = func() (dashboard.Settings, error) {
			return a.reload(cfg.Path)
		}
	}

	return dashboard.Run(cmd.Context(), opts)
}

// reload rereads the config file with flag and environment overrides applied
// again and swaps in the new fetcher. The sort field is passed on only when
// the file changed it, so a field picked in the dashboard is kept.
func (a *app) reload(path string) (dashboard.Settings, error) {
	next, err := loadConfigFrom(path)
	if err != nil {
		return dashboard.Settings{}, err
	}
	fetcher, err := newFetcher(next)
	if err != nil {
		return dashboard.Settings{}, fmt.Errorf("failed to create fetcher: %w", err)
	}
	collator, err := view.NewCollator(next.Locale)
	if err != nil {
		return dashboard.Settings{}, err
	}
	a.session.SetFetcher(fetcher)

	settings := dashboard.Settings{
		Collator:   collator,
		LinkScheme: next.LinkScheme,
		Source:     fetcher.Endpoint(),
	}
	if sort := next.SortField(); sort != a.sort {
		settings.Sort = sort
	}
	a.cfg, a.collator, a.sort = next, collator, next.SortField()
	return settings, nil
}
