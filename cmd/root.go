package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rail44/userdash/internal/dashboard"
	"github.com/rail44/userdash/internal/log"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "userdash",
	Short: "Browse a remote user directory with search and sorting",
	Long: `userdash fetches the user list from a JSON endpoint and lets you search it
by name, username or email and sort it by a single field.

Without a subcommand it opens the interactive dashboard when stdout is a
terminal and prints the table otherwise.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	Run: func(cmd *cobra.Command, args []string) {
		if dashboard.IsTerminal() {
			tuiCmd.Run(cmd, args)
			return
		}
		listCmd.Run(cmd, args)
	},
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is the nearest userdash.toml)")
	flags.String("endpoint", "", "URL of the user list")
	flags.Duration("timeout", 0, "request timeout, 0 for none")
	flags.String("locale", "", "collation locale for sorting, e.g. en or de")
	flags.String("link-scheme", "", "scheme prefixed to each website")
	flags.String("log-level", "", "log level: error, warn, info or debug")

	for _, name := range []string{"endpoint", "timeout", "locale", "link-scheme", "log-level"} {
		viper.BindPFlag(name, flags.Lookup(name))
	}

	// The root command falls back to tui or list and accepts their view flags
	addViewFlags(rootCmd.Flags())
	rootCmd.Flags().BoolVar(&listJSON, "json", false, "print JSON instead of a table when not on a terminal")
}

func initConfig() {
	// A missing .env is normal
	_ = godotenv.Load()

	viper.SetEnvPrefix("USERDASH")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()
}

func setupLogging(level string) {
	if level == "" {
		level = "info"
	}
	parsed, err := log.ParseLevel(level)
	if err != nil {
		log.Error("invalid log level", slog.String("level", level))
		os.Exit(1)
	}
	if err := log.SetLevel(parsed); err != nil {
		log.Error("failed to set log level", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
