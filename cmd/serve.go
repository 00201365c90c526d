package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/rail44/userdash/internal/log"
	"github.com/rail44/userdash/internal/web"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard as a web page",
	Long: `Serve the dashboard over HTTP. GET / renders the page, POST /retry starts a new
fetch and GET /api/users returns the derived list as JSON. The first fetch starts
in the background when the server starts.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			log.Error("failed to load configuration", slog.String("error", err.Error()))
			os.Exit(1)
		}
		setupLogging(cfg.LogLevel)
		if serveAddr != "" {
			cfg.Addr = serveAddr
		}

		a, err := newApp(cfg)
		if err != nil {
			log.Error("failed to initialize", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer a.session.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if !log.IsDebugEnabled() {
			gin.SetMode(gin.ReleaseMode)
		}
		router := web.New(web.Options{
			Session:     a.session,
			Collator:    a.collator,
			DefaultSort: a.sort,
			LinkScheme:  cfg.LinkScheme,
			Logger:      log.With("web"),
		}).Router()

		server := &http.Server{
			Addr:              cfg.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go a.session.Refresh(ctx)

		go func() {
			log.Info("listening", slog.String("addr", cfg.Addr), slog.String("endpoint", cfg.Endpoint))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server error", slog.String("error", err.Error()))
				stop()
			}
		}()

		<-ctx.Done()
		log.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("http server shutdown error", slog.String("error", err.Error()))
		}
	},
}

func init() {
	addViewFlags(serveCmd.Flags())
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8080)")
	rootCmd.AddCommand(serveCmd)
}
