package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/rail44/userdash/internal/log"
	"github.com/rail44/userdash/internal/session"
	"github.com/rail44/userdash/internal/user"
	"github.com/rail44/userdash/internal/view"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Fetch the users once and print the table",
	Long: `Fetch the user list once, apply --search and --sort, and print the result.
Matches in the name and email columns are shown in [brackets].`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			log.Error("failed to load configuration", slog.String("error", err.Error()))
			os.Exit(1)
		}
		setupLogging(cfg.LogLevel)

		a, err := newApp(cfg)
		if err != nil {
			log.Error("failed to initialize", slog.String("error", err.Error()))
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		switch st := a.session.Refresh(ctx).(type) {
		case session.Failed:
			fmt.Fprintf(os.Stderr, "Error: %s\n", st.Message)
			os.Exit(1)
		case session.Ready:
			derived := view.Derive(st.Users, searchFlag, a.sort, a.collator)
			if listJSON {
				err = writeJSON(os.Stdout, st.Users, derived)
			} else {
				err = writeTable(os.Stdout, st.Users, derived, searchFlag, a.collator)
			}
			if err != nil {
				log.Error("failed to write output", slog.String("error", err.Error()))
				os.Exit(1)
			}
		}
	},
}

func init() {
	addViewFlags(listCmd.Flags())
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print JSON instead of a table")
	rootCmd.AddCommand(listCmd)
}

func bracket(s string) string {
	return "[" + s + "]"
}

// writeTable prints the header count and the derived rows
func writeTable(w io.Writer, all, derived []user.User, search string, c *view.Collator) error {
	if _, err := fmt.Fprintf(w, "Total Users: %d\n", len(all)); err != nil {
		return err
	}

	t := table.New().
		Border(lipgloss.ASCIIBorder()).
		Headers("ID", "Name", "Username", "Email", "Phone", "Website")

	if len(derived) == 0 {
		t = t.Row("", "No users found", "", "", "", "")
	}
	for _, r := range view.Rows(derived, search, c) {
		t = t.Row(
			strconv.Itoa(r.User.ID),
			view.Join(r.Name, bracket),
			r.User.Username,
			view.Join(r.Email, bracket),
			r.User.Phone,
			r.User.Website,
		)
	}

	_, err := fmt.Fprintln(w, t.String())
	return err
}

type listOutput struct {
	Total int         `json:"total"`
	Users []user.User `json:"users"`
}

func writeJSON(w io.Writer, all, derived []user.User) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(listOutput{Total: len(all), Users: derived})
}
