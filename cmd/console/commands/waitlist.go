package commands

import (
	"bufio"
	"context"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vault-console/internal/listing"
	"github.com/vault-console/internal/models"
	"github.com/vault-console/internal/printer"
	"github.com/vault-console/internal/service"
)

const searchDebounce = 300 * time.Millisecond

var waitlistCmd = &cobra.Command{
	Use:   "waitlist",
	Short: "Browse and export the waitlist",
}

var (
	waitlistFlags       listFlags
	waitlistInteractive bool
	waitlistOut         string
)

var waitlistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List waitlisted users",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := waitlistFlags.state(nil)
		if err != nil {
			return printer.Error(err, "Invalid flags")
		}

		if !waitlistInteractive {
			page, err := app.waitlist.Page(cmd.Context(), st)
			if err != nil {
				return printer.Error(err, "Failed to fetch waitlist")
			}
			return renderPage(page, waitlistHeaders, waitlistRow)
		}

		users, err := app.waitlist.List(cmd.Context())
		if err != nil {
			return printer.Error(err, "Failed to fetch waitlist")
		}
		printer.Info("Type to search, one query per line. Ctrl-D to quit.")
		return interactiveSearch(cmd.Context(), os.Stdin, searchDebounce, func(text string) error {
			st.SetSearch(text)
			return renderPage(app.waitlist.Pipeline().Apply(users, st), waitlistHeaders, waitlistRow)
		})
	},
}

var waitlistExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the waitlist as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := waitlistOut
		if path == "" {
			path = app.waitlist.FileName()
		}

		f, err := os.Create(path)
		if err != nil {
			return printer.Error(err, "Failed to create file")
		}
		n, err := app.waitlist.ExportCSV(cmd.Context(), f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(path)
			return printer.Error(err, "Failed to export users")
		}
		printer.Success("Exported %d users to %s", n, path)
		return nil
	},
}

func init() {
	waitlistFlags.register(waitlistListCmd, "email, created_at, updated_at")
	waitlistListCmd.Flags().BoolVarP(&waitlistInteractive, "interactive", "i", false, "Read search queries from stdin")
	waitlistExportCmd.Flags().StringVarP(&waitlistOut, "out", "o", "", "Destination file (default waitlist_users_<date>.csv)")

	waitlistCmd.AddCommand(waitlistListCmd, waitlistExportCmd)
	rootCmd.AddCommand(waitlistCmd)
}

// interactiveSearch reads one query per line and renders only the queries
// that stayed unchanged for wait
func interactiveSearch(ctx context.Context, in io.Reader, wait time.Duration, render func(string) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for text := range listing.DebounceInput(ctx, lines, wait) {
		if err := render(text); err != nil {
			return err
		}
	}
	return nil
}

var waitlistHeaders = []string{"Email", "ID", "Created At", "Updated At"}

func waitlistRow(u models.WaitlistUser) []string {
	return []string{
		u.Email,
		u.ID,
		u.CreatedAt.Local().Format(service.WaitlistTimeLayout),
		u.UpdatedAt.Local().Format(service.WaitlistTimeLayout),
	}
}
