// Package printer writes the console CLI's colored status lines and tables.
package printer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	apperrors "github.com/vault-console/internal/errors"
)

func init() {
	// Keep colors when piped; NO_COLOR turns them off
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	// Out receives regular output and ErrOut receives errors
	Out    io.Writer = os.Stdout
	ErrOut io.Writer = os.Stderr

	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// Success prints a success message in green with a checkmark prefix
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		msg = "✓ " + msg
	}
	_, _ = green.Fprintln(Out, msg)
}

// Info prints an informational message in the default color
func Info(format string, a ...any) {
	_, _ = fmt.Fprintf(Out, format+"\n", a...)
}

// Warning prints a warning message in yellow
func Warning(format string, a ...any) {
	_, _ = yellow.Fprintf(Out, "⚠️  %s\n", fmt.Sprintf(format, a...))
}

// Step prints a progress line of a multi-step operation
func Step(format string, a ...any) {
	_, _ = cyan.Fprintf(Out, "→ %s\n", fmt.Sprintf(format, a...))
}

// Error prints err as one red line to ErrOut and returns a plain error for
// cobra. Session expiry gets a hint about refreshing the token.
func Error(err error, fallback string) error {
	msg := apperrors.DisplayMessage(err, fallback)
	_, _ = red.Fprintln(ErrOut, msg)
	if apperrors.IsSessionExpired(err) {
		_, _ = fmt.Fprintln(ErrOut, "Set a fresh VAULT_TOKEN and try again.")
	}
	return fmt.Errorf("%s", msg)
}

// Table renders rows under headers
func Table(headers []string, rows [][]string) error {
	table := tablewriter.NewWriter(Out)
	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	table.Header(header...)
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

// PageFooter prints the pagination line under a table
func PageFooter(page, totalPages, total int) {
	if totalPages < 1 {
		totalPages = 1
	}
	Info("Page %d of %d (%d records)", page, totalPages, total)
}
