package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/vault-console/internal/export"
	"github.com/vault-console/internal/models"
	"github.com/vault-console/internal/printer"
	"github.com/vault-console/internal/types"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export vault reports",
}

var (
	exportType string
	exportFrom string
	exportTo   string
	exportOut  string
	exportDir  string
)

var exportHoldingCmd = &cobra.Command{
	Use:   "holding",
	Short: "Export the holding CSV and wait for the file",
	Long: `Requests a holding CSV from the vault, checks the job until the file is
ready and saves it. Interrupting the command stops the checks.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		downloader := export.NewFileDownloader(exportOut, exportDir)
		poller := export.NewPoller(app.vault, downloader, export.Config{
			Interval:    app.cfg.Export.PollInterval,
			MaxAttempts: app.cfg.Export.MaxAttempts,
			Timeout:     app.cfg.Export.Timeout,
		}, &progress{})
		defer poller.Shutdown()

		job, err := poller.RequestExport(cmd.Context(), types.ExportType(exportType), types.DateRange{
			StartDate: exportFrom,
			EndDate:   exportTo,
		})
		if err != nil {
			return printer.Error(err, "Failed to export CSV")
		}
		printer.Success("Saved %s", downloader.Path(job))
		return nil
	},
}

func init() {
	exportHoldingCmd.Flags().StringVarP(&exportType, "type", "t", string(types.ExportByTokens), "Layout: tokens or emails")
	exportHoldingCmd.Flags().StringVar(&exportFrom, "from", "", "Start date (YYYY-MM-DD)")
	exportHoldingCmd.Flags().StringVar(&exportTo, "to", "", "End date (YYYY-MM-DD)")
	exportHoldingCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Destination file (default: name from the file URL)")
	exportHoldingCmd.Flags().StringVar(&exportDir, "dir", ".", "Destination directory when --out is not set")

	exportCmd.AddCommand(exportHoldingCmd)
	rootCmd.AddCommand(exportCmd)
}

// progress prints one line per job state change
type progress struct {
	last models.PollState
}

func (p *progress) JobUpdated(_ context.Context, job models.ExportJob) {
	switch {
	case job.State == models.PollIdle:
		printer.Step("Export job %s created", job.JobID)
	case job.State == models.PollPending && job.Attempts > 0:
		printer.Step("File not ready yet (check %d)", job.Attempts)
	case job.State.IsTerminal() && job.State != p.last && job.State != models.PollComplete:
		printer.Warning("Export %s", job.State)
	}
	p.last = job.State
}
