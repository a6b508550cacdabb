// Package commands implements the console CLI commands.
package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vault-console/internal/adapter"
	"github.com/vault-console/internal/config"
	"github.com/vault-console/internal/logging"
	"github.com/vault-console/internal/printer"
	"github.com/vault-console/internal/service"
	"github.com/vault-console/internal/session"
	"github.com/vault-console/internal/storage"
)

// env holds the clients and services shared by every command
type env struct {
	cfg       *config.Config
	vault     *adapter.VaultClient
	tokens    *service.TokenService
	analytics *service.AnalyticsService
	waitlist  *service.WaitlistService
	operator  string
	closers   []func()
}

var (
	app      *env
	verbose  bool
	operator string
)

var rootCmd = &cobra.Command{
	Use:   "console",
	Short: "Console - token moderation and wallet analytics",
	Long: `Console is the operator CLI of the wallet platform. It lists and moderates
tokens, reads holding and activity analytics, exports holding CSVs and
manages the waitlist through the vault and IAM services.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd == cmd.Root() || cmd.Name() == "help" || !cmd.Runnable() {
			return nil
		}
		e, err := newEnv(cmd.Context())
		if err != nil {
			return printer.Error(err, "Failed to load configuration")
		}
		app = e
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app != nil {
			for _, c := range app.closers {
				c()
			}
			app = nil
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log requests to stderr")
	rootCmd.PersistentFlags().StringVar(&operator, "operator", "", "Operator recorded in the moderation audit log (default $USER)")
}

// Execute runs the root command with ctx
func Execute(ctx context.Context) error {
	// Errors are printed by the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.ExecuteContext(ctx)
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func newEnv(ctx context.Context) (*env, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Vault.BaseURL == "" {
		return nil, fmt.Errorf("VAULT_URL is required")
	}

	level := logging.LevelWarn
	if verbose {
		level = logging.LevelDebug
	}
	logging.InitGlobalLogger(level, logging.FormatText)
	logging.GetGlobalLogger().SetOutput(os.Stderr)

	e := &env{cfg: cfg, operator: operator}
	if e.operator == "" {
		e.operator = os.Getenv("USER")
	}
	if e.operator == "" {
		e.operator = "console"
	}

	// Moderation from the CLI is audited like moderation through the API
	var audit service.AuditRecorder
	if cfg.Database.Postgres.Enabled {
		db, err := storage.NewPostgresDB(ctx, &cfg.Database.Postgres)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, db.Close)
		audit = storage.NewModerationAuditRepository(db)
	}

	sess := session.NewState(cfg.Vault.Token, nil)
	e.vault = adapter.NewVaultClient(adapter.VaultConfig{
		BaseURL: cfg.Vault.BaseURL,
		APIKey:  cfg.Vault.APIKey,
		Timeout: cfg.Vault.Timeout,
		RPS:     cfg.Vault.RPS,
	}, sess)
	iam := adapter.NewIAMClient(cfg.IAM.BaseURL, cfg.IAM.APIKey, cfg.IAM.Timeout)

	e.tokens = service.NewTokenService(e.vault, nil, audit)
	e.analytics = service.NewAnalyticsService(e.vault)
	e.waitlist = service.NewWaitlistService(iam, nil, time.Local)
	return e, nil
}
