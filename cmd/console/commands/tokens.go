package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vault-console/internal/models"
	"github.com/vault-console/internal/printer"
	"github.com/vault-console/internal/service"
	"github.com/vault-console/internal/types"
)

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "List and moderate tokens",
}

var (
	activeFlags   listFlags
	activeChain   string
	spamFlags     listFlags
	spamChain     string
	spamAutomated string
	mechFlags     listFlags
	mechChain     string
	mechScore     string
	mechOrderBy   string
	mechOrderDate string
	moderateChain string
	confirmDelete bool
)

var tokensActiveCmd = &cobra.Command{
	Use:   "active",
	Short: "List the active tokens of a chain",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := activeFlags.state(nil)
		if err != nil {
			return printer.Error(err, "Invalid flags")
		}
		page, err := app.tokens.ActivePage(cmd.Context(), types.ChainID(activeChain), st)
		if err != nil {
			return printer.Error(err, "Failed to fetch tokens")
		}
		return renderPage(page, activeHeaders, activeRow)
	},
}

var tokensSpamCmd = &cobra.Command{
	Use:   "spam",
	Short: "List spam tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := spamFlags.state(map[string]string{
			service.FilterChain:     spamChain,
			service.FilterAutomated: spamAutomated,
		})
		if err != nil {
			return printer.Error(err, "Invalid flags")
		}
		page, err := app.tokens.SpamPage(cmd.Context(), st)
		if err != nil {
			return printer.Error(err, "Failed to fetch spam tokens")
		}
		return renderPage(page, spamHeaders, spamRow)
	},
}

var tokensMechanismCmd = &cobra.Command{
	Use:   "mechanism",
	Short: "List tokens scored by the spam mechanism",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := mechFlags.state(map[string]string{service.FilterScore: mechScore})
		if err != nil {
			return printer.Error(err, "Invalid flags")
		}
		q := service.MechanismQuery{
			OrderBy:     types.SortOrder(mechOrderBy),
			OrderByDate: types.SortOrder(mechOrderDate),
		}
		if mechChain != "all" {
			q.Chain = types.ChainID(mechChain)
		}
		page, err := app.tokens.MechanismPage(cmd.Context(), q, st)
		if err != nil {
			return printer.Error(err, "Failed to fetch spam tokens")
		}
		return renderPage(page, mechanismHeaders, mechanismRow)
	},
}

var tokensMoveCmd = &cobra.Command{
	Use:   "move <address>",
	Short: "Move a token between the active and spam lists",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref := models.TokenRef{TokenAddress: args[0], Chain: types.ChainID(moderateChain)}
		if err := app.tokens.MoveToken(cmd.Context(), app.operator, ref); err != nil {
			return printer.Error(err, "Failed to move token")
		}
		printer.Success("Token moved successfully")
		return nil
	},
}

var tokensSaveCmd = &cobra.Command{
	Use:   "save <address>...",
	Short: "Mark tokens of one chain as spam",
	RunE: func(cmd *cobra.Command, args []string) error {
		refs := make([]models.TokenRef, len(args))
		for i, addr := range args {
			refs[i] = models.TokenRef{TokenAddress: addr, Chain: types.ChainID(moderateChain)}
		}
		if err := app.tokens.SaveAsSpam(cmd.Context(), app.operator, refs); err != nil {
			return printer.Error(err, "Failed to save tokens")
		}
		printer.Success("%d token(s) moved to spam", len(refs))
		return nil
	},
}

var tokensDeleteCmd = &cobra.Command{
	Use:   "delete <address>",
	Short: "Remove a token from the spam list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref := models.TokenRef{TokenAddress: args[0], Chain: types.ChainID(moderateChain)}
		if !confirmDelete {
			printer.Warning("This removes %s on %s from the spam list. Re-run with --yes to confirm.",
				types.TruncateAddress(ref.TokenAddress, 6), ref.Chain.Title())
			return nil
		}
		if err := app.tokens.DeleteSpam(cmd.Context(), app.operator, ref); err != nil {
			return printer.Error(err, "Failed to remove token from spam list")
		}
		printer.Success("Token removed from spam list")
		return nil
	},
}

func init() {
	activeFlags.register(tokensActiveCmd, "address, name, chain, usd_price")
	tokensActiveCmd.Flags().StringVarP(&activeChain, "chain", "c", string(types.ChainSolana), "Chain to list")

	spamFlags.register(tokensSpamCmd, "address, name, chain, usd_price, automated, created_at")
	tokensSpamCmd.Flags().StringVarP(&spamChain, "chain", "c", "all", "Chain filter")
	tokensSpamCmd.Flags().StringVar(&spamAutomated, "automated", "all", "Automated filter: all, true or false")

	mechFlags.register(tokensMechanismCmd, "id, address, name, chain, score, created_at")
	tokensMechanismCmd.Flags().StringVarP(&mechChain, "chain", "c", "all", "Chain sent to the vault")
	tokensMechanismCmd.Flags().StringVar(&mechScore, "score", "all", "Score bucket: below-50, 50-60, 60-70, 70-80, 80-90, 90-100")
	tokensMechanismCmd.Flags().StringVar(&mechOrderBy, "order-by", "", "Score order applied by the vault: asc or desc")
	tokensMechanismCmd.Flags().StringVar(&mechOrderDate, "order-by-date", "", "Date order applied by the vault: asc or desc")

	for _, c := range []*cobra.Command{tokensMoveCmd, tokensSaveCmd, tokensDeleteCmd} {
		c.Flags().StringVarP(&moderateChain, "chain", "c", "", "Chain of the token(s)")
		_ = c.MarkFlagRequired("chain")
	}
	tokensDeleteCmd.Flags().BoolVarP(&confirmDelete, "yes", "y", false, "Confirm the removal")

	tokensCmd.AddCommand(tokensActiveCmd, tokensSpamCmd, tokensMechanismCmd, tokensMoveCmd, tokensSaveCmd, tokensDeleteCmd)
	rootCmd.AddCommand(tokensCmd)
}

var (
	activeHeaders    = []string{"Address", "Chain", "Symbol", "Name", "USD Price"}
	spamHeaders      = []string{"Address", "Chain", "Symbol", "Name", "Automated", "Created"}
	mechanismHeaders = []string{"ID", "Address", "Name", "Chain", "Score", "Moved By", "Created"}
)

func activeRow(t models.ActiveToken) []string {
	return []string{types.TruncateAddress(t.TokenAddress, 6), t.Chain.Title(), t.Symbol, t.DisplayName(), orDash(t.USDPrice)}
}

func spamRow(t models.SpamToken) []string {
	return []string{types.TruncateAddress(t.TokenAddress, 6), t.Chain.Title(), t.Symbol, t.DisplayName(), t.AutomatedLabel(), orDash(t.CreatedAt)}
}

func mechanismRow(t models.MechanismToken) []string {
	created := "-"
	if ts := t.Created(); !ts.IsZero() {
		created = ts.Local().Format("2006-01-02 15:04")
	}
	movedBy := "-"
	if t.MovedBy != nil && *t.MovedBy != "" {
		movedBy = *t.MovedBy
	}
	return []string{fmt.Sprint(t.ID), types.TruncateAddress(t.TokenAddress, 6), t.DisplayName(), t.Chain.Title(), t.Score, movedBy, created}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
