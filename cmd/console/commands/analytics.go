package commands

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/vault-console/internal/listing"
	"github.com/vault-console/internal/models"
	"github.com/vault-console/internal/printer"
	"github.com/vault-console/internal/service"
	"github.com/vault-console/internal/types"
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Read holding and activity analytics",
}

var (
	analyticsChain   string
	analyticsAddress string
	analyticsFrom    string
	analyticsTo      string
	holdingEmail     string
	holdingPage      int
	holdingLimit     int
	spamSolana       string
)

var analyticsDashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show volume, transactions, earn and active users",
	Long: `Shows the dashboard queries enabled by the filter: volume and transactions
need a date or a chain, earn and active users need a date.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := service.AnalyticsFilter{
			Chain:     types.ChainID(analyticsChain),
			Address:   analyticsAddress,
			DateRange: types.DateRange{StartDate: analyticsFrom, EndDate: analyticsTo},
		}
		if !f.VolumeEnabled() {
			printer.Warning("Select a date or chain to load the dashboard")
			return nil
		}

		dash, err := app.analytics.Dashboard(cmd.Context(), f)
		if err != nil {
			return printer.Error(err, "Failed to load dashboard")
		}
		return renderDashboard(dash)
	},
}

var analyticsHoldingCmd = &cobra.Command{
	Use:   "holding",
	Short: "Show user holdings",
	RunE: func(cmd *cobra.Command, args []string) error {
		view, err := app.analytics.Holding(cmd.Context(), service.HoldingQuery{
			Email:     holdingEmail,
			DateRange: types.DateRange{StartDate: analyticsFrom, EndDate: analyticsTo},
			Page:      holdingPage,
			Limit:     holdingLimit,
		})
		if err != nil {
			return printer.Error(err, "Failed to load holding analytics")
		}

		printer.Info("Total holding: $%s", view.TotalHolding.StringFixed(2))
		if len(view.Users) == 0 {
			printer.Warning("No users found")
			return nil
		}
		rows := make([][]string, len(view.Users))
		for i, u := range view.Users {
			rows[i] = holdingRow(u)
		}
		if err := printer.Table(holdingHeaders, rows); err != nil {
			return err
		}
		printer.Info("Page %s of %d", view.Pagination.CurrentPage, view.Pagination.TotalPages)
		return nil
	},
}

var analyticsSpamTokensCmd = &cobra.Command{
	Use:   "spam-tokens <address>",
	Short: "Show the spam tokens held by one user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		held, err := app.analytics.UserSpamTokens(cmd.Context(), args[0], spamSolana)
		if err != nil {
			return printer.Error(err, "Failed to load spam tokens")
		}
		if held.Error != "" {
			printer.Warning("%s", held.Error)
			return nil
		}

		var rows [][]string
		for _, cs := range service.ChainSummaries(held.SpamTokens) {
			for _, t := range cs.Tokens {
				rows = append(rows, holdingTokenRow(cs.DisplayName, t))
			}
		}
		if len(rows) == 0 {
			printer.Success("No spam tokens held")
			return nil
		}
		return printer.Table(tokenHoldingHeaders, rows)
	},
}

func init() {
	for _, c := range []*cobra.Command{analyticsDashboardCmd, analyticsHoldingCmd} {
		c.Flags().StringVar(&analyticsFrom, "from", "", "Start date (YYYY-MM-DD)")
		c.Flags().StringVar(&analyticsTo, "to", "", "End date (YYYY-MM-DD)")
	}
	analyticsDashboardCmd.Flags().StringVarP(&analyticsChain, "chain", "c", "", "Chain filter")
	analyticsDashboardCmd.Flags().StringVar(&analyticsAddress, "address", "", "Wallet address filter")

	analyticsHoldingCmd.Flags().StringVarP(&holdingEmail, "email", "e", "", "User email")
	analyticsHoldingCmd.Flags().IntVarP(&holdingPage, "page", "p", 1, "Page number")
	analyticsHoldingCmd.Flags().IntVar(&holdingLimit, "limit", listing.DefaultPageSize, "Users per page")

	analyticsSpamTokensCmd.Flags().StringVar(&spamSolana, "solana", "", "Solana address of the user")

	analyticsCmd.AddCommand(analyticsDashboardCmd, analyticsHoldingCmd, analyticsSpamTokensCmd)
	rootCmd.AddCommand(analyticsCmd)
}

var (
	volumeHeaders       = []string{"Chain", "Total", "Sent", "Received", "Swapped", "Dapp"}
	holdingHeaders      = []string{"Email", "Address", "Solana", "Tokens", "Total USD"}
	tokenHoldingHeaders = []string{"Chain", "Token", "Address", "Balance", "USD"}
)

func renderDashboard(d *service.Dashboard) error {
	if len(d.Volume) > 0 {
		printer.Step("Volume (USD)")
		rows := make([][]string, len(d.Volume))
		for i, v := range d.Volume {
			rows[i] = []string{v.Chain.Title(), v.TotalVolume, v.SentVolume, v.ReceivedVolume, v.SwappedVolume, optional(v.DappVolume)}
		}
		if err := printer.Table(volumeHeaders, rows); err != nil {
			return err
		}
	}
	if len(d.Transaction) > 0 {
		printer.Step("Transactions")
		rows := make([][]string, len(d.Transaction))
		for i, t := range d.Transaction {
			dapp := "-"
			if t.DappTransaction != nil {
				dapp = fmt.Sprint(*t.DappTransaction)
			}
			rows[i] = []string{t.Chain.Title(), fmt.Sprint(t.TotalTransaction), fmt.Sprint(t.SentTransaction),
				fmt.Sprint(t.ReceivedTransaction), fmt.Sprint(t.SwappedTransaction), dapp}
		}
		if err := printer.Table(volumeHeaders, rows); err != nil {
			return err
		}
	}
	if m := d.EarnMetrics; m != nil {
		printer.Step("Earn")
		err := printer.Table([]string{"Asset", "Deposits", "Deposited", "Withdrawals", "Withdrawn", "Total"}, [][]string{
			{"USDC", fmt.Sprint(m.USDCDepositCount), amount(m.USDCDepositAmount), fmt.Sprint(m.USDCWithdrawCount), amount(m.USDCWithdrawAmount), amount(m.TotalUSDC)},
			{"SOL", fmt.Sprint(m.SOLDepositCount), amount(m.SOLDepositAmount), fmt.Sprint(m.SOLWithdrawCount), amount(m.SOLWithdrawAmount), amount(m.TotalSOL)},
		})
		if err != nil {
			return err
		}
	}
	if a := d.ActiveUsers; a != nil {
		printer.Step("Active users")
		printer.Info("Monthly %d  Weekly %d  Daily %d  In range %d",
			a.MonthlyActiveUsers, a.WeeklyActiveUsers, a.DailyActiveUsers, a.FilteredActiveUsers)
	}
	return nil
}

func holdingRow(u service.UserHolding) []string {
	return []string{
		u.Email,
		types.TruncateAddress(u.Address, 6),
		types.TruncateAddress(u.SolanaAddress, 6),
		fmt.Sprint(u.TokenCount),
		"$" + u.TotalUSD.StringFixed(2),
	}
}

func holdingTokenRow(chain string, t models.HoldingToken) []string {
	symbol := "N/A"
	if t.Symbol != nil && *t.Symbol != "" {
		symbol = *t.Symbol
	}
	return []string{chain, symbol, types.TruncateAddress(t.TokenAddress, 6), orDash(t.BalanceFormatted), orDash(t.USDBalanceFormatted)}
}

func amount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func optional(s *string) string {
	if s == nil {
		return "-"
	}
	return orDash(*s)
}
