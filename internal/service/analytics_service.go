package service

import (
	"context"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/vault-console/internal/errors"
	"github.com/vault-console/internal/listing"
	"github.com/vault-console/internal/logging"
	"github.com/vault-console/internal/models"
	"github.com/vault-console/internal/types"
)

const (
	holdingPath     = "analytics/holding"
	volumePath      = "analytics/volume"
	transactionPath = "analytics/transaction"
	earnPath        = "analytics/earn"
	activeUsersPath = "analytics/monthly-active"
	spamTokensPath  = "analytics/spamTokens"
)

// Earn product mints on Solana
const (
	USDCMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	SOLMint  = "So11111111111111111111111111111111111111112"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether s looks like an email address
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// HoldingQuery selects a page of user holdings
type HoldingQuery struct {
	Email     string
	DateRange types.DateRange
	Page      int
	Limit     int
}

// Enabled reports whether the query has enough input to run
func (q HoldingQuery) Enabled() bool {
	return strings.TrimSpace(q.Email) != "" || !q.DateRange.IsZero()
}

// Validate checks the email and date range
func (q HoldingQuery) Validate() error {
	email := strings.TrimSpace(q.Email)
	if email == "" && q.DateRange.IsZero() {
		return apperrors.NewValidationError("email", "Email is required")
	}
	if email != "" && !ValidEmail(email) {
		return apperrors.NewValidationError("email", "Please enter a valid email address")
	}
	if err := q.DateRange.Validate(); err != nil {
		return apperrors.NewValidationError("date_range", err.Error())
	}
	return nil
}

// Values encodes the query for the vault
func (q HoldingQuery) Values() url.Values {
	v := url.Values{}
	if email := strings.TrimSpace(q.Email); email != "" {
		v.Set("email", email)
	}
	for k, val := range q.DateRange.Params() {
		v.Set(k, val)
	}
	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = listing.DefaultPageSize
	}
	v.Set("page", strconv.Itoa(page))
	v.Set("limit", strconv.Itoa(limit))
	return v
}

// AnalyticsFilter narrows the dashboard analytics
type AnalyticsFilter struct {
	Chain     types.ChainID
	Address   string
	DateRange types.DateRange
}

// Validate checks the chain and date range
func (f AnalyticsFilter) Validate() error {
	if f.Chain != "" && !f.Chain.IsValid() {
		return apperrors.NewInvalidParameterError("chain", "unsupported chain")
	}
	if err := f.DateRange.Validate(); err != nil {
		return apperrors.NewValidationError("date_range", err.Error())
	}
	return nil
}

// Values encodes the non-empty filter fields
func (f AnalyticsFilter) Values() url.Values {
	v := url.Values{}
	if f.Chain != "" {
		v.Set("chain", string(f.Chain))
	}
	if a := strings.TrimSpace(f.Address); a != "" {
		v.Set("address", a)
	}
	for k, val := range f.DateRange.Params() {
		v.Set(k, val)
	}
	return v
}

// VolumeEnabled reports whether volume and transaction queries should run
func (f AnalyticsFilter) VolumeEnabled() bool {
	return !f.DateRange.IsZero() || f.Chain != ""
}

// EarnEnabled reports whether earn and active user queries should run
func (f AnalyticsFilter) EarnEnabled() bool {
	return !f.DateRange.IsZero()
}

// ChainSummary totals one chain of a user's holdings
type ChainSummary struct {
	Chain       types.ChainID         `json:"chain"`
	DisplayName string                `json:"displayName"`
	Total       decimal.Decimal       `json:"total"`
	TokenCount  int                   `json:"tokenCount"`
	Tokens      []models.HoldingToken `json:"tokens"`
}

// UserHolding is a holding user with derived totals
type UserHolding struct {
	models.HoldingUser
	TotalUSD       decimal.Decimal `json:"totalUsd"`
	TokenCount     int             `json:"tokenCount"`
	ChainSummaries []ChainSummary  `json:"chainSummaries"`
}

// HoldingView is the holding response with per-user totals
type HoldingView struct {
	ChainHoldings []models.ChainHolding    `json:"chainHoldings"`
	TotalHolding  decimal.Decimal          `json:"totalHolding"`
	Users         []UserHolding            `json:"users"`
	Pagination    models.HoldingPagination `json:"pagination"`
}

// EarnMetrics are the USDC and SOL earn figures derived from the earn report
type EarnMetrics struct {
	USDCDepositAmount  decimal.Decimal `json:"usdcDepositAmount"`
	SOLDepositAmount   decimal.Decimal `json:"solDepositAmount"`
	USDCDepositCount   int64           `json:"usdcDepositCount"`
	SOLDepositCount    int64           `json:"solDepositCount"`
	USDCWithdrawAmount decimal.Decimal `json:"usdcWithdrawAmount"`
	SOLWithdrawAmount  decimal.Decimal `json:"solWithdrawAmount"`
	USDCWithdrawCount  int64           `json:"usdcWithdrawCount"`
	SOLWithdrawCount   int64           `json:"solWithdrawCount"`
	TotalUSDC          decimal.Decimal `json:"totalUsdc"`
	TotalSOL           decimal.Decimal `json:"totalSol"`
}

// Dashboard collects the dashboard queries. Queries that were not enabled
// by the filter are left nil.
type Dashboard struct {
	Volume      []models.VolumeItem      `json:"volume,omitempty"`
	Transaction []models.TransactionItem `json:"transaction,omitempty"`
	Earn        *models.EarnResponse     `json:"earn,omitempty"`
	EarnMetrics *EarnMetrics             `json:"earnMetrics,omitempty"`
	ActiveUsers *models.ActiveUserStats  `json:"activeUsers,omitempty"`
}

// AnalyticsService reads holding and activity analytics from the vault
type AnalyticsService struct {
	vault VaultAPI
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(vault VaultAPI) *AnalyticsService {
	return &AnalyticsService{vault: vault}
}

// Holding fetches one page of user holdings and derives per-user totals
func (s *AnalyticsService) Holding(ctx context.Context, q HoldingQuery) (*HoldingView, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var resp models.HoldingResponse
	if err := s.vault.Get(ctx, holdingPath, q.Values(), &resp); err != nil {
		return nil, err
	}
	return BuildHoldingView(resp), nil
}

// Volume fetches per-chain USD volume
func (s *AnalyticsService) Volume(ctx context.Context, f AnalyticsFilter) ([]models.VolumeItem, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	var resp models.VolumeResponse
	if err := s.vault.Get(ctx, volumePath, f.Values(), &resp); err != nil {
		return nil, err
	}
	return nonNil(resp.Volume), nil
}

// Transaction fetches per-chain transaction counts
func (s *AnalyticsService) Transaction(ctx context.Context, f AnalyticsFilter) ([]models.TransactionItem, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	var resp models.TransactionResponse
	if err := s.vault.Get(ctx, transactionPath, f.Values(), &resp); err != nil {
		return nil, err
	}
	return nonNil(resp.Transaction), nil
}

// Earn fetches earn deposits and withdrawals within the date range
func (s *AnalyticsService) Earn(ctx context.Context, dr types.DateRange) (*models.EarnResponse, error) {
	if err := dr.Validate(); err != nil {
		return nil, apperrors.NewValidationError("date_range", err.Error())
	}
	var resp models.EarnResponse
	if err := s.vault.Get(ctx, earnPath, rangeValues(dr), &resp); err != nil {
		return nil, err
	}
	resp.Deposit = nonNil(resp.Deposit)
	resp.Withdraw = nonNil(resp.Withdraw)
	return &resp, nil
}

// ActiveUsers fetches active user counts within the date range
func (s *AnalyticsService) ActiveUsers(ctx context.Context, dr types.DateRange) (*models.ActiveUserStats, error) {
	if err := dr.Validate(); err != nil {
		return nil, apperrors.NewValidationError("date_range", err.Error())
	}
	var resp models.ActiveUserStats
	if err := s.vault.Get(ctx, activeUsersPath, rangeValues(dr), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UserSpamTokens fetches the spam tokens held by a user's EVM and Solana
// addresses
func (s *AnalyticsService) UserSpamTokens(ctx context.Context, address, solanaAddress string) (*models.UserSpamTokens, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, apperrors.NewValidationError("address", "address is required")
	}
	v := url.Values{"address": {address}}
	if sol := strings.TrimSpace(solanaAddress); sol != "" {
		v.Set("solana", sol)
	}

	var resp models.UserSpamTokens
	if err := s.vault.Get(ctx, spamTokensPath, v, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Dashboard runs the enabled dashboard queries concurrently. The first
// failing query cancels the others.
func (s *AnalyticsService) Dashboard(ctx context.Context, f AnalyticsFilter) (*Dashboard, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	logger := logging.FromContext(ctx).Component("analytics").WithFields(map[string]interface{}{
		"volume": f.VolumeEnabled(),
		"earn":   f.EarnEnabled(),
	})

	out := &Dashboard{}
	g, gctx := errgroup.WithContext(ctx)

	if f.VolumeEnabled() {
		g.Go(func() error {
			items, err := s.Volume(gctx, f)
			out.Volume = items
			return err
		})
		g.Go(func() error {
			items, err := s.Transaction(gctx, f)
			out.Transaction = items
			return err
		})
	}
	if f.EarnEnabled() {
		g.Go(func() error {
			earn, err := s.Earn(gctx, f.DateRange)
			if err == nil {
				m := DeriveEarnMetrics(earn)
				out.Earn, out.EarnMetrics = earn, &m
			}
			return err
		})
		g.Go(func() error {
			stats, err := s.ActiveUsers(gctx, f.DateRange)
			out.ActiveUsers = stats
			return err
		})
	}

	if err := g.Wait(); err != nil {
		logger.WithError(err).Warn("Dashboard query failed")
		return nil, err
	}
	logger.Debug("Dashboard loaded")
	return out, nil
}

// DeriveEarnMetrics picks the USDC and SOL rows out of the earn report.
// Deposits are matched on token_in and withdrawals on token_out.
func DeriveEarnMetrics(earn *models.EarnResponse) EarnMetrics {
	var m EarnMetrics
	if earn == nil {
		return m
	}

	for _, d := range earn.Deposit {
		switch d.TokenIn {
		case USDCMint:
			m.USDCDepositAmount, m.USDCDepositCount = parseDecimal(d.TotalDeposit), parseCount(d.Count)
		case SOLMint:
			m.SOLDepositAmount, m.SOLDepositCount = parseDecimal(d.TotalDeposit), parseCount(d.Count)
		}
	}
	for _, w := range earn.Withdraw {
		switch w.TokenOut {
		case USDCMint:
			m.USDCWithdrawAmount, m.USDCWithdrawCount = parseDecimal(w.TotalWithdraw), parseCount(w.Count)
		case SOLMint:
			m.SOLWithdrawAmount, m.SOLWithdrawCount = parseDecimal(w.TotalWithdraw), parseCount(w.Count)
		}
	}

	m.TotalUSDC = m.USDCDepositAmount.Add(m.USDCWithdrawAmount)
	m.TotalSOL = m.SOLDepositAmount.Add(m.SOLWithdrawAmount)
	return m
}

// BuildHoldingView derives per-user totals and chain summaries
func BuildHoldingView(resp models.HoldingResponse) *HoldingView {
	view := &HoldingView{
		ChainHoldings: nonNil(resp.ChainHoldings),
		TotalHolding:  decimal.Zero,
		Users:         make([]UserHolding, 0, len(resp.Users)),
		Pagination:    resp.Pagination,
	}
	for _, ch := range resp.ChainHoldings {
		view.TotalHolding = view.TotalHolding.Add(parseDecimal(ch.Holding))
	}
	for _, u := range resp.Users {
		summaries := ChainSummaries(u.Tokens)
		count := 0
		for _, cs := range summaries {
			count += cs.TokenCount
		}
		view.Users = append(view.Users, UserHolding{
			HoldingUser:    u,
			TotalUSD:       UserTotalUSD(u.Tokens),
			TokenCount:     count,
			ChainSummaries: summaries,
		})
	}
	return view
}

// UserTotalUSD sums the USD balance of every token on every chain.
// Unparsable balances count as zero.
func UserTotalUSD(tokens map[types.ChainID][]models.HoldingToken) decimal.Decimal {
	total := decimal.Zero
	for _, chainTokens := range tokens {
		for _, t := range chainTokens {
			total = total.Add(parseDecimal(t.USDBalanceFormatted))
		}
	}
	return total
}

// ChainSummaries totals each chain and orders its tokens by USD balance,
// largest first. Summaries are ordered by chain.
func ChainSummaries(tokens map[types.ChainID][]models.HoldingToken) []ChainSummary {
	out := make([]ChainSummary, 0, len(tokens))
	for chain, chainTokens := range tokens {
		sorted := SortByUSD(chainTokens)
		total := decimal.Zero
		for _, t := range sorted {
			total = total.Add(parseDecimal(t.USDBalanceFormatted))
		}
		out = append(out, ChainSummary{
			Chain:       chain,
			DisplayName: chain.ShortName(),
			Total:       total,
			TokenCount:  len(chainTokens),
			Tokens:      sorted,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Chain < out[j].Chain })
	return out
}

// SortByUSD returns a copy of tokens ordered by USD balance, largest first
func SortByUSD(tokens []models.HoldingToken) []models.HoldingToken {
	return listing.SortRecords(tokens, listing.Compare[models.HoldingToken](func(a, b models.HoldingToken) int {
		return parseDecimal(a.USDBalanceFormatted).Cmp(parseDecimal(b.USDBalanceFormatted))
	}).Reverse())
}

// SortByBalance returns a copy of tokens ordered by token balance, largest first
func SortByBalance(tokens []models.HoldingToken) []models.HoldingToken {
	return listing.SortRecords(tokens, listing.Compare[models.HoldingToken](func(a, b models.HoldingToken) int {
		return parseDecimal(a.BalanceFormatted).Cmp(parseDecimal(b.BalanceFormatted))
	}).Reverse())
}

func rangeValues(dr types.DateRange) url.Values {
	v := url.Values{}
	for k, val := range dr.Params() {
		v.Set(k, val)
	}
	return v
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseCount(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
