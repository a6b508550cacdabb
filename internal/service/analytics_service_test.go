package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/vault-console/internal/errors"
	"github.com/vault-console/internal/models"
	"github.com/vault-console/internal/types"
)

func TestHoldingQuery_Validate(t *testing.T) {
	tests := []struct {
		name    string
		query   HoldingQuery
		wantMsg string
	}{
		{"nothing set", HoldingQuery{}, "Email is required"},
		{"blank email", HoldingQuery{Email: "   "}, "Email is required"},
		{"bad email", HoldingQuery{Email: "ops@example"}, "Please enter a valid email address"},
		{"email with space", HoldingQuery{Email: "o ps@example.com"}, "Please enter a valid email address"},
		{"end before start", HoldingQuery{DateRange: types.DateRange{StartDate: "2024-05-02", EndDate: "2024-05-01"}}, "end_date must be after start_date"},
		{"email only", HoldingQuery{Email: "ops@example.com"}, ""},
		{"date only", HoldingQuery{DateRange: types.DateRange{StartDate: "2024-05-01"}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				assert.True(t, tt.query.Enabled())
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, apperrors.DisplayMessage(err, ""))
		})
	}
}

func TestHoldingQuery_Values(t *testing.T) {
	v := HoldingQuery{Email: " ops@example.com ", DateRange: types.DateRange{EndDate: "2024-06-01"}}.Values()
	assert.Equal(t, "ops@example.com", v.Get("email"))
	assert.Equal(t, "2024-06-01", v.Get("end_date"))
	assert.False(t, v.Has("start_date"))
	assert.Equal(t, "1", v.Get("page"))
	assert.Equal(t, "15", v.Get("limit"))
}

func TestAnalyticsService_HoldingDerivesTotals(t *testing.T) {
	vault := newFakeVault()
	vault.responses[holdingPath] = models.HoldingResponse{
		ChainHoldings: []models.ChainHolding{
			{Chain: types.ChainBase, Holding: "1000.50"},
			{Chain: types.ChainSolana, Holding: "250.25"},
		},
		Users: []models.HoldingUser{{
			Email:   "ops@example.com",
			Address: "0xabc",
			Tokens: map[types.ChainID][]models.HoldingToken{
				types.ChainBase: {
					{TokenAddress: "small", BalanceFormatted: "900", USDBalanceFormatted: "0.25"},
					{TokenAddress: "big", BalanceFormatted: "3", USDBalanceFormatted: "10.50"},
				},
				types.ChainSolana: {
					{TokenAddress: "junk", BalanceFormatted: "1", USDBalanceFormatted: "n/a"},
				},
			},
		}},
		Pagination: models.HoldingPagination{CurrentPage: "1", TotalPages: 4},
	}
	svc := NewAnalyticsService(vault)

	view, err := svc.Holding(context.Background(), HoldingQuery{Email: "ops@example.com"})
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("1250.75").Equal(view.TotalHolding))
	assert.Equal(t, 4, view.Pagination.TotalPages)
	require.Len(t, view.Users, 1)

	user := view.Users[0]
	assert.True(t, decimal.RequireFromString("10.75").Equal(user.TotalUSD), user.TotalUSD.String())
	assert.Equal(t, 3, user.TokenCount)

	require.Len(t, user.ChainSummaries, 2)
	base := user.ChainSummaries[0]
	assert.Equal(t, types.ChainBase, base.Chain)
	assert.Equal(t, "Base", base.DisplayName)
	assert.Equal(t, "big", base.Tokens[0].TokenAddress)
	assert.Equal(t, "Solana", user.ChainSummaries[1].DisplayName)
	assert.True(t, user.ChainSummaries[1].Total.IsZero())

	assert.Equal(t, "ops@example.com", vault.last().query.Get("email"))
}

func TestAnalyticsService_HoldingInvalidNeverCallsVault(t *testing.T) {
	vault := newFakeVault()
	_, err := NewAnalyticsService(vault).Holding(context.Background(), HoldingQuery{Email: "nope"})
	require.Error(t, err)
	assert.Zero(t, vault.callCount())
}

func TestSortByBalance(t *testing.T) {
	tokens := []models.HoldingToken{
		{TokenAddress: "a", BalanceFormatted: "2"},
		{TokenAddress: "b", BalanceFormatted: "10"},
		{TokenAddress: "c", BalanceFormatted: "2"},
	}
	sorted := SortByBalance(tokens)
	assert.Equal(t, "b", sorted[0].TokenAddress)
	assert.Equal(t, "a", sorted[1].TokenAddress, "ties keep input order")
	assert.Equal(t, "a", tokens[0].TokenAddress, "input is not modified")
}

func TestDeriveEarnMetrics(t *testing.T) {
	earn := &models.EarnResponse{
		Deposit: []models.EarnItem{
			{TokenIn: USDCMint, Count: "12", TotalDeposit: "1500.5"},
			{TokenIn: SOLMint, Count: "3", TotalDeposit: "7.25"},
			{TokenIn: "other", Count: "99", TotalDeposit: "1"},
		},
		Withdraw: []models.EarnItem{
			{TokenOut: USDCMint, Count: "4", TotalWithdraw: "500"},
		},
	}

	m := DeriveEarnMetrics(earn)
	assert.EqualValues(t, 12, m.USDCDepositCount)
	assert.EqualValues(t, 3, m.SOLDepositCount)
	assert.EqualValues(t, 4, m.USDCWithdrawCount)
	assert.EqualValues(t, 0, m.SOLWithdrawCount)
	assert.True(t, decimal.RequireFromString("2000.5").Equal(m.TotalUSDC))
	assert.True(t, decimal.RequireFromString("7.25").Equal(m.TotalSOL))

	empty := DeriveEarnMetrics(nil)
	assert.True(t, empty.TotalUSDC.IsZero())
}

func TestAnalyticsService_DashboardEnablement(t *testing.T) {
	tests := []struct {
		name   string
		filter AnalyticsFilter
		paths  []string
	}{
		{"nothing set", AnalyticsFilter{}, nil},
		{"address alone", AnalyticsFilter{Address: "0xabc"}, nil},
		{"chain only", AnalyticsFilter{Chain: types.ChainBase}, []string{volumePath, transactionPath}},
		{"date set", AnalyticsFilter{DateRange: types.DateRange{StartDate: "2024-01-01"}}, []string{volumePath, transactionPath, earnPath, activeUsersPath}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vault := newFakeVault()
			vault.responses[earnPath] = models.EarnResponse{Deposit: []models.EarnItem{{TokenIn: USDCMint, Count: "1", TotalDeposit: "5"}}}
			vault.responses[activeUsersPath] = models.ActiveUserStats{MonthlyActiveUsers: 42}

			dash, err := NewAnalyticsService(vault).Dashboard(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.paths, vault.paths())

			if tt.filter.EarnEnabled() {
				require.NotNil(t, dash.EarnMetrics)
				assert.True(t, decimal.NewFromInt(5).Equal(dash.EarnMetrics.TotalUSDC))
				assert.EqualValues(t, 42, dash.ActiveUsers.MonthlyActiveUsers)
			} else {
				assert.Nil(t, dash.EarnMetrics)
				assert.Nil(t, dash.ActiveUsers)
			}
		})
	}
}

func TestAnalyticsService_DashboardFailure(t *testing.T) {
	vault := newFakeVault()
	vault.errs[transactionPath] = apperrors.NewUpstreamError("vault", 500, "", nil)

	_, err := NewAnalyticsService(vault).Dashboard(context.Background(), AnalyticsFilter{Chain: types.ChainSolana})
	require.Error(t, err)
	assert.Equal(t, apperrors.CategoryUpstream, apperrors.Categorize(err).Category)
}

func TestAnalyticsService_FilterParams(t *testing.T) {
	vault := newFakeVault()
	vault.responses[volumePath] = models.VolumeResponse{Volume: []models.VolumeItem{{Chain: types.ChainBase, TotalVolume: "10"}}}
	svc := NewAnalyticsService(vault)

	items, err := svc.Volume(context.Background(), AnalyticsFilter{
		Chain:     types.ChainBase,
		Address:   " 0xabc ",
		DateRange: types.DateRange{StartDate: "2024-01-01", EndDate: "2024-02-01"},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)

	q := vault.last().query
	assert.Equal(t, "base-mainnet", q.Get("chain"))
	assert.Equal(t, "0xabc", q.Get("address"))
	assert.Equal(t, "2024-01-01", q.Get("start_date"))
	assert.Equal(t, "2024-02-01", q.Get("end_date"))

	_, err = svc.Transaction(context.Background(), AnalyticsFilter{Chain: "bitcoin"})
	assert.Error(t, err)
}

func TestAnalyticsService_UserSpamTokens(t *testing.T) {
	vault := newFakeVault()
	vault.responses[spamTokensPath] = models.UserSpamTokens{
		SpamTokens: map[types.ChainID][]models.HoldingToken{
			types.ChainBase: {{TokenAddress: "0xspam"}},
		},
	}
	svc := NewAnalyticsService(vault)

	_, err := svc.UserSpamTokens(context.Background(), "", "")
	assert.Error(t, err)

	got, err := svc.UserSpamTokens(context.Background(), "0xabc", "So1ana")
	require.NoError(t, err)
	assert.Len(t, got.SpamTokens[types.ChainBase], 1)

	q := vault.last().query
	assert.Equal(t, "0xabc", q.Get("address"))
	assert.Equal(t, "So1ana", q.Get("solana"))
}
