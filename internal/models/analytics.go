package models

import (
	"github.com/vault-console/internal/types"
)

// HoldingToken is one token balance held by a user
type HoldingToken struct {
	TokenAddress        string        `json:"token_address"`
	Chain               types.ChainID `json:"chain"`
	Name                *string       `json:"name"`
	Symbol              *string       `json:"symbol"`
	BalanceFormatted    string        `json:"balance_formatted"`
	USDBalanceFormatted string        `json:"usd_balance_formatted"`
}

// HoldingUser is a user with holdings grouped by chain
type HoldingUser struct {
	Email         string                           `json:"email"`
	Address       string                           `json:"address"`
	SolanaAddress string                           `json:"solana_address"`
	Tokens        map[types.ChainID][]HoldingToken `json:"tokens"`
}

// ChainHolding is the total holding on one chain
type ChainHolding struct {
	Chain   types.ChainID `json:"chain"`
	Holding string        `json:"holding"`
}

// HoldingPagination is the vault's server-side pagination block
type HoldingPagination struct {
	CurrentPage string `json:"currentPage"`
	TotalPages  int    `json:"totalPages"`
}

// HoldingResponse is the body of analytics/holding
type HoldingResponse struct {
	ChainHoldings []ChainHolding    `json:"chainHoldings"`
	Users         []HoldingUser     `json:"users"`
	Pagination    HoldingPagination `json:"pagination"`
}

// VolumeItem is per-chain USD volume
type VolumeItem struct {
	Chain          types.ChainID `json:"chain"`
	TotalVolume    string        `json:"total_volume"`
	SentVolume     string        `json:"sent_volume"`
	ReceivedVolume string        `json:"received_volume"`
	SwappedVolume  string        `json:"swapped_volume"`
	DappVolume     *string       `json:"dapp_volume,omitempty"`
}

// VolumeResponse is the body of analytics/volume
type VolumeResponse struct {
	Volume []VolumeItem `json:"volume"`
}

// TransactionItem is per-chain transaction counts
type TransactionItem struct {
	Chain               types.ChainID `json:"chain"`
	TotalTransaction    int64         `json:"total_transaction"`
	SentTransaction     int64         `json:"sent_transaction"`
	ReceivedTransaction int64         `json:"received_transaction"`
	SwappedTransaction  int64         `json:"swapped_transaction"`
	DappTransaction     *int64        `json:"dapp_transaction,omitempty"`
}

// TransactionResponse is the body of analytics/transaction
type TransactionResponse struct {
	Transaction []TransactionItem `json:"transaction"`
}

// EarnItem aggregates earn deposits or withdrawals of one mint
type EarnItem struct {
	TokenIn       string `json:"token_in,omitempty"`
	TokenOut      string `json:"token_out,omitempty"`
	Count         string `json:"count"`
	TotalDeposit  string `json:"total_deposit,omitempty"`
	TotalWithdraw string `json:"total_withdraw,omitempty"`
}

// EarnResponse is the body of analytics/earn
type EarnResponse struct {
	Deposit  []EarnItem `json:"deposit"`
	Withdraw []EarnItem `json:"withdraw"`
}

// ActiveUserStats is the body of analytics/monthly-active
type ActiveUserStats struct {
	MonthlyActiveUsers  int64 `json:"monthlyActiveUsers"`
	WeeklyActiveUsers   int64 `json:"weeklyActiveUsers"`
	DailyActiveUsers    int64 `json:"dailyActiveUsers"`
	FilteredActiveUsers int64 `json:"filteredActiveUsers"`
}

// UserSpamTokens is the body of analytics/spamTokens for one user
type UserSpamTokens struct {
	SpamTokens map[types.ChainID][]HoldingToken `json:"spamTokens,omitempty"`
	Error      string                           `json:"error,omitempty"`
}
