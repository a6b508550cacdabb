package types

import (
	"testing"
)

func TestChainID_Title(t *testing.T) {
	tests := []struct {
		chain ChainID
		want  string
	}{
		{ChainSolana, "Solana"},
		{ChainWorldChain, "Worldchain"},
		{ChainID("bnb-smart-mainnet"), "Bnb Smart"},
	}

	for _, tt := range tests {
		t.Run(string(tt.chain), func(t *testing.T) {
			if got := tt.chain.Title(); got != tt.want {
				t.Errorf("Title() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChainID_ShortName(t *testing.T) {
	if got := ChainWorldChain.ShortName(); got != "WLD" {
		t.Errorf("ShortName() = %q, want WLD", got)
	}
	if got := ChainSui.ShortName(); got != "sui-mainnet" {
		t.Errorf("ShortName() = %q, want sui-mainnet", got)
	}
}

func TestChainID_IsEVM(t *testing.T) {
	if !ChainBase.IsEVM() || !ChainWorldChain.IsEVM() {
		t.Error("base and worldchain should be EVM chains")
	}
	if ChainSolana.IsEVM() || ChainSui.IsEVM() {
		t.Error("solana and sui should not be EVM chains")
	}
}

func TestDateRange_Validate(t *testing.T) {
	tests := []struct {
		name    string
		r       DateRange
		wantErr bool
	}{
		{"empty range", DateRange{}, false},
		{"start only", DateRange{StartDate: "2024-01-01"}, false},
		{"ordered", DateRange{StartDate: "2024-01-01", EndDate: "2024-02-01"}, false},
		{"same day", DateRange{StartDate: "2024-01-01", EndDate: "2024-01-01"}, true},
		{"reversed", DateRange{StartDate: "2024-02-01", EndDate: "2024-01-01"}, true},
		{"bad format", DateRange{StartDate: "01/02/2024"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDateRange_Params(t *testing.T) {
	params := DateRange{EndDate: "2024-03-01"}.Params()
	if len(params) != 1 || params["end_date"] != "2024-03-01" {
		t.Errorf("Params() = %v", params)
	}
}

func TestTruncateAddress(t *testing.T) {
	if got := TruncateAddress("", 3); got != "-" {
		t.Errorf("empty = %q", got)
	}
	if got := TruncateAddress("abcdef", 3); got != "abcdef" {
		t.Errorf("short = %q", got)
	}
	if got := TruncateAddress("0x1234567890", 3); got != "0x1...890" {
		t.Errorf("long = %q", got)
	}
}
