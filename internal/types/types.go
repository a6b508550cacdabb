// Package types provides common type definitions for the vault console.
package types

import (
	"fmt"
	"strings"
	"time"
)

// ChainID represents a chain known to the vault service
type ChainID string

const (
	// ChainSolana represents Solana mainnet
	ChainSolana ChainID = "solana-mainnet"
	// ChainBase represents Base mainnet
	ChainBase ChainID = "base-mainnet"
	// ChainWorldChain represents World Chain mainnet
	ChainWorldChain ChainID = "worldchain-mainnet"
	// ChainSui represents Sui mainnet
	ChainSui ChainID = "sui-mainnet"
)

// SupportedChains lists the chains offered in chain filters, in display order
var SupportedChains = []ChainID{ChainSolana, ChainBase, ChainWorldChain, ChainSui}

// IsValid reports whether the chain is one of SupportedChains
func (c ChainID) IsValid() bool {
	for _, s := range SupportedChains {
		if c == s {
			return true
		}
	}
	return false
}

// IsEVM reports whether token addresses on this chain are 20-byte hex addresses
func (c ChainID) IsEVM() bool {
	return c == ChainBase || c == ChainWorldChain
}

// ShortName returns the compact label used in holding tables
func (c ChainID) ShortName() string {
	switch c {
	case ChainBase:
		return "Base"
	case ChainSolana:
		return "Solana"
	case ChainWorldChain:
		return "WLD"
	default:
		return string(c)
	}
}

// Title returns the chain without the "-mainnet" suffix, title-cased word by word.
// "worldchain-mainnet" becomes "Worldchain".
func (c ChainID) Title() string {
	s := strings.Replace(string(c), "-mainnet", "", 1)
	words := strings.Split(s, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// ExportType selects the layout of a holding CSV export
type ExportType string

const (
	// ExportByTokens groups holdings by token
	ExportByTokens ExportType = "tokens"
	// ExportByEmails groups holdings by user email and address
	ExportByEmails ExportType = "emails"
)

// IsValid reports whether the export type is known
func (e ExportType) IsValid() bool {
	return e == ExportByTokens || e == ExportByEmails
}

// JobStatus is the status reported by the vault for an export job
type JobStatus string

const (
	// JobPending means the file is still being generated
	JobPending JobStatus = "pending"
	// JobComplete means the file is ready at the job's file URL
	JobComplete JobStatus = "complete"
)

// DateLayout is the wire format of date-range parameters
const DateLayout = "2006-01-02"

// DateRange is an optional inclusive date range. Empty fields mean unbounded.
type DateRange struct {
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

// IsZero reports whether neither bound is set
func (r DateRange) IsZero() bool {
	return r.StartDate == "" && r.EndDate == ""
}

// Validate checks date formats and that the end date is strictly after the start date
func (r DateRange) Validate() error {
	var start, end time.Time
	var err error
	if r.StartDate != "" {
		if start, err = time.Parse(DateLayout, r.StartDate); err != nil {
			return fmt.Errorf("invalid start_date %q: expected YYYY-MM-DD", r.StartDate)
		}
	}
	if r.EndDate != "" {
		if end, err = time.Parse(DateLayout, r.EndDate); err != nil {
			return fmt.Errorf("invalid end_date %q: expected YYYY-MM-DD", r.EndDate)
		}
	}
	if r.StartDate != "" && r.EndDate != "" && !end.After(start) {
		return fmt.Errorf("end_date must be after start_date")
	}
	return nil
}

// Params returns the non-empty bounds as query parameters
func (r DateRange) Params() map[string]string {
	params := make(map[string]string, 2)
	if r.StartDate != "" {
		params["start_date"] = r.StartDate
	}
	if r.EndDate != "" {
		params["end_date"] = r.EndDate
	}
	return params
}

// SortOrder is a server-side ordering hint
type SortOrder string

const (
	// SortAsc orders ascending
	SortAsc SortOrder = "asc"
	// SortDesc orders descending
	SortDesc SortOrder = "desc"
)

// IsValid reports whether the order is empty or one of asc/desc
func (o SortOrder) IsValid() bool {
	return o == "" || o == SortAsc || o == SortDesc
}

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	return e.Message
}

// TruncateAddress shortens an address to its first and last n characters
func TruncateAddress(address string, n int) string {
	if address == "" {
		return "-"
	}
	if len(address) <= 2*n {
		return address
	}
	return address[:n] + "..." + address[len(address)-n:]
}
