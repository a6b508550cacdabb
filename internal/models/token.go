// Package models provides data models for the vault console.
package models

import (
	"time"

	"github.com/vault-console/internal/types"
)

// ActiveToken is a row of the vault's active (non-spam) token list
type ActiveToken struct {
	TokenAddress string        `json:"token_address"`
	Chain        types.ChainID `json:"chain"`
	Symbol       string        `json:"symbol"`
	Name         *string       `json:"name"`
	USDPrice     string        `json:"usd_price"`
}

// DisplayName returns the name, falling back to the symbol and then "N/A"
func (t *ActiveToken) DisplayName() string {
	return displayName(t.Name, t.Symbol)
}

// SpamToken is a row of the vault's spam token list
type SpamToken struct {
	TokenAddress string        `json:"token_address"`
	Chain        types.ChainID `json:"chain"`
	Symbol       string        `json:"symbol"`
	Name         *string       `json:"name"`
	USDPrice     string        `json:"usd_price"`
	IsAutomated  *bool         `json:"is_automated"`
	CreatedAt    string        `json:"created_at"`
}

// DisplayName returns the name, falling back to the symbol and then "N/A"
func (t *SpamToken) DisplayName() string {
	return displayName(t.Name, t.Symbol)
}

// AutomatedLabel renders the tri-state automated flag
func (t *SpamToken) AutomatedLabel() string {
	switch {
	case t.IsAutomated == nil:
		return "N/A"
	case *t.IsAutomated:
		return "True"
	default:
		return "False"
	}
}

// MechanismToken is a token scored by the vault's spam mechanism
type MechanismToken struct {
	ID           int64         `json:"id"`
	TokenAddress string        `json:"token_address"`
	Name         *string       `json:"name"`
	Chain        types.ChainID `json:"chain"`
	Score        string        `json:"score"`
	Data         string        `json:"data"`
	MovedBy      *string       `json:"moved_by"`
	CreatedAt    string        `json:"created_at"`
	UpdatedAt    string        `json:"updated_at"`
}

// DisplayName returns the name or "N/A"
func (t *MechanismToken) DisplayName() string {
	return displayName(t.Name, "")
}

// Created parses CreatedAt; unparsable timestamps yield the zero time
func (t *MechanismToken) Created() time.Time {
	ts, err := time.Parse(time.RFC3339, t.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// TokenRef identifies a token on a chain in moderation requests
type TokenRef struct {
	TokenAddress string        `json:"token_address" validate:"required"`
	Chain        types.ChainID `json:"chain" validate:"required"`
}

// SaveTokensRequest is the body of a bulk save-as-spam request
type SaveTokensRequest struct {
	Tokens []TokenRef `json:"tokens" validate:"required,min=1,dive"`
}

func displayName(name *string, fallback string) string {
	if name != nil && *name != "" {
		return *name
	}
	if fallback != "" {
		return fallback
	}
	return "N/A"
}
