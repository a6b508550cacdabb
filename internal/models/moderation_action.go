package models

import (
	"time"

	"github.com/vault-console/internal/types"
)

// ModerationKind names a token moderation operation
type ModerationKind string

const (
	// ModerationMove moves a token between the active and spam lists
	ModerationMove ModerationKind = "move"
	// ModerationSaveSpam marks tokens as spam
	ModerationSaveSpam ModerationKind = "save_spam"
	// ModerationDelete removes a token from the spam list
	ModerationDelete ModerationKind = "delete"
)

// ModerationAction is one audited moderation operation on a token
type ModerationAction struct {
	ID           string         `json:"id" db:"id"`
	Kind         ModerationKind `json:"kind" db:"kind"`
	TokenAddress string         `json:"tokenAddress" db:"token_address"`
	Chain        types.ChainID  `json:"chain" db:"chain"`
	Actor        string         `json:"actor" db:"actor"`
	Succeeded    bool           `json:"succeeded" db:"succeeded"`
	Error        *string        `json:"error,omitempty" db:"error"`
	CreatedAt    time.Time      `json:"createdAt" db:"created_at"`
}
