package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vault-console/internal/models"
	"github.com/vault-console/internal/types"
)

// ModerationAuditRepository persists the moderation audit log
type ModerationAuditRepository struct {
	db *PostgresDB
}

// NewModerationAuditRepository creates a new moderation audit repository
func NewModerationAuditRepository(db *PostgresDB) *ModerationAuditRepository {
	return &ModerationAuditRepository{db: db}
}

// Record inserts one moderation action, assigning its id and timestamp
func (r *ModerationAuditRepository) Record(ctx context.Context, action *models.ModerationAction) error {
	if action.ID == "" {
		action.ID = uuid.NewString()
	}
	if action.CreatedAt.IsZero() {
		action.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO moderation_actions (
			id, kind, token_address, chain, actor, succeeded, error, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		action.ID,
		action.Kind,
		action.TokenAddress,
		action.Chain,
		action.Actor,
		action.Succeeded,
		action.Error,
		action.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record moderation action: %w", err)
	}
	return nil
}

// AuditFilter narrows a moderation history query
type AuditFilter struct {
	TokenAddress string
	Chain        types.ChainID
	Limit        int
}

// List returns the newest moderation actions matching filter
func (r *ModerationAuditRepository) List(ctx context.Context, filter AuditFilter) ([]models.ModerationAction, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT id, kind, token_address, chain, actor, succeeded, error, created_at
		FROM moderation_actions
		WHERE ($1 = '' OR token_address = $1)
		  AND ($2 = '' OR chain = $2)
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.db.Pool().Query(ctx, query, filter.TokenAddress, string(filter.Chain), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query moderation actions: %w", err)
	}

	actions, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.ModerationAction])
	if err != nil {
		return nil, fmt.Errorf("failed to scan moderation actions: %w", err)
	}
	return actions, nil
}
