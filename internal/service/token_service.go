package service

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	apperrors "github.com/vault-console/internal/errors"
	"github.com/vault-console/internal/listing"
	"github.com/vault-console/internal/logging"
	"github.com/vault-console/internal/models"
	"github.com/vault-console/internal/storage"
	"github.com/vault-console/internal/types"
)

// Vault endpoints of the token moderation workflow
const (
	activeListPath = "spam-tokens/unique-list"
	spamListPath   = "spam-tokens/unique-spam-list"
	mechanismPath  = "spam-tokens/mechanism"
	movePath       = "spam-tokens/move"
	spamPath       = "spam-tokens"
)

// Filter keys understood by the token list pipelines
const (
	FilterChain     = "chain"
	FilterAutomated = "automated"
	FilterScore     = "score"
)

// cache group of every token list; mutations invalidate the whole group
const tokensCacheGroup = "tokens"

// ErrNoTokensSelected is returned when a bulk save has nothing to save
var ErrNoTokensSelected = apperrors.NewValidationError("tokens", "Please select at least one token")

// VaultAPI is the subset of the vault client the services use
type VaultAPI interface {
	Get(ctx context.Context, path string, query url.Values, out interface{}) error
	Post(ctx context.Context, path string, body, out interface{}) error
	Patch(ctx context.Context, path string, body, out interface{}) error
	Delete(ctx context.Context, path string, out interface{}) error
}

// AuditRecorder persists moderation actions
type AuditRecorder interface {
	Record(ctx context.Context, action *models.ModerationAction) error
}

// MechanismQuery holds the server-side parameters of the mechanism list
type MechanismQuery struct {
	Chain       types.ChainID
	OrderBy     types.SortOrder
	OrderByDate types.SortOrder
}

// Values encodes the query, leaving out empty parameters
func (q MechanismQuery) Values() url.Values {
	v := url.Values{}
	if q.Chain != "" {
		v.Set("chain", string(q.Chain))
	}
	if q.OrderBy != "" {
		v.Set("order_by", string(q.OrderBy))
	}
	if q.OrderByDate != "" {
		v.Set("order_by_date", string(q.OrderByDate))
	}
	return v
}

// TokenService lists and moderates tokens through the vault
type TokenService struct {
	vault VaultAPI
	lists *storage.ListCache
	audit AuditRecorder
}

// NewTokenService creates a new token service. lists and audit may be nil.
func NewTokenService(vault VaultAPI, lists *storage.ListCache, audit AuditRecorder) *TokenService {
	return &TokenService{vault: vault, lists: lists, audit: audit}
}

// ListActive fetches the active token list of one chain
func (s *TokenService) ListActive(ctx context.Context, chain types.ChainID) ([]models.ActiveToken, error) {
	if !chain.IsValid() {
		return nil, apperrors.NewInvalidParameterError("chain", "a supported chain is required")
	}

	key := s.lists.Key(tokensCacheGroup, "active", string(chain))
	return storage.Cached(ctx, s.lists, key, func(ctx context.Context) ([]models.ActiveToken, error) {
		var tokens []models.ActiveToken
		if err := s.vault.Get(ctx, activeListPath, url.Values{"chain": {string(chain)}}, &tokens); err != nil {
			return nil, err
		}
		return nonNil(tokens), nil
	})
}

// ListSpam fetches the spam token list of every chain
func (s *TokenService) ListSpam(ctx context.Context) ([]models.SpamToken, error) {
	key := s.lists.Key(tokensCacheGroup, "spam")
	return storage.Cached(ctx, s.lists, key, func(ctx context.Context) ([]models.SpamToken, error) {
		var tokens []models.SpamToken
		if err := s.vault.Get(ctx, spamListPath, nil, &tokens); err != nil {
			return nil, err
		}
		return nonNil(tokens), nil
	})
}

// ListMechanism fetches the tokens scored by the spam mechanism
func (s *TokenService) ListMechanism(ctx context.Context, q MechanismQuery) ([]models.MechanismToken, error) {
	if q.Chain != "" && !q.Chain.IsValid() {
		return nil, apperrors.NewInvalidParameterError("chain", "unsupported chain")
	}
	if !q.OrderBy.IsValid() {
		return nil, apperrors.NewInvalidParameterError("order_by", "must be asc or desc")
	}
	if !q.OrderByDate.IsValid() {
		return nil, apperrors.NewInvalidParameterError("order_by_date", "must be asc or desc")
	}

	key := s.lists.Key(tokensCacheGroup, "mechanism", string(q.Chain), string(q.OrderBy), string(q.OrderByDate))
	return storage.Cached(ctx, s.lists, key, func(ctx context.Context) ([]models.MechanismToken, error) {
		var tokens []models.MechanismToken
		if err := s.vault.Get(ctx, mechanismPath, q.Values(), &tokens); err != nil {
			return nil, err
		}
		return nonNil(tokens), nil
	})
}

// MoveToken moves a token between the active and spam lists
func (s *TokenService) MoveToken(ctx context.Context, actor string, ref models.TokenRef) error {
	if err := ValidateTokenRef(ref); err != nil {
		return err
	}
	err := s.vault.Patch(ctx, movePath, ref, nil)
	s.afterMutation(ctx, models.ModerationMove, actor, []models.TokenRef{ref}, err)
	return err
}

// SaveAsSpam marks every selected token as spam in one request
func (s *TokenService) SaveAsSpam(ctx context.Context, actor string, refs []models.TokenRef) error {
	if len(refs) == 0 {
		return ErrNoTokensSelected
	}
	for _, ref := range refs {
		if err := ValidateTokenRef(ref); err != nil {
			return err
		}
	}
	err := s.vault.Post(ctx, spamPath, models.SaveTokensRequest{Tokens: refs}, nil)
	s.afterMutation(ctx, models.ModerationSaveSpam, actor, refs, err)
	return err
}

// DeleteSpam removes a token from the spam list
func (s *TokenService) DeleteSpam(ctx context.Context, actor string, ref models.TokenRef) error {
	if err := ValidateTokenRef(ref); err != nil {
		return err
	}
	path := spamPath + "/" + url.PathEscape(ref.TokenAddress) + "/" + url.PathEscape(string(ref.Chain))
	err := s.vault.Delete(ctx, path, nil)
	s.afterMutation(ctx, models.ModerationDelete, actor, []models.TokenRef{ref}, err)
	return err
}

// afterMutation audits the attempt and drops cached lists after a success
func (s *TokenService) afterMutation(ctx context.Context, kind models.ModerationKind, actor string, refs []models.TokenRef, opErr error) {
	logger := logging.FromContext(ctx).Component("tokens").WithFields(map[string]interface{}{
		"action": kind,
		"tokens": len(refs),
	})

	if opErr != nil {
		logger.WithError(opErr).Warn("Token moderation failed")
	} else {
		logger.Info("Token moderation applied")
		if err := s.lists.Invalidate(ctx, tokensCacheGroup); err != nil {
			logger.WithError(err).Warn("Failed to invalidate token lists")
		}
	}

	if s.audit == nil {
		return
	}
	var errMsg *string
	if opErr != nil {
		msg := apperrors.DisplayMessage(opErr, "moderation failed")
		errMsg = &msg
	}
	for _, ref := range refs {
		action := &models.ModerationAction{
			Kind:         kind,
			TokenAddress: ref.TokenAddress,
			Chain:        ref.Chain,
			Actor:        actor,
			Succeeded:    opErr == nil,
			Error:        errMsg,
			CreatedAt:    time.Now().UTC(),
		}
		if err := s.audit.Record(ctx, action); err != nil {
			logger.WithError(err).WithField("token", ref.TokenAddress).Warn("Failed to record moderation audit entry")
		}
	}
}

// ValidateTokenRef checks that a token reference names a supported chain and,
// on EVM chains, a well-formed hex address
func ValidateTokenRef(ref models.TokenRef) error {
	if strings.TrimSpace(ref.TokenAddress) == "" {
		return apperrors.NewValidationError("token_address", "token address is required")
	}
	if !ref.Chain.IsValid() {
		return apperrors.NewValidationError("chain", "unsupported chain "+strconv.Quote(string(ref.Chain)))
	}
	if ref.Chain.IsEVM() && !common.IsHexAddress(ref.TokenAddress) {
		return apperrors.NewValidationError("token_address", "invalid EVM address "+ref.TokenAddress)
	}
	return nil
}

// ActivePipeline searches active tokens by name, symbol, address and chain
func ActivePipeline() *listing.Pipeline[models.ActiveToken] {
	return &listing.Pipeline[models.ActiveToken]{
		SearchFields: func(t models.ActiveToken) []string {
			return []string{deref(t.Name), t.Symbol, t.TokenAddress, string(t.Chain)}
		},
		Sorters: map[string]listing.Compare[models.ActiveToken]{
			"address":   listing.ByText(func(t models.ActiveToken) string { return t.TokenAddress }),
			"name":      listing.ByText(func(t models.ActiveToken) string { return nameOrSymbol(t.Name, t.Symbol) }),
			"chain":     listing.ByText(func(t models.ActiveToken) string { return string(t.Chain) }),
			"usd_price": listing.ByNumber(func(t models.ActiveToken) string { return t.USDPrice }),
		},
	}
}

// SpamPipeline filters spam tokens by chain and automation and searches them
// like active tokens
func SpamPipeline() *listing.Pipeline[models.SpamToken] {
	return &listing.Pipeline[models.SpamToken]{
		SearchFields: func(t models.SpamToken) []string {
			return []string{deref(t.Name), t.Symbol, t.TokenAddress, string(t.Chain)}
		},
		Filters: []listing.NamedFilter[models.SpamToken]{
			listing.EqualsFilter(FilterChain, func(t models.SpamToken) string { return string(t.Chain) }),
			listing.EqualsFilter(FilterAutomated, automatedValue),
		},
		Sorters: map[string]listing.Compare[models.SpamToken]{
			"address":    listing.ByText(func(t models.SpamToken) string { return t.TokenAddress }),
			"name":       listing.ByText(func(t models.SpamToken) string { return nameOrSymbol(t.Name, t.Symbol) }),
			"chain":      listing.ByText(func(t models.SpamToken) string { return string(t.Chain) }),
			"usd_price":  listing.ByNumber(func(t models.SpamToken) string { return t.USDPrice }),
			"automated":  listing.ByText(automatedValue),
			"created_at": listing.ByText(func(t models.SpamToken) string { return t.CreatedAt }),
		},
	}
}

// MechanismPipeline filters scored tokens by score bucket and searches name,
// address and chain
func MechanismPipeline() *listing.Pipeline[models.MechanismToken] {
	return &listing.Pipeline[models.MechanismToken]{
		SearchFields: func(t models.MechanismToken) []string {
			return []string{deref(t.Name), t.TokenAddress, string(t.Chain)}
		},
		Filters: []listing.NamedFilter[models.MechanismToken]{
			listing.ScoreFilter(FilterScore, func(t models.MechanismToken) float64 { return listing.ParseNumber(t.Score) }),
		},
		Sorters: map[string]listing.Compare[models.MechanismToken]{
			"id": func(a, b models.MechanismToken) int {
				switch {
				case a.ID < b.ID:
					return -1
				case a.ID > b.ID:
					return 1
				}
				return 0
			},
			"address": listing.ByText(func(t models.MechanismToken) string { return t.TokenAddress }),
			"name":    listing.ByText(func(t models.MechanismToken) string { return deref(t.Name) }),
			"chain":   listing.ByText(func(t models.MechanismToken) string { return string(t.Chain) }),
			"score":   listing.ByNumber(func(t models.MechanismToken) string { return t.Score }),
			"created_at": func(a, b models.MechanismToken) int {
				return a.Created().Compare(b.Created())
			},
		},
	}
}

// ActivePage fetches the active list of chain and renders one page of it
func (s *TokenService) ActivePage(ctx context.Context, chain types.ChainID, st *listing.State) (listing.Page[models.ActiveToken], error) {
	tokens, err := s.ListActive(ctx, chain)
	if err != nil {
		return listing.Page[models.ActiveToken]{}, err
	}
	return ActivePipeline().Apply(tokens, st), nil
}

// SpamPage fetches the spam list and renders one page of it
func (s *TokenService) SpamPage(ctx context.Context, st *listing.State) (listing.Page[models.SpamToken], error) {
	tokens, err := s.ListSpam(ctx)
	if err != nil {
		return listing.Page[models.SpamToken]{}, err
	}
	return SpamPipeline().Apply(tokens, st), nil
}

// MechanismPage fetches the mechanism list and renders one page of it
func (s *TokenService) MechanismPage(ctx context.Context, q MechanismQuery, st *listing.State) (listing.Page[models.MechanismToken], error) {
	tokens, err := s.ListMechanism(ctx, q)
	if err != nil {
		return listing.Page[models.MechanismToken]{}, err
	}
	return MechanismPipeline().Apply(tokens, st), nil
}

func automatedValue(t models.SpamToken) string {
	if t.IsAutomated == nil {
		return ""
	}
	return strconv.FormatBool(*t.IsAutomated)
}

func nameOrSymbol(name *string, symbol string) string {
	if n := deref(name); n != "" {
		return n
	}
	return symbol
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nonNil[T any](records []T) []T {
	if records == nil {
		return []T{}
	}
	return records
}
