package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vault-console/internal/models"
	"github.com/vault-console/internal/service"
	"github.com/vault-console/internal/types"
)

// handleActiveTokens handles GET /api/tokens/active - one page of a chain's active tokens
func (s *Server) handleActiveTokens(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lq, err := parseListQuery(q, s.config.PageSize)
	if err != nil {
		respondServiceError(w, r, err, "Invalid list query")
		return
	}

	page, err := s.services.Tokens.ActivePage(r.Context(), types.ChainID(q.Get("chain")), lq.State())
	if err != nil {
		respondServiceError(w, r, err, "Failed to fetch tokens")
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// handleSpamTokens handles GET /api/tokens/spam - one page of spam tokens
func (s *Server) handleSpamTokens(w http.ResponseWriter, r *http.Request) {
	lq, err := parseListQuery(r.URL.Query(), s.config.PageSize)
	if err != nil {
		respondServiceError(w, r, err, "Invalid list query")
		return
	}

	page, err := s.services.Tokens.SpamPage(r.Context(), lq.State())
	if err != nil {
		respondServiceError(w, r, err, "Failed to fetch spam tokens")
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// handleMechanismTokens handles GET /api/tokens/mechanism - one page of scored tokens.
// chain, order_by and order_by_date go to the vault; the rest filters locally.
func (s *Server) handleMechanismTokens(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lq, err := parseListQuery(q, s.config.PageSize)
	if err != nil {
		respondServiceError(w, r, err, "Invalid list query")
		return
	}

	mq := service.MechanismQuery{
		OrderBy:     types.SortOrder(q.Get("order_by")),
		OrderByDate: types.SortOrder(q.Get("order_by_date")),
	}
	if chain := q.Get("chain"); chain != "all" {
		mq.Chain = types.ChainID(chain)
	}

	st := lq.State()
	// the vault already narrowed by chain
	st.SetFilter(service.FilterChain, "")

	page, err := s.services.Tokens.MechanismPage(r.Context(), mq, st)
	if err != nil {
		respondServiceError(w, r, err, "Failed to fetch spam tokens")
		return
	}
	respondJSON(w, http.StatusOK, page)
}

type tokenRefRequest struct {
	TokenAddress string `json:"token_address" validate:"required"`
	Chain        string `json:"chain" validate:"required,chain"`
}

func (req tokenRefRequest) ref() models.TokenRef {
	return models.TokenRef{TokenAddress: req.TokenAddress, Chain: types.ChainID(req.Chain)}
}

// handleMoveToken handles PATCH /api/tokens/move - move a token between lists
func (s *Server) handleMoveToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRefRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if err := validateStruct(req); err != nil {
		respondServiceError(w, r, err, "Invalid request body")
		return
	}

	if err := s.services.Tokens.MoveToken(r.Context(), operator(r), req.ref()); err != nil {
		respondServiceError(w, r, err, "Failed to move token")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Token moved successfully"})
}

type saveSpamRequest struct {
	Tokens []tokenRefRequest `json:"tokens" validate:"dive"`
}

// handleSaveSpam handles POST /api/tokens/spam - mark the selected tokens as spam
func (s *Server) handleSaveSpam(w http.ResponseWriter, r *http.Request) {
	var req saveSpamRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if err := validateStruct(req); err != nil {
		respondServiceError(w, r, err, "Invalid request body")
		return
	}

	refs := make([]models.TokenRef, len(req.Tokens))
	for i, t := range req.Tokens {
		refs[i] = t.ref()
	}

	if err := s.services.Tokens.SaveAsSpam(r.Context(), operator(r), refs); err != nil {
		respondServiceError(w, r, err, "Failed to save tokens")
		return
	}

	msg := "Tokens moved to spam successfully"
	if len(refs) == 1 {
		msg = "Token moved to spam successfully"
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{"message": msg, "count": len(refs)})
}

// handleDeleteSpam handles DELETE /api/tokens/spam/{address}/{chain} - remove a token from the spam list
func (s *Server) handleDeleteSpam(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	req := tokenRefRequest{TokenAddress: vars["address"], Chain: vars["chain"]}
	if err := validateStruct(req); err != nil {
		respondServiceError(w, r, err, "Invalid token")
		return
	}

	if err := s.services.Tokens.DeleteSpam(r.Context(), operator(r), req.ref()); err != nil {
		respondServiceError(w, r, err, "Failed to remove token from spam list")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Token removed from spam list"})
}
