package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gravitas-games/sekaiscout/internal/catalog"
	"github.com/gravitas-games/sekaiscout/internal/harvest"
	"github.com/gravitas-games/sekaiscout/internal/network"
	"github.com/gravitas-games/sekaiscout/pkg/models"
)

const defaultHistoryLimit = 20

type claimsKey struct{}

// claimsFrom returns the claims stored by authorized, nil when auth is off.
func claimsFrom(r *http.Request) *Claims {
	claims, _ := r.Context().Value(claimsKey{}).(*Claims)
	return claims
}

// authenticate checks the request token when auth is enabled. It writes the
// error response itself and returns ok=false on failure.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (*Claims, bool) {
	if s.tokens == nil {
		return nil, true
	}
	token := extractToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing authentication token")
		return nil, false
	}
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		s.logger.Warn("rejected token", "remote", r.RemoteAddr, "err", err)
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
		return nil, false
	}
	return claims, true
}

// authorized wraps an API handler with authentication and, for routes with
// an {id}, the token's account restriction.
func (s *Server) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := s.authenticate(w, r)
		if !ok {
			return
		}
		if id := r.PathValue("id"); id != "" && !claims.Allows(id) {
			writeError(w, http.StatusForbidden, network.ErrCodeForbidden, "token does not cover this account")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	}
}

// unrestricted wraps routes that expose data of every account, such as the
// log buffer. Tokens limited to some accounts get 403.
func (s *Server) unrestricted(next http.HandlerFunc) http.HandlerFunc {
	return s.authorized(func(w http.ResponseWriter, r *http.Request) {
		if !claimsFrom(r).Unrestricted() {
			writeError(w, http.StatusForbidden, network.ErrCodeForbidden, "token is limited to some accounts")
			return
		}
		next(w, r)
	})
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	accounts := []models.AccountSummary{}
	for _, a := range s.deps.Store.Accounts() {
		if claims.Allows(a.AccountID) {
			accounts = append(accounts, a)
		}
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.statusPayload(r.PathValue("id")))
}

func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	f := s.defaultFilter
	q := r.URL.Query()
	if raw := q.Get("type"); raw != "" {
		cat, ok := catalog.ParseCategory(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, network.ErrCodeInvalidFilter, fmt.Sprintf("unknown resource type %q", raw))
			return
		}
		f.category = cat
	}
	if raw := q.Get("id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, network.ErrCodeInvalidFilter, fmt.Sprintf("invalid resource id %q", raw))
			return
		}
		f.resourceID = id
	}
	writeJSON(w, http.StatusOK, s.resourcesPayload(r.PathValue("id"), f))
}

// idsResponse lists the resource ids present in an account's harvest map and
// those the catalog has no name for.
type idsResponse struct {
	AccountID string                     `json:"account_id"`
	IDs       map[catalog.Category][]int `json:"ids"`
	Missing   map[catalog.Category][]int `json:"missing"`
}

func (s *Server) handleIDs(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("id")
	hm, ok := s.deps.Store.HarvestMap(accountID)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "no harvest map recorded for account")
		return
	}
	ids := harvest.DistinctIDsIn(hm)
	writeJSON(w, http.StatusOK, idsResponse{
		AccountID: accountID,
		IDs:       ids,
		Missing:   s.deps.Catalog.Missing(ids),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeError(w, http.StatusServiceUnavailable, "journal_disabled", "capture journal is disabled")
		return
	}
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}
	entries, err := s.deps.History.Recent(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		s.logger.Error("failed to read capture history", "err", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to read history")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	cat, ok := catalog.ParseCategory(r.PathValue("category"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "unknown category")
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Catalog.All(cat))
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	lines := []string{}
	if s.deps.Logs != nil {
		lines = s.deps.Logs.Lines()
	}
	writeJSON(w, http.StatusOK, map[string][]string{"lines": lines})
}

func (s *Server) handleClearLogs(w http.ResponseWriter, r *http.Request) {
	if s.deps.Logs != nil {
		s.deps.Logs.Clear()
	}
	w.WriteHeader(http.StatusNoContent)
}

// statusPayload builds the status view of an account. An account without a
// capture yet is reported as waiting.
func (s *Server) statusPayload(accountID string) network.StatusPayload {
	status, ok := s.deps.Store.Status(accountID)
	if !ok {
		return network.StatusPayload{AccountID: accountID, Waiting: true, Matches: []network.MatchView{}}
	}
	updated := status.UpdatedAt
	return network.StatusPayload{
		AccountID:  accountID,
		UpdatedAt:  &updated,
		MatchCount: len(status.Matches),
		Matches:    matchViews(status.Matches),
	}
}

func matchViews(matches []models.DiamondPlace) []network.MatchView {
	out := make([]network.MatchView, 0, len(matches))
	for _, m := range matches {
		out = append(out, network.MatchView{
			SiteID:       m.SiteID,
			PlaceName:    catalog.PlaceName(m.SiteID),
			ResourceName: catalog.ResourceName(m.Drop.ResourceID),
			PositionX:    m.Drop.PositionX,
			PositionZ:    m.Drop.PositionZ,
			Quantity:     m.Drop.Quantity,
			Drop:         m.Drop,
		})
	}
	return out
}

// resourcesPayload extracts f over the account's stored harvest map.
func (s *Server) resourcesPayload(accountID string, f filter) network.ResourcesPayload {
	out := network.ResourcesPayload{
		AccountID:    accountID,
		ResourceType: f.category.String(),
		ResourceID:   f.resourceID,
		ResourceName: s.deps.Catalog.Resolve(f.category, f.resourceID),
		Places:       []models.ResourcePlace{},
	}
	hm, ok := s.deps.Store.HarvestMap(accountID)
	if !ok {
		out.Waiting = true
		return out
	}
	for _, a := range s.deps.Store.Accounts() {
		if a.AccountID == accountID {
			updated := a.HarvestUpdatedAt
			out.UpdatedAt = &updated
			break
		}
	}
	out.Places = s.extractor.ExtractSites(hm, f.category, f.resourceID)
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, network.ErrorPayload{Code: code, Message: message})
}
