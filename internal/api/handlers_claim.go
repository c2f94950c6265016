package api

import (
	"net/http"

	"github.com/nft-inventory/internal/apperr"
	"github.com/nft-inventory/internal/auth"
)

// claimRequest is the body of POST /api/nft/claim.
type claimRequest struct {
	Address string `json:"address"`
}

// handleClaim runs the legacy bulk claim for one address.
func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UID(r.Context())

	var req claimRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondAppError(w, apperr.InvalidParameter("body", "invalid JSON body"))
		return
	}
	if req.Address == "" {
		respondAppError(w, apperr.InvalidParameter("address", "address is required"))
		return
	}

	result, err := s.claim.Claim(r.Context(), uid, req.Address)
	if err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
