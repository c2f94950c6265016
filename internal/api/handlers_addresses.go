package api

import (
	"net/http"

	"github.com/nft-inventory/internal/apperr"
	"github.com/nft-inventory/internal/auth"
)

// addressRequest is the body of POST and DELETE /api/nft/addresses.
type addressRequest struct {
	Address string `json:"address"`
	Label   string `json:"label,omitempty"`
}

// handleListAddresses serves the caller's saved addresses.
func (s *Server) handleListAddresses(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UID(r.Context())

	addresses, err := s.inventory.ListAddresses(r.Context(), uid)
	if err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"addresses": addresses,
	})
}

// handleAddAddress saves one tracked address for the caller.
func (s *Server) handleAddAddress(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UID(r.Context())

	var req addressRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondAppError(w, apperr.InvalidParameter("body", "invalid JSON body"))
		return
	}
	if req.Address == "" {
		respondAppError(w, apperr.InvalidParameter("address", "address is required"))
		return
	}

	saved, err := s.inventory.AddAddress(r.Context(), uid, req.Address, req.Label)
	if err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, saved)
}

// handleRemoveAddress drops one tracked address.
func (s *Server) handleRemoveAddress(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UID(r.Context())

	var req addressRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondAppError(w, apperr.InvalidParameter("body", "invalid JSON body"))
		return
	}
	if req.Address == "" {
		respondAppError(w, apperr.InvalidParameter("address", "address is required"))
		return
	}

	if err := s.inventory.RemoveAddress(r.Context(), uid, req.Address); err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"address": req.Address,
	})
}
