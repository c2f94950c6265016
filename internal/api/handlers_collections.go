package api

import (
	"net/http"

	"github.com/nft-inventory/internal/apperr"
	"github.com/nft-inventory/internal/auth"
	"github.com/nft-inventory/internal/models"
)

// collectionsRequest is the body of PUT /api/nft/collections.
type collectionsRequest struct {
	Collections []models.CustomCollection `json:"collections"`
}

// handleListCollections serves the caller's custom collection registry.
func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UID(r.Context())

	collections, err := s.inventory.ListCollections(r.Context(), uid)
	if err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"collections": collections,
	})
}

// handleReplaceCollections overwrites the caller's custom collection
// registry.
func (s *Server) handleReplaceCollections(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UID(r.Context())

	var req collectionsRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondAppError(w, apperr.InvalidParameter("body", "invalid JSON body"))
		return
	}

	if err := s.inventory.ReplaceCollections(r.Context(), uid, req.Collections); err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"collections": req.Collections,
	})
}
