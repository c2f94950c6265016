package api

import (
	"net/http"

	"github.com/nft-inventory/internal/auth"
)

// handleGetInventory serves GET /api/nft/inventory: the grouped inventory
// for one address, or for all of the caller's addresses when none is given.
func (s *Server) handleGetInventory(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UID(r.Context())
	address := r.URL.Query().Get("address")

	inventory, err := s.inventory.GetInventory(r.Context(), uid, address)
	if err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, inventory)
}
