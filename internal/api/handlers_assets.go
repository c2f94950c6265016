package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/nft-inventory/internal/apperr"
	"github.com/nft-inventory/internal/auth"
	"github.com/nft-inventory/internal/types"
)

// handleListAssets serves GET /api/nft/assets. With sync=true and an address
// it reconciles against the ledger; otherwise it serves the cached view.
func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UID(r.Context())

	policyID := r.URL.Query().Get("policyId")
	if policyID == "" {
		respondAppError(w, apperr.InvalidParameter("policyId", "policyId is required"))
		return
	}
	address := r.URL.Query().Get("address")
	forceSync := r.URL.Query().Get("sync") == "true"

	if forceSync && address != "" {
		result, err := s.sync.Sync(r.Context(), uid, address, types.PolicyID(policyID))
		if err != nil {
			respondAppError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, result)
		return
	}

	result, err := s.sync.ReadCached(r.Context(), uid, types.PolicyID(policyID))
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// deleteAssetRequest is the body of DELETE /api/nft/assets.
type deleteAssetRequest struct {
	AssetID string `json:"assetId"`
	Address string `json:"address"`
}

// handleDeleteAsset removes one asset from the caller's inventory for one
// address, identified by its full asset unit or its local id. The asset
// record itself is untouched.
func (s *Server) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UID(r.Context())

	var req deleteAssetRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondAppError(w, apperr.InvalidParameter("body", "invalid JSON body"))
		return
	}
	if req.AssetID == "" {
		respondAppError(w, apperr.InvalidParameter("assetId", "assetId is required"))
		return
	}
	if req.Address == "" {
		respondAppError(w, apperr.InvalidParameter("address", "address is required"))
		return
	}

	if err := s.inventory.DeleteAsset(r.Context(), uid, req.AssetID, req.Address); err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"assetId": req.AssetID,
	})
}

// handleProvenance serves the recorded ownership history of one asset.
func (s *Server) handleProvenance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collection := vars["collection"]
	localID := vars["localId"]

	events, err := s.inventory.Provenance(r.Context(), collection, localID)
	if err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"collectionName": collection,
		"localId":        localID,
		"events":         events,
	})
}
