package models

import (
	"time"

	"github.com/nft-inventory/internal/cardano"
	"github.com/nft-inventory/internal/types"
)

// AssetRecord is the platform's ownership record for one decoded asset.
// Records are created the first time any sync observes the unit and are never
// deleted; only OwnerID transitions afterwards.
type AssetRecord struct {
	CollectionName  string                `json:"collectionName"`
	LocalID         string                `json:"localId"`
	AssetUnit       types.AssetUnit       `json:"assetId"`
	AssetName       string                `json:"assetName"`
	PolicyID        types.PolicyID        `json:"policyId"`
	OwnerID         *string               `json:"ownerId"`
	PreviousOwnerID *string               `json:"previousOwnerId,omitempty"`
	Metadata        cardano.AssetMetadata `json:"metadata"`
	OwnedSince      time.Time             `json:"ownedSince"`
	TransferredAt   *time.Time            `json:"transferredAt,omitempty"`
	CreatedAt       time.Time             `json:"createdAt"`
	UpdatedAt       time.Time             `json:"updatedAt"`
}

// OwnedBy reports whether the record currently belongs to uid.
func (a *AssetRecord) OwnedBy(uid string) bool {
	return a.OwnerID != nil && *a.OwnerID == uid
}
