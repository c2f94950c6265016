package models

import (
	"time"

	"github.com/nft-inventory/internal/types"
)

// OwnershipTransfer is one append-only provenance row: a single transition of
// an asset record's owner, as observed by a sync.
type OwnershipTransfer struct {
	EventTime      time.Time            `json:"eventTime"`
	CollectionName string               `json:"collectionName"`
	LocalID        string               `json:"localId"`
	AssetUnit      types.AssetUnit      `json:"assetId"`
	PolicyID       types.PolicyID       `json:"policyId"`
	EventType      types.OwnershipEvent `json:"eventType"`
	FromOwner      string               `json:"fromOwner,omitempty"`
	ToOwner        string               `json:"toOwner,omitempty"`
	Address        string               `json:"address,omitempty"`
}
