// Package types provides common type definitions shared across the NFT
// inventory system.
package types

// PolicyID identifies an on-chain collection (minting policy).
type PolicyID string

// AssetUnit is the compound ledger identifier of one asset: the policy id
// followed by the hex-encoded asset name.
type AssetUnit string

// PolicyID returns the policy id prefix of the unit, assuming the unit was
// minted under a policy id of the standard 56-hex-char length.
func (u AssetUnit) PolicyID() PolicyID {
	if len(u) < PolicyIDLength {
		return PolicyID(u)
	}
	return PolicyID(u[:PolicyIDLength])
}

// PolicyIDLength is the length in hex characters of a Cardano policy id
// (28 bytes).
const PolicyIDLength = 56

// Source indicates where an asset listing was served from.
type Source string

const (
	// SourceCache means the result was served from the profile store without
	// contacting the ledger.
	SourceCache Source = "cache"
	// SourceBlockchain means the result was freshly reconciled against the
	// ledger indexer.
	SourceBlockchain Source = "blockchain"
)

// OwnershipEvent categorizes a transition of an asset record's owner.
type OwnershipEvent string

const (
	// EventClaimed is the first time any sync observes the asset.
	EventClaimed OwnershipEvent = "claimed"
	// EventTransferred is an owner-to-owner transition.
	EventTransferred OwnershipEvent = "transferred"
	// EventReleased is the prune transition back to unowned.
	EventReleased OwnershipEvent = "released"
)

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// HeldUnit is one entry of an address's holdings as reported by the ledger
// indexer.
type HeldUnit struct {
	Unit     AssetUnit `json:"unit"`
	Quantity string    `json:"quantity"`
}
