// Package service implements the application services: ownership
// reconciliation, cached inventory reads, the legacy claim flow and the
// profile CRUD around them.
package service

import (
	"context"
	"time"

	"github.com/nft-inventory/internal/cardano"
	"github.com/nft-inventory/internal/models"
	"github.com/nft-inventory/internal/types"
)

// LedgerClient is the external indexer contract the sync path consumes.
type LedgerClient interface {
	ListHeldUnits(ctx context.Context, address string) ([]types.HeldUnit, error)
	FetchMetadata(ctx context.Context, unit types.AssetUnit) (cardano.AssetMetadata, error)
}

// ProfileTx is the transactional view of the profile store. Reads taken
// through it are locked for the duration of the transaction; the store
// retries the whole function on serialization conflicts.
type ProfileTx interface {
	// GetAsset returns the locked asset record, or nil when absent.
	GetAsset(ctx context.Context, collectionName, localID string) (*models.AssetRecord, error)
	InsertAsset(ctx context.Context, rec *models.AssetRecord) error
	UpdateAssetOwner(ctx context.Context, collectionName, localID string, ownerID, previousOwnerID *string, metadata cardano.AssetMetadata, ownedSince time.Time) error
	// GetUser returns the locked user document, or nil when absent.
	GetUser(ctx context.Context, uid string) (*models.User, error)
	// SaveUserOwnership persists a user's inventory map and active list.
	SaveUserOwnership(ctx context.Context, uid string, inventory models.AddressInventory, activeSet []string) error
}

// ProfileStore is the off-chain document store contract. The Postgres
// implementation lives in internal/storage; tests use an in-memory fake.
type ProfileStore interface {
	// GetUser returns the user document or a NOT_FOUND error.
	GetUser(ctx context.Context, uid string) (*models.User, error)
	// EnsureUser returns the user document, creating an empty profile when
	// the account has never been seen.
	EnsureUser(ctx context.Context, uid string) (*models.User, error)
	// GetAsset returns the asset record, or nil when absent.
	GetAsset(ctx context.Context, collectionName, localID string) (*models.AssetRecord, error)
	// GetAssets resolves a list of local ids; missing records are skipped.
	GetAssets(ctx context.Context, collectionName string, localIDs []string) ([]*models.AssetRecord, error)

	// RunTransaction executes fn with transactional reads and writes. The
	// store retries internally on write conflicts and returns
	// TRANSACTION_CONFLICT when it cannot serialize.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx ProfileTx) error) error

	// Non-transactional writes used by the prune pass and profile CRUD.
	SaveUserOwnership(ctx context.Context, uid string, inventory models.AddressInventory, activeSet []string) error
	// ReleaseAsset clears ownership of an asset, but only while it is still
	// held by expectedOwner; a concurrent transfer wins.
	ReleaseAsset(ctx context.Context, collectionName, localID, expectedOwner string, at time.Time) error
	ReplaceClaimTimestamps(ctx context.Context, uid string, timestamps []time.Time) error
	UpdateSavedAddresses(ctx context.Context, uid string, addresses []models.SavedAddress) error
	UpdateCustomCollections(ctx context.Context, uid string, collections []models.CustomCollection) error
}

// TransferLog records ownership transitions for provenance queries. Appends
// are best-effort: a failed append is logged by the caller and never fails a
// sync.
type TransferLog interface {
	Append(ctx context.Context, event *models.OwnershipTransfer) error
	History(ctx context.Context, collectionName, localID string) ([]*models.OwnershipTransfer, error)
}

// InventoryCache caches grouped inventory responses between syncs.
type InventoryCache interface {
	GetGrouped(ctx context.Context, uid, address string) (*GroupedInventory, bool, error)
	SetGrouped(ctx context.Context, uid, address string, inv *GroupedInventory) error
	Invalidate(ctx context.Context, uid string) error
}
