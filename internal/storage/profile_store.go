package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nft-inventory/internal/apperr"
	"github.com/nft-inventory/internal/cardano"
	"github.com/nft-inventory/internal/logging"
	"github.com/nft-inventory/internal/models"
	"github.com/nft-inventory/internal/service"
)

// txMaxAttempts bounds the internal retry loop of RunTransaction.
const txMaxAttempts = 3

// ProfileStore is the Postgres-backed document store for user profiles and
// asset ownership records. It implements service.ProfileStore.
type ProfileStore struct {
	db     *PostgresDB
	logger *logging.Logger
}

// NewProfileStore creates a profile store over the given connection pool.
func NewProfileStore(db *PostgresDB, logger *logging.Logger) *ProfileStore {
	return &ProfileStore{db: db, logger: logger}
}

const userColumns = `id, address_inventory, active_set, saved_addresses, custom_collections, claim_timestamps, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user            models.User
		inventoryJSON   []byte
		activeJSON      []byte
		addressesJSON   []byte
		collectionsJSON []byte
		claimsJSON      []byte
	)

	err := row.Scan(
		&user.ID,
		&inventoryJSON,
		&activeJSON,
		&addressesJSON,
		&collectionsJSON,
		&claimsJSON,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(inventoryJSON, &user.AddressInventory); err != nil {
		return nil, fmt.Errorf("failed to unmarshal address inventory: %w", err)
	}
	if err := json.Unmarshal(activeJSON, &user.ActiveSet); err != nil {
		return nil, fmt.Errorf("failed to unmarshal active set: %w", err)
	}
	if err := json.Unmarshal(addressesJSON, &user.SavedAddresses); err != nil {
		return nil, fmt.Errorf("failed to unmarshal saved addresses: %w", err)
	}
	if err := json.Unmarshal(collectionsJSON, &user.CustomCollections); err != nil {
		return nil, fmt.Errorf("failed to unmarshal custom collections: %w", err)
	}
	if err := json.Unmarshal(claimsJSON, &user.ClaimTimestamps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal claim timestamps: %w", err)
	}

	if user.AddressInventory == nil {
		user.AddressInventory = make(models.AddressInventory)
	}

	return &user, nil
}

// GetUser retrieves a user document by id.
func (s *ProfileStore) GetUser(ctx context.Context, uid string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(s.db.Pool().QueryRow(ctx, query, uid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("user", uid)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// EnsureUser returns the user document, creating an empty profile for
// accounts that have never synced before.
func (s *ProfileStore) EnsureUser(ctx context.Context, uid string) (*models.User, error) {
	query := `
		INSERT INTO users (id) VALUES ($1)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := s.db.Pool().Exec(ctx, query, uid); err != nil {
		return nil, fmt.Errorf("failed to ensure user: %w", err)
	}

	return s.GetUser(ctx, uid)
}

const assetColumns = `collection_name, local_id, asset_unit, asset_name, policy_id, owner_id, previous_owner_id, metadata, owned_since, transferred_at, created_at, updated_at`

func scanAsset(row rowScanner) (*models.AssetRecord, error) {
	var (
		rec          models.AssetRecord
		metadataJSON []byte
		ownedSince   *time.Time
	)

	err := row.Scan(
		&rec.CollectionName,
		&rec.LocalID,
		&rec.AssetUnit,
		&rec.AssetName,
		&rec.PolicyID,
		&rec.OwnerID,
		&rec.PreviousOwnerID,
		&metadataJSON,
		&ownedSince,
		&rec.TransferredAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(metadataJSON, &rec.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal asset metadata: %w", err)
	}
	if ownedSince != nil {
		rec.OwnedSince = *ownedSince
	}

	return &rec, nil
}

// GetAsset retrieves one asset record, or nil when the platform has never
// observed the asset.
func (s *ProfileStore) GetAsset(ctx context.Context, collectionName, localID string) (*models.AssetRecord, error) {
	query := `SELECT ` + assetColumns + ` FROM asset_records WHERE collection_name = $1 AND local_id = $2`

	rec, err := scanAsset(s.db.Pool().QueryRow(ctx, query, collectionName, localID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get asset record: %w", err)
	}

	return rec, nil
}

// GetAssets resolves a list of local ids within one collection. Local ids
// without a record are skipped, mirroring the cache read path's tolerance of
// dangling inventory entries.
func (s *ProfileStore) GetAssets(ctx context.Context, collectionName string, localIDs []string) ([]*models.AssetRecord, error) {
	if len(localIDs) == 0 {
		return nil, nil
	}

	query := `SELECT ` + assetColumns + ` FROM asset_records WHERE collection_name = $1 AND local_id = ANY($2)`

	rows, err := s.db.Pool().Query(ctx, query, collectionName, localIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list asset records: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*models.AssetRecord, len(localIDs))
	for rows.Next() {
		rec, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset record: %w", err)
		}
		byID[rec.LocalID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating asset records: %w", err)
	}

	// Preserve inventory order.
	records := make([]*models.AssetRecord, 0, len(byID))
	for _, id := range localIDs {
		if rec, ok := byID[id]; ok {
			records = append(records, rec)
		}
	}

	return records, nil
}

// RunTransaction executes fn inside a database transaction with locked
// reads, retrying on serialization failures and deadlocks before surfacing
// TRANSACTION_CONFLICT.
func (s *ProfileStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx service.ProfileTx) error) error {
	var lastErr error

	for attempt := 1; attempt <= txMaxAttempts; attempt++ {
		err := s.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !isRetryableTxError(err) {
			return err
		}

		lastErr = err
		s.logger.WithFields(map[string]interface{}{
			"attempt": attempt,
			"error":   err.Error(),
		}).Warn("Profile store transaction conflict, retrying")

		select {
		case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return apperr.TransactionConflict(lastErr)
}

func (s *ProfileStore) runOnce(ctx context.Context, fn func(ctx context.Context, tx service.ProfileTx) error) error {
	tx, err := s.db.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	ptx := &profileTx{tx: tx}
	if err := fn(ctx, ptx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// isRetryableTxError reports whether the error is a Postgres serialization
// failure (40001) or deadlock (40P01).
func isRetryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// profileTx implements service.ProfileTx over one pgx transaction. All reads
// take row locks so the read-modify-write of a single asset serializes
// against concurrent syncs touching the same rows.
type profileTx struct {
	tx pgx.Tx
}

func (t *profileTx) GetAsset(ctx context.Context, collectionName, localID string) (*models.AssetRecord, error) {
	query := `SELECT ` + assetColumns + ` FROM asset_records WHERE collection_name = $1 AND local_id = $2 FOR UPDATE`

	rec, err := scanAsset(t.tx.QueryRow(ctx, query, collectionName, localID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get asset record for update: %w", err)
	}

	return rec, nil
}

func (t *profileTx) InsertAsset(ctx context.Context, rec *models.AssetRecord) error {
	metadataJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal asset metadata: %w", err)
	}

	query := `
		INSERT INTO asset_records
			(collection_name, local_id, asset_unit, asset_name, policy_id, owner_id, previous_owner_id, metadata, owned_since)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = t.tx.Exec(ctx, query,
		rec.CollectionName,
		rec.LocalID,
		rec.AssetUnit,
		rec.AssetName,
		rec.PolicyID,
		rec.OwnerID,
		rec.PreviousOwnerID,
		metadataJSON,
		rec.OwnedSince,
	)
	if err != nil {
		return fmt.Errorf("failed to insert asset record: %w", err)
	}

	return nil
}

func (t *profileTx) UpdateAssetOwner(ctx context.Context, collectionName, localID string, ownerID, previousOwnerID *string, metadata cardano.AssetMetadata, ownedSince time.Time) error {
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal asset metadata: %w", err)
	}

	query := `
		UPDATE asset_records
		SET owner_id = $3, previous_owner_id = $4, metadata = $5, owned_since = $6, updated_at = now()
		WHERE collection_name = $1 AND local_id = $2
	`

	result, err := t.tx.Exec(ctx, query, collectionName, localID, ownerID, previousOwnerID, metadataJSON, ownedSince)
	if err != nil {
		return fmt.Errorf("failed to update asset owner: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("asset", fmt.Sprintf("%s/%s", collectionName, localID))
	}

	return nil
}

func (t *profileTx) GetUser(ctx context.Context, uid string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`

	user, err := scanUser(t.tx.QueryRow(ctx, query, uid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user for update: %w", err)
	}

	return user, nil
}

func (t *profileTx) SaveUserOwnership(ctx context.Context, uid string, inventory models.AddressInventory, activeSet []string) error {
	return saveUserOwnership(ctx, t.tx, uid, inventory, activeSet)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func saveUserOwnership(ctx context.Context, db execer, uid string, inventory models.AddressInventory, activeSet []string) error {
	inventoryJSON, err := json.Marshal(inventory)
	if err != nil {
		return fmt.Errorf("failed to marshal address inventory: %w", err)
	}
	if activeSet == nil {
		activeSet = []string{}
	}
	activeJSON, err := json.Marshal(activeSet)
	if err != nil {
		return fmt.Errorf("failed to marshal active set: %w", err)
	}

	query := `
		UPDATE users
		SET address_inventory = $2, active_set = $3, updated_at = now()
		WHERE id = $1
	`

	result, err := db.Exec(ctx, query, uid, inventoryJSON, activeJSON)
	if err != nil {
		return fmt.Errorf("failed to save user ownership: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("user", uid)
	}

	return nil
}

// SaveUserOwnership persists a user's inventory outside a transaction. Used
// by the prune pass and the inventory-only asset delete.
func (s *ProfileStore) SaveUserOwnership(ctx context.Context, uid string, inventory models.AddressInventory, activeSet []string) error {
	return saveUserOwnership(ctx, s.db.Pool(), uid, inventory, activeSet)
}

// ReleaseAsset clears an asset record's owner, recording the previous owner
// and the transfer time. The expectedOwner guard makes the prune pass a
// no-op when a concurrent sync already moved the asset to another account.
func (s *ProfileStore) ReleaseAsset(ctx context.Context, collectionName, localID, expectedOwner string, at time.Time) error {
	query := `
		UPDATE asset_records
		SET owner_id = NULL, previous_owner_id = $3, transferred_at = $4, updated_at = now()
		WHERE collection_name = $1 AND local_id = $2 AND owner_id = $3
	`

	if _, err := s.db.Pool().Exec(ctx, query, collectionName, localID, expectedOwner, at); err != nil {
		return fmt.Errorf("failed to release asset: %w", err)
	}

	return nil
}

// ReplaceClaimTimestamps overwrites the user's stored claim window. The whole
// list is replaced so expired entries are pruned as a side effect.
func (s *ProfileStore) ReplaceClaimTimestamps(ctx context.Context, uid string, timestamps []time.Time) error {
	if timestamps == nil {
		timestamps = []time.Time{}
	}
	claimsJSON, err := json.Marshal(timestamps)
	if err != nil {
		return fmt.Errorf("failed to marshal claim timestamps: %w", err)
	}

	query := `UPDATE users SET claim_timestamps = $2, updated_at = now() WHERE id = $1`

	result, err := s.db.Pool().Exec(ctx, query, uid, claimsJSON)
	if err != nil {
		return fmt.Errorf("failed to replace claim timestamps: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("user", uid)
	}

	return nil
}

// UpdateSavedAddresses overwrites the user's tracked address list.
func (s *ProfileStore) UpdateSavedAddresses(ctx context.Context, uid string, addresses []models.SavedAddress) error {
	if addresses == nil {
		addresses = []models.SavedAddress{}
	}
	addressesJSON, err := json.Marshal(addresses)
	if err != nil {
		return fmt.Errorf("failed to marshal saved addresses: %w", err)
	}

	query := `UPDATE users SET saved_addresses = $2, updated_at = now() WHERE id = $1`

	result, err := s.db.Pool().Exec(ctx, query, uid, addressesJSON)
	if err != nil {
		return fmt.Errorf("failed to update saved addresses: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("user", uid)
	}

	return nil
}

// UpdateCustomCollections overwrites the user's custom collection registry.
func (s *ProfileStore) UpdateCustomCollections(ctx context.Context, uid string, collections []models.CustomCollection) error {
	if collections == nil {
		collections = []models.CustomCollection{}
	}
	collectionsJSON, err := json.Marshal(collections)
	if err != nil {
		return fmt.Errorf("failed to marshal custom collections: %w", err)
	}

	query := `UPDATE users SET custom_collections = $2, updated_at = now() WHERE id = $1`

	result, err := s.db.Pool().Exec(ctx, query, uid, collectionsJSON)
	if err != nil {
		return fmt.Errorf("failed to update custom collections: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("user", uid)
	}

	return nil
}
