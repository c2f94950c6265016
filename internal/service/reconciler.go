package service

import (
	"context"
	"time"

	"github.com/nft-inventory/internal/cardano"
	"github.com/nft-inventory/internal/logging"
	"github.com/nft-inventory/internal/models"
	"github.com/nft-inventory/internal/resolver"
	"github.com/nft-inventory/internal/types"
)

// ObservedAsset is one decoded holding from the ledger, ready for
// reconciliation.
type ObservedAsset struct {
	Unit      types.AssetUnit
	LocalID   string
	AssetName string
	Metadata  cardano.AssetMetadata
}

// Reconciler makes the profile store's ownership state match the ledger's
// observed holdings, one asset at a time. Each Observe runs as a single store
// transaction; the prune pass runs afterwards as plain writes, so a crash
// between the two phases leaves stale inventory entries that the next full
// sync removes again.
type Reconciler struct {
	store        ProfileStore
	transfers    TransferLog
	logger       *logging.Logger
	activeSetCap int
}

// NewReconciler creates a reconciler. activeSetCap bounds the user's active
// asset list.
func NewReconciler(store ProfileStore, transfers TransferLog, logger *logging.Logger, activeSetCap int) *Reconciler {
	return &Reconciler{
		store:        store,
		transfers:    transfers,
		logger:       logger,
		activeSetCap: activeSetCap,
	}
}

// Observe reconciles one observed asset for the acting user. The record and
// both affected user documents are read and written inside one store
// transaction:
//
//   - no record yet: create it owned by uid
//   - owned by another account: scrub that account's inventory and active
//     list, then move ownership to uid
//   - already owned by uid: no-op apart from an idempotent inventory append
//
// A TRANSACTION_CONFLICT from the store fails only this asset.
func (r *Reconciler) Observe(ctx context.Context, uid, address string, policyID types.PolicyID, collectionName string, asset ObservedAsset) error {
	field := resolver.FieldName(collectionName)
	var event *models.OwnershipTransfer

	err := r.store.RunTransaction(ctx, func(ctx context.Context, tx ProfileTx) error {
		event = nil
		now := time.Now().UTC()

		rec, err := tx.GetAsset(ctx, collectionName, asset.LocalID)
		if err != nil {
			return err
		}
		user, err := tx.GetUser(ctx, uid)
		if err != nil {
			return err
		}
		if user == nil {
			user = &models.User{ID: uid, AddressInventory: make(models.AddressInventory)}
		}

		switch {
		case rec == nil:
			owner := uid
			err = tx.InsertAsset(ctx, &models.AssetRecord{
				CollectionName: collectionName,
				LocalID:        asset.LocalID,
				AssetUnit:      asset.Unit,
				AssetName:      asset.AssetName,
				PolicyID:       policyID,
				OwnerID:        &owner,
				Metadata:       asset.Metadata,
				OwnedSince:     now,
			})
			if err != nil {
				return err
			}
			event = &models.OwnershipTransfer{
				EventTime:      now,
				CollectionName: collectionName,
				LocalID:        asset.LocalID,
				AssetUnit:      asset.Unit,
				PolicyID:       policyID,
				EventType:      types.EventClaimed,
				ToOwner:        uid,
				Address:        address,
			}

		case rec.OwnedBy(uid):
			// Already ours. Fall through to the idempotent inventory append.

		default:
			// Owned by another account, or released: take ownership. A previous
			// owner's inventory is scrubbed under every address they hold,
			// since the asset may have entered their profile through any of
			// them.
			var previousOwner *string
			if rec.OwnerID != nil {
				old := *rec.OwnerID
				previousOwner = &old

				oldUser, err := tx.GetUser(ctx, old)
				if err != nil {
					return err
				}
				if oldUser != nil {
					changed := oldUser.AddressInventory.RemoveEverywhere(field, asset.LocalID)
					if oldUser.InActiveSet(asset.LocalID) {
						oldUser.RemoveFromActiveSet(asset.LocalID)
						changed = true
					}
					if changed {
						if err := tx.SaveUserOwnership(ctx, old, oldUser.AddressInventory, oldUser.ActiveSet); err != nil {
							return err
						}
					}
				}
			} else {
				previousOwner = rec.PreviousOwnerID
			}

			owner := uid
			if err := tx.UpdateAssetOwner(ctx, collectionName, asset.LocalID, &owner, previousOwner, asset.Metadata, now); err != nil {
				return err
			}

			// A record released by pruning and picked up again counts as a
			// claim, not a transfer.
			eventType := types.EventClaimed
			if rec.OwnerID != nil {
				eventType = types.EventTransferred
			}
			event = &models.OwnershipTransfer{
				EventTime:      now,
				CollectionName: collectionName,
				LocalID:        asset.LocalID,
				AssetUnit:      asset.Unit,
				PolicyID:       policyID,
				EventType:      eventType,
				ToOwner:        uid,
				Address:        address,
			}
			if rec.OwnerID != nil {
				event.FromOwner = *rec.OwnerID
			}
		}

		changed := user.AddressInventory.Append(address, field, asset.LocalID)
		if !user.InActiveSet(asset.LocalID) && len(user.ActiveSet) < r.activeSetCap {
			user.ActiveSet = append(user.ActiveSet, asset.LocalID)
			changed = true
		}
		if changed {
			if err := tx.SaveUserOwnership(ctx, uid, user.AddressInventory, user.ActiveSet); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	if event != nil {
		r.appendEvent(ctx, event)
	}

	return nil
}

// Prune removes inventory ids the current batch no longer observed for one
// address+collection, and releases their asset records. Runs outside any
// transaction; ReleaseAsset is conditional on the current owner so a
// concurrent transfer to another account wins.
func (r *Reconciler) Prune(ctx context.Context, uid, address string, policyID types.PolicyID, collectionName string, observed map[string]bool) ([]string, error) {
	user, err := r.store.GetUser(ctx, uid)
	if err != nil {
		return nil, err
	}

	field := resolver.FieldName(collectionName)
	var stale []string
	for _, id := range user.AddressInventory.IDs(address, field) {
		if !observed[id] {
			stale = append(stale, id)
		}
	}
	if len(stale) == 0 {
		return nil, nil
	}

	for _, id := range stale {
		user.AddressInventory.Remove(address, field, id)
		user.RemoveFromActiveSet(id)
	}
	if err := r.store.SaveUserOwnership(ctx, uid, user.AddressInventory, user.ActiveSet); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for _, id := range stale {
		if err := r.store.ReleaseAsset(ctx, collectionName, id, uid, now); err != nil {
			r.logger.WithError(err).WithFields(map[string]interface{}{
				"collection": collectionName,
				"localId":    id,
			}).Warn("Failed to release pruned asset record")
			continue
		}
		r.appendEvent(ctx, &models.OwnershipTransfer{
			EventTime:      now,
			CollectionName: collectionName,
			LocalID:        id,
			PolicyID:       policyID,
			EventType:      types.EventReleased,
			FromOwner:      uid,
			Address:        address,
		})
	}

	return stale, nil
}

// appendEvent records an ownership transition in the transfer log.
// Best-effort: provenance must never fail a sync.
func (r *Reconciler) appendEvent(ctx context.Context, event *models.OwnershipTransfer) {
	if r.transfers == nil {
		return
	}
	if err := r.transfers.Append(ctx, event); err != nil {
		r.logger.WithError(err).WithFields(map[string]interface{}{
			"collection": event.CollectionName,
			"localId":    event.LocalID,
			"eventType":  string(event.EventType),
		}).Warn("Failed to append ownership event")
	}
}
