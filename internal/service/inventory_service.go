package service

import (
	"context"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/nft-inventory/internal/apperr"
	"github.com/nft-inventory/internal/cardano"
	"github.com/nft-inventory/internal/logging"
	"github.com/nft-inventory/internal/models"
	"github.com/nft-inventory/internal/resolver"
	"github.com/nft-inventory/internal/types"
)

// CollectionGroup is one collection's slice of a grouped inventory.
type CollectionGroup struct {
	PolicyID       types.PolicyID `json:"policyId"`
	CollectionName string         `json:"collectionName"`
	Assets         []AssetView    `json:"assets"`
}

// GroupedInventory is the caller-facing inventory view: assets grouped by
// the owning record's policy id.
type GroupedInventory struct {
	Collections []CollectionGroup `json:"collections"`
	TotalNFTs   int               `json:"totalNFTs"`
}

// InventoryService serves cached inventory reads and the profile CRUD around
// them: saved addresses, custom collections, the inventory-only asset delete
// and provenance lookups.
type InventoryService struct {
	store     ProfileStore
	cache     InventoryCache
	transfers TransferLog
	logger    *logging.Logger
}

// NewInventoryService creates an inventory service.
func NewInventoryService(store ProfileStore, cache InventoryCache, transfers TransferLog, logger *logging.Logger) *InventoryService {
	return &InventoryService{
		store:     store,
		cache:     cache,
		transfers: transfers,
		logger:    logger,
	}
}

// GetInventory returns the grouped inventory for one of the caller's
// addresses, or for all of them when address is empty. Reads go through the
// Redis cache; a miss falls back to the profile store and repopulates it.
func (s *InventoryService) GetInventory(ctx context.Context, uid, address string) (*GroupedInventory, error) {
	canonical := ""
	if address != "" {
		var err error
		canonical, err = cardano.NormalizeAddress(address)
		if err != nil {
			return nil, err
		}
	}

	if s.cache != nil {
		if inv, hit, err := s.cache.GetGrouped(ctx, uid, canonical); err == nil && hit {
			return inv, nil
		}
	}

	user, err := s.store.GetUser(ctx, uid)
	if err != nil {
		if apperr.IsCode(err, apperr.CodeNotFound) {
			return &GroupedInventory{Collections: []CollectionGroup{}}, nil
		}
		return nil, err
	}

	inv, err := s.buildGrouped(ctx, user, canonical)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetGrouped(ctx, uid, canonical, inv); err != nil {
			s.logger.WithError(err).Warn("Failed to cache grouped inventory")
		}
	}

	return inv, nil
}

// buildGrouped resolves the user's inventory ids to asset records and groups
// them by the record's own policy id. An inventory field whose collection
// cannot be reverse-resolved still contributes via the capitalized field
// name.
func (s *InventoryService) buildGrouped(ctx context.Context, user *models.User, canonical string) (*GroupedInventory, error) {
	res := resolver.New(user.CustomCollections)

	// Collect local ids per collection name across the selected addresses.
	idsByCollection := make(map[string][]string)
	seen := make(map[string]map[string]bool)
	for addr, fields := range user.AddressInventory {
		if canonical != "" && addr != canonical {
			continue
		}
		for field, ids := range fields {
			if !resolver.IsInventoryField(field) {
				continue
			}
			_, collectionName, _ := res.ReverseResolve(field)
			if seen[collectionName] == nil {
				seen[collectionName] = make(map[string]bool)
			}
			for _, id := range ids {
				if !seen[collectionName][id] {
					seen[collectionName][id] = true
					idsByCollection[collectionName] = append(idsByCollection[collectionName], id)
				}
			}
		}
	}

	groups := make(map[types.PolicyID]*CollectionGroup)
	total := 0
	for collectionName, ids := range idsByCollection {
		records, err := s.store.GetAssets(ctx, collectionName, ids)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			group, ok := groups[rec.PolicyID]
			if !ok {
				group = &CollectionGroup{
					PolicyID:       rec.PolicyID,
					CollectionName: rec.CollectionName,
				}
				groups[rec.PolicyID] = group
			}
			group.Assets = append(group.Assets, assetViewFromRecord(rec))
			total++
		}
	}

	inv := &GroupedInventory{Collections: make([]CollectionGroup, 0, len(groups)), TotalNFTs: total}
	for _, group := range groups {
		inv.Collections = append(inv.Collections, *group)
	}
	sort.Slice(inv.Collections, func(i, j int) bool {
		return inv.Collections[i].CollectionName < inv.Collections[j].CollectionName
	})

	return inv, nil
}

// DeleteAsset removes the matching asset from the caller's inventory for the
// given address. assetID is matched against each referenced record's full
// asset unit, the same identifier asset listings return; a bare local id is
// accepted too. The asset record's owner pointer is left untouched; the entry
// reappears on the next forced sync while the wallet still holds the asset.
func (s *InventoryService) DeleteAsset(ctx context.Context, uid, assetID, address string) error {
	canonical, err := cardano.NormalizeAddress(address)
	if err != nil {
		return err
	}

	user, err := s.store.GetUser(ctx, uid)
	if err != nil {
		return err
	}
	res := resolver.New(user.CustomCollections)

	fields := make([]string, 0, len(user.AddressInventory[canonical]))
	for field := range user.AddressInventory[canonical] {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	matchedField, matchedID := "", ""
	for _, field := range fields {
		if !resolver.IsInventoryField(field) {
			continue
		}
		ids := user.AddressInventory.IDs(canonical, field)
		_, collectionName, _ := res.ReverseResolve(field)
		records, err := s.store.GetAssets(ctx, collectionName, ids)
		if err != nil {
			return err
		}
		recordByID := make(map[string]*models.AssetRecord, len(records))
		for _, rec := range records {
			recordByID[rec.LocalID] = rec
		}
		for _, id := range ids {
			rec := recordByID[id]
			if id == assetID || (rec != nil && string(rec.AssetUnit) == assetID) {
				matchedField, matchedID = field, id
				break
			}
		}
		if matchedField != "" {
			break
		}
	}
	if matchedField == "" {
		return apperr.NotFound("asset", assetID)
	}

	user.AddressInventory.Remove(canonical, matchedField, matchedID)
	user.RemoveFromActiveSet(matchedID)

	if err := s.store.SaveUserOwnership(ctx, uid, user.AddressInventory, user.ActiveSet); err != nil {
		return err
	}

	s.invalidate(ctx, uid)
	return nil
}

// ListAddresses returns the caller's saved addresses.
func (s *InventoryService) ListAddresses(ctx context.Context, uid string) ([]models.SavedAddress, error) {
	user, err := s.store.EnsureUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	if user.SavedAddresses == nil {
		return []models.SavedAddress{}, nil
	}
	return user.SavedAddresses, nil
}

// AddAddress saves a new tracked address for the caller. The address is
// normalized before persistence; adding an address already on the list is
// rejected.
func (s *InventoryService) AddAddress(ctx context.Context, uid, address, label string) (*models.SavedAddress, error) {
	canonical, err := cardano.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}

	user, err := s.store.EnsureUser(ctx, uid)
	if err != nil {
		return nil, err
	}

	for _, saved := range user.SavedAddresses {
		if saved.Address == canonical {
			return nil, apperr.InvalidParameter("address", "address is already saved")
		}
	}

	entry := models.SavedAddress{
		Address: canonical,
		Label:   strings.TrimSpace(label),
		AddedAt: time.Now().UTC(),
	}
	updated := append(user.SavedAddresses, entry)

	if err := s.store.UpdateSavedAddresses(ctx, uid, updated); err != nil {
		return nil, err
	}

	s.invalidate(ctx, uid)
	return &entry, nil
}

// RemoveAddress drops a tracked address. Removing an address that was never
// saved is a NOT_FOUND.
func (s *InventoryService) RemoveAddress(ctx context.Context, uid, address string) error {
	canonical, err := cardano.NormalizeAddress(address)
	if err != nil {
		return err
	}

	user, err := s.store.GetUser(ctx, uid)
	if err != nil {
		return err
	}

	kept := make([]models.SavedAddress, 0, len(user.SavedAddresses))
	found := false
	for _, saved := range user.SavedAddresses {
		if saved.Address == canonical {
			found = true
			continue
		}
		kept = append(kept, saved)
	}
	if !found {
		return apperr.NotFound("address", canonical)
	}

	if err := s.store.UpdateSavedAddresses(ctx, uid, kept); err != nil {
		return err
	}

	s.invalidate(ctx, uid)
	return nil
}

// ListCollections returns the caller's custom collection registry.
func (s *InventoryService) ListCollections(ctx context.Context, uid string) ([]models.CustomCollection, error) {
	user, err := s.store.EnsureUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	if user.CustomCollections == nil {
		return []models.CustomCollection{}, nil
	}
	return user.CustomCollections, nil
}

// ReplaceCollections overwrites the caller's custom collection registry.
// Every entry must carry a standard-length hex policy id and a name.
func (s *InventoryService) ReplaceCollections(ctx context.Context, uid string, collections []models.CustomCollection) error {
	for _, c := range collections {
		if len(c.PolicyID) != types.PolicyIDLength {
			return apperr.InvalidParameter("policyId", "policy id must be 56 hex characters")
		}
		if _, err := hex.DecodeString(string(c.PolicyID)); err != nil {
			return apperr.InvalidParameter("policyId", "policy id must be 56 hex characters")
		}
		if strings.TrimSpace(c.Name) == "" {
			return apperr.InvalidParameter("name", "collection name is required")
		}
	}

	if _, err := s.store.EnsureUser(ctx, uid); err != nil {
		return err
	}
	if err := s.store.UpdateCustomCollections(ctx, uid, collections); err != nil {
		return err
	}

	s.invalidate(ctx, uid)
	return nil
}

// Provenance returns the recorded ownership history of one asset.
func (s *InventoryService) Provenance(ctx context.Context, collectionName, localID string) ([]*models.OwnershipTransfer, error) {
	if s.transfers == nil {
		return []*models.OwnershipTransfer{}, nil
	}

	events, err := s.transfers.History(ctx, collectionName, localID)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []*models.OwnershipTransfer{}
	}
	return events, nil
}

func (s *InventoryService) invalidate(ctx context.Context, uid string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, uid); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate inventory cache")
	}
}
