package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/nft-inventory/internal/apperr"
	"github.com/nft-inventory/internal/cardano"
	"github.com/nft-inventory/internal/logging"
	"github.com/nft-inventory/internal/models"
	"github.com/nft-inventory/internal/resolver"
	"github.com/nft-inventory/internal/types"
)

// AssetView is one asset as returned to callers.
type AssetView struct {
	LocalID        string                `json:"id"`
	AssetUnit      types.AssetUnit       `json:"assetId"`
	AssetName      string                `json:"name"`
	PolicyID       types.PolicyID        `json:"policyId"`
	CollectionName string                `json:"collectionName"`
	Metadata       cardano.AssetMetadata `json:"metadata"`
	OwnedSince     time.Time             `json:"ownedSince"`
}

// SyncResult is the response of a sync or cached asset listing for one
// policy id.
type SyncResult struct {
	Success        bool           `json:"success"`
	PolicyID       types.PolicyID `json:"policyId"`
	CollectionName string         `json:"collectionName"`
	TotalFound     int            `json:"totalFound"`
	TotalProcessed int            `json:"totalProcessed"`
	Assets         []AssetView    `json:"assets"`
	Source         types.Source   `json:"source"`
}

// SyncService reconciles one (address, policy id) pair against the ledger
// and serves cached listings when no sync is requested.
type SyncService struct {
	ledger      LedgerClient
	store       ProfileStore
	cache       InventoryCache
	reconciler  *Reconciler
	logger      *logging.Logger
	concurrency int
}

// NewSyncService creates a sync service. concurrency bounds the per-unit
// metadata fan-out.
func NewSyncService(ledger LedgerClient, store ProfileStore, cache InventoryCache, reconciler *Reconciler, logger *logging.Logger, concurrency int) *SyncService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &SyncService{
		ledger:      ledger,
		store:       store,
		cache:       cache,
		reconciler:  reconciler,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Sync queries the ledger for the address's holdings under policyID and
// reconciles the profile store against them. Per-asset failures are logged
// and skipped; the response reports found vs processed counts.
func (s *SyncService) Sync(ctx context.Context, uid, address string, policyID types.PolicyID) (*SyncResult, error) {
	canonical, err := cardano.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}

	user, err := s.store.EnsureUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	res := resolver.New(user.CustomCollections)
	collectionName := res.Resolve(policyID)

	log := s.logger.WithFields(map[string]interface{}{
		"uid":        uid,
		"address":    canonical,
		"policyId":   string(policyID),
		"collection": collectionName,
	})

	held, err := s.ledger.ListHeldUnits(ctx, canonical)
	if err != nil {
		return nil, err
	}
	matching := filterUnitsByPolicy(held, policyID)
	totalFound := len(matching)

	decoded := decodeUnits(matching, policyID, collectionName, log)
	assets := s.fetchMetadataBatch(ctx, decoded, log)

	observed := make(map[string]bool, len(assets))
	processed := 0
	views := make([]AssetView, 0, len(assets))
	for _, asset := range assets {
		if err := s.reconciler.Observe(ctx, uid, canonical, policyID, collectionName, asset); err != nil {
			if apperr.IsFatal(err) {
				return nil, err
			}
			log.WithError(err).WithField("localId", asset.LocalID).Warn("Skipping asset after reconcile failure")
			continue
		}
		observed[asset.LocalID] = true
		processed++
		views = append(views, AssetView{
			LocalID:        asset.LocalID,
			AssetUnit:      asset.Unit,
			AssetName:      asset.AssetName,
			PolicyID:       policyID,
			CollectionName: collectionName,
			Metadata:       asset.Metadata,
		})
	}

	if _, err := s.reconciler.Prune(ctx, uid, canonical, policyID, collectionName, observed); err != nil {
		log.WithError(err).Warn("Prune pass failed, stale entries remain until next sync")
	}

	s.markSynced(ctx, uid, canonical)
	s.invalidate(ctx, uid)

	log.WithFields(map[string]interface{}{
		"totalFound":     totalFound,
		"totalProcessed": processed,
	}).Info("Sync completed")

	return &SyncResult{
		Success:        true,
		PolicyID:       policyID,
		CollectionName: collectionName,
		TotalFound:     totalFound,
		TotalProcessed: processed,
		Assets:         views,
		Source:         types.SourceBlockchain,
	}, nil
}

// ReadCached serves the asset listing for one policy id straight from the
// profile store. Never contacts the ledger; an unknown user or empty
// inventory is an empty result, not an error.
func (s *SyncService) ReadCached(ctx context.Context, uid string, policyID types.PolicyID) (*SyncResult, error) {
	empty := &SyncResult{
		Success:        true,
		PolicyID:       policyID,
		CollectionName: resolver.New(nil).Resolve(policyID),
		Assets:         []AssetView{},
		Source:         types.SourceCache,
	}

	user, err := s.store.GetUser(ctx, uid)
	if err != nil {
		if apperr.IsCode(err, apperr.CodeNotFound) {
			return empty, nil
		}
		return nil, err
	}

	res := resolver.New(user.CustomCollections)
	collectionName := res.Resolve(policyID)
	empty.CollectionName = collectionName
	field := resolver.FieldName(collectionName)

	var localIDs []string
	seen := make(map[string]bool)
	for _, fields := range user.AddressInventory {
		for _, id := range fields[field] {
			if !seen[id] {
				seen[id] = true
				localIDs = append(localIDs, id)
			}
		}
	}
	if len(localIDs) == 0 {
		return empty, nil
	}

	records, err := s.store.GetAssets(ctx, collectionName, localIDs)
	if err != nil {
		return nil, err
	}

	views := make([]AssetView, 0, len(records))
	for _, rec := range records {
		// Grouping is by the record's own policy id, so a custom collection
		// whose name collides with another never leaks foreign assets.
		if rec.PolicyID != policyID {
			continue
		}
		views = append(views, assetViewFromRecord(rec))
	}

	return &SyncResult{
		Success:        true,
		PolicyID:       policyID,
		CollectionName: collectionName,
		TotalFound:     len(views),
		TotalProcessed: len(views),
		Assets:         views,
		Source:         types.SourceCache,
	}, nil
}

// markSynced stamps LastSyncedAt on the matching saved address, when the
// synced address is one the user tracks.
func (s *SyncService) markSynced(ctx context.Context, uid, canonical string) {
	user, err := s.store.GetUser(ctx, uid)
	if err != nil {
		return
	}

	now := time.Now().UTC()
	for i := range user.SavedAddresses {
		if user.SavedAddresses[i].Address == canonical {
			user.SavedAddresses[i].LastSyncedAt = &now
			if err := s.store.UpdateSavedAddresses(ctx, uid, user.SavedAddresses); err != nil {
				s.logger.WithError(err).Warn("Failed to stamp saved address sync time")
			}
			return
		}
	}
}

func (s *SyncService) invalidate(ctx context.Context, uid string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, uid); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate inventory cache")
	}
}

// fetchMetadataBatch resolves metadata for each decoded asset with a bounded
// fan-out. A unit whose metadata fetch fails is dropped from the batch.
func (s *SyncService) fetchMetadataBatch(ctx context.Context, assets []ObservedAsset, log *logging.Logger) []ObservedAsset {
	if len(assets) == 0 {
		return nil
	}

	type result struct {
		asset ObservedAsset
		ok    bool
	}

	results := make([]result, len(assets))
	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup

	for i, asset := range assets {
		wg.Add(1)
		go func(i int, asset ObservedAsset) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			metadata, err := s.ledger.FetchMetadata(ctx, asset.Unit)
			if err != nil {
				log.WithError(err).WithField("unit", string(asset.Unit)).Warn("Dropping unit after metadata fetch failure")
				return
			}
			asset.Metadata = metadata
			results[i] = result{asset: asset, ok: true}
		}(i, asset)
	}
	wg.Wait()

	kept := make([]ObservedAsset, 0, len(assets))
	for _, r := range results {
		if r.ok {
			kept = append(kept, r.asset)
		}
	}
	return kept
}

// filterUnitsByPolicy keeps the held units minted under policyID.
func filterUnitsByPolicy(held []types.HeldUnit, policyID types.PolicyID) []types.HeldUnit {
	var matching []types.HeldUnit
	for _, h := range held {
		if strings.HasPrefix(string(h.Unit), string(policyID)) {
			matching = append(matching, h)
		}
	}
	return matching
}

// decodeUnits decodes each unit's local id. Malformed units are logged and
// skipped.
func decodeUnits(units []types.HeldUnit, policyID types.PolicyID, collectionName string, log *logging.Logger) []ObservedAsset {
	decoded := make([]ObservedAsset, 0, len(units))
	for _, u := range units {
		localID, assetName, err := cardano.DecodeLocalID(u.Unit, policyID, collectionName)
		if err != nil {
			log.WithError(err).WithField("unit", string(u.Unit)).Warn("Skipping malformed asset unit")
			continue
		}
		decoded = append(decoded, ObservedAsset{
			Unit:      u.Unit,
			LocalID:   localID,
			AssetName: assetName,
		})
	}
	return decoded
}

func assetViewFromRecord(rec *models.AssetRecord) AssetView {
	return AssetView{
		LocalID:        rec.LocalID,
		AssetUnit:      rec.AssetUnit,
		AssetName:      rec.AssetName,
		PolicyID:       rec.PolicyID,
		CollectionName: rec.CollectionName,
		Metadata:       rec.Metadata,
		OwnedSince:     rec.OwnedSince,
	}
}
