package service

import (
	"context"
	"time"

	"github.com/nft-inventory/internal/apperr"
	"github.com/nft-inventory/internal/cardano"
	"github.com/nft-inventory/internal/logging"
	"github.com/nft-inventory/internal/resolver"
	"github.com/nft-inventory/internal/types"
)

// ClaimUnitResult reports the outcome for one unit of a bulk claim.
type ClaimUnitResult struct {
	Unit    types.AssetUnit `json:"unit"`
	LocalID string          `json:"localId,omitempty"`
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
}

// ClaimResult is the response of the legacy bulk claim endpoint.
type ClaimResult struct {
	Success bool              `json:"success"`
	Address string            `json:"address"`
	Claimed int               `json:"claimed"`
	Results []ClaimUnitResult `json:"results"`
}

// ClaimService implements the legacy bulk claim: every CW asset held by the
// address is reconciled into the caller's inventory in one request, guarded
// by a persisted sliding-window rate limit.
type ClaimService struct {
	ledger     LedgerClient
	store      ProfileStore
	cache      InventoryCache
	reconciler *Reconciler
	sync       *SyncService
	logger     *logging.Logger

	maxPerWindow int
	window       time.Duration
}

// NewClaimService creates a claim service. maxPerWindow claims are allowed
// per rolling window per user.
func NewClaimService(ledger LedgerClient, store ProfileStore, cache InventoryCache, reconciler *Reconciler, sync *SyncService, logger *logging.Logger, maxPerWindow int, window time.Duration) *ClaimService {
	return &ClaimService{
		ledger:       ledger,
		store:        store,
		cache:        cache,
		reconciler:   reconciler,
		sync:         sync,
		logger:       logger,
		maxPerWindow: maxPerWindow,
		window:       window,
	}
}

// Claim reconciles every CW asset the address holds into the caller's
// inventory. The caller's claim timestamps are filtered to the trailing
// window first; at the limit the whole request fails with RATE_LIMITED, and
// a successful claim replaces the stored list with the filtered set plus now.
func (s *ClaimService) Claim(ctx context.Context, uid, address string) (*ClaimResult, error) {
	canonical, err := cardano.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetUser(ctx, uid)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	recent := make([]time.Time, 0, len(user.ClaimTimestamps))
	var oldest time.Time
	for _, ts := range user.ClaimTimestamps {
		if now.Sub(ts) < s.window {
			recent = append(recent, ts)
			if oldest.IsZero() || ts.Before(oldest) {
				oldest = ts
			}
		}
	}
	if len(recent) >= s.maxPerWindow {
		retryAfter := int(s.window.Seconds())
		if !oldest.IsZero() {
			retryAfter = int(time.Until(oldest.Add(s.window)).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
		}
		return nil, apperr.RateLimited(retryAfter)
	}

	policyID := resolver.WarriorPolicyID
	res := resolver.New(user.CustomCollections)
	collectionName := res.Resolve(policyID)

	log := s.logger.WithFields(map[string]interface{}{
		"uid":     uid,
		"address": canonical,
	})

	held, err := s.ledger.ListHeldUnits(ctx, canonical)
	if err != nil {
		return nil, err
	}
	matching := filterUnitsByPolicy(held, policyID)
	if len(matching) == 0 {
		return &ClaimResult{
			Success: true,
			Address: canonical,
			Results: []ClaimUnitResult{},
		}, nil
	}

	decoded := decodeUnits(matching, policyID, collectionName, log)
	assets := s.sync.fetchMetadataBatch(ctx, decoded, log)
	fetched := make(map[types.AssetUnit]ObservedAsset, len(assets))
	for _, a := range assets {
		fetched[a.Unit] = a
	}

	results := make([]ClaimUnitResult, 0, len(matching))
	claimed := 0
	for _, h := range matching {
		asset, ok := fetched[h.Unit]
		if !ok {
			results = append(results, ClaimUnitResult{
				Unit:    h.Unit,
				Success: false,
				Error:   "unit could not be decoded or its metadata fetch failed",
			})
			continue
		}

		if err := s.reconciler.Observe(ctx, uid, canonical, policyID, collectionName, asset); err != nil {
			if apperr.IsFatal(err) {
				return nil, err
			}
			log.WithError(err).WithField("localId", asset.LocalID).Warn("Claim skipped one asset")
			results = append(results, ClaimUnitResult{
				Unit:    h.Unit,
				LocalID: asset.LocalID,
				Success: false,
				Error:   apperr.Categorize(err).Code,
			})
			continue
		}

		claimed++
		results = append(results, ClaimUnitResult{
			Unit:    h.Unit,
			LocalID: asset.LocalID,
			Success: true,
		})
	}

	// The claim counts against the window only when the address actually held
	// claimable assets.
	if err := s.store.ReplaceClaimTimestamps(ctx, uid, append(recent, now)); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, uid); err != nil {
			log.WithError(err).Warn("Failed to invalidate inventory cache")
		}
	}

	log.WithFields(map[string]interface{}{
		"claimed": claimed,
		"total":   len(matching),
	}).Info("Bulk claim completed")

	return &ClaimResult{
		Success: true,
		Address: canonical,
		Claimed: claimed,
		Results: results,
	}, nil
}
