package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nft-inventory/internal/apperr"
	"github.com/nft-inventory/internal/cardano"
	"github.com/nft-inventory/internal/logging"
	"github.com/nft-inventory/internal/models"
	"github.com/nft-inventory/internal/types"
)

// fakeStore is an in-memory ProfileStore. It hands out deep copies so
// mutations only land through explicit writes, like the real store.
type fakeStore struct {
	mu     sync.Mutex
	users  map[string]*models.User
	assets map[string]*models.AssetRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:  make(map[string]*models.User),
		assets: make(map[string]*models.AssetRecord),
	}
}

func assetKey(collectionName, localID string) string {
	return collectionName + "/" + localID
}

func copyUser(u *models.User) *models.User {
	data, _ := json.Marshal(u)
	var out models.User
	_ = json.Unmarshal(data, &out)
	if out.AddressInventory == nil {
		out.AddressInventory = make(models.AddressInventory)
	}
	return &out
}

func copyAsset(a *models.AssetRecord) *models.AssetRecord {
	data, _ := json.Marshal(a)
	var out models.AssetRecord
	_ = json.Unmarshal(data, &out)
	return &out
}

func (s *fakeStore) GetUser(_ context.Context, uid string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[uid]
	if !ok {
		return nil, apperr.NotFound("user", uid)
	}
	return copyUser(u), nil
}

func (s *fakeStore) EnsureUser(_ context.Context, uid string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[uid]
	if !ok {
		u = &models.User{ID: uid, AddressInventory: make(models.AddressInventory)}
		s.users[uid] = u
	}
	return copyUser(u), nil
}

func (s *fakeStore) GetAsset(_ context.Context, collectionName, localID string) (*models.AssetRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assets[assetKey(collectionName, localID)]
	if !ok {
		return nil, nil
	}
	return copyAsset(a), nil
}

func (s *fakeStore) GetAssets(_ context.Context, collectionName string, localIDs []string) ([]*models.AssetRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.AssetRecord
	for _, id := range localIDs {
		if a, ok := s.assets[assetKey(collectionName, id)]; ok {
			out = append(out, copyAsset(a))
		}
	}
	return out, nil
}

func (s *fakeStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx ProfileTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx, &fakeTx{store: s})
}

func (s *fakeStore) SaveUserOwnership(_ context.Context, uid string, inventory models.AddressInventory, activeSet []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveOwnershipLocked(uid, inventory, activeSet)
}

func (s *fakeStore) saveOwnershipLocked(uid string, inventory models.AddressInventory, activeSet []string) error {
	u, ok := s.users[uid]
	if !ok {
		u = &models.User{ID: uid}
		s.users[uid] = u
	}
	stored := copyUser(&models.User{AddressInventory: inventory, ActiveSet: activeSet})
	u.AddressInventory = stored.AddressInventory
	u.ActiveSet = stored.ActiveSet
	return nil
}

func (s *fakeStore) ReleaseAsset(_ context.Context, collectionName, localID, expectedOwner string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assets[assetKey(collectionName, localID)]
	if !ok || a.OwnerID == nil || *a.OwnerID != expectedOwner {
		return nil
	}
	prev := expectedOwner
	a.OwnerID = nil
	a.PreviousOwnerID = &prev
	t := at
	a.TransferredAt = &t
	return nil
}

func (s *fakeStore) ReplaceClaimTimestamps(_ context.Context, uid string, timestamps []time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[uid]
	if !ok {
		return apperr.NotFound("user", uid)
	}
	u.ClaimTimestamps = append([]time.Time(nil), timestamps...)
	return nil
}

func (s *fakeStore) UpdateSavedAddresses(_ context.Context, uid string, addresses []models.SavedAddress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[uid]
	if !ok {
		return apperr.NotFound("user", uid)
	}
	u.SavedAddresses = append([]models.SavedAddress(nil), addresses...)
	return nil
}

func (s *fakeStore) UpdateCustomCollections(_ context.Context, uid string, collections []models.CustomCollection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[uid]
	if !ok {
		return apperr.NotFound("user", uid)
	}
	u.CustomCollections = append([]models.CustomCollection(nil), collections...)
	return nil
}

// snapshot serializes the whole store state, used by idempotence checks.
func (s *fakeStore) snapshot() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, _ := json.Marshal(map[string]interface{}{
		"users":  s.users,
		"assets": s.assets,
	})
	return string(data)
}

// fakeTx runs against the already-locked store.
type fakeTx struct {
	store *fakeStore
}

func (t *fakeTx) GetAsset(_ context.Context, collectionName, localID string) (*models.AssetRecord, error) {
	a, ok := t.store.assets[assetKey(collectionName, localID)]
	if !ok {
		return nil, nil
	}
	return copyAsset(a), nil
}

func (t *fakeTx) InsertAsset(_ context.Context, rec *models.AssetRecord) error {
	key := assetKey(rec.CollectionName, rec.LocalID)
	if _, exists := t.store.assets[key]; exists {
		return fmt.Errorf("asset %s already exists", key)
	}
	t.store.assets[key] = copyAsset(rec)
	return nil
}

func (t *fakeTx) UpdateAssetOwner(_ context.Context, collectionName, localID string, ownerID, previousOwnerID *string, metadata cardano.AssetMetadata, ownedSince time.Time) error {
	a, ok := t.store.assets[assetKey(collectionName, localID)]
	if !ok {
		return apperr.NotFound("asset", localID)
	}
	a.OwnerID = ownerID
	a.PreviousOwnerID = previousOwnerID
	a.Metadata = metadata
	a.OwnedSince = ownedSince
	return nil
}

func (t *fakeTx) GetUser(_ context.Context, uid string) (*models.User, error) {
	u, ok := t.store.users[uid]
	if !ok {
		return nil, nil
	}
	return copyUser(u), nil
}

func (t *fakeTx) SaveUserOwnership(_ context.Context, uid string, inventory models.AddressInventory, activeSet []string) error {
	return t.store.saveOwnershipLocked(uid, inventory, activeSet)
}

// fakeLedger serves canned holdings and metadata.
type fakeLedger struct {
	mu       sync.Mutex
	holdings map[string][]types.HeldUnit
	metadata map[types.AssetUnit]cardano.AssetMetadata
	listErr  error
	metaErr  map[types.AssetUnit]error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		holdings: make(map[string][]types.HeldUnit),
		metadata: make(map[types.AssetUnit]cardano.AssetMetadata),
		metaErr:  make(map[types.AssetUnit]error),
	}
}

func (l *fakeLedger) setHoldings(address string, units ...types.AssetUnit) {
	l.mu.Lock()
	defer l.mu.Unlock()
	held := make([]types.HeldUnit, 0, len(units))
	for _, u := range units {
		held = append(held, types.HeldUnit{Unit: u, Quantity: "1"})
	}
	l.holdings[address] = held
}

func (l *fakeLedger) ListHeldUnits(_ context.Context, address string) ([]types.HeldUnit, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listErr != nil {
		return nil, l.listErr
	}
	return l.holdings[address], nil
}

func (l *fakeLedger) FetchMetadata(_ context.Context, unit types.AssetUnit) (cardano.AssetMetadata, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.metaErr[unit]; err != nil {
		return cardano.AssetMetadata{}, err
	}
	return l.metadata[unit], nil
}

// fakeTransferLog collects events in memory.
type fakeTransferLog struct {
	mu     sync.Mutex
	events []*models.OwnershipTransfer
	err    error
}

func (l *fakeTransferLog) Append(_ context.Context, event *models.OwnershipTransfer) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.events = append(l.events, event)
	return nil
}

func (l *fakeTransferLog) History(_ context.Context, collectionName, localID string) ([]*models.OwnershipTransfer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*models.OwnershipTransfer
	for _, e := range l.events {
		if e.CollectionName == collectionName && e.LocalID == localID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (l *fakeTransferLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// fakeCache is an in-memory InventoryCache.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]*GroupedInventory
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*GroupedInventory)}
}

func (c *fakeCache) key(uid, address string) string {
	if address == "" {
		address = "all"
	}
	return uid + ":" + address
}

func (c *fakeCache) GetGrouped(_ context.Context, uid, address string) (*GroupedInventory, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	inv, ok := c.entries[c.key(uid, address)]
	return inv, ok, nil
}

func (c *fakeCache) SetGrouped(_ context.Context, uid, address string, inv *GroupedInventory) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[c.key(uid, address)] = inv
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, uid string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if len(key) > len(uid) && key[:len(uid)+1] == uid+":" {
			delete(c.entries, key)
		}
	}
	return nil
}

func testLogger() *logging.Logger {
	return logging.New(logging.LevelError, logging.FormatText)
}
