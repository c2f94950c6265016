package service

import (
	"context"
	"testing"

	"github.com/nft-inventory/internal/apperr"
	"github.com/nft-inventory/internal/models"
	"github.com/nft-inventory/internal/resolver"
	"github.com/nft-inventory/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inventoryFixture struct {
	store     *fakeStore
	cache     *fakeCache
	transfers *fakeTransferLog
	sync      *SyncService
	ledger    *fakeLedger
	inventory *InventoryService
}

func newInventoryFixture() *inventoryFixture {
	store := newFakeStore()
	ledger := newFakeLedger()
	cache := newFakeCache()
	transfers := &fakeTransferLog{}
	logger := testLogger()
	reconciler := NewReconciler(store, transfers, logger, 30)
	return &inventoryFixture{
		store:     store,
		cache:     cache,
		transfers: transfers,
		ledger:    ledger,
		sync:      NewSyncService(ledger, store, cache, reconciler, logger, 4),
		inventory: NewInventoryService(store, cache, transfers, logger),
	}
}

func TestGetInventoryGroupsByRecordPolicy(t *testing.T) {
	f := newInventoryFixture()
	ctx := context.Background()

	f.ledger.setHoldings(addrA, warriorUnit("CardanoWarrior7"), warriorUnit("CardanoWarrior12"))
	_, err := f.sync.Sync(ctx, "userA", addrA, resolver.WarriorPolicyID)
	require.NoError(t, err)

	inv, err := f.inventory.GetInventory(ctx, "userA", "")
	require.NoError(t, err)

	assert.Equal(t, 2, inv.TotalNFTs)
	require.Len(t, inv.Collections, 1)
	assert.Equal(t, resolver.WarriorPolicyID, inv.Collections[0].PolicyID)
	assert.Equal(t, "CW", inv.Collections[0].CollectionName)
	assert.Len(t, inv.Collections[0].Assets, 2)
}

func TestGetInventoryFiltersByAddress(t *testing.T) {
	f := newInventoryFixture()
	ctx := context.Background()

	f.ledger.setHoldings(addrA, warriorUnit("CardanoWarrior7"))
	f.ledger.setHoldings(addrB, warriorUnit("CardanoWarrior12"))
	_, err := f.sync.Sync(ctx, "userA", addrA, resolver.WarriorPolicyID)
	require.NoError(t, err)
	_, err = f.sync.Sync(ctx, "userA", addrB, resolver.WarriorPolicyID)
	require.NoError(t, err)

	all, err := f.inventory.GetInventory(ctx, "userA", "")
	require.NoError(t, err)
	assert.Equal(t, 2, all.TotalNFTs)

	one, err := f.inventory.GetInventory(ctx, "userA", addrA)
	require.NoError(t, err)
	assert.Equal(t, 1, one.TotalNFTs)
	require.Len(t, one.Collections, 1)
	assert.Equal(t, "CW7", one.Collections[0].Assets[0].LocalID)
}

func TestGetInventoryEmptyForUnknownUser(t *testing.T) {
	f := newInventoryFixture()

	inv, err := f.inventory.GetInventory(context.Background(), "ghost", "")
	require.NoError(t, err)
	assert.Zero(t, inv.TotalNFTs)
	assert.Empty(t, inv.Collections)
}

func TestGetInventoryUsesCache(t *testing.T) {
	f := newInventoryFixture()
	ctx := context.Background()

	cached := &GroupedInventory{TotalNFTs: 42, Collections: []CollectionGroup{}}
	require.NoError(t, f.cache.SetGrouped(ctx, "userA", "", cached))

	inv, err := f.inventory.GetInventory(ctx, "userA", "")
	require.NoError(t, err)
	assert.Equal(t, 42, inv.TotalNFTs, "cached view must be served without a store read")
}

func TestDeleteAssetRemovesInventoryOnly(t *testing.T) {
	f := newInventoryFixture()
	ctx := context.Background()

	f.ledger.setHoldings(addrA, warriorUnit("CardanoWarrior7"))
	_, err := f.sync.Sync(ctx, "userA", addrA, resolver.WarriorPolicyID)
	require.NoError(t, err)

	require.NoError(t, f.inventory.DeleteAsset(ctx, "userA", "CW7", addrA))

	user, err := f.store.GetUser(ctx, "userA")
	require.NoError(t, err)
	assert.Empty(t, user.AddressInventory.IDs(addrA, "cwNFTs"))
	assert.False(t, user.InActiveSet("CW7"))

	// The record's owner pointer is deliberately untouched.
	rec, err := f.store.GetAsset(ctx, "CW", "CW7")
	require.NoError(t, err)
	require.NotNil(t, rec.OwnerID)
	assert.Equal(t, "userA", *rec.OwnerID)
}

func TestDeleteAssetByFullAssetUnit(t *testing.T) {
	f := newInventoryFixture()
	ctx := context.Background()

	f.ledger.setHoldings(addrA, warriorUnit("CardanoWarrior7"))
	_, err := f.sync.Sync(ctx, "userA", addrA, resolver.WarriorPolicyID)
	require.NoError(t, err)

	// Asset listings label the full compound unit "assetId"; feeding that
	// identifier back must delete the entry.
	require.NoError(t, f.inventory.DeleteAsset(ctx, "userA", string(warriorUnit("CardanoWarrior7")), addrA))

	user, err := f.store.GetUser(ctx, "userA")
	require.NoError(t, err)
	assert.Empty(t, user.AddressInventory.IDs(addrA, "cwNFTs"))
	assert.False(t, user.InActiveSet("CW7"))

	rec, err := f.store.GetAsset(ctx, "CW", "CW7")
	require.NoError(t, err)
	require.NotNil(t, rec.OwnerID)
	assert.Equal(t, "userA", *rec.OwnerID)
}

func TestDeleteAssetUnknownIDFails(t *testing.T) {
	f := newInventoryFixture()
	ctx := context.Background()

	f.ledger.setHoldings(addrA, warriorUnit("CardanoWarrior7"))
	_, err := f.sync.Sync(ctx, "userA", addrA, resolver.WarriorPolicyID)
	require.NoError(t, err)

	err = f.inventory.DeleteAsset(ctx, "userA", "CW99", addrA)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
}

func TestAddAddressNormalizesAndRejectsDuplicates(t *testing.T) {
	f := newInventoryFixture()
	ctx := context.Background()

	saved, err := f.inventory.AddAddress(ctx, "userA", addrA, "main wallet")
	require.NoError(t, err)
	assert.Equal(t, addrA, saved.Address)
	assert.Equal(t, "main wallet", saved.Label)
	assert.False(t, saved.AddedAt.IsZero())

	_, err = f.inventory.AddAddress(ctx, "userA", addrA, "again")
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidParameter))

	addresses, err := f.inventory.ListAddresses(ctx, "userA")
	require.NoError(t, err)
	assert.Len(t, addresses, 1)
}

func TestRemoveAddressUnknownFails(t *testing.T) {
	f := newInventoryFixture()
	ctx := context.Background()

	_, err := f.inventory.AddAddress(ctx, "userA", addrA, "")
	require.NoError(t, err)

	err = f.inventory.RemoveAddress(ctx, "userA", addrB)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))

	require.NoError(t, f.inventory.RemoveAddress(ctx, "userA", addrA))
	addresses, err := f.inventory.ListAddresses(ctx, "userA")
	require.NoError(t, err)
	assert.Empty(t, addresses)
}

func TestReplaceCollectionsValidates(t *testing.T) {
	f := newInventoryFixture()
	ctx := context.Background()

	err := f.inventory.ReplaceCollections(ctx, "userA", []models.CustomCollection{
		{PolicyID: "tooshort", Name: "X", Enabled: true},
	})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidParameter))

	valid := []models.CustomCollection{{
		PolicyID: types.PolicyID("702cbdb06a004ad8074b1c08cb32ec13c0d0fac63a3b53815b1dcb97"),
		Name:     "Collection_702cbdb0",
		Enabled:  true,
	}}
	require.NoError(t, f.inventory.ReplaceCollections(ctx, "userA", valid))

	collections, err := f.inventory.ListCollections(ctx, "userA")
	require.NoError(t, err)
	assert.Equal(t, valid, collections)
}

func TestProvenanceReturnsHistory(t *testing.T) {
	f := newInventoryFixture()
	ctx := context.Background()

	f.ledger.setHoldings(addrA, warriorUnit("CardanoWarrior7"))
	_, err := f.sync.Sync(ctx, "userA", addrA, resolver.WarriorPolicyID)
	require.NoError(t, err)

	// Transfer to another user, then read the asset's history.
	f.ledger.setHoldings(addrA)
	f.ledger.setHoldings(addrB, warriorUnit("CardanoWarrior7"))
	_, err = f.sync.Sync(ctx, "userB", addrB, resolver.WarriorPolicyID)
	require.NoError(t, err)

	events, err := f.inventory.Provenance(ctx, "CW", "CW7")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, types.EventClaimed, events[0].EventType)
	assert.Equal(t, types.EventTransferred, events[1].EventType)
	assert.Equal(t, "userA", events[1].FromOwner)
	assert.Equal(t, "userB", events[1].ToOwner)
}
