package service

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/nft-inventory/internal/resolver"
	"github.com/nft-inventory/internal/types"
)

// genAssetNames yields small sets of distinct on-chain asset names.
func genAssetNames() gopter.Gen {
	return gen.SliceOf(gen.Identifier().SuchThat(func(s string) bool {
		return len(s) < 20
	})).Map(func(names []string) []string {
		seen := make(map[string]bool)
		var out []string
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
		if len(out) > 8 {
			out = out[:8]
		}
		return out
	})
}

func unitsFor(names []string) []types.AssetUnit {
	units := make([]types.AssetUnit, 0, len(names))
	for _, n := range names {
		units = append(units, warriorUnit(n))
	}
	return units
}

func TestReconcilerProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("re-sync with unchanged ledger state is a no-op", prop.ForAll(
		func(names []string) bool {
			f := newSyncFixture()
			f.ledger.setHoldings(addrA, unitsFor(names)...)

			if _, err := f.sync.Sync(context.Background(), "userA", addrA, resolver.WarriorPolicyID); err != nil {
				return false
			}
			before := f.store.snapshot()
			if _, err := f.sync.Sync(context.Background(), "userA", addrA, resolver.WarriorPolicyID); err != nil {
				return false
			}
			return before == f.store.snapshot()
		},
		genAssetNames(),
	))

	properties.Property("no local id ever appears in two users' inventories", prop.ForAll(
		func(namesA, namesB []string) bool {
			f := newSyncFixture()
			ctx := context.Background()

			// Both wallets start claiming overlapping sets; the second sync
			// wins any contested asset.
			f.ledger.setHoldings(addrA, unitsFor(namesA)...)
			f.ledger.setHoldings(addrB, unitsFor(namesB)...)

			if _, err := f.sync.Sync(ctx, "userA", addrA, resolver.WarriorPolicyID); err != nil {
				return false
			}
			if _, err := f.sync.Sync(ctx, "userB", addrB, resolver.WarriorPolicyID); err != nil {
				return false
			}

			userA, err := f.store.GetUser(ctx, "userA")
			if err != nil {
				return false
			}
			userB, err := f.store.GetUser(ctx, "userB")
			if err != nil {
				return false
			}

			inA := make(map[string]bool)
			for _, id := range userA.AddressInventory.IDs(addrA, "cwNFTs") {
				inA[id] = true
			}
			for _, id := range userB.AddressInventory.IDs(addrB, "cwNFTs") {
				if inA[id] {
					return false
				}
			}
			return true
		},
		genAssetNames(),
		genAssetNames(),
	))

	properties.TestingRun(t)
}
