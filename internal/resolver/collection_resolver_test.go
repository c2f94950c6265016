package resolver

import (
	"testing"

	"github.com/nft-inventory/internal/models"
	"github.com/nft-inventory/internal/types"
	"github.com/stretchr/testify/assert"
)

const customPolicy = types.PolicyID("702cbdb06a004ad8074b1c08cb32ec13c0d0fac63a3b53815b1dcb97")

func TestResolveBuiltins(t *testing.T) {
	r := New(nil)

	assert.Equal(t, "CW", r.Resolve("8f80ebfaf62a8c33ae2adf047572604c74db8bc1daba2b43f9a65635"))
	assert.Equal(t, "CWI", r.Resolve("b7761c472eef3b6e0505441efaf940892bb59c01be96070b0a0a89b3"))
	assert.Equal(t, "CWA", r.Resolve("b9c188390e53e10833f17650ccf1b2704b2f67dccfae7352be3c9533"))
}

func TestResolveFallbackSynthesizesName(t *testing.T) {
	r := New(nil)

	assert.Equal(t, "Collection_702cbdb0", r.Resolve(customPolicy))
}

func TestResolveCustomCollections(t *testing.T) {
	r := New([]models.CustomCollection{
		{PolicyID: customPolicy, Name: "SpaceCats", Enabled: true},
	})

	assert.Equal(t, "SpaceCats", r.Resolve(customPolicy))
}

func TestResolveIgnoresDisabledCustomEntries(t *testing.T) {
	r := New([]models.CustomCollection{
		{PolicyID: customPolicy, Name: "SpaceCats", Enabled: false},
	})

	assert.Equal(t, "Collection_702cbdb0", r.Resolve(customPolicy))
}

func TestResolveCustomNeverOverridesBuiltin(t *testing.T) {
	r := New([]models.CustomCollection{
		{PolicyID: WarriorPolicyID, Name: "NotWarriors", Enabled: true},
	})

	assert.Equal(t, "CW", r.Resolve(WarriorPolicyID))
}

func TestFieldName(t *testing.T) {
	assert.Equal(t, "cwNFTs", FieldName("CW"))
	assert.Equal(t, "spacecatsNFTs", FieldName("SpaceCats"))
	assert.Equal(t, "collection_702cbdb0NFTs", FieldName("Collection_702cbdb0"))
}

func TestReverseResolveMatchesBuiltins(t *testing.T) {
	r := New(nil)

	policyID, name, ok := r.ReverseResolve("cwNFTs")
	assert.True(t, ok)
	assert.Equal(t, WarriorPolicyID, policyID)
	assert.Equal(t, "CW", name)
}

func TestReverseResolveMatchesCustomCaseInsensitively(t *testing.T) {
	r := New([]models.CustomCollection{
		{PolicyID: customPolicy, Name: "SpaceCats", Enabled: true},
	})

	policyID, name, ok := r.ReverseResolve("spacecatsNFTs")
	assert.True(t, ok)
	assert.Equal(t, customPolicy, policyID)
	assert.Equal(t, "SpaceCats", name)
}

func TestReverseResolveUnknownCapitalizesStrippedField(t *testing.T) {
	r := New(nil)

	policyID, name, ok := r.ReverseResolve("Collection_702cbdb0NFTs")
	assert.False(t, ok)
	assert.Empty(t, policyID)
	assert.Equal(t, "Collection_702cbdb0", name)

	_, name, ok = r.ReverseResolve("dragonsNFTs")
	assert.False(t, ok)
	assert.Equal(t, "Dragons", name)
}

func TestIsInventoryField(t *testing.T) {
	assert.True(t, IsInventoryField("cwNFTs"))
	assert.True(t, IsInventoryField("collection_702cbdb0NFTs"))
	assert.False(t, IsInventoryField("NFTs"))
	assert.False(t, IsInventoryField("savedAddresses"))
}

func TestStripFieldSuffix(t *testing.T) {
	assert.Equal(t, "cw", StripFieldSuffix("cwNFTs"))
	assert.Equal(t, "cw", StripFieldSuffix("cwnfts"))
	assert.Equal(t, "plain", StripFieldSuffix("plain"))
}
