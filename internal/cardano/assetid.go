package cardano

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/nft-inventory/internal/apperr"
	"github.com/nft-inventory/internal/types"
)

// legacyWarriorPrefix is the long on-chain token prefix that the CW
// collection rewrites to its short canonical form.
const legacyWarriorPrefix = "CardanoWarrior"

// LegacyWarriorCollection is the only built-in collection with a legacy
// asset-name rewrite rule.
const LegacyWarriorCollection = "CW"

// DecodeLocalID strips the policy id prefix from a compound asset unit,
// hex-decodes the remainder into the on-chain asset name, and applies the
// collection's legacy rewrite to obtain the local id. Returns both the local
// id and the undecorated asset name.
func DecodeLocalID(unit types.AssetUnit, policyID types.PolicyID, collectionName string) (localID, assetName string, err error) {
	s := string(unit)
	prefix := string(policyID)
	if !strings.HasPrefix(s, prefix) || len(s) == len(prefix) {
		return "", "", apperr.MalformedAssetUnit(unit, fmt.Errorf("unit does not extend policy id %s", policyID))
	}

	nameBytes, decErr := hex.DecodeString(s[len(prefix):])
	if decErr != nil {
		return "", "", apperr.MalformedAssetUnit(unit, decErr)
	}

	assetName = string(nameBytes)
	localID = assetName
	if collectionName == LegacyWarriorCollection {
		localID = strings.Replace(assetName, legacyWarriorPrefix, LegacyWarriorCollection, 1)
	}

	return localID, assetName, nil
}
