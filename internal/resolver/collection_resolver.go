// Package resolver maps collection policy ids to the collection names the
// profile store is keyed by, in both directions.
package resolver

import (
	"strings"
	"unicode"

	"github.com/nft-inventory/internal/models"
	"github.com/nft-inventory/internal/types"
)

// WarriorPolicyID is the policy id behind the built-in CW collection, the
// target of the legacy bulk claim endpoint.
const WarriorPolicyID types.PolicyID = "8f80ebfaf62a8c33ae2adf047572604c74db8bc1daba2b43f9a65635"

// Built-in policy id to collection name table. A user's custom registry can
// extend this table but never override an entry in it.
var builtinCollections = map[types.PolicyID]string{
	WarriorPolicyID: "CW",
	"b7761c472eef3b6e0505441efaf940892bb59c01be96070b0a0a89b3": "CWI",
	"b9c188390e53e10833f17650ccf1b2704b2f67dccfae7352be3c9533": "CWA",
}

// fallbackPrefixLen is how many leading characters of an unknown policy id
// make up its synthesized collection name.
const fallbackPrefixLen = 8

// inventorySuffix is the trailing token of per-user inventory field names.
const inventorySuffix = "NFTs"

// Resolver resolves collection names for one caller, combining the built-in
// table with that caller's custom registry. Pure lookups, no I/O.
type Resolver struct {
	custom map[types.PolicyID]string
}

// New creates a resolver over the caller's custom collections. Disabled
// entries are ignored; policy id matching is exact and case-sensitive.
func New(custom []models.CustomCollection) *Resolver {
	r := &Resolver{custom: make(map[types.PolicyID]string, len(custom))}
	for _, c := range custom {
		if !c.Enabled || c.Name == "" {
			continue
		}
		if _, builtin := builtinCollections[c.PolicyID]; builtin {
			continue
		}
		r.custom[c.PolicyID] = c.Name
	}
	return r
}

// Resolve maps a policy id to its collection name. Unknown policy ids get a
// deterministic synthesized name from the id's leading characters.
func (r *Resolver) Resolve(policyID types.PolicyID) string {
	if name, ok := builtinCollections[policyID]; ok {
		return name
	}
	if name, ok := r.custom[policyID]; ok {
		return name
	}
	prefix := string(policyID)
	if len(prefix) > fallbackPrefixLen {
		prefix = prefix[:fallbackPrefixLen]
	}
	return "Collection_" + prefix
}

// FieldName derives the per-user inventory field name for a collection.
func FieldName(collectionName string) string {
	return strings.ToLower(collectionName) + inventorySuffix
}

// ReverseResolve maps an inventory field name back to a policy id by
// stripping the trailing "NFTs" suffix and matching case-insensitively
// against known collection names. When no collection matches, ok is false
// and the returned name is the capitalized stripped field, which callers use
// as the display collection name.
func (r *Resolver) ReverseResolve(fieldName string) (policyID types.PolicyID, collectionName string, ok bool) {
	stripped := StripFieldSuffix(fieldName)

	for id, name := range builtinCollections {
		if strings.EqualFold(name, stripped) {
			return id, name, true
		}
	}
	for id, name := range r.custom {
		if strings.EqualFold(name, stripped) {
			return id, name, true
		}
	}

	return "", Capitalize(stripped), false
}

// StripFieldSuffix removes a trailing case-insensitive "NFTs" from an
// inventory field name.
func StripFieldSuffix(fieldName string) string {
	if len(fieldName) >= len(inventorySuffix) &&
		strings.EqualFold(fieldName[len(fieldName)-len(inventorySuffix):], inventorySuffix) {
		return fieldName[:len(fieldName)-len(inventorySuffix)]
	}
	return fieldName
}

// IsInventoryField reports whether a user document field holds inventory ids.
func IsInventoryField(fieldName string) bool {
	return len(fieldName) > len(inventorySuffix) &&
		strings.EqualFold(fieldName[len(fieldName)-len(inventorySuffix):], inventorySuffix)
}

// Capitalize upper-cases the first rune of s.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
