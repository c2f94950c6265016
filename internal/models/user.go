package models

import (
	"time"

	"github.com/nft-inventory/internal/types"
)

// AddressInventory maps canonical address -> inventory field name
// (e.g. "cwNFTs") -> ordered list of local asset ids. Order is append order
// and carries no meaning beyond stability.
type AddressInventory map[string]map[string][]string

// IDs returns the list stored under address/field, or nil.
func (inv AddressInventory) IDs(address, field string) []string {
	if inv == nil {
		return nil
	}
	fields, ok := inv[address]
	if !ok {
		return nil
	}
	return fields[field]
}

// Contains reports whether localID is listed under address/field.
func (inv AddressInventory) Contains(address, field, localID string) bool {
	for _, id := range inv.IDs(address, field) {
		if id == localID {
			return true
		}
	}
	return false
}

// Append adds localID under address/field if not already present, creating
// intermediate maps as needed. Returns true if the inventory changed.
func (inv AddressInventory) Append(address, field, localID string) bool {
	if inv.Contains(address, field, localID) {
		return false
	}
	fields, ok := inv[address]
	if !ok {
		fields = make(map[string][]string)
		inv[address] = fields
	}
	fields[field] = append(fields[field], localID)
	return true
}

// Remove drops localID from address/field. Returns true if it was present.
func (inv AddressInventory) Remove(address, field, localID string) bool {
	ids := inv.IDs(address, field)
	for i, id := range ids {
		if id == localID {
			inv[address][field] = append(ids[:i:i], ids[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveEverywhere drops localID from the given field under every address.
// Used when ownership moves to another account and the previous owner's view
// must be scrubbed regardless of which of their addresses held it.
func (inv AddressInventory) RemoveEverywhere(field, localID string) bool {
	changed := false
	for address := range inv {
		if inv.Remove(address, field, localID) {
			changed = true
		}
	}
	return changed
}

// SavedAddress is a wallet address the user chose to track.
type SavedAddress struct {
	Address      string     `json:"address"`
	Label        string     `json:"label"`
	AddedAt      time.Time  `json:"addedAt"`
	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
}

// CustomCollection is a user-registered policy id to collection name mapping.
type CustomCollection struct {
	PolicyID types.PolicyID `json:"policyId"`
	Name     string         `json:"name"`
	Enabled  bool           `json:"enabled"`
}

// User is the platform's profile document for one account.
type User struct {
	ID                string             `json:"id"`
	AddressInventory  AddressInventory   `json:"addressInventory"`
	ActiveSet         []string           `json:"activeSet"`
	SavedAddresses    []SavedAddress     `json:"savedAddresses"`
	CustomCollections []CustomCollection `json:"customCollections"`
	ClaimTimestamps   []time.Time        `json:"claimTimestamps"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

// InActiveSet reports whether localID is in the user's active list.
func (u *User) InActiveSet(localID string) bool {
	for _, id := range u.ActiveSet {
		if id == localID {
			return true
		}
	}
	return false
}

// RemoveFromActiveSet drops localID from the active list if present.
func (u *User) RemoveFromActiveSet(localID string) {
	for i, id := range u.ActiveSet {
		if id == localID {
			u.ActiveSet = append(u.ActiveSet[:i:i], u.ActiveSet[i+1:]...)
			return
		}
	}
}
