// Package cardano implements the pure ledger-side codecs: wallet address
// normalization, asset unit decoding and the on-chain metadata model.
package cardano

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/nft-inventory/internal/apperr"
)

const (
	hrpMainnet = "addr"
	hrpTestnet = "addr_test"

	// Shelley header layout: high nibble is the address type, low nibble the
	// network id.
	networkTestnet = 0x0
	networkMainnet = 0x1

	// Payment credential is a 28-byte hash; base addresses carry two.
	credentialLen = 28
)

// IsCanonical reports whether the address already carries the bech32 prefix
// of a Shelley payment address.
func IsCanonical(address string) bool {
	return strings.HasPrefix(address, hrpMainnet+"1") ||
		strings.HasPrefix(address, hrpTestnet+"1")
}

// NormalizeAddress converts a wallet-reported address into its canonical
// bech32 form. Canonical input is returned unchanged; anything else is
// treated as the hex encoding of the raw address bytes. Pure function, safe
// to memoize.
func NormalizeAddress(raw string) (string, error) {
	if raw == "" {
		return "", apperr.InvalidAddress(raw, nil)
	}
	if IsCanonical(raw) {
		return raw, nil
	}

	payload, err := hex.DecodeString(raw)
	if err != nil {
		return "", apperr.InvalidAddress(raw, err)
	}

	hrp, err := addressHRP(payload)
	if err != nil {
		return "", apperr.InvalidAddress(raw, err)
	}

	converted, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", apperr.InvalidAddress(raw, err)
	}

	encoded, err := bech32.Encode(hrp, converted)
	if err != nil {
		return "", apperr.InvalidAddress(raw, err)
	}

	return encoded, nil
}

// addressHRP validates the Shelley header byte and payload length and picks
// the human-readable part for the network it names.
func addressHRP(payload []byte) (string, error) {
	if len(payload) < 1+credentialLen {
		return "", fmt.Errorf("address payload too short: %d bytes", len(payload))
	}

	header := payload[0]
	addrType := header >> 4
	network := header & 0x0f

	switch addrType {
	case 0, 1, 2, 3:
		// Base addresses: payment credential + stake credential.
		if len(payload) != 1+2*credentialLen {
			return "", fmt.Errorf("base address must be %d bytes, got %d", 1+2*credentialLen, len(payload))
		}
	case 4, 5:
		// Pointer addresses: payment credential + variable-length pointer.
		if len(payload) <= 1+credentialLen {
			return "", fmt.Errorf("pointer address truncated: %d bytes", len(payload))
		}
	case 6, 7:
		// Enterprise addresses: payment credential only.
		if len(payload) != 1+credentialLen {
			return "", fmt.Errorf("enterprise address must be %d bytes, got %d", 1+credentialLen, len(payload))
		}
	default:
		return "", fmt.Errorf("unsupported address type %d", addrType)
	}

	switch network {
	case networkMainnet:
		return hrpMainnet, nil
	case networkTestnet:
		return hrpTestnet, nil
	default:
		return "", fmt.Errorf("unknown network id %d", network)
	}
}
