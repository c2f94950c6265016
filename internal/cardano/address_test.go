package cardano

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/nft-inventory/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func basePayload(header byte) []byte {
	payload := make([]byte, 57)
	payload[0] = header
	for i := 1; i < len(payload); i++ {
		payload[i] = byte(i * 7)
	}
	return payload
}

func enterprisePayload(header byte) []byte {
	payload := make([]byte, 29)
	payload[0] = header
	for i := 1; i < len(payload); i++ {
		payload[i] = byte(i * 3)
	}
	return payload
}

func TestNormalizeAddressCanonicalPassthrough(t *testing.T) {
	for _, addr := range []string{
		"addr1qxy8p07tr4877hzmnkf0dnzsjyrfrpjcvw7zyk6zspayn5",
		"addr_test1qz2fxv2umyhttkxyxp8x0dlpdt3k6cwng5pxj3jhsydzer",
	} {
		got, err := NormalizeAddress(addr)
		require.NoError(t, err)
		assert.Equal(t, addr, got)
	}
}

func TestNormalizeAddressMainnetBase(t *testing.T) {
	raw := hex.EncodeToString(basePayload(0x01))

	got, err := NormalizeAddress(raw)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "addr1"))
	assert.True(t, IsCanonical(got))

	// Normalization of an already-normalized address is the identity.
	again, err := NormalizeAddress(got)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestNormalizeAddressTestnetBase(t *testing.T) {
	raw := hex.EncodeToString(basePayload(0x00))

	got, err := NormalizeAddress(raw)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "addr_test1"))
}

func TestNormalizeAddressEnterprise(t *testing.T) {
	raw := hex.EncodeToString(enterprisePayload(0x61))

	got, err := NormalizeAddress(raw)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "addr1"))
}

func TestNormalizeAddressRejectsInvalidInput(t *testing.T) {
	cases := map[string]string{
		"empty":                "",
		"not hex":              "xyzzy",
		"too short":            hex.EncodeToString([]byte{0x01, 0x02}),
		"unknown address type": hex.EncodeToString(basePayload(0x81)),
		"unknown network":      hex.EncodeToString(basePayload(0x05)),
		"base wrong length":    hex.EncodeToString(basePayload(0x01)[:40]),
		"enterprise too long":  hex.EncodeToString(append(enterprisePayload(0x61), 0xff)),
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NormalizeAddress(raw)
			require.Error(t, err)
			assert.True(t, apperr.IsCode(err, apperr.CodeInvalidAddress))
		})
	}
}

func TestNormalizeAddressProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	genCredentials := gen.SliceOfN(56, gen.UInt8())
	genHeader := gopter.CombineGens(
		gen.UInt8Range(0, 3), // base address types
		gen.UInt8Range(0, 1), // network id
	).Map(func(vals []interface{}) byte {
		return vals[0].(byte)<<4 | vals[1].(byte)
	})

	properties.Property("well-formed base addresses always normalize", prop.ForAll(
		func(header byte, creds []byte) bool {
			payload := append([]byte{header}, creds...)
			raw := hex.EncodeToString(payload)

			got, err := NormalizeAddress(raw)
			if err != nil {
				return false
			}
			if header&0x0f == networkMainnet {
				return strings.HasPrefix(got, "addr1")
			}
			return strings.HasPrefix(got, "addr_test1")
		},
		genHeader,
		genCredentials,
	))

	properties.Property("normalization is deterministic and idempotent", prop.ForAll(
		func(header byte, creds []byte) bool {
			raw := hex.EncodeToString(append([]byte{header}, creds...))

			first, err1 := NormalizeAddress(raw)
			second, err2 := NormalizeAddress(raw)
			if err1 != nil || err2 != nil || first != second {
				return false
			}
			again, err := NormalizeAddress(first)
			return err == nil && again == first
		},
		genHeader,
		genCredentials,
	))

	properties.TestingRun(t)
}
