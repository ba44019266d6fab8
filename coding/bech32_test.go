package coding_test

import (
	"strings"
	"testing"

	"github.com/cosmos/cosmos-sdk/types/bech32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tessellated-io/haqq-delegator/coding"
)

func TestToNativeAddress_RoundTrips(t *testing.T) {
	cases := []string{
		"0x0000000000000000000000000000000000000000",
		"0xffffffffffffffffffffffffffffffffffffffff",
		"0x8F12aD1b2C5bB2C3c1A3f1a9D1e0B7c6aA2E41c9",
		"8f12ad1b2c5bb2c3c1a3f1a9d1e0b7c6aa2e41c9",
	}

	for _, in := range cases {
		encoded, err := coding.ToNativeAddress(in, "haqq")
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(encoded, "haqq1"))

		again, err := coding.ToNativeAddress(in, "haqq")
		require.NoError(t, err)
		assert.Equal(t, encoded, again, "encoding should be deterministic")

		prefix, decoded, err := bech32.DecodeAndConvert(encoded)
		require.NoError(t, err)
		assert.Equal(t, "haqq", prefix)

		expected, err := coding.DecodeHex(in)
		require.NoError(t, err)
		assert.Equal(t, expected, decoded)
	}
}

func TestToNativeAddress_KnownVector(t *testing.T) {
	encoded, err := coding.ToNativeAddress("0x9858EfFD232B4033E47d90003D41EC34EcaEda94", "haqq")
	require.NoError(t, err)
	assert.Equal(t, "haqq1npvwllfr9dqr8erajqqr6s0vxnk2ak55th8cpv", encoded)
}

func TestToNativeAddress_CaseInsensitiveHex(t *testing.T) {
	lower, err := coding.ToNativeAddress("0x8f12ad1b2c5bb2c3c1a3f1a9d1e0b7c6aa2e41c9", "haqq")
	require.NoError(t, err)

	upper, err := coding.ToNativeAddress("0X8F12AD1B2C5BB2C3C1A3F1A9D1E0B7C6AA2E41C9", "haqq")
	require.NoError(t, err)

	assert.Equal(t, lower, upper)
}

func TestToNativeAddress_PrefixChangesEncoding(t *testing.T) {
	haqq, err := coding.ToNativeAddress("0x8f12ad1b2c5bb2c3c1a3f1a9d1e0b7c6aa2e41c9", "haqq")
	require.NoError(t, err)

	evmos, err := coding.ToNativeAddress("0x8f12ad1b2c5bb2c3c1a3f1a9d1e0b7c6aa2e41c9", "evmos")
	require.NoError(t, err)

	assert.NotEqual(t, haqq, evmos)
	assert.True(t, strings.HasPrefix(evmos, "evmos1"))
}

func TestToNativeAddress_Malformed(t *testing.T) {
	cases := []string{
		"",
		"0x",
		"0x123",
		"0xzz12ad1b2c5bb2c3c1a3f1a9d1e0b7c6aa2e41c9",
		"0x8f12ad1b2c5bb2c3c1a3f1a9d1e0b7c6aa2e41c",
		"haqq1qqqqqq",
	}

	for _, in := range cases {
		_, err := coding.ToNativeAddress(in, "haqq")
		assert.ErrorIs(t, err, coding.ErrInvalidAddressFormat, "input: %q", in)
	}
}
