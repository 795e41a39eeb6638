package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompactSizeRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		n    uint64
	}{
		{"single-byte", 0},
		{"single-byte-max", 252},
		{"u16-prefix-min", 253},
		{"u16-prefix-max", 0xffff},
		{"u32-prefix-min", 0x10000},
		{"u32-prefix-max", 0xffffffff},
		{"u64-prefix", 0x100000000},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			encoded := WriteCompactSize(nil, tc.n)
			decoded, consumed, err := ReadCompactSize(encoded)
			require.NoError(t, err)
			require.Equal(t, tc.n, decoded)
			require.Equal(t, len(encoded), consumed)
		})
	}
}

func TestCompactSizeWireWidths(t *testing.T) {
	t.Parallel()

	require.Len(t, WriteCompactSize(nil, 252), 1)
	require.Len(t, WriteCompactSize(nil, 253), 3)
	require.Len(t, WriteCompactSize(nil, 0x10000), 5)
	require.Len(t, WriteCompactSize(nil, 0x100000000), 9)
}

func TestPutVarBytes(t *testing.T) {
	t.Parallel()

	out := PutVarBytes(nil, []byte{0xde, 0xad, 0xbe, 0xef})
	require.Equal(t, []byte{0x04, 0xde, 0xad, 0xbe, 0xef}, out)
}

func TestHexRoundTrip(t *testing.T) {
	t.Parallel()

	b := []byte{0x00, 0xab, 0xff}
	s := EncodeHex(b)
	require.Equal(t, "00abff", s)

	decoded, err := DecodeHex("00ABFF")
	require.NoError(t, err)
	require.Equal(t, b, decoded)

	_, err = DecodeHex("abc")
	require.Error(t, err)
}

func TestBase58CheckRoundTrip(t *testing.T) {
	t.Parallel()

	payload := make([]byte, 20)
	for i := range payload {
		payload[i] = byte(i)
	}

	encoded := Base58CheckEncode(0x4c, payload)
	version, decoded, err := Base58CheckDecode(encoded)
	require.NoError(t, err)
	require.Equal(t, byte(0x4c), version)
	require.Equal(t, payload, decoded)
}

func TestBase58CheckDecodeRejectsBadChecksum(t *testing.T) {
	t.Parallel()

	encoded := Base58CheckEncode(0x4c, []byte{1, 2, 3})
	tampered := encoded[:len(encoded)-1] + "z"

	_, _, err := Base58CheckDecode(tampered)
	require.Error(t, err)
}
