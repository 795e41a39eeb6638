// Package codec implements the wire-level encodings the asset-lock
// transaction and its surrounding protocol pieces rely on: Bitcoin-style
// compact-size integers, fixed-width little-endian integers, a
// length-prefixed byte string, hex, and base58check.
//
// The compact-size and fixed-width rules mirror btcd/wire's
// varint/binary encoding exactly, since Type 8 special transactions are
// otherwise wire-compatible with standard Dash/Bitcoin transactions.
package codec

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"

	"github.com/thephez/dash-bridge/bridgeerrors"
	"github.com/thephez/dash-bridge/hashutil"
)

// WriteCompactSize appends n encoded as a Bitcoin-style compact-size
// (varint) integer to buf and returns the result.
func WriteCompactSize(buf []byte, n uint64) []byte {
	switch {
	case n < 253:
		return append(buf, byte(n))
	case n <= 0xffff:
		buf = append(buf, 0xfd)
		return appendUint16LE(buf, uint16(n))
	case n <= 0xffffffff:
		buf = append(buf, 0xfe)
		return appendUint32LE(buf, uint32(n))
	default:
		buf = append(buf, 0xff)
		return appendUint64LE(buf, n)
	}
}

// ReadCompactSize decodes a compact-size integer from the front of b,
// returning the value and the number of bytes consumed.
func ReadCompactSize(b []byte) (uint64, int, error) {
	if len(b) == 0 {
		return 0, 0, bridgeerrors.NewCodecError("read-compact-size", fmt.Errorf("empty input"))
	}

	switch b[0] {
	case 0xfd:
		if len(b) < 3 {
			return 0, 0, bridgeerrors.NewCodecError("read-compact-size", fmt.Errorf("truncated u16 prefix"))
		}
		return uint64(binary.LittleEndian.Uint16(b[1:3])), 3, nil
	case 0xfe:
		if len(b) < 5 {
			return 0, 0, bridgeerrors.NewCodecError("read-compact-size", fmt.Errorf("truncated u32 prefix"))
		}
		return uint64(binary.LittleEndian.Uint32(b[1:5])), 5, nil
	case 0xff:
		if len(b) < 9 {
			return 0, 0, bridgeerrors.NewCodecError("read-compact-size", fmt.Errorf("truncated u64 prefix"))
		}
		return binary.LittleEndian.Uint64(b[1:9]), 9, nil
	default:
		return uint64(b[0]), 1, nil
	}
}

func appendUint16LE(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint32LE(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendInt32LE(buf []byte, v int32) []byte {
	return appendUint32LE(buf, uint32(v))
}

func appendUint64LE(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendInt64LE(buf []byte, v int64) []byte {
	return appendUint64LE(buf, uint64(v))
}

// PutUint8 appends a single byte.
func PutUint8(buf []byte, v uint8) []byte { return append(buf, v) }

// PutUint16LE appends v as two little-endian bytes.
func PutUint16LE(buf []byte, v uint16) []byte { return appendUint16LE(buf, v) }

// PutInt32LE appends v as four little-endian bytes.
func PutInt32LE(buf []byte, v int32) []byte { return appendInt32LE(buf, v) }

// PutUint32LE appends v as four little-endian bytes.
func PutUint32LE(buf []byte, v uint32) []byte { return appendUint32LE(buf, v) }

// PutInt64LE appends v as eight little-endian bytes.
func PutInt64LE(buf []byte, v int64) []byte { return appendInt64LE(buf, v) }

// PutVarBytes appends a compact-size length prefix followed by data.
func PutVarBytes(buf []byte, data []byte) []byte {
	buf = WriteCompactSize(buf, uint64(len(data)))
	return append(buf, data...)
}

// EncodeHex lower-cases b into a hex string.
func EncodeHex(b []byte) string {
	return hex.EncodeToString(b)
}

// DecodeHex parses a case-insensitive hex string, rejecting odd length.
func DecodeHex(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, bridgeerrors.NewCodecError("decode-hex", fmt.Errorf("odd length hex string"))
	}
	out, err := hex.DecodeString(s)
	if err != nil {
		return nil, bridgeerrors.NewCodecError("decode-hex", err)
	}
	return out, nil
}

// Base58CheckEncode encodes version||payload with a 4-byte double-SHA-256
// checksum suffix.
func Base58CheckEncode(version byte, payload []byte) string {
	b := make([]byte, 0, 1+len(payload))
	b = append(b, version)
	b = append(b, payload...)

	checksum := hashutil.Hash256(b)
	b = append(b, checksum[:4]...)

	return base58.Encode(b)
}

// Base58CheckDecode reverses Base58CheckEncode, validating the checksum.
func Base58CheckDecode(s string) (version byte, payload []byte, err error) {
	decoded := base58.Decode(s)
	if len(decoded) < 5 {
		return 0, nil, bridgeerrors.NewCodecError("base58check-decode", fmt.Errorf("too short"))
	}

	body := decoded[:len(decoded)-4]
	checksum := decoded[len(decoded)-4:]

	expected := hashutil.Hash256(body)
	for i := 0; i < 4; i++ {
		if checksum[i] != expected[i] {
			return 0, nil, bridgeerrors.NewCodecError("base58check-decode", fmt.Errorf("bad checksum"))
		}
	}

	return body[0], body[1:], nil
}
