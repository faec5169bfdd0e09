// Package keyenc serializes raw private keys into the compressed Wallet
// Import Format: base58(version ‖ key ‖ 0x01 ‖ checksum).
package keyenc

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"

	"github.com/screa/promokey/internal/crypto"
	"github.com/screa/promokey/pkg/types"
)

const (
	// DefaultVersion is the network prefix used when the caller gives none.
	DefaultVersion byte = 212

	// CompressFlag marks the key's public counterpart as compressed.
	CompressFlag byte = 0x01

	// PayloadLen is version (1) + key (32) + compress flag (1) = 34
	PayloadLen = 1 + types.KeySize + 1
	// EncodedLen is the payload plus its 4 byte checksum = 38
	EncodedLen = PayloadLen + crypto.ChecksumSize
)

// Errors
var (
	ErrInvalidVersion = errors.New("version prefix must fit in a single byte (0-255)")
	ErrInvalidFormat  = errors.New("invalid WIF length")
	ErrCompressFlag   = errors.New("missing compressed public key flag")
	ErrChecksum       = errors.New("WIF checksum mismatch")
)

// VersionFromInt validates a caller-supplied network prefix.
func VersionFromInt(v int) (byte, error) {
	if v < 0 || v > 0xff {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidVersion, v)
	}
	return byte(v), nil
}

// Payload builds the 34 byte version ‖ key ‖ flag buffer.
func Payload(key [types.KeySize]byte, version byte) [PayloadLen]byte {
	var buf [PayloadLen]byte
	buf[0] = version
	copy(buf[1:], key[:])
	buf[PayloadLen-1] = CompressFlag
	return buf
}

// EncodeWIF returns the base-58 text for key under version.
func EncodeWIF(key [types.KeySize]byte, version byte) string {
	b := make([]byte, 0, EncodedLen)
	payload := Payload(key, version)
	b = append(b, payload[:]...)
	cksum := crypto.Checksum(b)
	b = append(b, cksum[:]...)
	return base58.Encode(b)
}

// Encode wraps key into a DerivedKey carrying both raw bytes and WIF.
func Encode(key [types.KeySize]byte, version byte) *types.DerivedKey {
	return &types.DerivedKey{
		Bytes:   key,
		WIF:     EncodeWIF(key, version),
		Version: version,
	}
}

// Decoded is a parsed WIF string
type Decoded struct {
	Version  byte
	Key      [types.KeySize]byte
	Checksum [crypto.ChecksumSize]byte
}

// Decode parses and verifies a string produced by EncodeWIF.
func Decode(wif string) (*Decoded, error) {
	raw := base58.Decode(wif)
	if len(raw) != EncodedLen {
		return nil, fmt.Errorf("%w: decoded %d bytes, want %d", ErrInvalidFormat, len(raw), EncodedLen)
	}
	if raw[PayloadLen-1] != CompressFlag {
		return nil, ErrCompressFlag
	}

	d := &Decoded{Version: raw[0]}
	copy(d.Key[:], raw[1:PayloadLen-1])
	copy(d.Checksum[:], raw[PayloadLen:])

	if crypto.Checksum(raw[:PayloadLen]) != d.Checksum {
		return nil, ErrChecksum
	}
	return d, nil
}
