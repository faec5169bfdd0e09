package crypto

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

const (
	// DigestSize is the output length of every round of the stretch.
	DigestSize = chainhash.HashSize

	// ChecksumSize is the number of double-hash bytes appended to a payload.
	ChecksumSize = 4
)

// Sum hashes an arbitrary-length input into the first stretch digest.
func Sum(data []byte) [DigestSize]byte {
	return chainhash.HashH(data)
}

// Round applies one more hash round to a previous digest.
// Works on the fixed-size array so the hot loop stays allocation free.
func Round(digest [DigestSize]byte) [DigestSize]byte {
	return chainhash.HashH(digest[:])
}

// Checksum returns the first four bytes of hash(hash(payload)).
func Checksum(payload []byte) (cksum [ChecksumSize]byte) {
	h := chainhash.DoubleHashB(payload)
	copy(cksum[:], h[:ChecksumSize])
	return
}
