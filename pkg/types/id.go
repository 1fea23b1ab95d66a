package types

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// ID is a 32-byte content identifier used for StableId, Version and SourceId:
// a fixed-size array with a hex String() and no further structure imposed by
// the core.
type ID [32]byte

func (id ID) String() string { return fmt.Sprintf("%x", id[:]) }

func (id ID) IsZero() bool { return id == ID{} }

// IDFromHex parses a hex-encoded 32-byte id, as produced by String().
func IDFromHex(s string) (ID, error) {
	var id ID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, err
	}
	if len(b) != len(id) {
		return id, fmt.Errorf("types: wrong id length %d, want %d", len(b), len(id))
	}
	copy(id[:], b)
	return id, nil
}

// HashEntity derives a Version from arbitrary entity bytes. The core itself
// never calls this - StateIndex only requires Version to be a comparable ID -
// but collaborators building Upstream events need some scheme: Keccak-256 via
// golang.org/x/crypto/sha3, the same digest pkg/crypto's EIP-712 signing uses.
func HashEntity(data []byte) ID {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	var id ID
	copy(id[:], h.Sum(nil))
	return id
}
