package bridge

import (
	"crypto/sha256"
	"encoding/binary"
	"hash/crc32"

	"github.com/zeebo/xxh3"
)

// ---------------------------------------------------------------------------
// Digest capabilities
// ---------------------------------------------------------------------------

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Digests return raw bytes; pipe through codec.hex.encode for text.
func registerDigestCapabilities(reg *BuiltinRegistry) error {
	// digest.sha256: payload -> 32-byte digest
	if err := reg.RegisterFunc(CapabilityInfo{
		Name:        "digest.sha256",
		Description: "SHA-256 digest of a buffer",
		Category:    "digest",
		Arity:       1,
		Keywords:    []string{"hash", "sha256", "sha"},
	}, func(args [][]byte) ([]byte, error) {
		if err := wantArgs("digest.sha256", args, 1); err != nil {
			return nil, err
		}
		sum := sha256.Sum256(args[0])
		return sum[:], nil
	}); err != nil {
		return err
	}

	// digest.xxh3: payload -> 8-byte big-endian digest
	if err := reg.RegisterFunc(CapabilityInfo{
		Name:        "digest.xxh3",
		Description: "XXH3 64-bit digest of a buffer",
		Category:    "digest",
		Arity:       1,
		Keywords:    []string{"hash", "xxh3", "xxhash", "fast"},
	}, func(args [][]byte) ([]byte, error) {
		if err := wantArgs("digest.xxh3", args, 1); err != nil {
			return nil, err
		}
		out := make([]byte, 8)
		binary.BigEndian.PutUint64(out, xxh3.Hash(args[0]))
		return out, nil
	}); err != nil {
		return err
	}

	// digest.crc32c: payload -> 4-byte big-endian Castagnoli checksum
	return reg.RegisterFunc(CapabilityInfo{
		Name:        "digest.crc32c",
		Description: "CRC-32C Castagnoli checksum of a buffer",
		Category:    "digest",
		Arity:       1,
		Keywords:    []string{"checksum", "crc32", "crc32c", "crc"},
	}, func(args [][]byte) ([]byte, error) {
		if err := wantArgs("digest.crc32c", args, 1); err != nil {
			return nil, err
		}
		out := make([]byte, 4)
		binary.BigEndian.PutUint32(out, crc32.Checksum(args[0], castagnoli))
		return out, nil
	})
}
