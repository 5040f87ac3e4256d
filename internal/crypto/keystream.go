package crypto

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Keystream block input layout. Each 32-byte keystream block n is the
// SHA-256 digest of a fixed 48-byte input:
//
//	bytes  0..15  iv
//	bytes 16..31  key[0:16]
//	bytes 32..35  big-endian block counter
//	bytes 36..47  reserved, always zero
//
// This mimics counter mode using only a hash primitive. The layout is part
// of the on-disk format: any change makes previously written backups
// undecryptable.
const (
	keystreamBlockInput = 48
	keystreamBlockSize  = sha256.Size

	blockIVOffset      = 0
	blockKeyOffset     = 16
	blockCounterOffset = 32
)

// keystream produces length pseudorandom bytes from key and iv.
func keystream(key, iv []byte, length int) []byte {
	var input [keystreamBlockInput]byte
	copy(input[blockIVOffset:blockKeyOffset], iv)
	copy(input[blockKeyOffset:blockCounterOffset], key[:16])

	out := make([]byte, 0, ((length/keystreamBlockSize)+1)*keystreamBlockSize)
	for n := 0; len(out) < length; n++ {
		binary.BigEndian.PutUint32(input[blockCounterOffset:blockCounterOffset+4], uint32(n))
		digest := sha256.Sum256(input[:])
		out = append(out, digest[:]...)
	}
	return out[:length]
}

// xorKeystream XORs data against the keystream for key and iv. XOR is its
// own inverse, so the same call encrypts and decrypts.
func xorKeystream(data, key, iv []byte) []byte {
	stream := keystream(key, iv, len(data))
	out := make([]byte, len(data))
	for i := range data {
		out[i] = data[i] ^ stream[i]
	}
	return out
}

// computeTag returns the hex integrity tag over key||salt||iv||ciphertext.
// The key is bound by concatenation rather than a proper MAC construction;
// that is a stated limitation of the format, kept for compatibility. Tags
// are still compared in constant time on decrypt.
func computeTag(key, salt, iv, ciphertext []byte) string {
	h := sha256.New()
	h.Write(key)
	h.Write(salt)
	h.Write(iv)
	h.Write(ciphertext)
	return hex.EncodeToString(h.Sum(nil))
}
