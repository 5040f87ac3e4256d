package crypto

import "crypto/sha256"

const (
	// kdfIterations is the round count of the current key derivation.
	// Backups already in the wild were produced with exactly this value;
	// changing it breaks every existing V2 file.
	kdfIterations = 10000

	// legacyKDFIterations is the round count used by V1 envelopes.
	legacyKDFIterations = 1000

	keySize  = 32
	saltSize = 16
	ivSize   = 16
)

// deriveKey stretches a passphrase into a 32-byte key by iterated SHA-256:
// round zero hashes passphrase||salt, every later round hashes the previous
// digest. This is deliberately a memory-light construction rather than a
// vetted KDF; its only hard requirements are determinism and a stable
// iteration count (see kdfIterations).
func deriveKey(passphrase string, salt []byte, iterations int) []byte {
	input := make([]byte, 0, len(passphrase)+len(salt))
	input = append(input, passphrase...)
	input = append(input, salt...)

	digest := sha256.Sum256(input)
	for i := 1; i < iterations; i++ {
		digest = sha256.Sum256(digest[:])
	}

	key := make([]byte, keySize)
	copy(key, digest[:])
	return key
}
