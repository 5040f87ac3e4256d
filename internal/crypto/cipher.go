package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// cipherStrategy is one envelope version's seal/open pair. Versions are
// dispatched by marker so a future format can be added without touching the
// existing ones.
type cipherStrategy interface {
	// seal encrypts plaintext and returns a complete envelope string.
	seal(plaintext, passphrase string) (string, error)
	// open decrypts a full envelope string.
	open(envelope, passphrase string) (string, error)
}

var writeStrategies = map[Version]cipherStrategy{
	VersionCurrent: streamCipherV2{},
	VersionAEAD:    aeadCipherV3{},
}

var readStrategies = map[string]cipherStrategy{
	markerV1: legacyStreamCipherV1{},
	markerV2: streamCipherV2{},
	markerV3: aeadCipherV3{},
}

// EncryptPayload encrypts plaintext with the default (V2) envelope format.
func EncryptPayload(plaintext, passphrase string) (string, error) {
	return EncryptPayloadVersion(plaintext, passphrase, VersionCurrent)
}

// EncryptPayloadVersion encrypts plaintext with an explicit envelope
// version.
func EncryptPayloadVersion(plaintext, passphrase string, version Version) (string, error) {
	if passphrase == "" {
		return "", ErrEmptyPassphrase
	}
	strategy, ok := writeStrategies[version]
	if !ok {
		return "", fmt.Errorf("envelope version %d is not writable", version)
	}
	return strategy.seal(plaintext, passphrase)
}

// DecryptPayload parses an envelope, dispatches on its version marker and
// returns the plaintext. Integrity failures (V2/V3) are reported as
// ErrIntegrity before any plaintext is returned.
func DecryptPayload(envelope, passphrase string) (string, error) {
	marker, _, found := strings.Cut(envelope, fieldSep)
	if !found {
		return "", fmt.Errorf("%w: missing version marker", ErrFormat)
	}
	strategy, ok := readStrategies[marker]
	if !ok {
		return "", fmt.Errorf("%w: unsupported version marker %q", ErrFormat, marker)
	}
	return strategy.open(envelope, passphrase)
}

// streamCipherV2 is the current hand-rolled construction: iterated-hash KDF,
// hash-counter keystream, XOR, and a concatenation tag.
type streamCipherV2 struct{}

func (streamCipherV2) seal(plaintext, passphrase string) (string, error) {
	salt, err := randomBytes(saltSize)
	if err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	iv, err := randomBytes(ivSize)
	if err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}

	key := deriveKey(passphrase, salt, kdfIterations)
	defer zeroBytes(key)

	ciphertext := xorKeystream([]byte(plaintext), key, iv)
	tag := computeTag(key, salt, iv, ciphertext)

	return strings.Join([]string{
		markerV2,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(iv),
		base64.StdEncoding.EncodeToString(ciphertext),
		tag,
	}, fieldSep), nil
}

func (streamCipherV2) open(envelope, passphrase string) (string, error) {
	fields, err := splitEnvelope(envelope, markerV2, 5)
	if err != nil {
		return "", err
	}

	salt, err := base64.StdEncoding.DecodeString(fields[0])
	if err != nil {
		return "", fmt.Errorf("%w: undecodable salt", ErrFormat)
	}
	iv, err := base64.StdEncoding.DecodeString(fields[1])
	if err != nil {
		return "", fmt.Errorf("%w: undecodable iv", ErrFormat)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(fields[2])
	if err != nil {
		return "", fmt.Errorf("%w: undecodable ciphertext", ErrFormat)
	}
	storedTag := fields[3]

	key := deriveKey(passphrase, salt, kdfIterations)
	defer zeroBytes(key)

	// The tag must verify before any plaintext is produced.
	expected := computeTag(key, salt, iv, ciphertext)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(storedTag)) != 1 {
		return "", ErrIntegrity
	}

	return string(xorKeystream(ciphertext, key, iv)), nil
}

// legacyStreamCipherV1 reads the original format: the salt is a raw string
// field, the derivation runs fewer rounds, the IV is all zeros and there is
// no integrity tag. A wrong passphrase yields garbage instead of an error;
// that weakness is inherent to the format and the reason V1 is read-only.
type legacyStreamCipherV1 struct{}

func (legacyStreamCipherV1) seal(string, string) (string, error) {
	return "", fmt.Errorf("legacy envelope version is read-only")
}

func (legacyStreamCipherV1) open(envelope, passphrase string) (string, error) {
	fields, err := splitEnvelope(envelope, markerV1, 3)
	if err != nil {
		return "", err
	}

	salt := []byte(fields[0])
	ciphertext, err := base64.StdEncoding.DecodeString(fields[1])
	if err != nil {
		return "", fmt.Errorf("%w: undecodable ciphertext", ErrFormat)
	}

	key := deriveKey(passphrase, salt, legacyKDFIterations)
	defer zeroBytes(key)

	iv := make([]byte, ivSize)
	return string(xorKeystream(ciphertext, key, iv)), nil
}

// aeadCipherV3 is the audited construction for new exports: PBKDF2-SHA256
// key derivation and AES-256-GCM. Written only when explicitly selected.
type aeadCipherV3 struct{}

const (
	aeadKDFIterations = 100000
	aeadNonceSize     = 12
)

func (aeadCipherV3) seal(plaintext, passphrase string) (string, error) {
	salt, err := randomBytes(saltSize)
	if err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	nonce, err := randomBytes(aeadNonceSize)
	if err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	key := pbkdf2.Key([]byte(passphrase), salt, aeadKDFIterations, keySize, sha256.New)
	defer zeroBytes(key)

	aead, err := newGCM(key)
	if err != nil {
		return "", err
	}
	ciphertext := aead.Seal(nil, nonce, []byte(plaintext), nil)

	return strings.Join([]string{
		markerV3,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(nonce),
		base64.StdEncoding.EncodeToString(ciphertext),
	}, fieldSep), nil
}

func (aeadCipherV3) open(envelope, passphrase string) (string, error) {
	fields, err := splitEnvelope(envelope, markerV3, 4)
	if err != nil {
		return "", err
	}

	salt, err := base64.StdEncoding.DecodeString(fields[0])
	if err != nil {
		return "", fmt.Errorf("%w: undecodable salt", ErrFormat)
	}
	nonce, err := base64.StdEncoding.DecodeString(fields[1])
	if err != nil {
		return "", fmt.Errorf("%w: undecodable nonce", ErrFormat)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(fields[2])
	if err != nil {
		return "", fmt.Errorf("%w: undecodable ciphertext", ErrFormat)
	}
	if len(nonce) != aeadNonceSize {
		return "", fmt.Errorf("%w: wrong nonce size", ErrFormat)
	}

	key := pbkdf2.Key([]byte(passphrase), salt, aeadKDFIterations, keySize, sha256.New)
	defer zeroBytes(key)

	aead, err := newGCM(key)
	if err != nil {
		return "", err
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrIntegrity
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// randomBytes returns n bytes from the system CSPRNG.
func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// zeroBytes overwrites a byte slice with zeros for secure memory cleanup.
func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
