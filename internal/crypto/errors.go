package crypto

import "errors"

var (
	// ErrFormat indicates a malformed envelope: wrong field count, an
	// unknown version marker, or undecodable fields.
	ErrFormat = errors.New("malformed backup envelope")

	// ErrIntegrity indicates the integrity tag did not match. A wrong
	// passphrase and a corrupted file are indistinguishable here.
	ErrIntegrity = errors.New("wrong passphrase or corrupted backup")

	// ErrEmptyPassphrase is returned when encryption is requested without
	// a passphrase.
	ErrEmptyPassphrase = errors.New("passphrase cannot be empty")
)
