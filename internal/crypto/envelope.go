package crypto

import (
	"fmt"
	"strings"
)

// Envelope version markers. An encrypted backup is a single line of
// colon-delimited fields whose first field is one of these markers:
//
//	HVAULT1:<salt>:<ciphertext b64>                      legacy, read-only
//	HVAULT2:<salt b64>:<iv b64>:<ciphertext b64>:<tag>   current default
//	HVAULT3:<salt b64>:<nonce b64>:<ciphertext b64>      AEAD, opt-in
//
// Unencrypted backups carry no marker at all.
const (
	markerV1 = "HVAULT1"
	markerV2 = "HVAULT2"
	markerV3 = "HVAULT3"

	fieldSep = ":"
)

// Version selects the envelope format written by EncryptPayloadVersion.
type Version int

const (
	// VersionLegacy is the V1 format: weaker derivation, no integrity
	// tag. Supported for reading only.
	VersionLegacy Version = 1
	// VersionCurrent is the V2 format and the default for new exports.
	VersionCurrent Version = 2
	// VersionAEAD is the V3 format: PBKDF2 plus AES-256-GCM. Opt-in, so
	// backups stay readable by older releases until the user chooses
	// otherwise.
	VersionAEAD Version = 3
)

// ParseVersion maps a config string to a writable envelope version.
func ParseVersion(s string) (Version, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "v2", "2", "current":
		return VersionCurrent, nil
	case "v3", "3", "aead":
		return VersionAEAD, nil
	case "v1", "1", "legacy":
		return 0, fmt.Errorf("legacy envelope version is read-only")
	default:
		return 0, fmt.Errorf("unknown envelope version %q", s)
	}
}

// IsEncrypted reports whether raw begins with a known envelope marker.
// Plain JSON exports never start with a marker.
func IsEncrypted(raw string) bool {
	for _, marker := range []string{markerV1, markerV2, markerV3} {
		if strings.HasPrefix(raw, marker+fieldSep) {
			return true
		}
	}
	return false
}

// splitEnvelope validates the marker and field count and returns the fields
// after the marker.
func splitEnvelope(envelope, marker string, fieldCount int) ([]string, error) {
	fields := strings.Split(envelope, fieldSep)
	if fields[0] != marker {
		return nil, fmt.Errorf("%w: expected marker %s", ErrFormat, marker)
	}
	if len(fields) != fieldCount {
		return nil, fmt.Errorf("%w: expected %d fields, got %d", ErrFormat, fieldCount, len(fields))
	}
	return fields[1:], nil
}
