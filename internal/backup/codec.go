package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kenneth/homevault/internal/crypto"
	"github.com/kenneth/homevault/internal/store"
)

var (
	// ErrParse indicates the (decrypted) payload is not a valid backup
	// document.
	ErrParse = errors.New("invalid backup document")

	// ErrPassphraseRequired indicates the file is encrypted and no
	// passphrase was supplied. Callers should re-prompt; this is not a
	// hard failure.
	ErrPassphraseRequired = errors.New("backup is encrypted, passphrase required")

	// ErrSchemaTooNew indicates the backup was written by a newer
	// release. Nothing is imported from an unknown future schema.
	ErrSchemaTooNew = errors.New("backup schema is newer than this version supports")
)

// CryptoObserver receives the duration of envelope seal and open
// operations. Satisfied by the metrics package.
type CryptoObserver interface {
	ObserveCryptoOperation(operation string, duration time.Duration)
}

// ExportOptions controls one export.
type ExportOptions struct {
	AppVersion string
	// Passphrase enables encryption when non-empty.
	Passphrase string
	// CipherVersion selects the envelope format for encrypted exports.
	// Zero means the current default.
	CipherVersion crypto.Version
	// Observer, when non-nil, is told how long the envelope seal took.
	Observer CryptoObserver
}

// Export reads every repository, wraps the dataset in a manifest and
// returns the serialized backup: plain JSON, or an envelope string when a
// passphrase is given.
func Export(ctx context.Context, st store.Store, opts ExportOptions) (string, error) {
	dataset, err := ReadDataset(ctx, st)
	if err != nil {
		return "", fmt.Errorf("failed to collect dataset: %w", err)
	}

	file := File{
		Manifest: Manifest{
			AppVersion:    opts.AppVersion,
			SchemaVersion: SchemaVersion,
			CreatedAt:     time.Now().UTC(),
			Stats:         dataset.Counts(),
		},
		Data: *dataset,
	}

	payload, err := json.Marshal(file)
	if err != nil {
		return "", fmt.Errorf("failed to serialize backup: %w", err)
	}

	if opts.Passphrase == "" {
		return string(payload), nil
	}

	version := opts.CipherVersion
	if version == 0 {
		version = crypto.VersionCurrent
	}
	sealStart := time.Now()
	envelope, err := crypto.EncryptPayloadVersion(string(payload), opts.Passphrase, version)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt backup: %w", err)
	}
	if opts.Observer != nil {
		opts.Observer.ObserveCryptoOperation("seal", time.Since(sealStart))
	}
	return envelope, nil
}

// SniffEncrypted reports whether raw is an encrypted envelope rather than
// plain JSON.
func SniffEncrypted(raw string) bool {
	return crypto.IsEncrypted(raw)
}

// Extension returns the file extension convention for an export.
func Extension(encrypted bool) string {
	if encrypted {
		return EncryptedExtension
	}
	return PlainExtension
}

// MIMEType returns the content type convention for an export.
func MIMEType(encrypted bool) string {
	if encrypted {
		return EncryptedMIMEType
	}
	return PlainMIMEType
}

// Decode turns raw backup content into a File. It decrypts when needed,
// validates the JSON and enforces the schema-version guard. No local state
// is touched: every failure here happens before any import begins.
func Decode(raw, passphrase string) (*File, error) {
	return DecodeObserved(raw, passphrase, nil)
}

// DecodeObserved is Decode with an optional observer for the envelope open
// duration.
func DecodeObserved(raw, passphrase string, obs CryptoObserver) (*File, error) {
	if SniffEncrypted(raw) {
		if passphrase == "" {
			return nil, ErrPassphraseRequired
		}
		openStart := time.Now()
		plaintext, err := crypto.DecryptPayload(raw, passphrase)
		if err != nil {
			return nil, err
		}
		if obs != nil {
			obs.ObserveCryptoOperation("open", time.Since(openStart))
		}
		raw = plaintext
	}

	var file File
	if err := json.Unmarshal([]byte(raw), &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if file.Manifest.SchemaVersion > SchemaVersion {
		return nil, fmt.Errorf("%w: file has schema %d, supported up to %d",
			ErrSchemaTooNew, file.Manifest.SchemaVersion, SchemaVersion)
	}
	return &file, nil
}

// ReadDataset collects every record from the store into a Dataset.
func ReadDataset(ctx context.Context, st store.Store) (*Dataset, error) {
	var (
		dataset Dataset
		err     error
	)
	if dataset.Properties, err = st.Properties().GetAll(ctx); err != nil {
		return nil, err
	}
	if dataset.Rooms, err = st.Rooms().GetAll(ctx); err != nil {
		return nil, err
	}
	if dataset.Assets, err = st.Assets().GetAll(ctx); err != nil {
		return nil, err
	}
	if dataset.Expenses, err = st.Expenses().GetAll(ctx); err != nil {
		return nil, err
	}
	if dataset.Workers, err = st.Workers().GetAll(ctx); err != nil {
		return nil, err
	}
	if dataset.MaintenanceTasks, err = st.MaintenanceTasks().GetAll(ctx); err != nil {
		return nil, err
	}
	if dataset.PaintCodes, err = st.PaintCodes().GetAll(ctx); err != nil {
		return nil, err
	}
	if dataset.Measurements, err = st.Measurements().GetAll(ctx); err != nil {
		return nil, err
	}
	if dataset.StorageBoxes, err = st.StorageBoxes().GetAll(ctx); err != nil {
		return nil, err
	}
	if dataset.WifiNetworks, err = st.WifiNetworks().GetAll(ctx); err != nil {
		return nil, err
	}
	if dataset.Documents, err = st.Documents().GetAll(ctx); err != nil {
		return nil, err
	}
	if dataset.Renovations, err = st.Renovations().GetAll(ctx); err != nil {
		return nil, err
	}
	if dataset.EmergencyShutoffs, err = st.EmergencyShutoffs().GetAll(ctx); err != nil {
		return nil, err
	}
	if dataset.RecurringTemplates, err = st.RecurringTemplates().GetAll(ctx); err != nil {
		return nil, err
	}
	if dataset.Notes, err = st.Notes().GetAll(ctx); err != nil {
		return nil, err
	}
	return &dataset, nil
}
