package backup

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenneth/homevault/internal/crypto"
	"github.com/kenneth/homevault/internal/entity"
	"github.com/kenneth/homevault/internal/store"
)

func seededStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	st := store.NewMemoryStore()
	ctx := context.Background()

	prop, err := st.Properties().Create(ctx, entity.Property{Name: "Lakehouse", Address: "1 Shore Rd"})
	require.NoError(t, err)
	room, err := st.Rooms().Create(ctx, entity.Room{PropertyID: prop.ID, Name: "Kitchen"})
	require.NoError(t, err)
	_, err = st.Assets().Create(ctx, entity.Asset{PropertyID: prop.ID, RoomID: room.ID, Name: "Dishwasher"})
	require.NoError(t, err)
	_, err = st.Workers().Create(ctx, entity.Worker{Name: "Dana Smith", Phone: "555-0101"})
	require.NoError(t, err)
	return st
}

func TestExportPlainRoundTrip(t *testing.T) {
	st := seededStore(t)

	raw, err := Export(context.Background(), st, ExportOptions{AppVersion: "1.4.0"})
	require.NoError(t, err)
	assert.False(t, SniffEncrypted(raw))

	// A plain export is ordinary JSON a third party could read.
	var probe map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &probe))
	assert.Contains(t, probe, "manifest")
	assert.Contains(t, probe, "data")

	file, err := Decode(raw, "")
	require.NoError(t, err)
	assert.Equal(t, "1.4.0", file.Manifest.AppVersion)
	assert.Equal(t, SchemaVersion, file.Manifest.SchemaVersion)
	assert.False(t, file.Manifest.CreatedAt.IsZero())
	assert.Equal(t, 1, file.Manifest.Stats[entity.KindProperty])
	assert.Equal(t, 1, file.Manifest.Stats[entity.KindWorker])
	assert.Len(t, file.Data.Assets, 1)
	assert.Equal(t, "Dishwasher", file.Data.Assets[0].Name)
}

func TestExportEncryptedRoundTrip(t *testing.T) {
	st := seededStore(t)

	raw, err := Export(context.Background(), st, ExportOptions{
		AppVersion: "1.4.0",
		Passphrase: "orange-battery",
	})
	require.NoError(t, err)
	assert.True(t, SniffEncrypted(raw))
	assert.True(t, strings.HasPrefix(raw, "HVAULT2:"))
	assert.NotContains(t, raw, "Dishwasher", "plaintext must not leak into the envelope")

	file, err := Decode(raw, "orange-battery")
	require.NoError(t, err)
	assert.Len(t, file.Data.Rooms, 1)
	assert.Equal(t, "Kitchen", file.Data.Rooms[0].Name)
}

func TestExportAEADVersion(t *testing.T) {
	st := seededStore(t)

	raw, err := Export(context.Background(), st, ExportOptions{
		Passphrase:    "orange-battery",
		CipherVersion: crypto.VersionAEAD,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, "HVAULT3:"))

	file, err := Decode(raw, "orange-battery")
	require.NoError(t, err)
	assert.Len(t, file.Data.Properties, 1)
}

func TestDecodePassphraseRequired(t *testing.T) {
	st := seededStore(t)
	raw, err := Export(context.Background(), st, ExportOptions{Passphrase: "orange-battery"})
	require.NoError(t, err)

	_, err = Decode(raw, "")
	assert.ErrorIs(t, err, ErrPassphraseRequired)
}

func TestDecodeWrongPassphrase(t *testing.T) {
	st := seededStore(t)
	raw, err := Export(context.Background(), st, ExportOptions{Passphrase: "orange-battery"})
	require.NoError(t, err)

	_, err = Decode(raw, "wrong")
	assert.ErrorIs(t, err, crypto.ErrIntegrity)
}

func TestDecodeInvalidJSON(t *testing.T) {
	for _, raw := range []string{"", "not json", "{\"manifest\":", "[1,2,3"} {
		_, err := Decode(raw, "")
		assert.ErrorIs(t, err, ErrParse, "input %q", raw)
	}
}

func TestDecodeSchemaTooNew(t *testing.T) {
	payload, err := json.Marshal(File{
		Manifest: Manifest{SchemaVersion: SchemaVersion + 1},
	})
	require.NoError(t, err)

	_, err = Decode(string(payload), "")
	assert.ErrorIs(t, err, ErrSchemaTooNew)

	// The guard applies after decryption too.
	envelope, err := crypto.EncryptPayload(string(payload), "orange-battery")
	require.NoError(t, err)
	_, err = Decode(envelope, "orange-battery")
	assert.ErrorIs(t, err, ErrSchemaTooNew)
}

func TestDecodeOlderSchemaAccepted(t *testing.T) {
	payload, err := json.Marshal(File{
		Manifest: Manifest{SchemaVersion: 1},
	})
	require.NoError(t, err)

	file, err := Decode(string(payload), "")
	require.NoError(t, err)
	assert.Equal(t, 1, file.Manifest.SchemaVersion)
}

type recordingObserver struct {
	operations []string
}

func (o *recordingObserver) ObserveCryptoOperation(operation string, duration time.Duration) {
	o.operations = append(o.operations, operation)
}

func TestCryptoOperationsObserved(t *testing.T) {
	st := seededStore(t)
	obs := &recordingObserver{}

	raw, err := Export(context.Background(), st, ExportOptions{
		Passphrase: "orange-battery",
		Observer:   obs,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"seal"}, obs.operations)

	_, err = DecodeObserved(raw, "orange-battery", obs)
	require.NoError(t, err)
	assert.Equal(t, []string{"seal", "open"}, obs.operations)

	// Plain exports never touch the cipher, so nothing is observed.
	obs.operations = nil
	plain, err := Export(context.Background(), st, ExportOptions{Observer: obs})
	require.NoError(t, err)
	_, err = DecodeObserved(plain, "", obs)
	require.NoError(t, err)
	assert.Empty(t, obs.operations)

	// A failed open is not counted as a completed operation.
	obs.operations = nil
	_, err = DecodeObserved(raw, "wrong", obs)
	require.Error(t, err)
	assert.Empty(t, obs.operations)
}

func TestExtensionConventions(t *testing.T) {
	assert.Equal(t, ".hvbackup.json", Extension(false))
	assert.Equal(t, ".hvbackup", Extension(true))
	assert.True(t, strings.HasSuffix(PlainExtension, ".json"))
	assert.Equal(t, "application/json", MIMEType(false))
	assert.Equal(t, "application/octet-stream", MIMEType(true))
}

func TestManifestStatsMatchDataset(t *testing.T) {
	ds := Dataset{
		Properties: make([]entity.Property, 2),
		Notes:      make([]entity.Note, 3),
	}
	counts := ds.Counts()
	assert.Equal(t, 2, counts[entity.KindProperty])
	assert.Equal(t, 3, counts[entity.KindNote])
	assert.Equal(t, 0, counts[entity.KindRoom])
	assert.Len(t, counts, len(entity.ImportOrder))
	assert.Equal(t, 5, ds.TotalRecords())
}
