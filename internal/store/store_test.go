package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenneth/homevault/internal/entity"
)

func TestMemoryStoreCreateAssignsID(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	created, err := st.Properties().Create(ctx, entity.Property{Name: "Lakehouse"})
	require.NoError(t, err)
	assert.False(t, created.ID.IsZero())

	all, err := st.Properties().GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, created.ID, all[0].ID)
}

func TestMemoryStoreCreateKeepsGivenID(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	created, err := st.Rooms().Create(ctx, entity.Room{ID: "fixed-id", Name: "Kitchen"})
	require.NoError(t, err)
	assert.Equal(t, entity.ID("fixed-id"), created.ID)
}

func TestMemoryStoreGetAllReturnsCopy(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	_, err := st.Workers().Create(ctx, entity.Worker{Name: "Dana Smith"})
	require.NoError(t, err)

	first, err := st.Workers().GetAll(ctx)
	require.NoError(t, err)
	first[0].Name = "mutated"

	second, err := st.Workers().GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Dana Smith", second[0].Name)
}

func TestMemoryStoreContextCancelled(t *testing.T) {
	st := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := st.Notes().GetAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = st.Notes().Create(ctx, entity.Note{Body: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBoltStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "homevault.db")
	ctx := context.Background()

	st, err := OpenBolt(path)
	require.NoError(t, err)

	prop, err := st.Properties().Create(ctx, entity.Property{Name: "Lakehouse", Address: "1 Shore Rd"})
	require.NoError(t, err)
	assert.False(t, prop.ID.IsZero())
	_, err = st.Rooms().Create(ctx, entity.Room{PropertyID: prop.ID, Name: "Kitchen"})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	// Records survive reopening, identifiers intact.
	st, err = OpenBolt(path)
	require.NoError(t, err)
	defer st.Close()

	props, err := st.Properties().GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, prop.ID, props[0].ID)
	assert.Equal(t, "1 Shore Rd", props[0].Address)

	rooms, err := st.Rooms().GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, prop.ID, rooms[0].PropertyID)
}

func TestBoltStoreEmptyCollections(t *testing.T) {
	st, err := OpenBolt(filepath.Join(t.TempDir(), "homevault.db"))
	require.NoError(t, err)
	defer st.Close()

	notes, err := st.Notes().GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestSnapshotPreservesIDs(t *testing.T) {
	ctx := context.Background()
	src := NewMemoryStore()

	prop, err := src.Properties().Create(ctx, entity.Property{Name: "Lakehouse"})
	require.NoError(t, err)
	worker, err := src.Workers().Create(ctx, entity.Worker{Name: "Dana Smith"})
	require.NoError(t, err)

	snap, err := Snapshot(ctx, src)
	require.NoError(t, err)

	props, err := snap.Properties().GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, prop.ID, props[0].ID)

	workers, err := snap.Workers().GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, workers, 1)
	assert.Equal(t, worker.ID, workers[0].ID)

	// Writes to the snapshot never reach the source.
	_, err = snap.Properties().Create(ctx, entity.Property{Name: "Cabin"})
	require.NoError(t, err)
	srcProps, err := src.Properties().GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, srcProps, 1)
}
