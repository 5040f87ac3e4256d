// Package store defines the repository contract the backup core uses to
// touch persistent storage, plus two implementations: an in-memory store
// for tests and dry-run previews, and a bbolt-backed store for the device
// database.
package store

import (
	"context"
	"errors"

	"github.com/kenneth/homevault/internal/entity"
)

// ErrClosed is returned by repositories whose backing store has been
// closed.
var ErrClosed = errors.New("store is closed")

// Repository is the per-kind contract consumed by the exporter and the
// importer. Create persists the record and returns the stored copy with its
// assigned identifier; callers that must not carry an identifier over (the
// importer, for records originating in a foreign dataset) clear it before
// calling.
type Repository[E any] interface {
	GetAll(ctx context.Context) ([]E, error)
	Create(ctx context.Context, rec E) (E, error)
}

// Store bundles one repository per entity kind.
type Store interface {
	Properties() Repository[entity.Property]
	Rooms() Repository[entity.Room]
	Assets() Repository[entity.Asset]
	Expenses() Repository[entity.Expense]
	Workers() Repository[entity.Worker]
	MaintenanceTasks() Repository[entity.MaintenanceTask]
	PaintCodes() Repository[entity.PaintCode]
	Measurements() Repository[entity.Measurement]
	StorageBoxes() Repository[entity.StorageBox]
	WifiNetworks() Repository[entity.WifiNetwork]
	Documents() Repository[entity.Document]
	Renovations() Repository[entity.Renovation]
	EmergencyShutoffs() Repository[entity.EmergencyShutoff]
	RecurringTemplates() Repository[entity.RecurringTemplate]
	Notes() Repository[entity.Note]
}

// Snapshot copies every record of src into a fresh in-memory store,
// preserving identifiers. Used to build dry-run previews that can be
// written to freely without touching the real database.
func Snapshot(ctx context.Context, src Store) (*MemoryStore, error) {
	dst := NewMemoryStore()
	if err := copyAll(ctx, src.Workers(), dst.Workers()); err != nil {
		return nil, err
	}
	if err := copyAll(ctx, src.Properties(), dst.Properties()); err != nil {
		return nil, err
	}
	if err := copyAll(ctx, src.Rooms(), dst.Rooms()); err != nil {
		return nil, err
	}
	if err := copyAll(ctx, src.Assets(), dst.Assets()); err != nil {
		return nil, err
	}
	if err := copyAll(ctx, src.Expenses(), dst.Expenses()); err != nil {
		return nil, err
	}
	if err := copyAll(ctx, src.MaintenanceTasks(), dst.MaintenanceTasks()); err != nil {
		return nil, err
	}
	if err := copyAll(ctx, src.PaintCodes(), dst.PaintCodes()); err != nil {
		return nil, err
	}
	if err := copyAll(ctx, src.Measurements(), dst.Measurements()); err != nil {
		return nil, err
	}
	if err := copyAll(ctx, src.StorageBoxes(), dst.StorageBoxes()); err != nil {
		return nil, err
	}
	if err := copyAll(ctx, src.WifiNetworks(), dst.WifiNetworks()); err != nil {
		return nil, err
	}
	if err := copyAll(ctx, src.Documents(), dst.Documents()); err != nil {
		return nil, err
	}
	if err := copyAll(ctx, src.Renovations(), dst.Renovations()); err != nil {
		return nil, err
	}
	if err := copyAll(ctx, src.EmergencyShutoffs(), dst.EmergencyShutoffs()); err != nil {
		return nil, err
	}
	if err := copyAll(ctx, src.RecurringTemplates(), dst.RecurringTemplates()); err != nil {
		return nil, err
	}
	if err := copyAll(ctx, src.Notes(), dst.Notes()); err != nil {
		return nil, err
	}
	return dst, nil
}

func copyAll[E any](ctx context.Context, src, dst Repository[E]) error {
	recs, err := src.GetAll(ctx)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if _, err := dst.Create(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}
