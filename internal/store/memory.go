package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/kenneth/homevault/internal/entity"
)

// MemoryStore keeps every collection in process memory. Insertion order is
// preserved so GetAll is stable across calls.
type MemoryStore struct {
	properties         *memCollection[entity.Property]
	rooms              *memCollection[entity.Room]
	assets             *memCollection[entity.Asset]
	expenses           *memCollection[entity.Expense]
	workers            *memCollection[entity.Worker]
	maintenanceTasks   *memCollection[entity.MaintenanceTask]
	paintCodes         *memCollection[entity.PaintCode]
	measurements       *memCollection[entity.Measurement]
	storageBoxes       *memCollection[entity.StorageBox]
	wifiNetworks       *memCollection[entity.WifiNetwork]
	documents          *memCollection[entity.Document]
	renovations        *memCollection[entity.Renovation]
	emergencyShutoffs  *memCollection[entity.EmergencyShutoff]
	recurringTemplates *memCollection[entity.RecurringTemplate]
	notes              *memCollection[entity.Note]
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		properties: newMemCollection(func(r entity.Property) entity.ID { return r.ID },
			func(r entity.Property, id entity.ID) entity.Property { r.ID = id; return r }),
		rooms: newMemCollection(func(r entity.Room) entity.ID { return r.ID },
			func(r entity.Room, id entity.ID) entity.Room { r.ID = id; return r }),
		assets: newMemCollection(func(r entity.Asset) entity.ID { return r.ID },
			func(r entity.Asset, id entity.ID) entity.Asset { r.ID = id; return r }),
		expenses: newMemCollection(func(r entity.Expense) entity.ID { return r.ID },
			func(r entity.Expense, id entity.ID) entity.Expense { r.ID = id; return r }),
		workers: newMemCollection(func(r entity.Worker) entity.ID { return r.ID },
			func(r entity.Worker, id entity.ID) entity.Worker { r.ID = id; return r }),
		maintenanceTasks: newMemCollection(func(r entity.MaintenanceTask) entity.ID { return r.ID },
			func(r entity.MaintenanceTask, id entity.ID) entity.MaintenanceTask { r.ID = id; return r }),
		paintCodes: newMemCollection(func(r entity.PaintCode) entity.ID { return r.ID },
			func(r entity.PaintCode, id entity.ID) entity.PaintCode { r.ID = id; return r }),
		measurements: newMemCollection(func(r entity.Measurement) entity.ID { return r.ID },
			func(r entity.Measurement, id entity.ID) entity.Measurement { r.ID = id; return r }),
		storageBoxes: newMemCollection(func(r entity.StorageBox) entity.ID { return r.ID },
			func(r entity.StorageBox, id entity.ID) entity.StorageBox { r.ID = id; return r }),
		wifiNetworks: newMemCollection(func(r entity.WifiNetwork) entity.ID { return r.ID },
			func(r entity.WifiNetwork, id entity.ID) entity.WifiNetwork { r.ID = id; return r }),
		documents: newMemCollection(func(r entity.Document) entity.ID { return r.ID },
			func(r entity.Document, id entity.ID) entity.Document { r.ID = id; return r }),
		renovations: newMemCollection(func(r entity.Renovation) entity.ID { return r.ID },
			func(r entity.Renovation, id entity.ID) entity.Renovation { r.ID = id; return r }),
		emergencyShutoffs: newMemCollection(func(r entity.EmergencyShutoff) entity.ID { return r.ID },
			func(r entity.EmergencyShutoff, id entity.ID) entity.EmergencyShutoff { r.ID = id; return r }),
		recurringTemplates: newMemCollection(func(r entity.RecurringTemplate) entity.ID { return r.ID },
			func(r entity.RecurringTemplate, id entity.ID) entity.RecurringTemplate { r.ID = id; return r }),
		notes: newMemCollection(func(r entity.Note) entity.ID { return r.ID },
			func(r entity.Note, id entity.ID) entity.Note { r.ID = id; return r }),
	}
}

func (s *MemoryStore) Properties() Repository[entity.Property]    { return s.properties }
func (s *MemoryStore) Rooms() Repository[entity.Room]             { return s.rooms }
func (s *MemoryStore) Assets() Repository[entity.Asset]           { return s.assets }
func (s *MemoryStore) Expenses() Repository[entity.Expense]       { return s.expenses }
func (s *MemoryStore) Workers() Repository[entity.Worker]         { return s.workers }
func (s *MemoryStore) MaintenanceTasks() Repository[entity.MaintenanceTask] {
	return s.maintenanceTasks
}
func (s *MemoryStore) PaintCodes() Repository[entity.PaintCode]     { return s.paintCodes }
func (s *MemoryStore) Measurements() Repository[entity.Measurement] { return s.measurements }
func (s *MemoryStore) StorageBoxes() Repository[entity.StorageBox]  { return s.storageBoxes }
func (s *MemoryStore) WifiNetworks() Repository[entity.WifiNetwork] { return s.wifiNetworks }
func (s *MemoryStore) Documents() Repository[entity.Document]       { return s.documents }
func (s *MemoryStore) Renovations() Repository[entity.Renovation]   { return s.renovations }
func (s *MemoryStore) EmergencyShutoffs() Repository[entity.EmergencyShutoff] {
	return s.emergencyShutoffs
}
func (s *MemoryStore) RecurringTemplates() Repository[entity.RecurringTemplate] {
	return s.recurringTemplates
}
func (s *MemoryStore) Notes() Repository[entity.Note] { return s.notes }

type memCollection[E any] struct {
	mu    sync.RWMutex
	recs  []E
	getID func(E) entity.ID
	setID func(E, entity.ID) E
}

func newMemCollection[E any](getID func(E) entity.ID, setID func(E, entity.ID) E) *memCollection[E] {
	return &memCollection[E]{getID: getID, setID: setID}
}

func (c *memCollection[E]) GetAll(ctx context.Context) ([]E, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]E, len(c.recs))
	copy(out, c.recs)
	return out, nil
}

// Create stores rec and returns the stored copy. A record arriving without
// an identifier gets a fresh one; a caller-provided identifier (snapshot
// seeding, database reload) is kept.
func (c *memCollection[E]) Create(ctx context.Context, rec E) (E, error) {
	var zero E
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if c.getID(rec).IsZero() {
		rec = c.setID(rec, entity.ID(uuid.NewString()))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recs = append(c.recs, rec)
	return rec, nil
}
