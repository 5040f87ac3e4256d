package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/kenneth/homevault/internal/entity"
)

// BoltStore persists every collection in a single bbolt database file, one
// bucket per entity kind keyed by record identifier.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBolt opens (or creates) the database at path and ensures all buckets
// exist.
func OpenBolt(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open store database: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, kind := range entity.ImportOrder {
			if _, err := tx.CreateBucketIfNotExists([]byte(kind)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", kind, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

// Close releases the underlying database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Properties() Repository[entity.Property] {
	return boltCollection[entity.Property]{db: s.db, kind: entity.KindProperty,
		getID: func(r entity.Property) entity.ID { return r.ID },
		setID: func(r entity.Property, id entity.ID) entity.Property { r.ID = id; return r }}
}

func (s *BoltStore) Rooms() Repository[entity.Room] {
	return boltCollection[entity.Room]{db: s.db, kind: entity.KindRoom,
		getID: func(r entity.Room) entity.ID { return r.ID },
		setID: func(r entity.Room, id entity.ID) entity.Room { r.ID = id; return r }}
}

func (s *BoltStore) Assets() Repository[entity.Asset] {
	return boltCollection[entity.Asset]{db: s.db, kind: entity.KindAsset,
		getID: func(r entity.Asset) entity.ID { return r.ID },
		setID: func(r entity.Asset, id entity.ID) entity.Asset { r.ID = id; return r }}
}

func (s *BoltStore) Expenses() Repository[entity.Expense] {
	return boltCollection[entity.Expense]{db: s.db, kind: entity.KindExpense,
		getID: func(r entity.Expense) entity.ID { return r.ID },
		setID: func(r entity.Expense, id entity.ID) entity.Expense { r.ID = id; return r }}
}

func (s *BoltStore) Workers() Repository[entity.Worker] {
	return boltCollection[entity.Worker]{db: s.db, kind: entity.KindWorker,
		getID: func(r entity.Worker) entity.ID { return r.ID },
		setID: func(r entity.Worker, id entity.ID) entity.Worker { r.ID = id; return r }}
}

func (s *BoltStore) MaintenanceTasks() Repository[entity.MaintenanceTask] {
	return boltCollection[entity.MaintenanceTask]{db: s.db, kind: entity.KindMaintenanceTask,
		getID: func(r entity.MaintenanceTask) entity.ID { return r.ID },
		setID: func(r entity.MaintenanceTask, id entity.ID) entity.MaintenanceTask { r.ID = id; return r }}
}

func (s *BoltStore) PaintCodes() Repository[entity.PaintCode] {
	return boltCollection[entity.PaintCode]{db: s.db, kind: entity.KindPaintCode,
		getID: func(r entity.PaintCode) entity.ID { return r.ID },
		setID: func(r entity.PaintCode, id entity.ID) entity.PaintCode { r.ID = id; return r }}
}

func (s *BoltStore) Measurements() Repository[entity.Measurement] {
	return boltCollection[entity.Measurement]{db: s.db, kind: entity.KindMeasurement,
		getID: func(r entity.Measurement) entity.ID { return r.ID },
		setID: func(r entity.Measurement, id entity.ID) entity.Measurement { r.ID = id; return r }}
}

func (s *BoltStore) StorageBoxes() Repository[entity.StorageBox] {
	return boltCollection[entity.StorageBox]{db: s.db, kind: entity.KindStorageBox,
		getID: func(r entity.StorageBox) entity.ID { return r.ID },
		setID: func(r entity.StorageBox, id entity.ID) entity.StorageBox { r.ID = id; return r }}
}

func (s *BoltStore) WifiNetworks() Repository[entity.WifiNetwork] {
	return boltCollection[entity.WifiNetwork]{db: s.db, kind: entity.KindWifiNetwork,
		getID: func(r entity.WifiNetwork) entity.ID { return r.ID },
		setID: func(r entity.WifiNetwork, id entity.ID) entity.WifiNetwork { r.ID = id; return r }}
}

func (s *BoltStore) Documents() Repository[entity.Document] {
	return boltCollection[entity.Document]{db: s.db, kind: entity.KindDocument,
		getID: func(r entity.Document) entity.ID { return r.ID },
		setID: func(r entity.Document, id entity.ID) entity.Document { r.ID = id; return r }}
}

func (s *BoltStore) Renovations() Repository[entity.Renovation] {
	return boltCollection[entity.Renovation]{db: s.db, kind: entity.KindRenovation,
		getID: func(r entity.Renovation) entity.ID { return r.ID },
		setID: func(r entity.Renovation, id entity.ID) entity.Renovation { r.ID = id; return r }}
}

func (s *BoltStore) EmergencyShutoffs() Repository[entity.EmergencyShutoff] {
	return boltCollection[entity.EmergencyShutoff]{db: s.db, kind: entity.KindEmergencyShutoff,
		getID: func(r entity.EmergencyShutoff) entity.ID { return r.ID },
		setID: func(r entity.EmergencyShutoff, id entity.ID) entity.EmergencyShutoff { r.ID = id; return r }}
}

func (s *BoltStore) RecurringTemplates() Repository[entity.RecurringTemplate] {
	return boltCollection[entity.RecurringTemplate]{db: s.db, kind: entity.KindRecurringTemplate,
		getID: func(r entity.RecurringTemplate) entity.ID { return r.ID },
		setID: func(r entity.RecurringTemplate, id entity.ID) entity.RecurringTemplate { r.ID = id; return r }}
}

func (s *BoltStore) Notes() Repository[entity.Note] {
	return boltCollection[entity.Note]{db: s.db, kind: entity.KindNote,
		getID: func(r entity.Note) entity.ID { return r.ID },
		setID: func(r entity.Note, id entity.ID) entity.Note { r.ID = id; return r }}
}

type boltCollection[E any] struct {
	db    *bbolt.DB
	kind  entity.Kind
	getID func(E) entity.ID
	setID func(E, entity.ID) E
}

func (c boltCollection[E]) GetAll(ctx context.Context) ([]E, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []E
	err := c.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(c.kind))
		if bucket == nil {
			return fmt.Errorf("missing bucket %s", c.kind)
		}
		return bucket.ForEach(func(_, v []byte) error {
			var rec E
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("corrupt %s record: %w", c.kind, err)
			}
			out = append(out, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c boltCollection[E]) Create(ctx context.Context, rec E) (E, error) {
	var zero E
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if c.getID(rec).IsZero() {
		rec = c.setID(rec, entity.ID(uuid.NewString()))
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return zero, fmt.Errorf("failed to encode %s record: %w", c.kind, err)
	}
	err = c.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(c.kind))
		if bucket == nil {
			return fmt.Errorf("missing bucket %s", c.kind)
		}
		return bucket.Put([]byte(c.getID(rec)), data)
	})
	if err != nil {
		return zero, err
	}
	return rec, nil
}
