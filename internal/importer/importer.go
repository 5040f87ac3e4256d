// Package importer merges a decoded backup dataset into the local store.
// Entity kinds are processed in dependency order so that every reference a
// record carries can be translated from the foreign identifier space to the
// local one before the record is persisted. Individual record failures are
// collected, not raised: a partially imported backup is preferred over a
// rollback once merging has begun.
package importer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kenneth/homevault/internal/backup"
	"github.com/kenneth/homevault/internal/entity"
	"github.com/kenneth/homevault/internal/metrics"
	"github.com/kenneth/homevault/internal/store"
)

// RecordError describes one record that could not be imported.
type RecordError struct {
	Kind      entity.Kind `json:"kind"`
	ForeignID string      `json:"foreignId,omitempty"`
	Message   string      `json:"message"`
}

func (e RecordError) String() string {
	if e.ForeignID == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s %s: %s", e.Kind, e.ForeignID, e.Message)
}

// Result reports what one import did.
type Result struct {
	// Created counts records persisted per kind.
	Created map[entity.Kind]int `json:"created"`
	// Skipped counts records suppressed as duplicates of existing local
	// records.
	Skipped map[entity.Kind]int `json:"skipped,omitempty"`
	// Errors lists records that failed to persist. The import continued
	// past each of them.
	Errors []RecordError `json:"errors,omitempty"`
	// Remapped is the number of foreign-to-local identifier translations
	// recorded while importing.
	Remapped int `json:"remapped"`
}

// TotalCreated sums created records across kinds.
func (r *Result) TotalCreated() int {
	total := 0
	for _, n := range r.Created {
		total += n
	}
	return total
}

// Importer persists foreign datasets. One Importer may be reused, but
// imports are sequential, never concurrent: the remap table built for one
// call is meaningless for another.
type Importer struct {
	store   store.Store
	logger  *logrus.Logger
	metrics *metrics.Metrics
}

// New creates an Importer writing through st.
func New(st store.Store, logger *logrus.Logger) *Importer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Importer{store: st, logger: logger}
}

// WithMetrics attaches a metrics sink and returns the importer.
func (im *Importer) WithMetrics(m *metrics.Metrics) *Importer {
	im.metrics = m
	return im
}

// Import decodes raw backup content (decrypting if needed) and merges it
// into the store. Decode failures abort before any write; once merging
// starts the call always runs to completion.
func (im *Importer) Import(ctx context.Context, raw, passphrase string) (*backup.File, *Result, error) {
	var obs backup.CryptoObserver
	if im.metrics != nil {
		obs = im.metrics
	}
	file, err := backup.DecodeObserved(raw, passphrase, obs)
	if err != nil {
		return nil, nil, err
	}
	result := im.ImportDataset(ctx, &file.Data)
	return file, result, nil
}

// ImportDataset merges an already-decoded dataset into the store.
func (im *Importer) ImportDataset(ctx context.Context, ds *backup.Dataset) *Result {
	start := time.Now()
	result := &Result{
		Created: make(map[entity.Kind]int),
		Skipped: make(map[entity.Kind]int),
	}
	rt := newRemapTable()

	im.logger.WithField("records", ds.TotalRecords()).Info("starting backup import")

	// Workers and Properties carry no references and are the only kinds
	// with duplicate suppression. Everything after them resolves
	// references through the remap table, which is why the order below
	// must match entity.ImportOrder.
	importKind(ctx, im, rt, result, entity.KindWorker, ds.Workers, im.store.Workers(),
		func(r entity.Worker) entity.ID { return r.ID },
		workerDupKey,
		func(r entity.Worker, _ *remapTable) entity.Worker {
			r.ID = ""
			return r
		})

	importKind(ctx, im, rt, result, entity.KindProperty, ds.Properties, im.store.Properties(),
		func(r entity.Property) entity.ID { return r.ID },
		propertyDupKey,
		func(r entity.Property, _ *remapTable) entity.Property {
			r.ID = ""
			return r
		})

	importKind(ctx, im, rt, result, entity.KindRoom, ds.Rooms, im.store.Rooms(),
		func(r entity.Room) entity.ID { return r.ID },
		nil,
		func(r entity.Room, rt *remapTable) entity.Room {
			r.ID = ""
			r.PropertyID = rt.resolve(entity.KindProperty, r.PropertyID)
			return r
		})

	importKind(ctx, im, rt, result, entity.KindAsset, ds.Assets, im.store.Assets(),
		func(r entity.Asset) entity.ID { return r.ID },
		nil,
		func(r entity.Asset, rt *remapTable) entity.Asset {
			r.ID = ""
			r.PropertyID = rt.resolve(entity.KindProperty, r.PropertyID)
			r.RoomID = rt.resolve(entity.KindRoom, r.RoomID)
			return r
		})

	importKind(ctx, im, rt, result, entity.KindExpense, ds.Expenses, im.store.Expenses(),
		func(r entity.Expense) entity.ID { return r.ID },
		nil,
		func(r entity.Expense, rt *remapTable) entity.Expense {
			r.ID = ""
			r.PropertyID = rt.resolve(entity.KindProperty, r.PropertyID)
			r.AssetID = rt.resolve(entity.KindAsset, r.AssetID)
			r.WorkerID = rt.resolve(entity.KindWorker, r.WorkerID)
			return r
		})

	importKind(ctx, im, rt, result, entity.KindMaintenanceTask, ds.MaintenanceTasks, im.store.MaintenanceTasks(),
		func(r entity.MaintenanceTask) entity.ID { return r.ID },
		nil,
		func(r entity.MaintenanceTask, rt *remapTable) entity.MaintenanceTask {
			r.ID = ""
			r.PropertyID = rt.resolve(entity.KindProperty, r.PropertyID)
			r.AssetID = rt.resolve(entity.KindAsset, r.AssetID)
			r.WorkerID = rt.resolve(entity.KindWorker, r.WorkerID)
			return r
		})

	importKind(ctx, im, rt, result, entity.KindPaintCode, ds.PaintCodes, im.store.PaintCodes(),
		func(r entity.PaintCode) entity.ID { return r.ID },
		nil,
		func(r entity.PaintCode, rt *remapTable) entity.PaintCode {
			r.ID = ""
			r.PropertyID = rt.resolve(entity.KindProperty, r.PropertyID)
			r.RoomID = rt.resolve(entity.KindRoom, r.RoomID)
			return r
		})

	importKind(ctx, im, rt, result, entity.KindMeasurement, ds.Measurements, im.store.Measurements(),
		func(r entity.Measurement) entity.ID { return r.ID },
		nil,
		func(r entity.Measurement, rt *remapTable) entity.Measurement {
			r.ID = ""
			r.PropertyID = rt.resolve(entity.KindProperty, r.PropertyID)
			r.RoomID = rt.resolve(entity.KindRoom, r.RoomID)
			return r
		})

	importKind(ctx, im, rt, result, entity.KindStorageBox, ds.StorageBoxes, im.store.StorageBoxes(),
		func(r entity.StorageBox) entity.ID { return r.ID },
		nil,
		func(r entity.StorageBox, rt *remapTable) entity.StorageBox {
			r.ID = ""
			r.PropertyID = rt.resolve(entity.KindProperty, r.PropertyID)
			r.RoomID = rt.resolve(entity.KindRoom, r.RoomID)
			return r
		})

	importKind(ctx, im, rt, result, entity.KindWifiNetwork, ds.WifiNetworks, im.store.WifiNetworks(),
		func(r entity.WifiNetwork) entity.ID { return r.ID },
		nil,
		func(r entity.WifiNetwork, rt *remapTable) entity.WifiNetwork {
			r.ID = ""
			r.PropertyID = rt.resolve(entity.KindProperty, r.PropertyID)
			return r
		})

	importKind(ctx, im, rt, result, entity.KindDocument, ds.Documents, im.store.Documents(),
		func(r entity.Document) entity.ID { return r.ID },
		nil,
		func(r entity.Document, rt *remapTable) entity.Document {
			r.ID = ""
			r.PropertyID = rt.resolve(entity.KindProperty, r.PropertyID)
			r.AssetID = rt.resolve(entity.KindAsset, r.AssetID)
			return r
		})

	importKind(ctx, im, rt, result, entity.KindRenovation, ds.Renovations, im.store.Renovations(),
		func(r entity.Renovation) entity.ID { return r.ID },
		nil,
		func(r entity.Renovation, rt *remapTable) entity.Renovation {
			r.ID = ""
			r.PropertyID = rt.resolve(entity.KindProperty, r.PropertyID)
			r.RoomID = rt.resolve(entity.KindRoom, r.RoomID)
			r.WorkerID = rt.resolve(entity.KindWorker, r.WorkerID)
			return r
		})

	importKind(ctx, im, rt, result, entity.KindEmergencyShutoff, ds.EmergencyShutoffs, im.store.EmergencyShutoffs(),
		func(r entity.EmergencyShutoff) entity.ID { return r.ID },
		nil,
		func(r entity.EmergencyShutoff, rt *remapTable) entity.EmergencyShutoff {
			r.ID = ""
			r.PropertyID = rt.resolve(entity.KindProperty, r.PropertyID)
			return r
		})

	importKind(ctx, im, rt, result, entity.KindRecurringTemplate, ds.RecurringTemplates, im.store.RecurringTemplates(),
		func(r entity.RecurringTemplate) entity.ID { return r.ID },
		nil,
		func(r entity.RecurringTemplate, rt *remapTable) entity.RecurringTemplate {
			r.ID = ""
			r.PropertyID = rt.resolve(entity.KindProperty, r.PropertyID)
			r.AssetID = rt.resolve(entity.KindAsset, r.AssetID)
			return r
		})

	importKind(ctx, im, rt, result, entity.KindNote, ds.Notes, im.store.Notes(),
		func(r entity.Note) entity.ID { return r.ID },
		nil,
		func(r entity.Note, rt *remapTable) entity.Note {
			r.ID = ""
			r.PropertyID = rt.resolve(entity.KindProperty, r.PropertyID)
			r.RoomID = rt.resolve(entity.KindRoom, r.RoomID)
			r.AssetID = rt.resolve(entity.KindAsset, r.AssetID)
			return r
		})

	result.Remapped = rt.size()

	im.logger.WithFields(logrus.Fields{
		"created":     result.TotalCreated(),
		"remapped":    result.Remapped,
		"errors":      len(result.Errors),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("backup import finished")

	if im.metrics != nil {
		im.metrics.ObserveImport(time.Since(start), len(result.Errors) == 0)
	}
	return result
}

// importKind merges all incoming records of one kind.
//
// id extracts the record identifier (foreign, for incoming records; local,
// for stored ones). dupKey, when non-nil, computes the duplicate-detection
// key; existing records are listed once, at the start of the kind. prepare
// clears the foreign identifier and translates every reference field
// through the remap table.
func importKind[E any](ctx context.Context, im *Importer, rt *remapTable, result *Result,
	kind entity.Kind, recs []E, repo store.Repository[E],
	id func(E) entity.ID,
	dupKey func(E) string,
	prepare func(E, *remapTable) E,
) {
	if len(recs) == 0 {
		return
	}

	var existingKeys map[string]entity.ID
	if dupKey != nil {
		existing, err := repo.GetAll(ctx)
		if err != nil {
			// Without the existing list there is nothing to deduplicate
			// against; fall through and insert everything as new.
			im.logger.WithError(err).WithField("kind", kind).
				Warn("failed to list existing records, duplicate check disabled")
			result.Errors = append(result.Errors, RecordError{
				Kind:    kind,
				Message: fmt.Sprintf("failed to list existing records: %v", err),
			})
		} else {
			existingKeys = make(map[string]entity.ID, len(existing))
			for _, rec := range existing {
				key := dupKey(rec)
				if _, ok := existingKeys[key]; !ok {
					existingKeys[key] = id(rec)
				}
			}
		}
	}

	for _, incoming := range recs {
		fid := foreignID(id(incoming))

		if existingKeys != nil {
			if localID, ok := existingKeys[dupKey(incoming)]; ok {
				rt.put(kind, fid, localID)
				result.Skipped[kind]++
				im.observeRecord(kind, "skipped")
				im.logger.WithFields(logrus.Fields{
					"kind":       kind,
					"foreign_id": string(fid),
					"local_id":   string(localID),
				}).Debug("duplicate suppressed")
				continue
			}
		}

		created, err := repo.Create(ctx, prepare(incoming, rt))
		if err != nil {
			// Best effort: record the failure and keep going. Records
			// referencing this one will have their reference dropped.
			result.Errors = append(result.Errors, RecordError{
				Kind:      kind,
				ForeignID: string(fid),
				Message:   err.Error(),
			})
			im.observeRecord(kind, "error")
			im.logger.WithError(err).WithFields(logrus.Fields{
				"kind":       kind,
				"foreign_id": string(fid),
			}).Warn("record import failed")
			continue
		}

		rt.put(kind, fid, id(created))
		result.Created[kind]++
		im.observeRecord(kind, "created")
	}
}

func (im *Importer) observeRecord(kind entity.Kind, outcome string) {
	if im.metrics != nil {
		im.metrics.ObserveImportRecord(kind, outcome)
	}
}

// workerDupKey matches workers by fold-case name plus exact phone. Two
// workers with neither field set still match each other. Whitespace is
// significant: " Dana" and "Dana" are distinct workers.
func workerDupKey(r entity.Worker) string {
	return strings.ToLower(r.Name) + "\x00" + r.Phone
}

// propertyDupKey matches properties by fold-case name plus fold-case
// address.
func propertyDupKey(r entity.Property) string {
	return strings.ToLower(r.Name) + "\x00" + strings.ToLower(r.Address)
}
