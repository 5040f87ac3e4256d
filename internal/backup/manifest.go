// Package backup serializes the full dataset into a versioned backup file
// and decodes it again, dispatching through the cipher engine when the file
// is encrypted.
package backup

import (
	"time"

	"github.com/kenneth/homevault/internal/entity"
)

// SchemaVersion is the newest dataset schema this build understands.
// Backups carrying a higher number are rejected rather than guess-migrated.
const SchemaVersion = 3

// File naming conventions. Plain and encrypted exports use distinct
// extensions so a consumer can pick the right unlock path without sniffing.
const (
	PlainExtension     = ".hvbackup.json"
	EncryptedExtension = ".hvbackup"

	PlainMIMEType     = "application/json"
	EncryptedMIMEType = "application/octet-stream"
)

// Manifest describes one export. Written once, never mutated.
type Manifest struct {
	AppVersion    string              `json:"appVersion"`
	SchemaVersion int                 `json:"schemaVersion"`
	CreatedAt     time.Time           `json:"createdAt"`
	Stats         map[entity.Kind]int `json:"stats"`
}

// Dataset is the full exported record set, one list per entity kind. The
// identifiers inside are only meaningful within the file itself; the
// importer treats them as foreign.
type Dataset struct {
	Properties         []entity.Property          `json:"properties"`
	Rooms              []entity.Room              `json:"rooms"`
	Assets             []entity.Asset             `json:"assets"`
	Expenses           []entity.Expense           `json:"expenses"`
	Workers            []entity.Worker            `json:"workers"`
	MaintenanceTasks   []entity.MaintenanceTask   `json:"maintenanceTasks"`
	PaintCodes         []entity.PaintCode         `json:"paintCodes"`
	Measurements       []entity.Measurement       `json:"measurements"`
	StorageBoxes       []entity.StorageBox        `json:"storageBoxes"`
	WifiNetworks       []entity.WifiNetwork       `json:"wifiNetworks"`
	Documents          []entity.Document          `json:"documents"`
	Renovations        []entity.Renovation        `json:"renovations"`
	EmergencyShutoffs  []entity.EmergencyShutoff  `json:"emergencyShutoffs"`
	RecurringTemplates []entity.RecurringTemplate `json:"recurringTemplates"`
	Notes              []entity.Note              `json:"notes"`
}

// Counts returns the number of records per kind, used for manifest stats.
func (d *Dataset) Counts() map[entity.Kind]int {
	return map[entity.Kind]int{
		entity.KindProperty:          len(d.Properties),
		entity.KindRoom:              len(d.Rooms),
		entity.KindAsset:             len(d.Assets),
		entity.KindExpense:           len(d.Expenses),
		entity.KindWorker:            len(d.Workers),
		entity.KindMaintenanceTask:   len(d.MaintenanceTasks),
		entity.KindPaintCode:         len(d.PaintCodes),
		entity.KindMeasurement:       len(d.Measurements),
		entity.KindStorageBox:        len(d.StorageBoxes),
		entity.KindWifiNetwork:       len(d.WifiNetworks),
		entity.KindDocument:          len(d.Documents),
		entity.KindRenovation:        len(d.Renovations),
		entity.KindEmergencyShutoff:  len(d.EmergencyShutoffs),
		entity.KindRecurringTemplate: len(d.RecurringTemplates),
		entity.KindNote:              len(d.Notes),
	}
}

// TotalRecords is the number of records across all kinds.
func (d *Dataset) TotalRecords() int {
	total := 0
	for _, n := range d.Counts() {
		total += n
	}
	return total
}

// File is the decoded backup payload.
type File struct {
	Manifest Manifest `json:"manifest"`
	Data     Dataset  `json:"data"`
}
