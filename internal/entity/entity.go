// Package entity defines the record types managed by the application and
// carried in backups. Identifiers are a dedicated string type so that
// record references cannot be confused with arbitrary strings; identifiers
// found in a foreign backup are only ever translated into local ones by the
// importer, never stored as-is.
package entity

// ID is a local record identifier. The zero value means "unset" and is the
// only legal value for a reference whose target does not exist locally.
type ID string

// IsZero reports whether the identifier is unset.
func (id ID) IsZero() bool {
	return id == ""
}

// Kind names one of the record collections. The string values double as the
// JSON keys of the backup dataset and must not change between releases.
type Kind string

const (
	KindProperty          Kind = "properties"
	KindRoom              Kind = "rooms"
	KindAsset             Kind = "assets"
	KindExpense           Kind = "expenses"
	KindWorker            Kind = "workers"
	KindMaintenanceTask   Kind = "maintenanceTasks"
	KindPaintCode         Kind = "paintCodes"
	KindMeasurement       Kind = "measurements"
	KindStorageBox        Kind = "storageBoxes"
	KindWifiNetwork       Kind = "wifiNetworks"
	KindDocument          Kind = "documents"
	KindRenovation        Kind = "renovations"
	KindEmergencyShutoff  Kind = "emergencyShutoffs"
	KindRecurringTemplate Kind = "recurringTemplates"
	KindNote              Kind = "notes"
)

// ImportOrder lists every kind in dependency order: a kind appears only
// after every kind it can reference. The importer relies on this so that
// remapped identifiers for referenced records already exist when the
// referencing records are processed.
var ImportOrder = []Kind{
	KindWorker,
	KindProperty,
	KindRoom,
	KindAsset,
	KindExpense,
	KindMaintenanceTask,
	KindPaintCode,
	KindMeasurement,
	KindStorageBox,
	KindWifiNetwork,
	KindDocument,
	KindRenovation,
	KindEmergencyShutoff,
	KindRecurringTemplate,
	KindNote,
}

// Property is a house, apartment or other managed building. No outgoing
// references.
type Property struct {
	ID      ID     `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Notes   string `json:"notes,omitempty"`
}

// Worker is a tradesperson or service contact. No outgoing references.
type Worker struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
	Trade string `json:"trade,omitempty"`
}

// Room belongs to a property.
type Room struct {
	ID         ID     `json:"id"`
	PropertyID ID     `json:"propertyId,omitempty"`
	Name       string `json:"name"`
	Floor      int    `json:"floor,omitempty"`
}

// Asset is an appliance or fixture, optionally placed in a room.
type Asset struct {
	ID            ID     `json:"id"`
	PropertyID    ID     `json:"propertyId,omitempty"`
	RoomID        ID     `json:"roomId,omitempty"`
	Name          string `json:"name"`
	Make          string `json:"make,omitempty"`
	Model         string `json:"model,omitempty"`
	SerialNumber  string `json:"serialNumber,omitempty"`
	PurchaseDate  string `json:"purchaseDate,omitempty"`
	WarrantyUntil string `json:"warrantyUntil,omitempty"`
}

// Expense records money spent on a property, asset or worker.
type Expense struct {
	ID          ID     `json:"id"`
	PropertyID  ID     `json:"propertyId,omitempty"`
	AssetID     ID     `json:"assetId,omitempty"`
	WorkerID    ID     `json:"workerId,omitempty"`
	AmountCents int64  `json:"amountCents"`
	Date        string `json:"date,omitempty"`
	Category    string `json:"category,omitempty"`
	Note        string `json:"note,omitempty"`
}

// MaintenanceTask is a one-off job, optionally assigned to a worker.
type MaintenanceTask struct {
	ID         ID     `json:"id"`
	PropertyID ID     `json:"propertyId,omitempty"`
	AssetID    ID     `json:"assetId,omitempty"`
	WorkerID   ID     `json:"workerId,omitempty"`
	Title      string `json:"title"`
	DueDate    string `json:"dueDate,omitempty"`
	Done       bool   `json:"done,omitempty"`
}

// PaintCode remembers which paint was used where.
type PaintCode struct {
	ID         ID     `json:"id"`
	PropertyID ID     `json:"propertyId,omitempty"`
	RoomID     ID     `json:"roomId,omitempty"`
	Name       string `json:"name"`
	Code       string `json:"code,omitempty"`
	Brand      string `json:"brand,omitempty"`
	Finish     string `json:"finish,omitempty"`
}

// Measurement is a stored dimension (window width, ceiling height, ...).
type Measurement struct {
	ID         ID      `json:"id"`
	PropertyID ID      `json:"propertyId,omitempty"`
	RoomID     ID      `json:"roomId,omitempty"`
	Label      string  `json:"label"`
	Value      float64 `json:"value"`
	Unit       string  `json:"unit,omitempty"`
}

// StorageBox tracks what is stored in which box, and where the box lives.
type StorageBox struct {
	ID         ID     `json:"id"`
	PropertyID ID     `json:"propertyId,omitempty"`
	RoomID     ID     `json:"roomId,omitempty"`
	Label      string `json:"label"`
	Contents   string `json:"contents,omitempty"`
}

// WifiNetwork stores credentials for a network at a property.
type WifiNetwork struct {
	ID         ID     `json:"id"`
	PropertyID ID     `json:"propertyId,omitempty"`
	SSID       string `json:"ssid"`
	Password   string `json:"password,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// Document is a pointer to a stored file (manual, invoice, warranty scan).
type Document struct {
	ID         ID     `json:"id"`
	PropertyID ID     `json:"propertyId,omitempty"`
	AssetID    ID     `json:"assetId,omitempty"`
	Title      string `json:"title"`
	Path       string `json:"path,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
}

// Renovation is a larger project with a time span and optional contractor.
type Renovation struct {
	ID          ID     `json:"id"`
	PropertyID  ID     `json:"propertyId,omitempty"`
	RoomID      ID     `json:"roomId,omitempty"`
	WorkerID    ID     `json:"workerId,omitempty"`
	Title       string `json:"title"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
	BudgetCents int64  `json:"budgetCents,omitempty"`
}

// EmergencyShutoff records where a main valve or breaker is and how to
// operate it.
type EmergencyShutoff struct {
	ID           ID     `json:"id"`
	PropertyID   ID     `json:"propertyId,omitempty"`
	Kind         string `json:"kind"`
	Location     string `json:"location,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// RecurringTemplate describes a repeating maintenance job.
type RecurringTemplate struct {
	ID           ID     `json:"id"`
	PropertyID   ID     `json:"propertyId,omitempty"`
	AssetID      ID     `json:"assetId,omitempty"`
	Title        string `json:"title"`
	IntervalDays int    `json:"intervalDays,omitempty"`
	NextDue      string `json:"nextDue,omitempty"`
}

// Note is free-form text attached to a property, room or asset.
type Note struct {
	ID         ID     `json:"id"`
	PropertyID ID     `json:"propertyId,omitempty"`
	RoomID     ID     `json:"roomId,omitempty"`
	AssetID    ID     `json:"assetId,omitempty"`
	Body       string `json:"body"`
	Pinned     bool   `json:"pinned,omitempty"`
}
