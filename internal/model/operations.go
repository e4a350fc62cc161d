package model

import "github.com/shopspring/decimal"

// Contractor is a row of `contractors`.
type Contractor struct {
	ID            uint64           `json:"id"`
	Name          string           `json:"name"`
	Company       string           `json:"company"`
	Specialty     string           `json:"specialty"`
	ContactPerson string           `json:"contact_person"`
	Email         string           `json:"email"`
	Phone         string           `json:"phone"`
	Status        ContractorStatus `json:"status"`
	ProjectID     *uint64          `json:"project_id"`
	CreationTime  int64            `json:"creation_time"`
}

// Communication is a row of `communications`.  ToUserIDs is frozen at
// creation; ReadBy only ever grows.
type Communication struct {
	ID           uint64            `json:"id"`
	Type         CommunicationType `json:"type"`
	Title        string            `json:"title"`
	Content      string            `json:"content"`
	Priority     Priority          `json:"priority"`
	FromUserID   uint64            `json:"from_user_id"`
	ToUserIDs    IDSet             `json:"to_user_ids"`
	ReadBy       IDSet             `json:"read_by"`
	ProjectID    *uint64           `json:"project_id"`
	CreationTime int64             `json:"creation_time"`
}

// IsRecipient reports whether userID is one of the addressees.
func (c *Communication) IsRecipient(userID uint64) bool { return c.ToUserIDs.Contains(userID) }

// Equipment is a row of `equipment`.
type Equipment struct {
	ID              uint64          `json:"id"`
	Name            string          `json:"name"`
	Type            string          `json:"type"`
	SerialNumber    string          `json:"serial_number"`
	Status          EquipmentStatus `json:"status"`
	Location        string          `json:"location"`
	LastMaintenance *Date           `json:"last_maintenance"`
	Notes           string          `json:"notes"`
	CreationTime    int64           `json:"creation_time"`
}

// EquipmentDispatch links a piece of equipment to a project.
type EquipmentDispatch struct {
	ID           uint64         `json:"id"`
	EquipmentID  uint64         `json:"equipment_id"`
	ProjectID    uint64         `json:"project_id"`
	RequestedBy  uint64         `json:"requested_by"`
	ApprovedBy   *uint64        `json:"approved_by"`
	Status       DispatchStatus `json:"status"`
	DispatchDate Date           `json:"dispatch_date"`
	ReturnDate   *Date          `json:"return_date"`
	ReturnedAt   *int64         `json:"returned_at"`
	Notes        string         `json:"notes"`
	CreationTime int64          `json:"creation_time"`
}

// InventoryItem is a row of `inventory_items`.  Quantity is only changed
// together with an InventoryLog row.
type InventoryItem struct {
	ID           uint64          `json:"id"`
	Name         string          `json:"name"`
	SKU          string          `json:"sku"`
	Category     string          `json:"category"`
	Unit         string          `json:"unit"`
	Quantity     int64           `json:"quantity"`
	MinQuantity  int64           `json:"min_quantity"`
	Location     string          `json:"location"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	CreationTime int64           `json:"creation_time"`
}

// LowStock reports whether the item is at or below its reorder level.
func (i *InventoryItem) LowStock() bool { return i.Quantity <= i.MinQuantity }

// InventoryLog is an immutable ledger row.  QuantityChanged is signed:
// deductions are negative, additions positive.
type InventoryLog struct {
	ID              uint64           `json:"id"`
	ItemID          uint64           `json:"item_id"`
	Type            InventoryLogType `json:"type"`
	QuantityChanged int64            `json:"quantity_changed"`
	QuantityAfter   int64            `json:"quantity_after"`
	Reason          string           `json:"reason"`
	UserID          uint64           `json:"user_id"`
	FromLocation    string           `json:"from_location,omitempty"`
	ToLocation      string           `json:"to_location,omitempty"`
	ProjectID       *uint64          `json:"project_id"`
	CreationTime    int64            `json:"creation_time"`
}

// InventoryRequestLine is one requested item.
type InventoryRequestLine struct {
	ItemID   uint64 `json:"item_id"`
	Quantity int64  `json:"quantity"`
}

// InventoryRequestLines is persisted as a JSON array.
type InventoryRequestLines = JSONList[InventoryRequestLine]

// InventoryRequest is a row of `inventory_requests`.
type InventoryRequest struct {
	ID           uint64                `json:"id"`
	Items        InventoryRequestLines `json:"items"`
	RequestedBy  uint64                `json:"requested_by"`
	ApprovedBy   *uint64               `json:"approved_by"`
	ProjectID    *uint64               `json:"project_id"`
	Status       RequestStatus         `json:"status"`
	Notes        string                `json:"notes"`
	FulfilledAt  *int64                `json:"fulfilled_at"`
	CreationTime int64                 `json:"creation_time"`
}

// PurchaseLine is one line of a purchase request.  EstimatedCost is per unit.
type PurchaseLine struct {
	Name          string          `json:"name"`
	Quantity      int64           `json:"quantity"`
	Unit          string          `json:"unit"`
	EstimatedCost decimal.Decimal `json:"estimated_cost"`
}

// LineTotal is quantity times unit cost.
func (l PurchaseLine) LineTotal() decimal.Decimal {
	return l.EstimatedCost.Mul(decimal.NewFromInt(l.Quantity))
}

// PurchaseLines is persisted as a JSON array.
type PurchaseLines = JSONList[PurchaseLine]

// PurchaseRequest is a row of `purchase_requests`.  TotalEstimatedCost is
// computed once at creation and never re-derived.
type PurchaseRequest struct {
	ID                 uint64          `json:"id"`
	Title              string          `json:"title"`
	Items              PurchaseLines   `json:"items"`
	TotalEstimatedCost decimal.Decimal `json:"total_estimated_cost"`
	Status             PurchaseStatus  `json:"status"`
	Justification      string          `json:"justification"`
	RequestedBy        uint64          `json:"requested_by"`
	ApprovedBy         *uint64         `json:"approved_by"`
	ApprovedAt         *int64          `json:"approved_at"`
	ProjectID          *uint64         `json:"project_id"`
	CreationTime       int64           `json:"creation_time"`
}

// Attendance is a row of `attendance`.  There is at most one row per user
// per date.
type Attendance struct {
	ID           uint64           `json:"id"`
	UserID       uint64           `json:"user_id"`
	Date         Date             `json:"date"`
	CheckIn      *int64           `json:"check_in"`
	CheckOut     *int64           `json:"check_out"`
	Status       AttendanceStatus `json:"status"`
	Location     string           `json:"location"`
	Notes        string           `json:"notes"`
	CreationTime int64            `json:"creation_time"`
}
