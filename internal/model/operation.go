package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OperationKind Enum Simulation
const (
	KindReceipt    = "RECEIPT"
	KindDelivery   = "DELIVERY"
	KindTransfer   = "TRANSFER"
	KindAdjustment = "ADJUSTMENT"
)

// OperationStatus constants
const (
	StatusDraft     = "DRAFT"
	StatusWaiting   = "WAITING"
	StatusReady     = "READY"
	StatusDone      = "DONE"
	StatusCancelled = "CANCELLED"
)

// AdjustmentReason constants — determine the sign and side of the stock delta
const (
	ReasonFound  = "FOUND"  // inventory surplus, counts into the destination
	ReasonDamage = "DAMAGE" // write-off from the source
	ReasonLoss   = "LOSS"   // write-off from the source
)

// Operation represents a stock document (receipt, delivery, transfer or adjustment)
type Operation struct {
	ID                    uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Reference             string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_operations_kind_reference" json:"reference"`
	Kind                  string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_operations_kind_reference;index" json:"kind"`
	Status                string          `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"`
	AdjustmentReason      string          `gorm:"type:varchar(20)" json:"adjustment_reason,omitempty"`
	SourceLocationID      *uuid.UUID      `gorm:"type:uuid;index" json:"source_location_id"`
	SourceLocation        *Location       `gorm:"foreignKey:SourceLocationID" json:"source_location,omitempty"`
	DestinationLocationID *uuid.UUID      `gorm:"type:uuid;index" json:"destination_location_id"`
	DestinationLocation   *Location       `gorm:"foreignKey:DestinationLocationID" json:"destination_location,omitempty"`
	Lines                 []OperationLine `gorm:"foreignKey:OperationID" json:"lines"`
	Note                  string          `gorm:"type:text" json:"note"`
	ScheduledDate         *time.Time      `json:"scheduled_date"`
	CompletedDate         *time.Time      `json:"completed_date"`
	CreatedBy             *uuid.UUID      `gorm:"type:uuid;index" json:"created_by"`
	Creator               *User           `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// OperationLine represents one product entry within an Operation
type OperationLine struct {
	ID               uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OperationID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"operation_id"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product          Product         `gorm:"foreignKey:ProductID" json:"-"`
	ExpectedQuantity int             `gorm:"type:int;not null" json:"expected_quantity"`
	ActualQuantity   int             `gorm:"type:int;not null" json:"actual_quantity"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"unit_price"`
}

// statusTransitions lists the legal edges of the operation state machine.
// DONE and CANCELLED are terminal.
var statusTransitions = map[string][]string{
	StatusDraft:   {StatusWaiting, StatusCancelled},
	StatusWaiting: {StatusReady, StatusDone, StatusCancelled},
	StatusReady:   {StatusDone, StatusCancelled},
}

// CanTransition reports whether the edge from -> to exists in the state machine,
// independent of the operation kind.
func CanTransition(from, to string) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// KindAllowsTransition applies the kind-specific restrictions on top of the
// shared state machine: deliveries and transfers must pass through READY,
// while receipts and adjustments validate straight from WAITING.
func KindAllowsTransition(kind, from, to string) bool {
	if !CanTransition(from, to) {
		return false
	}
	switch {
	case to == StatusReady:
		return kind == KindDelivery || kind == KindTransfer
	case from == StatusWaiting && to == StatusDone:
		return kind == KindReceipt || kind == KindAdjustment
	}
	return true
}

// IsTerminal reports whether no further transitions are possible.
func (o *Operation) IsTerminal() bool {
	return o.Status == StatusDone || o.Status == StatusCancelled
}

// Editable reports whether lines, dates and reference may still be changed.
func (o *Operation) Editable() bool {
	return o.Status == StatusDraft || o.Status == StatusWaiting
}

// ReferencePrefix returns the reference prefix used for generated codes of a kind.
func ReferencePrefix(kind string) string {
	switch kind {
	case KindReceipt:
		return "REC"
	case KindDelivery:
		return "DEL"
	case KindTransfer:
		return "TRF"
	case KindAdjustment:
		return "ADJ"
	}
	return "OP"
}

// StockDelta is one signed (product, location) quantity change produced by a line.
type StockDelta struct {
	ProductID  uuid.UUID
	LocationID uuid.UUID
	Quantity   int
	LineID     uuid.UUID
}

// LineDeltas computes the signed stock deltas a line contributes when the
// operation is validated. Transfers yield a pair (out of source, into
// destination) that must be applied atomically together.
func (o *Operation) LineDeltas(line OperationLine) []StockDelta {
	switch o.Kind {
	case KindReceipt:
		return []StockDelta{{ProductID: line.ProductID, LocationID: *o.DestinationLocationID, Quantity: line.ActualQuantity, LineID: line.ID}}
	case KindDelivery:
		return []StockDelta{{ProductID: line.ProductID, LocationID: *o.SourceLocationID, Quantity: -line.ActualQuantity, LineID: line.ID}}
	case KindTransfer:
		return []StockDelta{
			{ProductID: line.ProductID, LocationID: *o.SourceLocationID, Quantity: -line.ActualQuantity, LineID: line.ID},
			{ProductID: line.ProductID, LocationID: *o.DestinationLocationID, Quantity: line.ActualQuantity, LineID: line.ID},
		}
	case KindAdjustment:
		if o.AdjustmentReason == ReasonFound {
			return []StockDelta{{ProductID: line.ProductID, LocationID: *o.DestinationLocationID, Quantity: line.ActualQuantity, LineID: line.ID}}
		}
		return []StockDelta{{ProductID: line.ProductID, LocationID: *o.SourceLocationID, Quantity: -line.ActualQuantity, LineID: line.ID}}
	}
	return nil
}

// RequiresSource reports whether the kind mandates a source location.
func RequiresSource(kind, reason string) bool {
	switch kind {
	case KindDelivery, KindTransfer:
		return true
	case KindAdjustment:
		return reason == ReasonDamage || reason == ReasonLoss
	}
	return false
}

// RequiresDestination reports whether the kind mandates a destination location.
func RequiresDestination(kind, reason string) bool {
	switch kind {
	case KindReceipt, KindTransfer:
		return true
	case KindAdjustment:
		return reason == ReasonFound
	}
	return false
}

// ValuationTotal sums quantity * unit price across lines (informational only).
func (o *Operation) ValuationTotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range o.Lines {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.ActualQuantity))))
	}
	return total
}
