package inventory

import (
	"time"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/location"
)

// CommittedEvent is emitted after a ledger transaction commits.
type CommittedEvent struct {
	Kind      string
	RecordID  string
	ProductID string
	Locations []location.Location
	At        time.Time
}

const (
	// EventMovement marks receipts, issues and opname.
	EventMovement = "movement"
	// EventTransfer marks transfers.
	EventTransfer = "transfer"
)
