package domain

import "time"

type Zone string

const (
	ZoneInterior Zone = "interior"
	ZoneExterior Zone = "exterior"
)

type Table struct {
	ID          string `json:"id"`
	Seats       int    `json:"seats"`
	IsAvailable bool   `json:"isAvailable"`
}

// Inventory is the full set of physical tables a restaurant owns,
// partitioned by zone. It is persisted as a single document.
type Inventory struct {
	Interior []Table `json:"interior"`
	Exterior []Table `json:"exterior"`
}

// Tables returns the table slice for the given zone. Unknown zones
// return nil, which callers treat as "zone not configured".
func (inv *Inventory) Tables(zone Zone) []Table {
	switch zone {
	case ZoneInterior:
		return inv.Interior
	case ZoneExterior:
		return inv.Exterior
	}
	return nil
}

// Table returns a pointer into the inventory for in-place mutation,
// or nil when the table does not exist in that zone.
func (inv *Inventory) Table(zone Zone, tableID string) *Table {
	tables := inv.Tables(zone)
	for i := range tables {
		if tables[i].ID == tableID {
			return &tables[i]
		}
	}
	return nil
}

func (inv Inventory) Clone() Inventory {
	out := Inventory{}
	if inv.Interior != nil {
		out.Interior = make([]Table, len(inv.Interior))
		copy(out.Interior, inv.Interior)
	}
	if inv.Exterior != nil {
		out.Exterior = make([]Table, len(inv.Exterior))
		copy(out.Exterior, inv.Exterior)
	}
	return out
}

type Restaurant struct {
	ID               string
	Name             string
	Inventory        Inventory
	InventoryVersion int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
