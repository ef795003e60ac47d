package models

import "time"

// VoyageStatus is the lifecycle state of a shipping operation.
type VoyageStatus string

const (
	VoyagePlanned   VoyageStatus = "planned"
	VoyageUnderway  VoyageStatus = "underway"
	VoyageCompleted VoyageStatus = "completed"
	VoyageSettled   VoyageStatus = "settled"
)

// voyageTransitions is the allowed successor table; settlement is terminal.
var voyageTransitions = map[VoyageStatus][]VoyageStatus{
	VoyagePlanned:   {VoyageUnderway},
	VoyageUnderway:  {VoyageCompleted},
	VoyageCompleted: {VoyageSettled},
	VoyageSettled:   {},
}

// CanTransition reports whether the voyage may move to the given status.
func (s VoyageStatus) CanTransition(to VoyageStatus) bool {
	for _, next := range voyageTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Voyage tracks one shipping operation. Monetary amounts are integer cents.
type Voyage struct {
	ID           string       `db:"id" json:"id"`
	Name         string       `db:"name" json:"name"`
	VesselName   string       `db:"vessel_name" json:"vessel_name"`
	Status       VoyageStatus `db:"status" json:"status"`
	GrossRevenue int64        `db:"gross_revenue" json:"gross_revenue"`
	Expenses     int64        `db:"expenses" json:"expenses"`
	DepartedAt   *time.Time   `db:"departed_at" json:"departed_at,omitempty"`
	ReturnedAt   *time.Time   `db:"returned_at" json:"returned_at,omitempty"`
	SettledAt    *time.Time   `db:"settled_at" json:"settled_at,omitempty"`
	Notes        string       `db:"notes" json:"notes"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// VoyageCrew assigns an employee to a voyage with a payout share percentage.
type VoyageCrew struct {
	ID         string `db:"id" json:"id"`
	VoyageID   string `db:"voyage_id" json:"voyage_id"`
	EmployeeID string `db:"employee_id" json:"employee_id"`
	SharePct   int    `db:"share_pct" json:"share_pct"`
	Payout     int64  `db:"payout" json:"payout"`
}

// Settlement is the computed outcome of settling a voyage.
type Settlement struct {
	VoyageID     string       `json:"voyage_id"`
	Net          int64        `json:"net"`
	CompanyShare int64        `json:"company_share"`
	Crew         []VoyageCrew `json:"crew"`
}

// VoyageFilter captures filtering criteria for listing voyages.
type VoyageFilter struct {
	Status   *VoyageStatus
	Search   string
	Page     int
	PageSize int
}
