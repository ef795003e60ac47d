package models

import "time"

// CashflowEntry is one append-only ledger line. Amount is signed integer
// cents: positive for inflow, negative for outflow.
type CashflowEntry struct {
	ID          string    `db:"id" json:"id"`
	Category    string    `db:"category" json:"category"`
	Amount      int64     `db:"amount" json:"amount"`
	Description string    `db:"description" json:"description"`
	RecordedBy  *string   `db:"recorded_by" json:"recorded_by,omitempty"`
	VoyageID    *string   `db:"voyage_id" json:"voyage_id,omitempty"`
	OccurredAt  time.Time `db:"occurred_at" json:"occurred_at"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// CashflowLine pairs an entry with the running balance after it.
type CashflowLine struct {
	CashflowEntry
	Balance int64 `json:"balance"`
}

// CashflowFilter captures filtering criteria for the ledger listing.
type CashflowFilter struct {
	Category string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}
