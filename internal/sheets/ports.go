package sheets

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ChangeEntry is one row of the change log. Date, Amount and MaasserDue are
// zero for deleted records, which are logged by id only.
type ChangeEntry struct {
	Timestamp  time.Time
	Scope      string
	Kind       string
	Op         string
	ID         string
	Date       time.Time
	Amount     decimal.Decimal
	MaasserDue decimal.Decimal
	Detail     string
}

// Ports for outbound adapters.
type (
	// ChangeWriter appends an entry to the change log and returns a reference
	// to the written row.
	ChangeWriter interface {
		AppendChange(ctx context.Context, e ChangeEntry) (rowRef string, err error)
	}
)

// Header is the column layout of every journal sheet.
var Header = []any{"Horodatage", "Compte", "Type", "Opération", "Id", "Date", "Montant", "Maasser", "Détail"}

// Row renders the entry in Header order.
func (e ChangeEntry) Row() []any {
	row := []any{
		e.Timestamp.UTC().Format(time.RFC3339),
		e.Scope,
		e.Kind,
		e.Op,
		e.ID,
		"", "", "",
		e.Detail,
	}
	if !e.Date.IsZero() {
		row[5] = e.Date.Format(time.DateOnly)
	}
	if !e.Amount.IsZero() {
		row[6] = e.Amount.InexactFloat64()
	}
	if !e.MaasserDue.IsZero() {
		row[7] = e.MaasserDue.InexactFloat64()
	}
	return row
}
