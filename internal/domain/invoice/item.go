package invoice

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is a line of an invoice. Amounts are derived, never supplied.
type Item struct {
	ID          uuid.UUID       `json:"id"`
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	Name        string          `json:"name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// Subtotal returns quantity times unit price, before tax
func (it Item) Subtotal() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))).Round(2)
}

// buildItems derives amounts for specs and returns the items and their total
func buildItems(invoiceID uuid.UUID, specs []LineSpec) ([]Item, decimal.Decimal, error) {
	lines, total, err := CalculateTotals(specs)
	if err != nil {
		return nil, decimal.Zero, err
	}
	items := make([]Item, len(specs))
	for i, spec := range specs {
		items[i] = Item{
			ID:          uuid.New(),
			InvoiceID:   invoiceID,
			Name:        strings.TrimSpace(spec.Name),
			Quantity:    spec.Quantity,
			UnitPrice:   spec.UnitPrice.Round(2),
			TaxRate:     lines[i].TaxRate,
			TaxAmount:   lines[i].TaxAmount,
			TotalAmount: lines[i].Total,
		}
	}
	return items, total, nil
}
