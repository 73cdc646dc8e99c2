package invoice

import (
	"strings"

	"github.com/infinity-9427/invoicing/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DefaultTaxRate is applied to line items that omit a tax rate (percent)
var DefaultTaxRate = decimal.NewFromInt(19)

var (
	hundred    = decimal.NewFromInt(100)
	maxTaxRate = hundred
)

// LineSpec is a caller-supplied line item before amounts are derived
type LineSpec struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	// TaxRate in percent; nil means DefaultTaxRate
	TaxRate *decimal.Decimal
}

// LineAmounts are the derived amounts of a single line item
type LineAmounts struct {
	TaxRate   decimal.Decimal
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// CalculateLine derives tax and total for one line:
//
//	tax_amount = round2(unit_price * quantity * tax_rate / 100)
//	total      = round2(unit_price * quantity) + tax_amount
func CalculateLine(spec LineSpec) (LineAmounts, error) {
	if err := validateLine(spec); err != nil {
		return LineAmounts{}, err
	}

	rate := DefaultTaxRate
	if spec.TaxRate != nil {
		rate = *spec.TaxRate
	}

	gross := spec.UnitPrice.Mul(decimal.NewFromInt(int64(spec.Quantity)))
	tax := gross.Mul(rate).Div(hundred).Round(2)
	subtotal := gross.Round(2)

	return LineAmounts{
		TaxRate:   rate.Round(2),
		Subtotal:  subtotal,
		TaxAmount: tax,
		Total:     subtotal.Add(tax),
	}, nil
}

// CalculateTotals derives every line and the invoice total, in input order
func CalculateTotals(specs []LineSpec) ([]LineAmounts, decimal.Decimal, error) {
	if len(specs) == 0 {
		return nil, decimal.Zero, shared.NewDomainError("INVALID_ITEMS", "At least one item is required")
	}

	lines := make([]LineAmounts, len(specs))
	total := decimal.Zero
	for i, spec := range specs {
		amounts, err := CalculateLine(spec)
		if err != nil {
			return nil, decimal.Zero, err
		}
		lines[i] = amounts
		total = total.Add(amounts.Total)
	}
	return lines, total, nil
}

func validateLine(spec LineSpec) error {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return shared.NewDomainError("INVALID_ITEM_NAME", "Item name is required")
	}
	if len(name) > 255 {
		return shared.NewDomainError("INVALID_ITEM_NAME", "Item name cannot exceed 255 characters")
	}
	if spec.Quantity < 1 {
		return shared.NewDomainError("INVALID_QUANTITY", "Item quantity must be at least 1")
	}
	if spec.UnitPrice.IsNegative() {
		return shared.NewDomainError("INVALID_UNIT_PRICE", "Item unit price must be at least 0")
	}
	if spec.TaxRate != nil && (spec.TaxRate.IsNegative() || spec.TaxRate.GreaterThan(maxTaxRate)) {
		return shared.NewDomainError("INVALID_TAX_RATE", "Item tax rate must be between 0 and 100")
	}
	return nil
}
