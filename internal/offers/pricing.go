package offers

import (
	"fmt"
	"math"
)

// Calculator derives line and offer totals. It is pure: recomputing over the
// same items always reproduces the stored totals exactly.
type Calculator struct {
	defaultTaxRate float64
	defaultMode    TaxMode
}

// NewCalculator builds a Calculator with company defaults. The defaults apply
// only when an item carries no explicit tax rate or mode.
func NewCalculator(defaultTaxRate float64, defaultMode TaxMode) *Calculator {
	if defaultMode == "" {
		defaultMode = TaxInclusive
	}
	return &Calculator{defaultTaxRate: defaultTaxRate, defaultMode: defaultMode}
}

// LineAmounts holds the derived monetary values of a single line.
type LineAmounts struct {
	// Discount actually applied, in minor units.
	Discount int64
	// Net is the post-discount, pre-tax value.
	Net int64
	// Tax derived from the line's tax mode.
	Tax int64
	// Total is the stored total_price: gross for inclusive lines, net for
	// exclusive lines.
	Total int64
}

// Line computes the amounts for one item. Percentage discounts take
// precedence over fixed discount amounts when both are set.
func (c *Calculator) Line(item OfferItem) (LineAmounts, error) {
	if item.Quantity <= 0 {
		return LineAmounts{}, fmt.Errorf("%w: quantity must be a positive integer", ErrValidation)
	}
	if item.UnitPrice < 0 {
		return LineAmounts{}, fmt.Errorf("%w: unit price must not be negative", ErrValidation)
	}
	if item.DiscountPercent < 0 || item.DiscountPercent > 100 {
		return LineAmounts{}, fmt.Errorf("%w: discount percent must be between 0 and 100", ErrValidation)
	}
	rate := item.TaxRate
	if rate < 0 || rate > 100 {
		return LineAmounts{}, fmt.Errorf("%w: tax rate must be between 0 and 100", ErrValidation)
	}

	gross := item.UnitPrice * item.Quantity

	var discount int64
	if item.DiscountPercent > 0 {
		discount = roundHalfUp(float64(gross) * item.DiscountPercent / 100)
	} else if item.DiscountAmount > 0 {
		discount = item.DiscountAmount
		if discount > gross {
			discount = gross
		}
	}
	value := gross - discount

	mode := item.TaxMode
	if mode == "" {
		mode = c.defaultMode
	}

	la := LineAmounts{Discount: discount, Total: value}
	switch mode {
	case TaxExclusive:
		la.Net = value
		la.Tax = roundHalfUp(float64(value) * rate / 100)
	default:
		la.Net = roundHalfUp(float64(value) / (1 + rate/100))
		la.Tax = value - la.Net
	}
	return la, nil
}

// Totals aggregates a list of items into offer subtotal, tax and total.
// The invariant total == subtotal + tax holds for any mix of tax modes.
func (c *Calculator) Totals(items []OfferItem) (subtotal, tax, total int64, err error) {
	for _, item := range items {
		la, lerr := c.Line(item)
		if lerr != nil {
			return 0, 0, 0, lerr
		}
		mode := item.TaxMode
		if mode == "" {
			mode = c.defaultMode
		}
		tax += la.Tax
		if mode == TaxExclusive {
			total += la.Total + la.Tax
		} else {
			total += la.Total
		}
	}
	subtotal = total - tax
	return subtotal, tax, total, nil
}

// Apply recomputes an item's derived fields in place.
func (c *Calculator) Apply(item *OfferItem) error {
	la, err := c.Line(*item)
	if err != nil {
		return err
	}
	item.DiscountAmount = la.Discount
	item.TaxAmount = la.Tax
	item.TotalPrice = la.Total
	if item.TaxMode == "" {
		item.TaxMode = c.defaultMode
	}
	return nil
}

// DefaultTaxRate exposes the configured company default.
func (c *Calculator) DefaultTaxRate() float64 {
	return c.defaultTaxRate
}

// roundHalfUp rounds to the nearest minor unit, halves away from zero.
// Truncation would systematically under-charge.
func roundHalfUp(x float64) int64 {
	if x < 0 {
		return -int64(math.Floor(-x + 0.5))
	}
	return int64(math.Floor(x + 0.5))
}
