package pricing

import (
	"errors"
	"fmt"
)

// Money represents a monetary value stored in minor units.
type Money = int64

var (
	// ErrLineNotFound is returned when a quantity change targets a product not in the cart.
	ErrLineNotFound = errors.New("cart line not found")
	// ErrInvalidLine indicates a line item violates the pricing constraints.
	ErrInvalidLine = errors.New("invalid cart line")
	// ErrOptionsConflict is returned when a product is re-added with a different option selection.
	ErrOptionsConflict = errors.New("product already in cart with different options")
)

// Line describes a product entry in a cart used for pricing calculation.
type Line struct {
	ProductID    string  `json:"productId"`
	Name         string  `json:"name"`
	UnitPrice    Money   `json:"unitPrice"`
	Quantity     int     `json:"quantity"`
	OptionPrices []Money `json:"optionPrices,omitempty"`
}

// Validate checks the per-line invariants.
func (l Line) Validate() error {
	if l.ProductID == "" {
		return fmt.Errorf("product id required: %w", ErrInvalidLine)
	}
	if l.UnitPrice <= 0 {
		return fmt.Errorf("unit price must be positive: %w", ErrInvalidLine)
	}
	if l.Quantity < 1 {
		return fmt.Errorf("quantity must be at least 1: %w", ErrInvalidLine)
	}
	for _, p := range l.OptionPrices {
		if p < 0 {
			return fmt.Errorf("option price must not be negative: %w", ErrInvalidLine)
		}
	}
	return nil
}

// PerUnit returns the unit price plus every selected option price.
func (l Line) PerUnit() Money {
	unit := l.UnitPrice
	for _, p := range l.OptionPrices {
		unit += p
	}
	return unit
}

// Amount returns the line total.
func (l Line) Amount() Money {
	return l.PerUnit() * Money(l.Quantity)
}

// Fees groups the flat charges applied to every order.
type Fees struct {
	DeliveryFee Money
	ServiceFee  Money
}

// Breakdown aggregates computed pricing components.
type Breakdown struct {
	Subtotal    Money `json:"subtotal"`
	DeliveryFee Money `json:"deliveryFee"`
	ServiceFee  Money `json:"serviceFee"`
	Discount    Money `json:"discount"`
	Tip         Money `json:"tip"`
	GrandTotal  Money `json:"grandTotal"`
}

// Negative reports whether the discount pushed the grand total below zero.
func (b Breakdown) Negative() bool {
	return b.GrandTotal < 0
}

// Subtotal sums every line amount. An empty cart yields 0.
func Subtotal(lines []Line) Money {
	var subtotal Money
	for _, l := range lines {
		subtotal += l.Amount()
	}
	return subtotal
}

// Total combines the components into the grand total.
// The result is not clamped: a discount larger than the rest of the order yields a negative value.
func Total(subtotal, deliveryFee, serviceFee, discount, tip Money) Money {
	return subtotal + deliveryFee + serviceFee + tip - discount
}

// Compute derives the full breakdown from the current cart contents.
func Compute(lines []Line, fees Fees, discount, tip Money) Breakdown {
	subtotal := Subtotal(lines)
	return Breakdown{
		Subtotal:    subtotal,
		DeliveryFee: fees.DeliveryFee,
		ServiceFee:  fees.ServiceFee,
		Discount:    discount,
		Tip:         tip,
		GrandTotal:  Total(subtotal, fees.DeliveryFee, fees.ServiceFee, discount, tip),
	}
}

// ChangeQuantity applies delta to the line for productID and returns a new slice.
// A line whose quantity would drop below 1 is removed and removed is reported as true.
func ChangeQuantity(lines []Line, productID string, delta int) ([]Line, bool, error) {
	idx := indexOf(lines, productID)
	if idx < 0 {
		return lines, false, ErrLineNotFound
	}
	out := make([]Line, len(lines))
	copy(out, lines)
	if delta == 0 {
		return out, false, nil
	}
	qty := out[idx].Quantity + delta
	if qty < 1 {
		return append(out[:idx], out[idx+1:]...), true, nil
	}
	out[idx].Quantity = qty
	return out, false, nil
}

// Add appends line, or merges its quantity into the existing line for the same product.
func Add(lines []Line, line Line) ([]Line, error) {
	if err := line.Validate(); err != nil {
		return lines, err
	}
	out := make([]Line, len(lines), len(lines)+1)
	copy(out, lines)
	if idx := indexOf(out, line.ProductID); idx >= 0 {
		if !sameOptions(out[idx].OptionPrices, line.OptionPrices) {
			return lines, ErrOptionsConflict
		}
		out[idx].Quantity += line.Quantity
		return out, nil
	}
	line.OptionPrices = append([]Money(nil), line.OptionPrices...)
	return append(out, line), nil
}

// Remove drops the line for productID.
func Remove(lines []Line, productID string) ([]Line, error) {
	idx := indexOf(lines, productID)
	if idx < 0 {
		return lines, ErrLineNotFound
	}
	out := make([]Line, 0, len(lines)-1)
	out = append(out, lines[:idx]...)
	return append(out, lines[idx+1:]...), nil
}

func indexOf(lines []Line, productID string) int {
	for i, l := range lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

func sameOptions(a, b []Money) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
