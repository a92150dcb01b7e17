package promo

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/noah-isme/fidelia-cart/internal/pricing"
)

var (
	// ErrNotFound is returned when a code does not match any known promo. It is a normal outcome
	// that callers surface to the user as a rejection.
	ErrNotFound = errors.New("promo code not recognized")
	// ErrDuplicateCode indicates two catalog entries share the same code ignoring case.
	ErrDuplicateCode = errors.New("duplicate promo code")
	// ErrInvalidDefinition is returned for malformed catalog definitions.
	ErrInvalidDefinition = errors.New("invalid promo definition")
)

// DefaultCatalog is used when no promo codes are configured.
const DefaultCatalog = "FIDELIA10:1000"

// Code is a promo that grants a fixed discount.
type Code struct {
	Code   string        `json:"code"`
	Amount pricing.Money `json:"amount"`
}

// Catalog holds the known promos keyed by normalised code.
type Catalog struct {
	byKey map[string]Code
}

// NewCatalog builds a catalog from the provided codes.
func NewCatalog(codes ...Code) (Catalog, error) {
	c := Catalog{byKey: make(map[string]Code, len(codes))}
	for _, code := range codes {
		key := normalise(code.Code)
		if key == "" {
			return Catalog{}, fmt.Errorf("empty code: %w", ErrInvalidDefinition)
		}
		if code.Amount < 0 {
			return Catalog{}, fmt.Errorf("%s: negative amount: %w", code.Code, ErrInvalidDefinition)
		}
		if _, exists := c.byKey[key]; exists {
			return Catalog{}, fmt.Errorf("%s: %w", code.Code, ErrDuplicateCode)
		}
		code.Code = strings.TrimSpace(code.Code)
		c.byKey[key] = code
	}
	return c, nil
}

// ParseCatalog reads a comma-separated list of CODE:amount pairs.
func ParseCatalog(csv string) (Catalog, error) {
	var codes []Code
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, amount, ok := strings.Cut(part, ":")
		if !ok {
			return Catalog{}, fmt.Errorf("%q: expected CODE:amount: %w", part, ErrInvalidDefinition)
		}
		value, err := strconv.ParseInt(strings.TrimSpace(amount), 10, 64)
		if err != nil {
			return Catalog{}, fmt.Errorf("%q: parse amount: %w", part, ErrInvalidDefinition)
		}
		codes = append(codes, Code{Code: name, Amount: value})
	}
	return NewCatalog(codes...)
}

// Lookup matches code case-insensitively against the catalog.
func (c Catalog) Lookup(code string) (Code, error) {
	key := normalise(code)
	if key == "" {
		return Code{}, ErrNotFound
	}
	match, ok := c.byKey[key]
	if !ok {
		return Code{}, ErrNotFound
	}
	return match, nil
}

// Codes returns the catalog entries sorted by code.
func (c Catalog) Codes() []Code {
	out := make([]Code, 0, len(c.byKey))
	for _, code := range c.byKey {
		out = append(out, code)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Len returns the number of known promos.
func (c Catalog) Len() int {
	return len(c.byKey)
}

func normalise(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
