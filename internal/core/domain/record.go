package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of fractional digits money values are rounded to.
const MoneyPlaces = 2

// Unit prices carry at most maxPriceScale fractional digits and never
// exceed maxUnitPrice.
const (
	maxPriceScale    = 10
	maxPriceExponent = 12
)

var maxUnitPrice = decimal.New(1, maxPriceExponent)

type Record struct {
	ID        string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	CreatedAt time.Time
}

// NewRecord validates raw user input and builds a record from it.
// Checks run in a fixed order: quantity format, price format, quantity
// sign, price sign, name. A price outside the supported scale or
// magnitude is a format error; one that rounds to zero is not positive.
func NewRecord(name, quantityInput, priceInput string) (Record, error) {
	const op = "add record"

	quantity, err := strconv.Atoi(strings.TrimSpace(quantityInput))
	if err != nil {
		return Record{}, NewError(op, KindInvalidQuantityFormat)
	}

	price, err := decimal.NewFromString(strings.TrimSpace(priceInput))
	if err != nil || !priceInRange(price) {
		return Record{}, NewError(op, KindInvalidPriceFormat)
	}

	if quantity <= 0 {
		return Record{}, NewError(op, KindNonPositiveQuantity)
	}
	if !price.Round(MoneyPlaces).IsPositive() {
		return Record{}, NewError(op, KindNonPositivePrice)
	}

	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return Record{}, NewError(op, KindEmptyName)
	}

	return Record{
		ID:        uuid.NewString(),
		Name:      trimmed,
		Quantity:  quantity,
		UnitPrice: price,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// priceInRange checks the exponent before comparing magnitudes so huge
// exponents are never rescaled.
func priceInRange(price decimal.Decimal) bool {
	exp := price.Exponent()
	if exp < -maxPriceScale || exp > maxPriceExponent {
		return false
	}
	return price.Abs().LessThanOrEqual(maxUnitPrice)
}

// LineTotal is quantity times unit price, rounded for display.
func (r Record) LineTotal() decimal.Decimal {
	return r.value().Round(MoneyPlaces)
}

func (r Record) value() decimal.Decimal {
	return r.UnitPrice.Mul(decimal.NewFromInt(int64(r.Quantity)))
}

// Line is one row of a listing. DisplayIndex is one-based and only valid
// until the next mutation.
type Line struct {
	DisplayIndex int
	ID           string
	Name         string
	Quantity     int
	UnitPrice    decimal.Decimal
	LineTotal    decimal.Decimal
}

type Aggregates struct {
	DistinctRecordCount int
	TotalQuantity       int
	TotalValue          decimal.Decimal
}
