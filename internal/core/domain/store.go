package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

// Store is an ordered, in-memory collection of inventory records belonging
// to a single session. It is not safe for concurrent use.
type Store struct {
	records       []Record
	totalQuantity int
}

func NewStore() *Store {
	return &Store{}
}

// NewSeededStore returns a store holding the two example records.
func NewSeededStore() *Store {
	s := NewStore()
	for _, seed := range []struct{ name, quantity, price string }{
		{"Laptop Business X", "5", "4500.00"},
		{"Wireless Mouse", "50", "89.99"},
	} {
		// Seed values are constants and always valid.
		if _, err := s.Add(seed.name, seed.quantity, seed.price); err != nil {
			panic(err)
		}
	}
	return s
}

// Add validates the input and appends a new record.
func (s *Store) Add(name, quantityInput, priceInput string) (Record, error) {
	rec, err := NewRecord(name, quantityInput, priceInput)
	if err != nil {
		return Record{}, err
	}
	if err := s.Append(rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// CanAppend reports whether rec fits without the total quantity
// overflowing.
func (s *Store) CanAppend(rec Record) error {
	if rec.Quantity > math.MaxInt-s.totalQuantity {
		return NewError("add record", KindQuantityOverflow)
	}
	return nil
}

// Append adds an already validated record to the end of the store.
func (s *Store) Append(rec Record) error {
	if err := s.CanAppend(rec); err != nil {
		return err
	}
	s.records = append(s.records, rec)
	s.totalQuantity += rec.Quantity
	return nil
}

// Remove deletes the record at the zero-based position and returns its name.
// Records after position move down by one.
func (s *Store) Remove(position int) (string, error) {
	if position < 0 || position >= len(s.records) {
		return "", NewError("remove record", KindIndexOutOfRange)
	}
	name := s.records[position].Name
	s.totalQuantity -= s.records[position].Quantity
	s.records = append(s.records[:position], s.records[position+1:]...)
	return name, nil
}

// RemoveByID deletes the record with the given id and returns its name.
func (s *Store) RemoveByID(id string) (string, error) {
	for i, rec := range s.records {
		if rec.ID == id {
			return s.Remove(i)
		}
	}
	return "", NewError("remove record", KindRecordNotFound)
}

func (s *Store) Len() int {
	return len(s.records)
}

// Records returns a copy of the records in insertion order.
func (s *Store) Records() []Record {
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// List returns display rows with freshly derived one-based indices.
func (s *Store) List() []Line {
	lines := make([]Line, 0, len(s.records))
	for i, rec := range s.records {
		lines = append(lines, Line{
			DisplayIndex: i + 1,
			ID:           rec.ID,
			Name:         rec.Name,
			Quantity:     rec.Quantity,
			UnitPrice:    rec.UnitPrice,
			LineTotal:    rec.LineTotal(),
		})
	}
	return lines
}

// Aggregates sums over all records. An empty store yields zero values.
func (s *Store) Aggregates() Aggregates {
	agg := Aggregates{TotalValue: decimal.Zero}
	for _, rec := range s.records {
		agg.DistinctRecordCount++
		agg.TotalQuantity += rec.Quantity
		agg.TotalValue = agg.TotalValue.Add(rec.value())
	}
	agg.TotalValue = agg.TotalValue.Round(MoneyPlaces)
	return agg
}
