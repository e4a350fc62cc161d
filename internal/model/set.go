package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/samber/lo"
)

// OrderedSet is a slice that never holds the same element twice.  Insertion
// order is kept so JSON output is stable.  It is persisted as a JSON array
// in a single text column.
type OrderedSet[T comparable] []T

// IDSet holds row ids such as recipients and read receipts.
type IDSet = OrderedSet[uint64]

// RefSet holds storage reference ids such as project documents.
type RefSet = OrderedSet[string]

// NewOrderedSet builds a set from vals, dropping repeats after the first.
func NewOrderedSet[T comparable](vals ...T) OrderedSet[T] {
	return OrderedSet[T](lo.Uniq(vals))
}

func (s OrderedSet[T]) Contains(v T) bool { return lo.Contains(s, v) }

// Add returns the set with v appended and whether it was absent before.
func (s OrderedSet[T]) Add(v T) (OrderedSet[T], bool) {
	if s.Contains(v) {
		return s, false
	}
	return append(s, v), true
}

// Remove returns the set without v and whether v had been present.
func (s OrderedSet[T]) Remove(v T) (OrderedSet[T], bool) {
	if !s.Contains(v) {
		return s, false
	}
	return OrderedSet[T](lo.Without([]T(s), v)), true
}

func (s OrderedSet[T]) Len() int { return len(s) }

// MarshalJSON renders an empty set as [] rather than null.
func (s OrderedSet[T]) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]T(s))
}

// UnmarshalJSON drops duplicate entries from client input.
func (s *OrderedSet[T]) UnmarshalJSON(b []byte) error {
	var vals []T
	if err := json.Unmarshal(b, &vals); err != nil {
		return err
	}
	*s = NewOrderedSet(vals...)
	return nil
}

func (s OrderedSet[T]) Value() (driver.Value, error) {
	b, err := s.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *OrderedSet[T]) Scan(src any) error {
	b, err := jsonBytes(src)
	if err != nil {
		return err
	}
	if len(b) == 0 {
		*s = OrderedSet[T]{}
		return nil
	}
	return s.UnmarshalJSON(b)
}

// jsonBytes normalizes what drivers hand back for TEXT/JSON columns.
func jsonBytes(src any) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("model: cannot scan %T as JSON", src)
	}
}
