package model

import (
	"database/sql/driver"
	"encoding/json"
)

// JSONList is a slice persisted as a JSON array in a text column.
type JSONList[T any] []T

func (l JSONList[T]) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]T(l))
}

func (l JSONList[T]) Value() (driver.Value, error) {
	b, err := l.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *JSONList[T]) Scan(src any) error {
	b, err := jsonBytes(src)
	if err != nil {
		return err
	}
	var out []T
	if len(b) > 0 {
		if err := json.Unmarshal(b, &out); err != nil {
			return err
		}
	}
	if out == nil {
		out = []T{}
	}
	*l = out
	return nil
}
