package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// JSONMap is a structured key/value map persisted as a JSON column,
// for loosely-typed payloads (e.g. Restaurant.Config) that don't
// warrant a side table.
type JSONMap map[string]any

// Value implements driver.Valuer for GORM/database-sql.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("JSONMap: unsupported scan source")
	}
	if len(b) == 0 {
		*m = JSONMap{}
		return nil
	}
	out := JSONMap{}
	if err := json.Unmarshal(b, &out); err != nil {
		return err
	}
	*m = out
	return nil
}
