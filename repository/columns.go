package repository

import (
	"database/sql/driver"

	"github.com/goccy/go-json"

	"HipHopLab/model"
)

// columnBytes normalizes the driver value of a JSON column. A nil result
// means the column is NULL or empty.
func columnBytes(value interface{}) []byte {
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}
	if len(bytes) == 0 || string(bytes) == "null" {
		return nil
	}
	return bytes
}

// LyricLines stores a track's lyrics as a JSON column.
type LyricLines []model.LyricLine

// Scan implements sql.Scanner.
func (l *LyricLines) Scan(value interface{}) error {
	bytes := columnBytes(value)
	if bytes == nil {
		*l = nil
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// Value implements driver.Valuer.
func (l LyricLines) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Gains stores an equalizer gain vector as a JSON column.
type Gains []float64

// Scan implements sql.Scanner.
func (g *Gains) Scan(value interface{}) error {
	bytes := columnBytes(value)
	if bytes == nil {
		*g = nil
		return nil
	}
	return json.Unmarshal(bytes, g)
}

// Value implements driver.Valuer.
func (g Gains) Value() (driver.Value, error) {
	if g == nil {
		return nil, nil
	}
	return json.Marshal(g)
}
