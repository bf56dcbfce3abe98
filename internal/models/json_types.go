package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
)

// JSONMap is free-form structured data stored as jsonb.
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *JSONMap) Scan(src any) error {
	b, ok := jsonBytes(src)
	if !ok {
		return fmt.Errorf("cannot scan %T into JSONMap", src)
	}
	if b == nil {
		*m = nil
		return nil
	}
	return json.Unmarshal(b, m)
}

// DocumentPaths maps a document-type label to its blob key.
type DocumentPaths map[string]string

// Clone returns an independent copy; nil stays nil.
func (d DocumentPaths) Clone() DocumentPaths {
	if d == nil {
		return nil
	}
	return maps.Clone(d)
}

// UnmarshalJSON accepts the mapping form and the legacy array of keys,
// which is converted to doc_1, doc_2, ... labels.
func (d *DocumentPaths) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*d = nil
	case map[string]any:
		out := make(DocumentPaths, len(v))
		for label, key := range v {
			s, ok := key.(string)
			if !ok {
				return fmt.Errorf("document path for %q must be a string", label)
			}
			out[label] = s
		}
		*d = out
	case []any:
		out := make(DocumentPaths, len(v))
		for i, key := range v {
			s, ok := key.(string)
			if !ok {
				return fmt.Errorf("document path at index %d must be a string", i)
			}
			out["doc_"+strconv.Itoa(i+1)] = s
		}
		*d = out
	default:
		return fmt.Errorf("document_paths must be an object")
	}
	return nil
}

func (d DocumentPaths) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]string(d))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (d *DocumentPaths) Scan(src any) error {
	b, ok := jsonBytes(src)
	if !ok {
		return fmt.Errorf("cannot scan %T into DocumentPaths", src)
	}
	if b == nil {
		*d = nil
		return nil
	}
	return d.UnmarshalJSON(b)
}

func jsonBytes(src any) ([]byte, bool) {
	switch v := src.(type) {
	case nil:
		return nil, true
	case []byte:
		return v, true
	case string:
		return []byte(v), true
	default:
		return nil, false
	}
}
